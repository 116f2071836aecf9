// Package gateway issues authenticated reducer calls. It is stateless
// apart from the session it shares with the connection manager; the
// effects of a successful call become visible only when the matching
// delta arrives through the subscription feed.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/playroom-app/playroom-client/internal/session"
	"github.com/playroom-app/playroom-client/internal/wire"
)

// Response headers carrying a rotated identity/token. Any present
// value is persisted before Call returns.
const (
	HeaderIdentity = "X-Session-Identity"
	HeaderToken    = "X-Session-Token"
)

// Result is the outcome of a reducer call. Server-declared application
// failures land here with OK false and the response body as Error;
// only transport-level failures surface as Go errors from Call.
type Result struct {
	OK      bool
	Status  int
	Error   string
	Payload json.RawMessage // nil on an empty success body
}

type Gateway struct {
	base string
	sess *session.Session
	hc   *http.Client
	log  *zap.Logger
}

func New(base string, sess *session.Session, log *zap.Logger) *Gateway {
	return &Gateway{
		base: strings.TrimRight(base, "/"),
		sess: sess,
		hc:   &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

// Call invokes the named reducer with args serialized as an ordered
// JSON sequence.
func (g *Gateway) Call(ctx context.Context, name string, args ...any) (Result, error) {
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return Result{}, fmt.Errorf("gateway: marshal args: %w", err)
	}

	endpoint := g.base + "/call/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	identity, token := g.sess.Credentials()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if identity != "" {
		req.Header.Set(HeaderIdentity, identity)
	}

	resp, err := g.hc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("gateway: call %s: %w", name, err)
	}
	defer resp.Body.Close()

	g.rotateFromHeaders(resp.Header)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("gateway: read response for %s: %w", name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.log.Debug("reducer rejected",
			zap.String("reducer", name),
			zap.Int("status", resp.StatusCode))
		return Result{Status: resp.StatusCode, Error: string(data)}, nil
	}

	res := Result{OK: true, Status: resp.StatusCode}
	if len(data) > 0 {
		res.Payload = data
	}
	return res, nil
}

func (g *Gateway) rotateFromHeaders(h http.Header) {
	identity := h.Get(HeaderIdentity)
	token := h.Get(HeaderToken)
	if identity == "" && token == "" {
		return
	}
	g.sess.Rotate(wire.CanonicalIdentity(identity), token)
	g.log.Debug("credentials rotated by reducer response")
}

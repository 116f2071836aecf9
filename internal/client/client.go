// Package client wires the session, connection manager, mirror,
// derivation engine and reducer gateway into one object with a defined
// construction and teardown.
package client

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/playroom-app/playroom-client/internal/config"
	"github.com/playroom-app/playroom-client/internal/conn"
	"github.com/playroom-app/playroom-client/internal/gateway"
	"github.com/playroom-app/playroom-client/internal/mirror"
	"github.com/playroom-app/playroom-client/internal/session"
	"github.com/playroom-app/playroom-client/internal/views"
	"github.com/playroom-app/playroom-client/internal/wire"
)

type Client struct {
	Session *session.Session
	Conn    *conn.Manager
	Mirror  *mirror.Mirror
	Views   *views.Engine
	Gateway *gateway.Gateway

	cfg   *config.Config
	store *session.Store
	log   *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) (*Client, error) {
	store, err := session.OpenStore(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}
	c := newWith(cfg, session.New(store, log), log)
	c.store = store
	return c, nil
}

// NewEphemeral builds a client without persisted credentials. Used by
// tests and throwaway sessions.
func NewEphemeral(cfg *config.Config, log *zap.Logger) *Client {
	return newWith(cfg, session.New(nil, log), log)
}

func newWith(cfg *config.Config, sess *session.Session, log *zap.Logger) *Client {
	m := mirror.New(log)
	c := &Client{
		Session: sess,
		Mirror:  m,
		Views:   views.NewEngine(m, log),
		Gateway: gateway.New(cfg.GatewayURL, sess, log),
		cfg:     cfg,
		log:     log,
	}
	c.Conn = conn.New(conn.Config{
		URL:         cfg.ServerURL,
		BackoffBase: cfg.BackoffBase,
		BackoffCap:  cfg.BackoffCap,
		MaxAttempts: cfg.MaxAttempts,
	}, sess, c.HandleFrame, log)
	return c
}

// Connect loads stored credentials and opens the subscription socket.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.Session.LoadStored(); err != nil {
		return err
	}
	return c.Conn.Connect(ctx)
}

// Close tears the client down without touching stored credentials.
func (c *Client) Close() error {
	c.Conn.Disconnect()
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// Logout clears credentials everywhere and disconnects on purpose.
func (c *Client) Logout() error {
	err := c.Session.Clear()
	c.Conn.Disconnect()
	return err
}

// HandleFrame runs on the connection's read goroutine: it applies
// every table update the frame carries, then triggers one recompute
// with the full dirty set, so derivations never observe the frame
// half-applied. A frame may list the same table more than once; those
// entries merge before applying so deletes precede inserts across the
// whole message, not just within one entry.
func (c *Client) HandleFrame(f *wire.ServerFrame) {
	updates := f.TableUpdates()
	if len(updates) == 0 {
		return
	}
	type batch struct {
		deletes, inserts []json.RawMessage
	}
	merged := map[string]*batch{}
	var order []string
	for _, tu := range updates {
		b, ok := merged[tu.TableName]
		if !ok {
			b = &batch{}
			merged[tu.TableName] = b
			order = append(order, tu.TableName)
		}
		deletes, inserts := tu.Flatten()
		b.deletes = append(b.deletes, deletes...)
		b.inserts = append(b.inserts, inserts...)
	}
	dirty := map[string]bool{}
	for _, table := range order {
		b := merged[table]
		if c.Mirror.Apply(table, b.deletes, b.inserts) {
			dirty[table] = true
		}
	}
	if len(dirty) > 0 {
		c.Views.Recompute(dirty)
	}
}

// AwaitSync polls pred at the configured interval until it holds or
// the timeout passes. It bridges the gap between a reducer call's
// commit and the arrival of the matching subscription delta, returning
// false on timeout rather than blocking forever.
func (c *Client) AwaitSync(ctx context.Context, pred func() bool) bool {
	if pred() {
		return true
	}
	deadline := time.NewTimer(c.cfg.SyncTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(c.cfg.SyncInterval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if pred() {
				return true
			}
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

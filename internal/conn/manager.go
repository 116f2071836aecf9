// Package conn owns the long-lived subscription socket: dialing, the
// phased subscribe requests, the identity handshake, and the bounded
// backoff reconnect policy.
package conn

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/playroom-app/playroom-client/internal/observe"
	"github.com/playroom-app/playroom-client/internal/session"
	"github.com/playroom-app/playroom-client/internal/wire"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

type Config struct {
	URL          string
	BackoffBase  time.Duration
	BackoffCap   time.Duration
	MaxAttempts  int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
}

// FrameHandler receives every parsed server frame, handshake frames
// included, on the read-loop goroutine. The handler is the mirror's
// single writer.
type FrameHandler func(*wire.ServerFrame)

type Manager struct {
	cfg    Config
	sess   *session.Session
	log    *zap.Logger
	handle FrameHandler

	// StateChanges publishes every lifecycle transition. Exhausted
	// publishes the attempt count once the retry budget is spent;
	// giving up is reported, never thrown.
	StateChanges *observe.Registry[State]
	Exhausted    *observe.Registry[int]

	mu          sync.Mutex
	ctx         context.Context
	state       State
	ws          *websocket.Conn
	intentional bool
	attempts    int
	reconnect   *time.Timer
	nextReq     uint64
	ready       chan struct{}
}

func New(cfg Config, sess *session.Session, handle FrameHandler, log *zap.Logger) *Manager {
	cfg.applyDefaults()
	return &Manager{
		cfg:          cfg,
		sess:         sess,
		log:          log,
		handle:       handle,
		StateChanges: observe.NewRegistry[State](),
		Exhausted:    observe.NewRegistry[int](),
		state:        StateDisconnected,
		ready:        make(chan struct{}),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RequestID returns the next subscription request id. Ids are strictly
// increasing for the life of the manager, across reconnects too.
func (m *Manager) RequestID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextReq++
	return m.nextReq
}

// Connect dials the server and starts the read loop. A dial failure
// schedules a reconnect before returning the error, so callers may
// treat the error as advisory.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	m.intentional = false
	m.state = StateConnecting
	m.mu.Unlock()
	m.StateChanges.Publish(StateConnecting)
	return m.dial()
}

// Disconnect closes the socket on purpose: it cancels any pending
// reconnect timer and guarantees no reconnection attempt follows.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.intentional = true
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	ws := m.ws
	m.ws = nil
	m.state = StateDisconnected
	m.ready = make(chan struct{})
	m.mu.Unlock()

	if ws != nil {
		_ = ws.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	m.StateChanges.Publish(StateDisconnected)
}

// WaitReady blocks until the socket is open and subscribed, or the
// context expires. Callers about to issue reducer calls use this to
// avoid racing the connect.
func (m *Manager) WaitReady(ctx context.Context) error {
	m.mu.Lock()
	ready := m.ready
	m.mu.Unlock()
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) dial() error {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()

	opts := &websocket.DialOptions{}
	if _, token := m.sess.Credentials(); token != "" {
		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		opts.HTTPHeader = h
	}
	ws, _, err := websocket.Dial(dctx, m.cfg.URL, opts)
	if err != nil {
		m.log.Warn("dial failed", zap.String("url", m.cfg.URL), zap.Error(err))
		m.scheduleReconnect()
		return err
	}

	m.mu.Lock()
	if m.intentional {
		m.mu.Unlock()
		_ = ws.Close(websocket.StatusNormalClosure, "client disconnect")
		return nil
	}
	m.ws = ws
	m.state = StateConnected
	ready := m.ready
	m.mu.Unlock()
	m.StateChanges.Publish(StateConnected)

	if err := m.subscribeAll(ws); err != nil {
		m.log.Warn("subscribe failed", zap.Error(err))
		_ = ws.Close(websocket.StatusProtocolError, "subscribe failed")
		m.connectionLost()
		return err
	}
	close(ready)
	go m.readLoop(ws)
	return nil
}

// subscribeAll issues the two-phase subscription: a narrow category
// query first so preference UI has data before anything else loads,
// then one batched request for every remaining table.
func (m *Manager) subscribeAll(ws *websocket.Conn) error {
	if err := m.sendSubscribe(ws, []string{"SELECT * FROM " + wire.CategoryTable}); err != nil {
		return err
	}
	queries := make([]string, 0, len(wire.RemainingTables))
	for _, t := range wire.RemainingTables {
		queries = append(queries, "SELECT * FROM "+t)
	}
	return m.sendSubscribe(ws, queries)
}

func (m *Manager) sendSubscribe(ws *websocket.Conn, queries []string) error {
	frame := wire.ClientFrame{Subscribe: &wire.Subscribe{
		QueryStrings: queries,
		RequestID:    m.RequestID(),
	}}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	wctx, cancel := context.WithTimeout(ctx, m.cfg.WriteTimeout)
	defer cancel()
	return ws.Write(wctx, websocket.MessageText, payload)
}

func (m *Manager) readLoop(ws *websocket.Conn) {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				m.log.Info("socket closed", zap.Error(err))
			default:
				m.log.Warn("socket read failed", zap.Error(err))
			}
			m.connectionLost()
			return
		}
		frame, err := wire.ParseServerFrame(data)
		if err != nil {
			m.log.Warn("dropping unparseable frame", zap.Error(err))
			continue
		}
		if frame.IdentityToken != nil {
			m.handshake(frame.IdentityToken)
		}
		if m.handle != nil {
			m.handle(frame)
		}
	}
}

// handshake rotates the session credentials and, crucially, resets the
// reconnect attempt counter. A bare socket open is not enough to reset
// it: a dead session can still open a socket and then fail here.
func (m *Manager) handshake(tok *wire.IdentityToken) {
	identity, err := wire.NormalizeIdentity(tok.Identity)
	if err != nil {
		m.log.Warn("bad handshake identity", zap.Error(err))
		return
	}
	m.sess.Rotate(identity, tok.Token)
	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()
	m.log.Info("identity handshake complete", zap.String("identity", identity))
}

func (m *Manager) connectionLost() {
	m.mu.Lock()
	m.ws = nil
	m.ready = make(chan struct{})
	if m.intentional {
		m.state = StateDisconnected
		m.mu.Unlock()
		m.StateChanges.Publish(StateDisconnected)
		return
	}
	m.mu.Unlock()
	m.scheduleReconnect()
}

func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.intentional {
		m.mu.Unlock()
		return
	}
	m.attempts++
	if m.attempts > m.cfg.MaxAttempts {
		attempts := m.attempts - 1
		m.state = StateDisconnected
		m.mu.Unlock()
		m.log.Warn("reconnect budget exhausted", zap.Int("attempts", attempts))
		m.StateChanges.Publish(StateDisconnected)
		m.Exhausted.Publish(attempts)
		return
	}
	delay := Backoff(m.cfg.BackoffBase, m.cfg.BackoffCap, m.attempts)
	m.state = StateReconnecting
	m.reconnect = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.intentional {
			m.mu.Unlock()
			return
		}
		m.state = StateConnecting
		m.mu.Unlock()
		m.StateChanges.Publish(StateConnecting)
		_ = m.dial()
	})
	attempt := m.attempts
	m.mu.Unlock()
	m.log.Info("reconnect scheduled",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay))
	m.StateChanges.Publish(StateReconnecting)
}

// Package session owns the identity/token pair shared between the
// connection manager and the reducer gateway. Both read it and both
// may rotate it; the mutex keeps each rotation atomic with respect to
// any concurrent read.
package session

import (
	"sync"

	"go.uber.org/zap"
)

type Session struct {
	mu       sync.Mutex
	identity string
	token    string
	store    *Store // optional; nil means in-memory only
	log      *zap.Logger
}

func New(store *Store, log *zap.Logger) *Session {
	return &Session{store: store, log: log}
}

// LoadStored reads persisted credentials at connect time. Missing
// credentials are not an error; a fresh handshake will issue them.
func (s *Session) LoadStored() error {
	if s.store == nil {
		return nil
	}
	identity, token, err := s.store.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.identity = identity
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *Session) Credentials() (identity, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.token
}

// Rotate applies a rotated identity and/or token, ignoring empty
// values, and persists the result. Persist failures are logged rather
// than surfaced: the in-memory credentials stay authoritative for the
// running session either way.
func (s *Session) Rotate(identity, token string) {
	s.mu.Lock()
	if identity != "" {
		s.identity = identity
	}
	if token != "" {
		s.token = token
	}
	identity, token = s.identity, s.token
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(identity, token); err != nil {
			s.log.Warn("persisting rotated credentials failed", zap.Error(err))
		}
	}
}

// Clear drops credentials in memory and on disk. Used on logout.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.identity = ""
	s.token = ""
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.Clear()
}

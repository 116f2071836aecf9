// Package wire translates the server's subscription protocol (frame
// envelopes and the two row encodings) into canonical typed records.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownFrame = errors.New("wire: unknown server frame")

// Subscribe is the only client-originated frame. Each request carries a
// strictly increasing request id assigned by the connection manager.
type Subscribe struct {
	QueryStrings []string `json:"query_strings"`
	RequestID    uint64   `json:"request_id"`
}

type ClientFrame struct {
	Subscribe *Subscribe `json:"Subscribe,omitempty"`
}

// IdentityToken is the handshake frame. Identity arrives in one of the
// raw shapes accepted by NormalizeIdentity.
type IdentityToken struct {
	Identity json.RawMessage `json:"identity"`
	Token    string          `json:"token"`
}

// TablePair is one insert/delete pair nested under a table's updates.
type TablePair struct {
	Inserts []json.RawMessage `json:"inserts"`
	Deletes []json.RawMessage `json:"deletes"`
}

// TableUpdate carries rows for one table. Some frames nest pairs under
// updates, others put inserts/deletes at the top level; Flatten folds
// both into a single deletes+inserts pair.
type TableUpdate struct {
	TableName string            `json:"table_name"`
	Updates   []TablePair       `json:"updates,omitempty"`
	Inserts   []json.RawMessage `json:"inserts,omitempty"`
	Deletes   []json.RawMessage `json:"deletes,omitempty"`
}

func (tu TableUpdate) Flatten() (deletes, inserts []json.RawMessage) {
	deletes = append(deletes, tu.Deletes...)
	inserts = append(inserts, tu.Inserts...)
	for _, p := range tu.Updates {
		deletes = append(deletes, p.Deletes...)
		inserts = append(inserts, p.Inserts...)
	}
	return deletes, inserts
}

type DatabaseUpdate struct {
	Tables []TableUpdate `json:"tables"`
}

type InitialSubscription struct {
	DatabaseUpdate DatabaseUpdate `json:"database_update"`
	RequestID      uint64         `json:"request_id"`
}

type TransactionUpdate struct {
	Status         string         `json:"status"`
	DatabaseUpdate DatabaseUpdate `json:"database_update"`
}

type SubscriptionUpdate struct {
	Tables []TableUpdate `json:"tables"`
}

// ServerFrame is the tagged union of everything the server pushes.
// Exactly one field is set on a well-formed frame.
type ServerFrame struct {
	IdentityToken       *IdentityToken       `json:"IdentityToken,omitempty"`
	InitialSubscription *InitialSubscription `json:"InitialSubscription,omitempty"`
	TransactionUpdate   *TransactionUpdate   `json:"TransactionUpdate,omitempty"`
	SubscriptionUpdate  *SubscriptionUpdate  `json:"SubscriptionUpdate,omitempty"`
}

func ParseServerFrame(data []byte) (*ServerFrame, error) {
	var f ServerFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("wire: parse frame: %w", err)
	}
	if f.IdentityToken == nil && f.InitialSubscription == nil &&
		f.TransactionUpdate == nil && f.SubscriptionUpdate == nil {
		return nil, ErrUnknownFrame
	}
	return &f, nil
}

// TableUpdates returns the table payload of whichever arm is set, nil
// for handshake frames.
func (f *ServerFrame) TableUpdates() []TableUpdate {
	switch {
	case f.InitialSubscription != nil:
		return f.InitialSubscription.DatabaseUpdate.Tables
	case f.TransactionUpdate != nil:
		return f.TransactionUpdate.DatabaseUpdate.Tables
	case f.SubscriptionUpdate != nil:
		return f.SubscriptionUpdate.Tables
	}
	return nil
}

// NormalizeIdentity accepts the wire shapes an identity shows up in: a
// bare hex string, a {"__identity__": "..."} wrapper, or a one-element
// array. It returns lowercase hex with any 0x marker stripped.
func NormalizeIdentity(raw json.RawMessage) (string, error) {
	v, err := decodeAny(raw)
	if err != nil {
		return "", fmt.Errorf("wire: identity: %w", err)
	}
	v = unwrapSingleton(v)
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["__identity__"]; ok {
			v = inner
		}
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("wire: identity: unexpected shape %T", v)
	}
	return CanonicalIdentity(s), nil
}

// CanonicalIdentity lowercases a hex identity and strips the optional
// leading 0x marker.
func CanonicalIdentity(s string) string {
	return strings.TrimPrefix(strings.ToLower(s), "0x")
}

// SameIdentity compares a mirrored identity field against the session
// identity, tolerating marker and case differences on either side.
func SameIdentity(a, b string) bool {
	na := CanonicalIdentity(a)
	nb := CanonicalIdentity(b)
	return na != "" && na == nb
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/playroom-app/playroom-client/internal/wire"
)

// stubTables holds the seeded dataset the stub serves: keyed-object
// rows per table, mutated by the handful of reducers the stub
// understands.
type stubTables struct {
	mu   sync.Mutex
	rows map[string]map[uint64]map[string]any
}

func newStubTables() *stubTables {
	s := &stubTables{rows: map[string]map[uint64]map[string]any{}}
	s.seed()
	return s
}

func (s *stubTables) put(table string, row map[string]any) {
	if s.rows[table] == nil {
		s.rows[table] = map[uint64]map[string]any{}
	}
	s.rows[table][row["id"].(uint64)] = row
}

// seed loads two players sharing a room with overlapping unlock and
// preference sets, so a freshly connected client has something real to
// derive against.
func (s *stubTables) seed() {
	s.put("category", map[string]any{"id": uint64(1), "name": "Connection", "description": "Warm-up and bonding", "display_order": int64(1)})
	s.put("category", map[string]any{"id": uint64(2), "name": "Play", "description": "Games and challenges", "display_order": int64(2)})
	s.put("category", map[string]any{"id": uint64(3), "name": "Creative", "description": "Making things together", "display_order": int64(3)})

	s.put("user", map[string]any{"id": uint64(1), "identity": "c0ffee01", "username": "ava", "password_hash": "x", "role": "User", "created_at": int64(1000), "updated_at": int64(1000)})
	s.put("user", map[string]any{"id": uint64(2), "identity": "deadbeef", "username": "ben", "password_hash": "x", "role": "User", "created_at": int64(1000), "updated_at": int64(1000)})

	s.put("player", map[string]any{"id": uint64(1), "user_id": uint64(1), "username": "ava", "xp": int64(120), "created_at": int64(1000)})
	s.put("player", map[string]any{"id": uint64(2), "user_id": uint64(2), "username": "ben", "xp": int64(80), "created_at": int64(1000)})

	s.put("room", map[string]any{"id": uint64(1), "code": "VWXYZ", "name": "The Den", "owner_id": uint64(1), "is_open": true, "created_at": int64(1000)})
	s.put("room_member", map[string]any{"id": uint64(1), "room_id": uint64(1), "player_id": uint64(1), "role": "Top", "joined_at": int64(1001)})
	s.put("room_member", map[string]any{"id": uint64(2), "room_id": uint64(1), "player_id": uint64(2), "role": "Bottom", "joined_at": int64(1002)})

	for i, cat := range []uint64{1, 2, 2, 3} {
		id := uint64(i + 1)
		s.put("activity", map[string]any{
			"id": id, "category_id": cat, "kind": "Activity",
			"name": fmt.Sprintf("Activity %d", id), "description": "seeded",
			"instructions": "do the thing", "video_url": nil,
			"xp_required": int64(0), "xp_reward": int64(10),
		})
	}

	// ava unlocked {1,2,3}, ben unlocked {2,3,4}
	next := uint64(1)
	for _, u := range []struct {
		player, activity uint64
	}{{1, 1}, {1, 2}, {1, 3}, {2, 2}, {2, 3}, {2, 4}} {
		act := s.rows["activity"][u.activity]
		cat := s.rows["category"][act["category_id"].(uint64)]
		s.put("player_unlocked_activity", map[string]any{
			"id": next, "player_id": u.player, "activity_id": u.activity,
			"activity_name": act["name"], "category_id": act["category_id"],
			"category_name": cat["name"], "is_new": next%2 == 0,
		})
		next++
	}

	// both allow every seeded category
	next = 1
	for _, player := range []uint64{1, 2} {
		for _, cat := range []uint64{1, 2, 3} {
			s.put("player_category_preference", map[string]any{"id": next, "player_id": player, "category_id": cat})
			next++
		}
	}
}

func (s *stubTables) insertUpdate(table string, rows ...map[string]any) wire.TableUpdate {
	tu := wire.TableUpdate{TableName: table}
	for _, row := range rows {
		raw, _ := json.Marshal(row)
		tu.Inserts = append(tu.Inserts, raw)
	}
	return tu
}

// snapshot builds an InitialSubscription frame. Tables filters when
// non-empty.
func (s *stubTables) snapshot(requestID uint64, tables ...string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	only := map[string]bool{}
	for _, t := range tables {
		only[t] = true
	}
	var dbu wire.DatabaseUpdate
	for table, byID := range s.rows {
		if len(only) > 0 && !only[table] {
			continue
		}
		tu := wire.TableUpdate{TableName: table}
		for _, row := range byID {
			raw, _ := json.Marshal(row)
			tu.Inserts = append(tu.Inserts, raw)
		}
		dbu.Tables = append(dbu.Tables, tu)
	}
	payload, _ := json.Marshal(wire.ServerFrame{InitialSubscription: &wire.InitialSubscription{
		DatabaseUpdate: dbu,
		RequestID:      requestID,
	}})
	return payload
}

// applyReducer mutates the seeded tables and returns the delta frame
// to broadcast. Unknown reducers report failure with a text reason.
func (s *stubTables) applyReducer(name string, args []json.RawMessage) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case "set_activity_not_wanted":
		// The stub has no per-connection identity; it acts as player 1.
		var activityID uint64
		if len(args) < 1 || json.Unmarshal(args[0], &activityID) != nil {
			return nil, fmt.Errorf("set_activity_not_wanted: want activity id")
		}
		id := uint64(len(s.rows["player_not_wanted_activity"]) + 1)
		row := map[string]any{"id": id, "player_id": uint64(1), "activity_id": activityID}
		s.put("player_not_wanted_activity", row)
		return s.transaction(s.insertUpdate("player_not_wanted_activity", row)), nil

	case "acknowledge_new_unlocks":
		var playerID uint64
		if len(args) < 1 || json.Unmarshal(args[0], &playerID) != nil {
			return nil, fmt.Errorf("acknowledge_new_unlocks: want player id")
		}
		tu := wire.TableUpdate{TableName: "player_unlocked_activity"}
		for _, row := range s.rows["player_unlocked_activity"] {
			if row["player_id"].(uint64) != playerID || row["is_new"] != true {
				continue
			}
			old, _ := json.Marshal(row)
			row["is_new"] = false
			fresh, _ := json.Marshal(row)
			tu.Updates = append(tu.Updates, wire.TablePair{
				Deletes: []json.RawMessage{old},
				Inserts: []json.RawMessage{fresh},
			})
		}
		return s.transaction(tu), nil

	default:
		return nil, fmt.Errorf("unknown reducer %q", name)
	}
}

func (s *stubTables) transaction(updates ...wire.TableUpdate) []byte {
	payload, _ := json.Marshal(wire.ServerFrame{TransactionUpdate: &wire.TransactionUpdate{
		Status:         "committed",
		DatabaseUpdate: wire.DatabaseUpdate{Tables: updates},
	}})
	return payload
}

// categoryOnly reports whether a subscribe request is the narrow
// first-phase category query.
func categoryOnly(queries []string) bool {
	return len(queries) == 1 && strings.HasSuffix(queries[0], " FROM "+wire.CategoryTable)
}

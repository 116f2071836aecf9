package mirror

import (
	"sort"

	"github.com/playroom-app/playroom-client/internal/wire"
	"github.com/playroom-app/playroom-client/pkg/types"
)

// Read accessors hand out copies, never the internal maps, so callers
// on other goroutines can hold results across later batches. Slice
// results are sorted by id for deterministic consumption.

func (m *Mirror) Player(id uint64) (types.Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	return p, ok
}

func (m *Mirror) Room(id uint64) (types.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

func (m *Mirror) RoomByCode(code string) (types.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rooms {
		if r.Code == code {
			return r, true
		}
	}
	return types.Room{}, false
}

func (m *Mirror) Activity(id uint64) (types.Activity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.activities[id]
	return a, ok
}

func (m *Mirror) Category(id uint64) (types.Category, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	return c, ok
}

// Categories returns every category ordered by display order, then id.
func (m *Mirror) Categories() []types.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Activities returns every activity ordered by id.
func (m *Mirror) Activities() []types.Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Activity, 0, len(m.activities))
	for _, a := range m.activities {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Mirror) Members(roomID uint64) []types.RoomMember {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.RoomMember
	for _, mem := range m.members {
		if mem.RoomID == roomID {
			out = append(out, mem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RoomsWithMembers lists ids of rooms that currently have at least one
// member, the set the derivation engine recomputes for.
func (m *Mirror) RoomsWithMembers() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[uint64]bool{}
	for _, mem := range m.members {
		seen[mem.RoomID] = true
	}
	out := make([]uint64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Mirror) UnlockedByPlayer(playerID uint64) []types.PlayerUnlockedActivity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.PlayerUnlockedActivity
	for _, ua := range m.unlocked {
		if ua.PlayerID == playerID {
			out = append(out, ua)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PlayersWithUnlocks lists player ids holding at least one unlocked
// activity row.
func (m *Mirror) PlayersWithUnlocks() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[uint64]bool{}
	for _, ua := range m.unlocked {
		seen[ua.PlayerID] = true
	}
	out := make([]uint64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NotWantedByPlayer returns the set of activity ids the player has
// excluded.
func (m *Mirror) NotWantedByPlayer(playerID uint64) map[uint64]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[uint64]bool{}
	for _, nw := range m.notWanted {
		if nw.PlayerID == playerID {
			out[nw.ActivityID] = true
		}
	}
	return out
}

// CategoryPrefsByPlayer returns the set of category ids the player has
// opted into. A player with no rows returns an empty set; the room
// availability intersection treats that as allowing nothing.
func (m *Mirror) CategoryPrefsByPlayer(playerID uint64) map[uint64]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[uint64]bool{}
	for _, p := range m.playerCatPrefs {
		if p.PlayerID == playerID {
			out[p.CategoryID] = true
		}
	}
	return out
}

// CategoryPrefsByUser is the user-scoped analog, consumed by the
// preference screens rather than the room intersection.
func (m *Mirror) CategoryPrefsByUser(userID uint64) map[uint64]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[uint64]bool{}
	for _, p := range m.userCatPrefs {
		if p.UserID == userID {
			out[p.CategoryID] = true
		}
	}
	return out
}

// ActiveRoomActivity returns the room's activity in Viewing or
// InProgress status. At most one is expected; with several mirrored,
// the lowest id wins to keep the result stable.
func (m *Mirror) ActiveRoomActivity(roomID uint64) (types.RoomActivity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best types.RoomActivity
	found := false
	for _, ra := range m.roomActs {
		if ra.RoomID != roomID || !ra.Active() {
			continue
		}
		if !found || ra.ID < best.ID {
			best = ra
			found = true
		}
	}
	return best, found
}

func (m *Mirror) ParticipantsByRoomActivity(roomActivityID uint64) []types.ActivityParticipant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.ActivityParticipant
	for _, ap := range m.participants {
		if ap.RoomActivityID == roomActivityID {
			out = append(out, ap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Mirror) InvitationsByRoom(roomID uint64) []types.RoomInvitation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.RoomInvitation
	for _, inv := range m.invitations {
		if inv.RoomID == roomID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Mirror) PlayerActivity(playerID, activityID uint64) (types.PlayerActivity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pa := range m.playerActs {
		if pa.PlayerID == playerID && pa.ActivityID == activityID {
			return pa, true
		}
	}
	return types.PlayerActivity{}, false
}

// UserByIdentity resolves the session identity to its user row,
// tolerating marker and case differences.
func (m *Mirror) UserByIdentity(identity string) (types.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if wire.SameIdentity(u.Identity, identity) {
			return u, true
		}
	}
	return types.User{}, false
}

// PlayerByUser returns the player row belonging to a user.
func (m *Mirror) PlayerByUser(userID uint64) (types.Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.players {
		if p.UserID == userID {
			return p, true
		}
	}
	return types.Player{}, false
}

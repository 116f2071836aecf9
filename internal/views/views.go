// Package views derives cross-table projections from the mirror and
// pushes them to registered observers after each applied frame. Every
// derivation is a pure function of the current mirror snapshot; the
// only state that persists between calls is the is_new flag on
// unlocked rows, which clears server-side via an acknowledgment
// reducer, never here.
package views

import (
	"sort"

	"go.uber.org/zap"

	"github.com/playroom-app/playroom-client/internal/mirror"
	"github.com/playroom-app/playroom-client/internal/observe"
	"github.com/playroom-app/playroom-client/pkg/types"
)

// UnknownName substitutes for names of rows referenced before they are
// mirrored, so one missing join never fails a whole view.
const UnknownName = "Unknown"

type RosterEntry struct {
	Member   types.RoomMember
	Username string
	XP       int64
}

type RosterUpdate struct {
	RoomID  uint64
	Entries []RosterEntry
}

type AvailableActivity struct {
	Activity     types.Activity
	CategoryName string
}

type AvailabilityUpdate struct {
	RoomID     uint64
	Activities []AvailableActivity
}

type ParticipantDetail struct {
	Participant types.ActivityParticipant
	Username    string
}

type ActiveActivityDetail struct {
	RoomActivity types.RoomActivity
	ActivityName string
	CategoryName string
	Participants []ParticipantDetail
}

type ActiveActivityUpdate struct {
	RoomID uint64
	Detail *ActiveActivityDetail // nil when nothing is active
}

type UnlockedUpdate struct {
	PlayerID uint64
	All      []types.PlayerUnlockedActivity
	New      []types.PlayerUnlockedActivity
}

type InvitationDetail struct {
	Invitation types.RoomInvitation
	RoomName   string
	RoomCode   string
}

type Engine struct {
	m   *mirror.Mirror
	log *zap.Logger

	// lastRooms holds the rooms published in the previous recompute,
	// so a room losing its final member still gets one closing empty
	// update. Touched only on the frame-handling goroutine.
	lastRooms map[uint64]bool

	Roster         *observe.Registry[RosterUpdate]
	Availability   *observe.Registry[AvailabilityUpdate]
	ActiveActivity *observe.Registry[ActiveActivityUpdate]
	Unlocked       *observe.Registry[UnlockedUpdate]
}

func NewEngine(m *mirror.Mirror, log *zap.Logger) *Engine {
	return &Engine{
		m:              m,
		log:            log,
		lastRooms:      map[uint64]bool{},
		Roster:         observe.NewRegistry[RosterUpdate](),
		Availability:   observe.NewRegistry[AvailabilityUpdate](),
		ActiveActivity: observe.NewRegistry[ActiveActivityUpdate](),
		Unlocked:       observe.NewRegistry[UnlockedUpdate](),
	}
}

// RoomRoster joins the room's members against their player rows.
func (e *Engine) RoomRoster(roomID uint64) []RosterEntry {
	members := e.m.Members(roomID)
	out := make([]RosterEntry, 0, len(members))
	for _, mem := range members {
		entry := RosterEntry{Member: mem, Username: UnknownName}
		if p, ok := e.m.Player(mem.PlayerID); ok {
			entry.Username = p.Username
			entry.XP = p.XP
		}
		out = append(out, entry)
	}
	return out
}

// RoomAvailableActivities computes the activities every member of the
// room can do together: unlocked by all, wanted by all, in a category
// all of them allow. A room with no members yields nothing, and so
// does a member with zero category-preference rows: that member
// contributes an empty set to the intersection, which is deliberate
// policy, not an accident.
func (e *Engine) RoomAvailableActivities(roomID uint64) []AvailableActivity {
	members := e.m.Members(roomID)
	if len(members) == 0 {
		return nil
	}

	var allowedCategories, unlockedIDs map[uint64]bool
	notWanted := map[uint64]bool{}
	for i, mem := range members {
		prefs := e.m.CategoryPrefsByPlayer(mem.PlayerID)
		unlocked := map[uint64]bool{}
		for _, ua := range e.m.UnlockedByPlayer(mem.PlayerID) {
			unlocked[ua.ActivityID] = true
		}
		if i == 0 {
			allowedCategories = prefs
			unlockedIDs = unlocked
		} else {
			allowedCategories = intersect(allowedCategories, prefs)
			unlockedIDs = intersect(unlockedIDs, unlocked)
		}
		for id := range e.m.NotWantedByPlayer(mem.PlayerID) {
			notWanted[id] = true
		}
	}

	var out []AvailableActivity
	for _, act := range e.m.Activities() {
		if !unlockedIDs[act.ID] || notWanted[act.ID] || !allowedCategories[act.CategoryID] {
			continue
		}
		name := UnknownName
		if cat, ok := e.m.Category(act.CategoryID); ok {
			name = cat.Name
		}
		out = append(out, AvailableActivity{Activity: act, CategoryName: name})
	}
	return out
}

// ActiveRoomActivity returns the detail view for the room's activity
// in Viewing or InProgress status, or nil when there is none.
func (e *Engine) ActiveRoomActivity(roomID uint64) *ActiveActivityDetail {
	ra, ok := e.m.ActiveRoomActivity(roomID)
	if !ok {
		return nil
	}
	detail := &ActiveActivityDetail{
		RoomActivity: ra,
		ActivityName: UnknownName,
		CategoryName: UnknownName,
	}
	if act, ok := e.m.Activity(ra.ActivityID); ok {
		detail.ActivityName = act.Name
		if cat, ok := e.m.Category(act.CategoryID); ok {
			detail.CategoryName = cat.Name
		}
	}
	for _, ap := range e.m.ParticipantsByRoomActivity(ra.ID) {
		pd := ParticipantDetail{Participant: ap, Username: UnknownName}
		if p, ok := e.m.Player(ap.PlayerID); ok {
			pd.Username = p.Username
		}
		detail.Participants = append(detail.Participants, pd)
	}
	return detail
}

// UnlockedActivities returns every unlocked row for the player and the
// subset still flagged new.
func (e *Engine) UnlockedActivities(playerID uint64) (all, fresh []types.PlayerUnlockedActivity) {
	all = e.m.UnlockedByPlayer(playerID)
	for _, ua := range all {
		if ua.IsNew {
			fresh = append(fresh, ua)
		}
	}
	return all, fresh
}

// CurrentUser resolves the session identity to its mirrored user row.
func (e *Engine) CurrentUser(identity string) (types.User, bool) {
	return e.m.UserByIdentity(identity)
}

// PendingInvitations lists the room's open invitations with room
// display fields joined in.
func (e *Engine) PendingInvitations(roomID uint64) []InvitationDetail {
	var out []InvitationDetail
	for _, inv := range e.m.InvitationsByRoom(roomID) {
		if inv.Status != types.InvitePending {
			continue
		}
		d := InvitationDetail{Invitation: inv, RoomName: UnknownName}
		if room, ok := e.m.Room(roomID); ok {
			d.RoomName = room.Name
			d.RoomCode = room.Code
		}
		out = append(out, d)
	}
	return out
}

// Per-view contributing tables. Recompute re-pushes a view only when a
// frame touched one of its inputs.
var (
	rosterDeps       = []string{"room_member", "player"}
	availabilityDeps = []string{"room_member", "player_unlocked_activity", "player_not_wanted_activity", "player_category_preference", "user_category_preference"}
	activeDeps       = []string{"room_activity", "activity_participant", "activity", "category", "player"}
	unlockedDeps     = []string{"player_unlocked_activity"}
)

func touched(dirty map[string]bool, deps []string) bool {
	for _, d := range deps {
		if dirty[d] {
			return true
		}
	}
	return false
}

// Recompute runs once per inbound frame, after the mirror has applied
// every table update the frame carried, so no view ever observes a
// partially applied cross-table state. Rooms published last time stay
// in scope for one more round even when the frame removed their last
// member; their observers see the final empty state.
func (e *Engine) Recompute(dirty map[string]bool) {
	current := e.m.RoomsWithMembers()
	populated := make(map[uint64]bool, len(current))
	for _, id := range current {
		populated[id] = true
	}
	rooms := current
	for id := range e.lastRooms {
		if !populated[id] {
			rooms = append(rooms, id)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	e.lastRooms = populated
	if touched(dirty, rosterDeps) {
		for _, roomID := range rooms {
			e.Roster.Publish(RosterUpdate{RoomID: roomID, Entries: e.RoomRoster(roomID)})
		}
	}
	if touched(dirty, availabilityDeps) {
		for _, roomID := range rooms {
			e.Availability.Publish(AvailabilityUpdate{RoomID: roomID, Activities: e.RoomAvailableActivities(roomID)})
		}
	}
	if touched(dirty, activeDeps) {
		for _, roomID := range rooms {
			e.ActiveActivity.Publish(ActiveActivityUpdate{RoomID: roomID, Detail: e.ActiveRoomActivity(roomID)})
		}
	}
	if touched(dirty, unlockedDeps) {
		for _, playerID := range e.m.PlayersWithUnlocks() {
			all, fresh := e.UnlockedActivities(playerID)
			e.Unlocked.Publish(UnlockedUpdate{PlayerID: playerID, All: all, New: fresh})
		}
	}
}

func intersect(a, b map[uint64]bool) map[uint64]bool {
	out := map[uint64]bool{}
	for id := range a {
		if b[id] {
			out[id] = true
		}
	}
	return out
}

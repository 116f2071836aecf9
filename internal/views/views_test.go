package views

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/playroom-app/playroom-client/internal/mirror"
	"github.com/playroom-app/playroom-client/pkg/types"
)

func insert(t *testing.T, m *mirror.Mirror, table string, rows ...string) {
	t.Helper()
	raws := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		raws[i] = json.RawMessage(r)
	}
	require.True(t, m.Apply(table, nil, raws), "table %s unknown", table)
}

func remove(t *testing.T, m *mirror.Mirror, table string, rows ...string) {
	t.Helper()
	raws := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		raws[i] = json.RawMessage(r)
	}
	require.True(t, m.Apply(table, raws, nil))
}

// seedRoom builds the reference scenario: players A(1) and B(2) in
// room 1, activities 1-2 in category 1 and 3-4 in category 2, A
// unlocked {1,2,3}, B unlocked {2,3,4}, both allowing both categories.
func seedRoom(t *testing.T) *mirror.Mirror {
	t.Helper()
	m := mirror.New(zap.NewNop())
	insert(t, m, "category",
		`{"id":1,"name":"Connection","description":"","display_order":1}`,
		`{"id":2,"name":"Play","description":"","display_order":2}`)
	insert(t, m, "player",
		`{"id":1,"user_id":1,"username":"ava","xp":120,"created_at":1}`,
		`{"id":2,"user_id":2,"username":"ben","xp":80,"created_at":1}`)
	insert(t, m, "room",
		`{"id":1,"code":"VWXYZ","name":"The Den","owner_id":1,"is_open":true,"created_at":1}`)
	insert(t, m, "room_member",
		`{"id":1,"room_id":1,"player_id":1,"role":"Top","joined_at":1}`,
		`{"id":2,"room_id":1,"player_id":2,"role":"Bottom","joined_at":2}`)
	for i := 1; i <= 4; i++ {
		cat := 1
		if i > 2 {
			cat = 2
		}
		insert(t, m, "activity", fmt.Sprintf(
			`{"id":%d,"category_id":%d,"kind":"Activity","name":"Activity %d","description":"","instructions":"","video_url":null,"xp_required":0,"xp_reward":10}`,
			i, cat, i))
	}
	id := 1
	for _, u := range []struct{ player, activity int }{{1, 1}, {1, 2}, {1, 3}, {2, 2}, {2, 3}, {2, 4}} {
		cat := 1
		if u.activity > 2 {
			cat = 2
		}
		insert(t, m, "player_unlocked_activity", fmt.Sprintf(
			`{"id":%d,"player_id":%d,"activity_id":%d,"activity_name":"Activity %d","category_id":%d,"category_name":"c","is_new":false}`,
			id, u.player, u.activity, u.activity, cat))
		id++
	}
	id = 1
	for _, player := range []int{1, 2} {
		for _, cat := range []int{1, 2} {
			insert(t, m, "player_category_preference", fmt.Sprintf(
				`{"id":%d,"player_id":%d,"category_id":%d}`, id, player, cat))
			id++
		}
	}
	return m
}

func availableIDs(e *Engine, roomID uint64) []uint64 {
	var ids []uint64
	for _, a := range e.RoomAvailableActivities(roomID) {
		ids = append(ids, a.Activity.ID)
	}
	return ids
}

func TestRoomAvailableActivities_EmptyRoom(t *testing.T) {
	m := mirror.New(zap.NewNop())
	e := NewEngine(m, zap.NewNop())
	require.Empty(t, e.RoomAvailableActivities(42))
}

func TestRoomAvailableActivities_UnlockedIntersection(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())
	// A has {1,2,3}, B has {2,3,4}: only what both unlocked remains.
	require.Equal(t, []uint64{2, 3}, availableIDs(e, 1))
}

func TestRoomAvailableActivities_NotWantedByAnyMemberRemoves(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())

	// B marks activity 3 not wanted; A still has it unlocked and
	// category-allowed, yet it must drop for the whole room.
	insert(t, m, "player_not_wanted_activity", `{"id":1,"player_id":2,"activity_id":3}`)
	require.Equal(t, []uint64{2}, availableIDs(e, 1))
}

func TestRoomAvailableActivities_CategoryIntersection(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())

	// Drop B's category-2 preference: activity 3 (category 2) is no
	// longer allowed by everyone.
	remove(t, m, "player_category_preference", `{"id":4,"player_id":2,"category_id":2}`)
	require.Equal(t, []uint64{2}, availableIDs(e, 1))
}

func TestRoomAvailableActivities_MemberWithoutPreferences(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())

	// A third member with zero preference rows contributes an empty
	// set to the intersection: the whole room's result goes empty.
	// Deliberate policy, not a bug.
	insert(t, m, "player",
		`{"id":3,"user_id":3,"username":"cly","xp":0,"created_at":1}`)
	insert(t, m, "room_member",
		`{"id":3,"room_id":1,"player_id":3,"role":"Observer","joined_at":3}`)
	require.Empty(t, availableIDs(e, 1))
}

func TestRoomAvailableActivities_DenormalizesCategoryName(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())
	got := e.RoomAvailableActivities(1)
	require.Len(t, got, 2)
	require.Equal(t, "Connection", got[0].CategoryName) // activity 2, category 1
	require.Equal(t, "Play", got[1].CategoryName)       // activity 3, category 2
}

func TestRoomRoster_JoinsPlayers(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())

	roster := e.RoomRoster(1)
	require.Len(t, roster, 2)
	require.Equal(t, "ava", roster[0].Username)
	require.Equal(t, int64(120), roster[0].XP)
	require.Equal(t, types.MemberTop, roster[0].Member.Role)
	require.Equal(t, "ben", roster[1].Username)
}

func TestRoomRoster_MissingPlayerGetsPlaceholder(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())

	insert(t, m, "room_member", `{"id":9,"room_id":1,"player_id":99,"role":"Observer","joined_at":9}`)
	roster := e.RoomRoster(1)
	require.Len(t, roster, 3)
	require.Equal(t, UnknownName, roster[2].Username)
	require.Zero(t, roster[2].XP)
}

func TestActiveRoomActivity_Detail(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())

	require.Nil(t, e.ActiveRoomActivity(1))

	insert(t, m, "room_activity", `{"id":1,"room_id":1,"activity_id":2,"status":"InProgress","started_by":1,"created_at":5}`)
	insert(t, m, "activity_participant",
		`{"id":1,"room_activity_id":1,"player_id":1,"role":"Top","completed":false,"xp_earned":0}`,
		`{"id":2,"room_activity_id":1,"player_id":2,"role":"Bottom","completed":false,"xp_earned":0}`)

	detail := e.ActiveRoomActivity(1)
	require.NotNil(t, detail)
	require.Equal(t, "Activity 2", detail.ActivityName)
	require.Equal(t, "Connection", detail.CategoryName)
	require.Len(t, detail.Participants, 2)
	require.Equal(t, "ava", detail.Participants[0].Username)

	// Completed/Cancelled activities are not active.
	remove(t, m, "room_activity", `{"id":1,"room_id":1,"activity_id":2,"status":"InProgress","started_by":1,"created_at":5}`)
	insert(t, m, "room_activity", `{"id":1,"room_id":1,"activity_id":2,"status":"Completed","started_by":1,"created_at":5}`)
	require.Nil(t, e.ActiveRoomActivity(1))
}

func TestActiveRoomActivity_UnmirroredActivityGetsPlaceholder(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())

	insert(t, m, "room_activity", `{"id":2,"room_id":1,"activity_id":777,"status":"Viewing","started_by":1,"created_at":6}`)
	detail := e.ActiveRoomActivity(1)
	require.NotNil(t, detail)
	require.Equal(t, UnknownName, detail.ActivityName)
	require.Equal(t, UnknownName, detail.CategoryName)
}

func TestUnlockedActivities_NewSubset(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())

	insert(t, m, "player_unlocked_activity",
		`{"id":50,"player_id":1,"activity_id":4,"activity_name":"Activity 4","category_id":2,"category_name":"Play","is_new":true}`)

	all, fresh := e.UnlockedActivities(1)
	require.Len(t, all, 4)
	require.Len(t, fresh, 1)
	require.Equal(t, uint64(4), fresh[0].ActivityID)
}

func TestCurrentUser_IdentityMatching(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())
	insert(t, m, "user",
		`{"id":1,"identity":{"__identity__":"0xAB12"},"username":"ava","password_hash":"h","role":"User","created_at":1,"updated_at":1}`)

	u, ok := e.CurrentUser("0xAB12")
	require.True(t, ok)
	require.Equal(t, "ava", u.Username)

	_, ok = e.CurrentUser("unknown")
	require.False(t, ok)
}

func TestRecompute_PushesOnlyViewsWhoseInputsChanged(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())

	var rosterCalls, availCalls, activeCalls, unlockedCalls int
	e.Roster.Subscribe(func(RosterUpdate) { rosterCalls++ })
	e.Availability.Subscribe(func(AvailabilityUpdate) { availCalls++ })
	e.ActiveActivity.Subscribe(func(ActiveActivityUpdate) { activeCalls++ })
	e.Unlocked.Subscribe(func(UnlockedUpdate) { unlockedCalls++ })

	e.Recompute(map[string]bool{"player_not_wanted_activity": true})
	require.Zero(t, rosterCalls)
	require.Equal(t, 1, availCalls) // one room with members
	require.Zero(t, activeCalls)
	require.Zero(t, unlockedCalls)

	e.Recompute(map[string]bool{"room_member": true})
	require.Equal(t, 1, rosterCalls)
	require.Equal(t, 2, availCalls)

	e.Recompute(map[string]bool{"player_unlocked_activity": true})
	require.Equal(t, 3, availCalls)
	require.Equal(t, 2, unlockedCalls) // two players hold unlocks

	e.Recompute(map[string]bool{"room_activity": true})
	require.Equal(t, 1, activeCalls)
}

func TestRecompute_EmptiedRoomGetsClosingUpdate(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())

	rosters := make(chan RosterUpdate, 4)
	e.Roster.Subscribe(func(u RosterUpdate) { rosters <- u })
	avails := make(chan AvailabilityUpdate, 4)
	e.Availability.Subscribe(func(u AvailabilityUpdate) { avails <- u })

	e.Recompute(map[string]bool{"room_member": true})
	require.Len(t, (<-rosters).Entries, 2)
	<-avails

	// Both members leave in one frame. The room no longer has members,
	// yet its observers must see the final empty state once.
	remove(t, m, "room_member",
		`{"id":1,"room_id":1,"player_id":1,"role":"Top","joined_at":1}`,
		`{"id":2,"room_id":1,"player_id":2,"role":"Bottom","joined_at":2}`)
	e.Recompute(map[string]bool{"room_member": true})

	closing := <-rosters
	require.Equal(t, uint64(1), closing.RoomID)
	require.Empty(t, closing.Entries)
	require.Empty(t, (<-avails).Activities)

	// The emptied room is out of scope after its closing update.
	e.Recompute(map[string]bool{"room_member": true})
	select {
	case u := <-rosters:
		t.Fatalf("unexpected roster update for room %d", u.RoomID)
	default:
	}
}

func TestPendingInvitations(t *testing.T) {
	m := seedRoom(t)
	e := NewEngine(m, zap.NewNop())
	insert(t, m, "room_invitation",
		`{"id":1,"token":"t1","room_id":1,"creator_id":1,"target_username":[0,"cly"],"status":"Pending","accepted_by":[1,[]]}`,
		`{"id":2,"token":"t2","room_id":1,"creator_id":1,"target_username":[1,[]],"status":"Accepted","accepted_by":[0,2]}`)

	pending := e.PendingInvitations(1)
	require.Len(t, pending, 1)
	require.Equal(t, "t1", pending[0].Invitation.Token)
	require.Equal(t, "The Den", pending[0].RoomName)
	require.Equal(t, "VWXYZ", pending[0].RoomCode)
}

// Package mirror keeps the client-side replica of every subscribed
// table. It never originates writes: all mutation arrives as decoded
// insert/delete batches pushed by the connection manager, and the same
// apply path serves the initial snapshot and every later delta.
package mirror

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/playroom-app/playroom-client/internal/wire"
	"github.com/playroom-app/playroom-client/pkg/types"
)

type Mirror struct {
	mu  sync.RWMutex
	log *zap.Logger

	users          map[uint64]types.User
	players        map[uint64]types.Player
	rooms          map[uint64]types.Room
	members        map[uint64]types.RoomMember
	invitations    map[uint64]types.RoomInvitation
	categories     map[uint64]types.Category
	activities     map[uint64]types.Activity
	playerActs     map[uint64]types.PlayerActivity
	unlocked       map[uint64]types.PlayerUnlockedActivity
	roomActs       map[uint64]types.RoomActivity
	participants   map[uint64]types.ActivityParticipant
	notWanted      map[uint64]types.PlayerNotWantedActivity
	userCatPrefs   map[uint64]types.UserCategoryPreference
	playerCatPrefs map[uint64]types.PlayerCategoryPreference
}

func New(log *zap.Logger) *Mirror {
	return &Mirror{
		log:            log,
		users:          map[uint64]types.User{},
		players:        map[uint64]types.Player{},
		rooms:          map[uint64]types.Room{},
		members:        map[uint64]types.RoomMember{},
		invitations:    map[uint64]types.RoomInvitation{},
		categories:     map[uint64]types.Category{},
		activities:     map[uint64]types.Activity{},
		playerActs:     map[uint64]types.PlayerActivity{},
		unlocked:       map[uint64]types.PlayerUnlockedActivity{},
		roomActs:       map[uint64]types.RoomActivity{},
		participants:   map[uint64]types.ActivityParticipant{},
		notWanted:      map[uint64]types.PlayerNotWantedActivity{},
		userCatPrefs:   map[uint64]types.UserCategoryPreference{},
		playerCatPrefs: map[uint64]types.PlayerCategoryPreference{},
	}
}

// applyRows reconciles one table's flattened batch into its store.
// Deletes run before inserts so an update encoded as delete+insert of
// the same id lands on the inserted value. Undecodable rows are logged
// and dropped without aborting the rest of the batch.
func applyRows[T any](store map[uint64]T, decode func(json.RawMessage) (uint64, T, error),
	deletes, inserts []json.RawMessage, log *zap.Logger, table string) {
	for _, raw := range deletes {
		id, _, err := decode(raw)
		if err != nil {
			log.Warn("dropping undecodable row", zap.String("table", table), zap.Error(err))
			continue
		}
		delete(store, id)
	}
	for _, raw := range inserts {
		id, rec, err := decode(raw)
		if err != nil {
			log.Warn("dropping undecodable row", zap.String("table", table), zap.Error(err))
			continue
		}
		store[id] = rec
	}
}

// tableApply maps wire table names onto their stores and decoders.
// One entry per subscribed table; anything else is ignored by Apply.
var tableApply = map[string]func(m *Mirror, deletes, inserts []json.RawMessage){
	"user": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.users, func(raw json.RawMessage) (uint64, types.User, error) {
			v, err := wire.DecodeUser(raw)
			return v.ID, v, err
		}, del, ins, m.log, "user")
	},
	"player": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.players, func(raw json.RawMessage) (uint64, types.Player, error) {
			v, err := wire.DecodePlayer(raw)
			return v.ID, v, err
		}, del, ins, m.log, "player")
	},
	"room": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.rooms, func(raw json.RawMessage) (uint64, types.Room, error) {
			v, err := wire.DecodeRoom(raw)
			return v.ID, v, err
		}, del, ins, m.log, "room")
	},
	"room_member": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.members, func(raw json.RawMessage) (uint64, types.RoomMember, error) {
			v, err := wire.DecodeRoomMember(raw)
			return v.ID, v, err
		}, del, ins, m.log, "room_member")
	},
	"room_invitation": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.invitations, func(raw json.RawMessage) (uint64, types.RoomInvitation, error) {
			v, err := wire.DecodeRoomInvitation(raw)
			return v.ID, v, err
		}, del, ins, m.log, "room_invitation")
	},
	"category": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.categories, func(raw json.RawMessage) (uint64, types.Category, error) {
			v, err := wire.DecodeCategory(raw)
			return v.ID, v, err
		}, del, ins, m.log, "category")
	},
	"activity": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.activities, func(raw json.RawMessage) (uint64, types.Activity, error) {
			v, err := wire.DecodeActivity(raw)
			return v.ID, v, err
		}, del, ins, m.log, "activity")
	},
	"player_activity": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.playerActs, func(raw json.RawMessage) (uint64, types.PlayerActivity, error) {
			v, err := wire.DecodePlayerActivity(raw)
			return v.ID, v, err
		}, del, ins, m.log, "player_activity")
	},
	"player_unlocked_activity": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.unlocked, func(raw json.RawMessage) (uint64, types.PlayerUnlockedActivity, error) {
			v, err := wire.DecodePlayerUnlockedActivity(raw)
			return v.ID, v, err
		}, del, ins, m.log, "player_unlocked_activity")
	},
	"room_activity": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.roomActs, func(raw json.RawMessage) (uint64, types.RoomActivity, error) {
			v, err := wire.DecodeRoomActivity(raw)
			return v.ID, v, err
		}, del, ins, m.log, "room_activity")
	},
	"activity_participant": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.participants, func(raw json.RawMessage) (uint64, types.ActivityParticipant, error) {
			v, err := wire.DecodeActivityParticipant(raw)
			return v.ID, v, err
		}, del, ins, m.log, "activity_participant")
	},
	"player_not_wanted_activity": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.notWanted, func(raw json.RawMessage) (uint64, types.PlayerNotWantedActivity, error) {
			v, err := wire.DecodePlayerNotWantedActivity(raw)
			return v.ID, v, err
		}, del, ins, m.log, "player_not_wanted_activity")
	},
	"user_category_preference": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.userCatPrefs, func(raw json.RawMessage) (uint64, types.UserCategoryPreference, error) {
			v, err := wire.DecodeUserCategoryPreference(raw)
			return v.ID, v, err
		}, del, ins, m.log, "user_category_preference")
	},
	"player_category_preference": func(m *Mirror, del, ins []json.RawMessage) {
		applyRows(m.playerCatPrefs, func(raw json.RawMessage) (uint64, types.PlayerCategoryPreference, error) {
			v, err := wire.DecodePlayerCategoryPreference(raw)
			return v.ID, v, err
		}, del, ins, m.log, "player_category_preference")
	},
}

// Apply reconciles one table's flattened deletes/inserts. Returns true
// when the table is one we mirror, so the caller can track which
// tables a frame actually touched. Unknown tables are ignored.
func (m *Mirror) Apply(table string, deletes, inserts []json.RawMessage) bool {
	apply, ok := tableApply[table]
	if !ok {
		m.log.Debug("ignoring unknown table", zap.String("table", table))
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(m, deletes, inserts)
	return true
}

package wire

import (
	"encoding/json"

	"github.com/playroom-app/playroom-client/pkg/types"
)

// Canonical field order per table. The positional wire shape addresses
// fields by these indexes, the keyed shape by these names.
var (
	userKeys           = []string{"id", "identity", "username", "password_hash", "role", "created_at", "updated_at"}
	playerKeys         = []string{"id", "user_id", "username", "xp", "created_at"}
	roomKeys           = []string{"id", "code", "name", "owner_id", "is_open", "created_at"}
	roomMemberKeys     = []string{"id", "room_id", "player_id", "role", "joined_at"}
	roomInvitationKeys = []string{"id", "token", "room_id", "creator_id", "target_username", "status", "accepted_by"}
	categoryKeys       = []string{"id", "name", "description", "display_order"}
	activityKeys       = []string{"id", "category_id", "kind", "name", "description", "instructions", "video_url", "xp_required", "xp_reward"}
	playerActivityKeys = []string{"id", "player_id", "activity_id", "status", "vouched", "rating"}
	unlockedKeys       = []string{"id", "player_id", "activity_id", "activity_name", "category_id", "category_name", "is_new"}
	roomActivityKeys   = []string{"id", "room_id", "activity_id", "status", "started_by", "created_at"}
	participantKeys    = []string{"id", "room_activity_id", "player_id", "role", "completed", "xp_earned"}
	notWantedKeys      = []string{"id", "player_id", "activity_id"}
	userCategoryKeys   = []string{"id", "user_id", "category_id"}
	playerCategoryKeys = []string{"id", "player_id", "category_id"}
)

// Variant-name tables, ordinal order fixed by the server schema.
var (
	userRoleNames         = []string{"User", "Admin"}
	memberRoleNames       = []string{"Top", "Bottom", "Observer", "Photographer", "ActivityAdmin"}
	activityKindNames     = []string{"Skill", "Activity"}
	playerActivityNames   = []string{"Locked", "Available", "Completed"}
	roomActivityNames     = []string{"Viewing", "InProgress", "Completed", "Cancelled"}
	invitationStatusNames = []string{"Pending", "Accepted", "Declined", "Expired"}
)

func DecodeUser(raw json.RawMessage) (types.User, error) {
	r, err := newRow("user", raw, userKeys)
	if err != nil {
		return types.User{}, err
	}
	u := types.User{
		ID:           r.Uint(0),
		Identity:     r.Identity(1),
		Username:     r.Str(2),
		PasswordHash: r.Str(3),
		Role:         types.UserRole(r.Variant(4, userRoleNames, string(types.RoleUser))),
		CreatedAt:    r.Timestamp(5),
		UpdatedAt:    r.Timestamp(6),
	}
	return u, r.Err()
}

func DecodePlayer(raw json.RawMessage) (types.Player, error) {
	r, err := newRow("player", raw, playerKeys)
	if err != nil {
		return types.Player{}, err
	}
	p := types.Player{
		ID:        r.Uint(0),
		UserID:    r.Uint(1),
		Username:  r.Str(2),
		XP:        r.Int(3),
		CreatedAt: r.Timestamp(4),
	}
	return p, r.Err()
}

func DecodeRoom(raw json.RawMessage) (types.Room, error) {
	r, err := newRow("room", raw, roomKeys)
	if err != nil {
		return types.Room{}, err
	}
	rm := types.Room{
		ID:        r.Uint(0),
		Code:      r.Str(1),
		Name:      r.Str(2),
		OwnerID:   r.Uint(3),
		Open:      r.Bool(4),
		CreatedAt: r.Timestamp(5),
	}
	return rm, r.Err()
}

func DecodeRoomMember(raw json.RawMessage) (types.RoomMember, error) {
	r, err := newRow("room_member", raw, roomMemberKeys)
	if err != nil {
		return types.RoomMember{}, err
	}
	m := types.RoomMember{
		ID:       r.Uint(0),
		RoomID:   r.Uint(1),
		PlayerID: r.Uint(2),
		Role:     types.MemberRole(r.Variant(3, memberRoleNames, string(types.MemberObserver))),
		JoinedAt: r.Timestamp(4),
	}
	return m, r.Err()
}

func DecodeRoomInvitation(raw json.RawMessage) (types.RoomInvitation, error) {
	r, err := newRow("room_invitation", raw, roomInvitationKeys)
	if err != nil {
		return types.RoomInvitation{}, err
	}
	inv := types.RoomInvitation{
		ID:             r.Uint(0),
		Token:          r.Str(1),
		RoomID:         r.Uint(2),
		CreatorID:      r.Uint(3),
		TargetUsername: r.OptStr(4),
		Status:         types.InvitationStatus(r.Variant(5, invitationStatusNames, string(types.InvitePending))),
		AcceptedBy:     r.OptUint(6),
	}
	return inv, r.Err()
}

func DecodeCategory(raw json.RawMessage) (types.Category, error) {
	r, err := newRow("category", raw, categoryKeys)
	if err != nil {
		return types.Category{}, err
	}
	c := types.Category{
		ID:           r.Uint(0),
		Name:         r.Str(1),
		Description:  r.Str(2),
		DisplayOrder: r.Int(3),
	}
	return c, r.Err()
}

func DecodeActivity(raw json.RawMessage) (types.Activity, error) {
	r, err := newRow("activity", raw, activityKeys)
	if err != nil {
		return types.Activity{}, err
	}
	a := types.Activity{
		ID:           r.Uint(0),
		CategoryID:   r.Uint(1),
		Kind:         types.ActivityKind(r.Variant(2, activityKindNames, string(types.KindActivity))),
		Name:         r.Str(3),
		Description:  r.Str(4),
		Instructions: r.Str(5),
		VideoURL:     r.OptStr(6),
		XPRequired:   r.Int(7),
		XPReward:     r.Int(8),
	}
	return a, r.Err()
}

func DecodePlayerActivity(raw json.RawMessage) (types.PlayerActivity, error) {
	r, err := newRow("player_activity", raw, playerActivityKeys)
	if err != nil {
		return types.PlayerActivity{}, err
	}
	pa := types.PlayerActivity{
		ID:         r.Uint(0),
		PlayerID:   r.Uint(1),
		ActivityID: r.Uint(2),
		Status:     types.PlayerActivityStatus(r.Variant(3, playerActivityNames, string(types.StatusLocked))),
		Vouched:    r.Bool(4),
		Rating:     r.OptInt(5),
	}
	return pa, r.Err()
}

func DecodePlayerUnlockedActivity(raw json.RawMessage) (types.PlayerUnlockedActivity, error) {
	r, err := newRow("player_unlocked_activity", raw, unlockedKeys)
	if err != nil {
		return types.PlayerUnlockedActivity{}, err
	}
	ua := types.PlayerUnlockedActivity{
		ID:           r.Uint(0),
		PlayerID:     r.Uint(1),
		ActivityID:   r.Uint(2),
		ActivityName: r.Str(3),
		CategoryID:   r.Uint(4),
		CategoryName: r.Str(5),
		IsNew:        r.Bool(6),
	}
	return ua, r.Err()
}

func DecodeRoomActivity(raw json.RawMessage) (types.RoomActivity, error) {
	r, err := newRow("room_activity", raw, roomActivityKeys)
	if err != nil {
		return types.RoomActivity{}, err
	}
	ra := types.RoomActivity{
		ID:         r.Uint(0),
		RoomID:     r.Uint(1),
		ActivityID: r.Uint(2),
		Status:     types.RoomActivityStatus(r.Variant(3, roomActivityNames, string(types.RoomActivityViewing))),
		StartedBy:  r.Uint(4),
		CreatedAt:  r.Timestamp(5),
	}
	return ra, r.Err()
}

func DecodeActivityParticipant(raw json.RawMessage) (types.ActivityParticipant, error) {
	r, err := newRow("activity_participant", raw, participantKeys)
	if err != nil {
		return types.ActivityParticipant{}, err
	}
	ap := types.ActivityParticipant{
		ID:             r.Uint(0),
		RoomActivityID: r.Uint(1),
		PlayerID:       r.Uint(2),
		Role:           types.MemberRole(r.Variant(3, memberRoleNames, string(types.MemberObserver))),
		Completed:      r.Bool(4),
		XPEarned:       r.Int(5),
	}
	return ap, r.Err()
}

func DecodePlayerNotWantedActivity(raw json.RawMessage) (types.PlayerNotWantedActivity, error) {
	r, err := newRow("player_not_wanted_activity", raw, notWantedKeys)
	if err != nil {
		return types.PlayerNotWantedActivity{}, err
	}
	nw := types.PlayerNotWantedActivity{
		ID:         r.Uint(0),
		PlayerID:   r.Uint(1),
		ActivityID: r.Uint(2),
	}
	return nw, r.Err()
}

func DecodeUserCategoryPreference(raw json.RawMessage) (types.UserCategoryPreference, error) {
	r, err := newRow("user_category_preference", raw, userCategoryKeys)
	if err != nil {
		return types.UserCategoryPreference{}, err
	}
	p := types.UserCategoryPreference{
		ID:         r.Uint(0),
		UserID:     r.Uint(1),
		CategoryID: r.Uint(2),
	}
	return p, r.Err()
}

func DecodePlayerCategoryPreference(raw json.RawMessage) (types.PlayerCategoryPreference, error) {
	r, err := newRow("player_category_preference", raw, playerCategoryKeys)
	if err != nil {
		return types.PlayerCategoryPreference{}, err
	}
	p := types.PlayerCategoryPreference{
		ID:         r.Uint(0),
		PlayerID:   r.Uint(1),
		CategoryID: r.Uint(2),
	}
	return p, r.Err()
}

// CategoryTable is subscribed on its own, ahead of everything else, so
// preference UI can render before the big batch lands.
const CategoryTable = "category"

// RemainingTables is the batch subscribed after category.
var RemainingTables = []string{
	"user",
	"player",
	"room",
	"room_member",
	"room_invitation",
	"activity",
	"player_activity",
	"player_unlocked_activity",
	"room_activity",
	"activity_participant",
	"player_not_wanted_activity",
	"user_category_preference",
	"player_category_preference",
}

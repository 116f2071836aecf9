package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/playroom-app/playroom-client/pkg/types"
)

func TestDecodePlayer_PositionalAndKeyedMatch(t *testing.T) {
	positional := json.RawMessage(`[7, 3, "ava", 120, [1700000000000000]]`)
	keyed := json.RawMessage(`{"id":7,"user_id":3,"username":"ava","xp":120,"created_at":1700000000000000}`)

	a, err := DecodePlayer(positional)
	require.NoError(t, err)
	b, err := DecodePlayer(keyed)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, uint64(7), a.ID)
	require.Equal(t, int64(1700000000000000), a.CreatedAt)
}

func TestDecodeUser_PositionalAndKeyedMatch(t *testing.T) {
	positional := json.RawMessage(`[1, {"__identity__":"0xAB12CD"}, "ava", "hash", [0], 1000, [2000]]`)
	keyed := json.RawMessage(`{"id":1,"identity":["0xAB12CD"],"username":"ava","password_hash":"hash","role":"User","created_at":1000,"updated_at":2000}`)

	a, err := DecodeUser(positional)
	require.NoError(t, err)
	b, err := DecodeUser(keyed)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, "ab12cd", a.Identity)
	require.Equal(t, types.RoleUser, a.Role)
}

func TestDecodeRoomMember_RoleEncodings(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want types.MemberRole
	}{
		{"ordinal pair", `[1, 1, 2, [3, []], 1000]`, types.MemberPhotographer},
		{"bare ordinal", `[1, 1, 2, 0, 1000]`, types.MemberTop},
		{"single-key object", `{"id":1,"room_id":1,"player_id":2,"role":{"ActivityAdmin":{}},"joined_at":1000}`, types.MemberActivityAdmin},
		{"name string", `{"id":1,"room_id":1,"player_id":2,"role":"Bottom","joined_at":1000}`, types.MemberBottom},
		{"unrecognized falls back to default", `{"id":1,"room_id":1,"player_id":2,"role":"Wizard","joined_at":1000}`, types.MemberObserver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := DecodeRoomMember(json.RawMessage(tc.raw))
			require.NoError(t, err)
			require.Equal(t, tc.want, m.Role)
		})
	}
}

func TestDecodeRoomInvitation_OptionFields(t *testing.T) {
	withTarget := json.RawMessage(`[5, "tok", 1, 2, [0, "ben"], [1, []], [0, 9]]`)
	inv, err := DecodeRoomInvitation(withTarget)
	require.NoError(t, err)
	require.NotNil(t, inv.TargetUsername)
	require.Equal(t, "ben", *inv.TargetUsername)
	require.Equal(t, types.InviteAccepted, inv.Status) // ordinal 1
	require.NotNil(t, inv.AcceptedBy)
	require.Equal(t, uint64(9), *inv.AcceptedBy)

	absent := json.RawMessage(`{"id":5,"token":"tok","room_id":1,"creator_id":2,"target_username":[1, []],"status":"Accepted","accepted_by":[1, []]}`)
	inv, err = DecodeRoomInvitation(absent)
	require.NoError(t, err)
	require.Nil(t, inv.TargetUsername)
	require.Nil(t, inv.AcceptedBy)
	require.Equal(t, types.InviteAccepted, inv.Status)
}

func TestDecodeActivity_BadRows(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"scalar", `42`},
		{"truncated positional", `[1, 2, "Skill"]`},
		{"wrong field type", `{"id":"not-a-number","category_id":2,"kind":"Skill","name":"n","description":"d","instructions":"i","video_url":null,"xp_required":0,"xp_reward":5}`},
		{"invalid json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeActivity(json.RawMessage(tc.raw))
			require.Error(t, err)
		})
	}
}

func TestDecodeActivity_VideoURLOption(t *testing.T) {
	a, err := DecodeActivity(json.RawMessage(`[4, 2, [0, []], "Name", "d", "i", [0, "https://v"], 10, 25]`))
	require.NoError(t, err)
	require.Equal(t, types.KindSkill, a.Kind)
	require.NotNil(t, a.VideoURL)
	require.Equal(t, "https://v", *a.VideoURL)

	b, err := DecodeActivity(json.RawMessage(`[4, 2, "Skill", "Name", "d", "i", [1, []], 10, 25]`))
	require.NoError(t, err)
	require.Nil(t, b.VideoURL)
	require.Equal(t, a.ID, b.ID)
}

func TestNormalizeIdentity(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"marker object", `{"__identity__":"0xAB12FF"}`, "ab12ff"},
		{"bare string", `"0xAB12FF"`, "ab12ff"},
		{"no marker", `"ab12ff"`, "ab12ff"},
		{"singleton array", `["0xAB12FF"]`, "ab12ff"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeIdentity(json.RawMessage(tc.raw))
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := NormalizeIdentity(json.RawMessage(`42`))
	require.Error(t, err)
}

func TestSameIdentity(t *testing.T) {
	require.True(t, SameIdentity("0xAB12", "ab12"))
	require.True(t, SameIdentity("AB12", "0xab12"))
	require.False(t, SameIdentity("ab12", "ab13"))
	require.False(t, SameIdentity("", ""))
}

func TestParseServerFrame(t *testing.T) {
	f, err := ParseServerFrame([]byte(`{"IdentityToken":{"identity":{"__identity__":"0xAB12"},"token":"tok"}}`))
	require.NoError(t, err)
	require.NotNil(t, f.IdentityToken)
	require.Equal(t, "tok", f.IdentityToken.Token)
	require.Nil(t, f.TableUpdates())

	_, err = ParseServerFrame([]byte(`{"SomethingElse":{}}`))
	require.ErrorIs(t, err, ErrUnknownFrame)
}

func TestTableUpdate_FlattenNestedPairs(t *testing.T) {
	payload := []byte(`{"TransactionUpdate":{"status":"committed","database_update":{"tables":[
		{"table_name":"player","updates":[
			{"deletes":[{"id":1}],"inserts":[{"id":1,"xp":5}]},
			{"deletes":[],"inserts":[{"id":2}]}
		],"inserts":[{"id":3}]}
	]}}}`)
	f, err := ParseServerFrame(payload)
	require.NoError(t, err)
	updates := f.TableUpdates()
	require.Len(t, updates, 1)
	deletes, inserts := updates[0].Flatten()
	require.Len(t, deletes, 1)
	require.Len(t, inserts, 3)
}

func TestDecodeVariant_OrdinalPriority(t *testing.T) {
	names := []string{"A", "B", "C"}
	// Ordinal lookup wins even when the payload looks like a name.
	v := []any{json.Number("2"), "A"}
	require.Equal(t, "C", decodeVariant(v, names, "A"))
}

package client

import (
	"context"

	"github.com/playroom-app/playroom-client/internal/gateway"
)

// Convenience wrappers over the reducer gateway. None of these mutate
// local state: the mirror catches up when the server's delta arrives,
// so callers pair them with AwaitSync when they need to observe the
// effect.

func (c *Client) JoinRoom(ctx context.Context, code string) (gateway.Result, error) {
	return c.Gateway.Call(ctx, "join_room", code)
}

func (c *Client) LeaveRoom(ctx context.Context, roomID uint64) (gateway.Result, error) {
	return c.Gateway.Call(ctx, "leave_room", roomID)
}

func (c *Client) SetActivityNotWanted(ctx context.Context, activityID uint64) (gateway.Result, error) {
	return c.Gateway.Call(ctx, "set_activity_not_wanted", activityID)
}

func (c *Client) SetCategoryPreference(ctx context.Context, categoryID uint64, allowed bool) (gateway.Result, error) {
	return c.Gateway.Call(ctx, "set_category_preference", categoryID, allowed)
}

// AcknowledgeNewUnlocks clears the is_new flag on the player's
// unlocked activities. This is the only path that clears the flag; the
// derivation engine never does.
func (c *Client) AcknowledgeNewUnlocks(ctx context.Context, playerID uint64) (gateway.Result, error) {
	return c.Gateway.Call(ctx, "acknowledge_new_unlocks", playerID)
}

func (c *Client) StartRoomActivity(ctx context.Context, roomID, activityID uint64) (gateway.Result, error) {
	return c.Gateway.Call(ctx, "start_room_activity", roomID, activityID)
}

func (c *Client) CompleteRoomActivity(ctx context.Context, roomActivityID uint64) (gateway.Result, error) {
	return c.Gateway.Call(ctx, "complete_room_activity", roomActivityID)
}

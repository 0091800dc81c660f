package actions

import (
	"context"
	"fmt"

	"github.com/dreaminglucid/eliza/store"
)

// MuteRoomName is the action tag an agent emits to stop engaging with a room.
const MuteRoomName = "mute_room"

// MuteRoom marks the agent as muted in the room the triggering message came
// from. A muted agent ignores everything in that room except direct mentions.
type MuteRoom struct {
	AgentID string
	Store   *store.Store
}

func NewMuteRoom(agentID string, st *store.Store) *MuteRoom {
	return &MuteRoom{AgentID: agentID, Store: st}
}

func (a *MuteRoom) Name() string { return MuteRoomName }

func (a *MuteRoom) Describe() string {
	return "Stop responding in this room until mentioned directly."
}

func (a *MuteRoom) Validate(ctx context.Context, message store.Memory) (bool, error) {
	if message.RoomID == "" {
		return false, nil
	}
	return a.Store.GetParticipantUserState(message.RoomID, a.AgentID) != store.UserStateMuted, nil
}

func (a *MuteRoom) Execute(ctx context.Context, message store.Memory, responses []store.Memory) error {
	if message.RoomID == "" {
		return fmt.Errorf("mute room: message has no room")
	}
	a.Store.SetParticipantUserState(message.RoomID, a.AgentID, store.UserStateMuted)
	return nil
}

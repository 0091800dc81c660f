package actions

import (
	"context"
	"testing"

	"github.com/dreaminglucid/eliza/store"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	st := store.New()
	if err := r.Register(NewMuteRoom("agent-1", st)); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}
	a, ok := r.Get(MuteRoomName)
	if !ok {
		t.Fatalf("Get(%q) not found", MuteRoomName)
	}
	if a.Name() != MuteRoomName {
		t.Fatalf("Name() = %q, want %q", a.Name(), MuteRoomName)
	}
	if err := r.Register(nil); err == nil {
		t.Fatal("Register(nil) = nil, want error")
	}
}

func TestRegistryDescribe(t *testing.T) {
	r := NewRegistry()
	st := store.New()
	if err := r.Register(NewMuteRoom("agent-1", st)); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}
	desc := r.Describe()
	want := "mute_room: Stop responding in this room until mentioned directly."
	if desc != want {
		t.Fatalf("Describe() = %q, want %q", desc, want)
	}
}

func TestMuteRoomExecute(t *testing.T) {
	st := store.New()
	roomID := st.CreateRoom("")
	st.AddParticipant("agent-1", roomID)

	a := NewMuteRoom("agent-1", st)
	msg := store.Memory{ID: store.NewID(), RoomID: roomID, UserID: "user-1"}

	ok, err := a.Validate(context.Background(), msg)
	if err != nil || !ok {
		t.Fatalf("Validate() = %v, %v, want true, nil", ok, err)
	}
	if err := a.Execute(context.Background(), msg, nil); err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if got := st.GetParticipantUserState(roomID, "agent-1"); got != store.UserStateMuted {
		t.Fatalf("GetParticipantUserState() = %q, want %q", got, store.UserStateMuted)
	}

	// Once muted, the action no longer applies.
	ok, err = a.Validate(context.Background(), msg)
	if err != nil || ok {
		t.Fatalf("Validate() after mute = %v, %v, want false, nil", ok, err)
	}
}

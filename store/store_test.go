package store

import (
	"fmt"
	"testing"
	"time"
)

func newTestMemory(id, userID, roomID, text string) Memory {
	return Memory{
		ID:      id,
		UserID:  userID,
		AgentID: "agent-1",
		RoomID:  roomID,
		Content: Content{Text: text, Source: "telegram"},
	}
}

func TestCreateMemoryRoundTrip(t *testing.T) {
	s := New()
	m := newTestMemory("m1", "u1", "r1", "hello")
	s.CreateMemory(m, "messages", true)

	got := s.GetMemoryByID("m1")
	if got == nil {
		t.Fatalf("GetMemoryByID(m1) = nil, want memory")
	}
	if !got.Unique {
		t.Fatalf("GetMemoryByID(m1).Unique = false, want true")
	}
	if got.Content.Text != "hello" {
		t.Fatalf("GetMemoryByID(m1).Content.Text = %q, want %q", got.Content.Text, "hello")
	}
}

func TestGetMemoriesSliceSemantics(t *testing.T) {
	s := New()
	for i := 0; i < 25; i++ {
		s.CreateMemory(newTestMemory(fmt.Sprintf("m%d", i), "u1", "r1", fmt.Sprintf("msg %d", i)), "messages", false)
	}

	got := s.GetMemories(MemoryQuery{RoomID: "r1", TableName: "messages"})
	if len(got) != 10 {
		t.Fatalf("GetMemories(default count) = %d entries, want 10", len(got))
	}
	if got[0].ID != "m0" {
		t.Fatalf("GetMemories()[0].ID = %q, want m0 (insertion order)", got[0].ID)
	}

	start, end := 5, 8
	ranged := s.GetMemories(MemoryQuery{RoomID: "r1", TableName: "messages", Start: &start, End: &end})
	if len(ranged) != 3 || ranged[0].ID != "m5" || ranged[2].ID != "m7" {
		t.Fatalf("GetMemories(start=5,end=8) = %v, want [m5 m6 m7]", rangedIDs(ranged))
	}
}

func rangedIDs(ms []Memory) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestGetMemoriesUniqueFilterBeforeSlicing(t *testing.T) {
	s := New()
	for i := 0; i < 6; i++ {
		s.CreateMemory(newTestMemory(fmt.Sprintf("m%d", i), "u1", "r1", "x"), "messages", i%2 == 0)
	}
	got := s.GetMemories(MemoryQuery{RoomID: "r1", TableName: "messages", Count: 2, Unique: true})
	if len(got) != 2 || got[0].ID != "m0" || got[1].ID != "m2" {
		t.Fatalf("GetMemories(unique, count=2) = %v, want [m0 m2]", rangedIDs(got))
	}
}

func TestCountMemoriesMatchesGetMemories(t *testing.T) {
	s := New()
	for i := 0; i < 7; i++ {
		s.CreateMemory(newTestMemory(fmt.Sprintf("m%d", i), "u1", "r1", "x"), "messages", false)
	}
	s.CreateMemory(newTestMemory("f1", "u1", "r1", "fact"), "facts", false)
	s.CreateMemory(newTestMemory("o1", "u1", "r2", "other"), "messages", false)

	all := s.GetMemories(MemoryQuery{RoomID: "r1", TableName: "messages", Count: 1 << 30})
	if got := s.CountMemories("r1", false, "messages"); got != len(all) {
		t.Fatalf("CountMemories(r1, messages) = %d, want %d", got, len(all))
	}
	if got := s.CountMemories("r1", false, ""); got != 8 {
		t.Fatalf("CountMemories(r1, all tables) = %d, want 8", got)
	}
}

func TestRemoveMemoryAndRemoveAll(t *testing.T) {
	s := New()
	s.CreateMemory(newTestMemory("m1", "u1", "r1", "a"), "messages", false)
	s.CreateMemory(newTestMemory("m2", "u1", "r1", "b"), "messages", false)

	s.RemoveMemory("m1", "messages")
	if got := s.GetMemoryByID("m1"); got != nil {
		t.Fatalf("GetMemoryByID(m1) after remove = %v, want nil", got)
	}
	if got := s.CountMemories("r1", false, "messages"); got != 1 {
		t.Fatalf("CountMemories after remove = %d, want 1", got)
	}

	s.RemoveAllMemories("r1", "messages")
	if got := s.CountMemories("r1", false, "messages"); got != 0 {
		t.Fatalf("CountMemories after purge = %d, want 0", got)
	}
	if got := s.GetMemoryByID("m2"); got != nil {
		t.Fatalf("GetMemoryByID(m2) after purge = %v, want nil", got)
	}
}

func TestSearchMemoriesBoundedToPartition(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.CreateMemory(newTestMemory(fmt.Sprintf("m%d", i), "u1", "r1", "x"), "messages", false)
	}
	s.CreateMemory(newTestMemory("other", "u1", "r2", "y"), "messages", false)

	got := s.SearchMemories("messages", "r1", nil, 0.5, 3)
	if len(got) != 3 {
		t.Fatalf("SearchMemories(count=3) = %d entries, want 3", len(got))
	}
	for _, m := range got {
		if m.RoomID != "r1" {
			t.Fatalf("SearchMemories returned memory from room %q, want r1", m.RoomID)
		}
	}
}

func TestAddParticipantIdempotent(t *testing.T) {
	s := New()
	roomID := s.CreateRoom("")
	s.AddParticipant("u1", roomID)
	s.AddParticipant("u1", roomID)

	got := s.GetParticipantsForRoom(roomID)
	if len(got) != 1 || got[0] != "u1" {
		t.Fatalf("GetParticipantsForRoom = %v, want [u1]", got)
	}
}

func TestAddParticipantCreatesRoomLazily(t *testing.T) {
	s := New()
	s.AddParticipant("u1", "unknown-room")
	if got := s.GetParticipantsForRoom("unknown-room"); len(got) != 1 {
		t.Fatalf("GetParticipantsForRoom(lazy room) = %v, want [u1]", got)
	}
}

func TestParticipantUserStateWithoutParticipationCheck(t *testing.T) {
	s := New()
	s.SetParticipantUserState("r1", "u1", UserStateMuted)
	if got := s.GetParticipantUserState("r1", "u1"); got != UserStateMuted {
		t.Fatalf("GetParticipantUserState = %q, want MUTED", got)
	}
	s.SetParticipantUserState("r1", "u1", UserStateNone)
	if got := s.GetParticipantUserState("r1", "u1"); got != UserStateNone {
		t.Fatalf("GetParticipantUserState after clear = %q, want empty", got)
	}
}

func TestGetRoomsForParticipants(t *testing.T) {
	s := New()
	s.AddParticipant("u1", "r1")
	s.AddParticipant("u2", "r2")
	s.AddParticipant("u3", "r3")

	got := s.GetRoomsForParticipants([]string{"u1", "u3"})
	if len(got) != 2 || got[0] != "r1" || got[1] != "r3" {
		t.Fatalf("GetRoomsForParticipants = %v, want [r1 r3]", got)
	}
}

func TestGetActorDetailsSkipsUnresolvable(t *testing.T) {
	s := New()
	s.CreateAccount(Account{ID: "u1", Name: "Ann", Username: "ann", Details: map[string]string{"tagline": "hi"}})
	s.AddParticipant("u1", "r1")
	s.AddParticipant("ghost", "r1")

	actors := s.GetActorDetails("r1")
	if len(actors) != 1 {
		t.Fatalf("GetActorDetails = %d actors, want 1", len(actors))
	}
	if actors[0].Name != "Ann" || actors[0].Details.Tagline != "hi" {
		t.Fatalf("GetActorDetails[0] = %+v, want Ann/hi", actors[0])
	}
}

func TestGoalsFilteredRetrieval(t *testing.T) {
	s := New()
	s.CreateGoal(Goal{ID: "g1", RoomID: "r1", UserID: "u1", Status: GoalStatusInProgress, Name: "a"})
	s.CreateGoal(Goal{ID: "g2", RoomID: "r1", UserID: "u2", Status: GoalStatusDone, Name: "b"})
	s.CreateGoal(Goal{ID: "g3", RoomID: "r1", UserID: "u1", Status: GoalStatusInProgress, Name: "c"})

	got := s.GetGoals(GoalQuery{RoomID: "r1", UserID: "u1", OnlyInProgress: true})
	if len(got) != 2 {
		t.Fatalf("GetGoals(u1, in progress) = %d goals, want 2", len(got))
	}

	s.UpdateGoalStatus("g3", GoalStatusFailed)
	got = s.GetGoals(GoalQuery{RoomID: "r1", OnlyInProgress: true})
	if len(got) != 1 || got[0].ID != "g1" {
		t.Fatalf("GetGoals after status patch = %v, want [g1]", got)
	}

	s.RemoveGoal("g1")
	if got := s.GetGoals(GoalQuery{RoomID: "r1"}); len(got) != 2 {
		t.Fatalf("GetGoals after remove = %d goals, want 2", len(got))
	}
	s.RemoveAllGoals("r1")
	if got := s.GetGoals(GoalQuery{RoomID: "r1"}); len(got) != 0 {
		t.Fatalf("GetGoals after purge = %d goals, want 0", len(got))
	}
}

func TestCreateRelationshipLastWriteWins(t *testing.T) {
	s := New()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	s.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Hour)
	}

	s.CreateRelationship("a", "b")
	first := s.GetRelationship("a", "b")
	s.CreateRelationship("b", "a")

	rels := s.GetRelationships("a")
	if len(rels) != 1 {
		t.Fatalf("GetRelationships(a) = %d edges, want 1 (unordered pair)", len(rels))
	}
	if !rels[0].CreatedAt.After(first.CreatedAt) {
		t.Fatalf("second CreateRelationship did not override timestamp: %v <= %v", rels[0].CreatedAt, first.CreatedAt)
	}
	if got := s.GetRelationship("b", "a"); got == nil || got.ID != rels[0].ID {
		t.Fatalf("GetRelationship(b, a) = %v, want same edge as (a, b)", got)
	}
}

func TestGetRelationshipsMatchesEitherSide(t *testing.T) {
	s := New()
	s.CreateRelationship("a", "b")
	s.CreateRelationship("c", "a")
	s.CreateRelationship("c", "d")

	if got := s.GetRelationships("a"); len(got) != 2 {
		t.Fatalf("GetRelationships(a) = %d edges, want 2", len(got))
	}
	if got := s.GetRelationships("zzz"); len(got) != 0 {
		t.Fatalf("GetRelationships(zzz) = %d edges, want 0", len(got))
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := New()
	s.CreateAccount(Account{ID: "u1", Name: "Ann", Username: "ann"})
	s.CreateRoom("r1")
	s.AddParticipant("u1", "r1")
	s.SetParticipantUserState("r1", "u1", UserStateFollowed)
	s.CreateMemory(newTestMemory("m1", "u1", "r1", "hello"), "messages", true)
	s.CreateGoal(Goal{ID: "g1", RoomID: "r1", UserID: "u1", Status: GoalStatusInProgress, Name: "n"})
	s.CreateRelationship("u1", "agent-1")

	restored := New()
	restored.Restore(s.Snapshot())

	if got := restored.GetAccountByID("u1"); got == nil || got.Name != "Ann" {
		t.Fatalf("restored account = %v, want Ann", got)
	}
	if got := restored.GetMemoryByID("m1"); got == nil || !got.Unique {
		t.Fatalf("restored memory id index broken: %v", got)
	}
	if got := restored.CountMemories("r1", false, "messages"); got != 1 {
		t.Fatalf("restored CountMemories = %d, want 1", got)
	}
	if got := restored.GetParticipantUserState("r1", "u1"); got != UserStateFollowed {
		t.Fatalf("restored user state = %q, want FOLLOWED", got)
	}
	if got := restored.GetRelationship("agent-1", "u1"); got == nil {
		t.Fatalf("restored relationship missing")
	}
	if got := restored.GetGoals(GoalQuery{RoomID: "r1"}); len(got) != 1 {
		t.Fatalf("restored goals = %d, want 1", len(got))
	}
}

func TestStringToUUIDDeterministic(t *testing.T) {
	a := StringToUUID("12345")
	b := StringToUUID("12345")
	c := StringToUUID("12346")
	if a != b {
		t.Fatalf("StringToUUID not deterministic: %q != %q", a, b)
	}
	if a == c {
		t.Fatalf("StringToUUID collision for distinct inputs")
	}
	if len(a) != 36 {
		t.Fatalf("StringToUUID(%q) = %q, want UUID-shaped", "12345", a)
	}
}

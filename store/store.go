// Package store implements the in-memory conversational data store: accounts,
// rooms, participants, memories, goals and relationships. It is pure data
// access with no business logic; referential integrity across entity families
// is the caller's responsibility, and absent entities yield nil/empty results
// rather than errors.
package store

import (
	"sort"
	"sync"
	"time"
)

type partitionKey struct {
	Table string
	Room  string
}

// memoryPartition holds one (tableName, roomId) append-only list. Each
// partition carries its own lock so concurrent traffic against different
// rooms never serializes.
type memoryPartition struct {
	mu      sync.RWMutex
	entries []Memory
}

type pairKey struct {
	A string
	B string
}

// normalizedPair orders the two endpoints so that {a,b} and {b,a} address
// the same relationship edge.
func normalizedPair(userA, userB string) pairKey {
	if userB < userA {
		userA, userB = userB, userA
	}
	return pairKey{A: userA, B: userB}
}

// Store owns all durable conversational entities. Every exported operation
// is atomic with respect to the others; memory appends shard their locking
// by (table, room) so only same-partition writers contend.
type Store struct {
	accountMu sync.RWMutex
	accounts  map[string]Account

	roomMu sync.RWMutex
	rooms  map[string]*Room

	goalMu sync.RWMutex
	goals  map[string][]Goal // keyed by room id

	relMu         sync.RWMutex
	relationships map[pairKey]Relationship

	memMu      sync.RWMutex // guards the partition map and the id index
	partitions map[partitionKey]*memoryPartition
	byID       map[string]Memory

	now func() time.Time
}

func New() *Store {
	return &Store{
		accounts:      make(map[string]Account),
		rooms:         make(map[string]*Room),
		goals:         make(map[string][]Goal),
		relationships: make(map[pairKey]Relationship),
		partitions:    make(map[partitionKey]*memoryPartition),
		byID:          make(map[string]Memory),
		now:           time.Now,
	}
}

// Accounts

// CreateAccount upserts the account by id. It always succeeds.
func (s *Store) CreateAccount(account Account) bool {
	s.accountMu.Lock()
	s.accounts[account.ID] = account
	s.accountMu.Unlock()
	return true
}

func (s *Store) GetAccountByID(id string) *Account {
	s.accountMu.RLock()
	defer s.accountMu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil
	}
	out := account
	return &out
}

// Memories

func (s *Store) partition(table, roomID string) *memoryPartition {
	key := partitionKey{Table: table, Room: roomID}
	s.memMu.RLock()
	p := s.partitions[key]
	s.memMu.RUnlock()
	if p != nil {
		return p
	}
	s.memMu.Lock()
	defer s.memMu.Unlock()
	if p = s.partitions[key]; p == nil {
		p = &memoryPartition{}
		s.partitions[key] = p
	}
	return p
}

// CreateMemory appends to the (tableName, roomId) list in insertion order
// and indexes the entry by id when one is present.
func (s *Store) CreateMemory(memory Memory, tableName string, unique bool) {
	memory.Unique = unique
	p := s.partition(tableName, memory.RoomID)
	p.mu.Lock()
	p.entries = append(p.entries, memory)
	p.mu.Unlock()
	if memory.ID != "" {
		s.memMu.Lock()
		s.byID[memory.ID] = memory
		s.memMu.Unlock()
	}
}

// MemoryQuery selects a slice of one memory partition. When Start and End
// are both set the half-open [Start, End) range of the room's list is
// returned; otherwise the first Count entries (insertion order) are.
type MemoryQuery struct {
	RoomID    string
	TableName string
	Count     int
	Unique    bool
	Start     *int
	End       *int
}

func (s *Store) GetMemories(q MemoryQuery) []Memory {
	p := s.partition(q.TableName, q.RoomID)
	p.mu.RLock()
	entries := append([]Memory(nil), p.entries...)
	p.mu.RUnlock()

	if q.Unique {
		filtered := entries[:0]
		for _, m := range entries {
			if m.Unique {
				filtered = append(filtered, m)
			}
		}
		entries = filtered
	}

	if q.Start != nil && q.End != nil {
		start, end := clampRange(*q.Start, *q.End, len(entries))
		return entries[start:end]
	}
	count := q.Count
	if count <= 0 {
		count = 10
	}
	if count < len(entries) {
		entries = entries[:count]
	}
	return entries
}

func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

func (s *Store) GetMemoryByID(id string) *Memory {
	s.memMu.RLock()
	defer s.memMu.RUnlock()
	memory, ok := s.byID[id]
	if !ok {
		return nil
	}
	out := memory
	return &out
}

// GetMemoriesByRoomIDs concatenates the given rooms' partitions for one
// table, preserving per-room insertion order.
func (s *Store) GetMemoriesByRoomIDs(tableName string, roomIDs []string) []Memory {
	var out []Memory
	for _, roomID := range roomIDs {
		p := s.partition(tableName, roomID)
		p.mu.RLock()
		out = append(out, p.entries...)
		p.mu.RUnlock()
	}
	return out
}

// SearchMemories is the reference similarity search: it guarantees only that
// results come from the correct (tableName, roomId) partition and are bounded
// by matchCount. Real scoring is delegated to an external collaborator.
func (s *Store) SearchMemories(tableName, roomID string, _ []float32, _ float64, matchCount int) []Memory {
	p := s.partition(tableName, roomID)
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := len(p.entries)
	if matchCount >= 0 && matchCount < n {
		n = matchCount
	}
	return append([]Memory(nil), p.entries[:n]...)
}

// RemoveMemory deletes the memory with the given id from every room
// partition of the table and drops the id index entry.
func (s *Store) RemoveMemory(id, tableName string) {
	s.memMu.Lock()
	delete(s.byID, id)
	partitions := make([]*memoryPartition, 0)
	for key, p := range s.partitions {
		if key.Table == tableName {
			partitions = append(partitions, p)
		}
	}
	s.memMu.Unlock()

	for _, p := range partitions {
		p.mu.Lock()
		kept := p.entries[:0]
		for _, m := range p.entries {
			if m.ID != id {
				kept = append(kept, m)
			}
		}
		p.entries = kept
		p.mu.Unlock()
	}
}

func (s *Store) RemoveAllMemories(roomID, tableName string) {
	key := partitionKey{Table: tableName, Room: roomID}
	s.memMu.Lock()
	p := s.partitions[key]
	delete(s.partitions, key)
	if p != nil {
		for _, m := range p.entries {
			if m.ID != "" {
				delete(s.byID, m.ID)
			}
		}
	}
	s.memMu.Unlock()
}

// CountMemories counts the room's entries, optionally restricted to one
// table and/or to unique-tagged memories.
func (s *Store) CountMemories(roomID string, unique bool, tableName string) int {
	s.memMu.RLock()
	partitions := make([]*memoryPartition, 0)
	for key, p := range s.partitions {
		if key.Room != roomID {
			continue
		}
		if tableName != "" && key.Table != tableName {
			continue
		}
		partitions = append(partitions, p)
	}
	s.memMu.RUnlock()

	count := 0
	for _, p := range partitions {
		p.mu.RLock()
		if unique {
			for _, m := range p.entries {
				if m.Unique {
					count++
				}
			}
		} else {
			count += len(p.entries)
		}
		p.mu.RUnlock()
	}
	return count
}

// Rooms

// CreateRoom registers a room, generating an id when none is given, and
// returns the room id. An existing room with the same id is reset.
func (s *Store) CreateRoom(id string) string {
	if id == "" {
		id = NewID()
	}
	s.roomMu.Lock()
	s.rooms[id] = &Room{ID: id, UserStates: make(map[string]UserState)}
	s.roomMu.Unlock()
	return id
}

func (s *Store) GetRoom(id string) (string, bool) {
	s.roomMu.RLock()
	defer s.roomMu.RUnlock()
	if _, ok := s.rooms[id]; ok {
		return id, true
	}
	return "", false
}

func (s *Store) RemoveRoom(id string) {
	s.roomMu.Lock()
	delete(s.rooms, id)
	s.roomMu.Unlock()
}

// roomLocked returns the room, creating it lazily. Callers hold roomMu.
func (s *Store) roomLocked(id string) *Room {
	room, ok := s.rooms[id]
	if !ok {
		room = &Room{ID: id, UserStates: make(map[string]UserState)}
		s.rooms[id] = room
	}
	return room
}

// AddParticipant adds the user to the room, creating the room lazily.
// Adding an existing participant is a no-op.
func (s *Store) AddParticipant(userID, roomID string) bool {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()
	room := s.roomLocked(roomID)
	for _, id := range room.Participants {
		if id == userID {
			return true
		}
	}
	room.Participants = append(room.Participants, userID)
	return true
}

func (s *Store) RemoveParticipant(userID, roomID string) bool {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	kept := room.Participants[:0]
	for _, id := range room.Participants {
		if id != userID {
			kept = append(kept, id)
		}
	}
	room.Participants = kept
	return true
}

func (s *Store) GetParticipantsForRoom(roomID string) []string {
	s.roomMu.RLock()
	defer s.roomMu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	return append([]string(nil), room.Participants...)
}

// GetParticipantsForAccount projects one participant row per room the user
// is a member of. Users with no resolvable account yield nothing.
func (s *Store) GetParticipantsForAccount(userID string) []Participant {
	account := s.GetAccountByID(userID)
	if account == nil {
		return nil
	}
	var out []Participant
	s.roomMu.RLock()
	defer s.roomMu.RUnlock()
	for _, roomID := range s.sortedRoomIDsLocked() {
		room := s.rooms[roomID]
		for _, id := range room.Participants {
			if id == userID {
				out = append(out, Participant{ID: userID, Account: *account})
				break
			}
		}
	}
	return out
}

func (s *Store) GetRoomsForParticipant(userID string) []string {
	return s.GetRoomsForParticipants([]string{userID})
}

func (s *Store) GetRoomsForParticipants(userIDs []string) []string {
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []string
	s.roomMu.RLock()
	defer s.roomMu.RUnlock()
	for _, roomID := range s.sortedRoomIDsLocked() {
		for _, id := range s.rooms[roomID].Participants {
			if wanted[id] {
				out = append(out, roomID)
				break
			}
		}
	}
	return out
}

func (s *Store) sortedRoomIDsLocked() []string {
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) GetParticipantUserState(roomID, userID string) UserState {
	s.roomMu.RLock()
	defer s.roomMu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return UserStateNone
	}
	return room.UserStates[userID]
}

// SetParticipantUserState records the state without verifying participation,
// creating the room lazily. The laxity is deliberate: the original store
// behaves the same way.
func (s *Store) SetParticipantUserState(roomID, userID string, state UserState) {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()
	room := s.roomLocked(roomID)
	if state == UserStateNone {
		delete(room.UserStates, userID)
		return
	}
	room.UserStates[userID] = state
}

// GetActorDetails joins room participants against accounts; participants
// with no resolvable account are skipped.
func (s *Store) GetActorDetails(roomID string) []Actor {
	participants := s.GetParticipantsForRoom(roomID)
	var actors []Actor
	for _, id := range participants {
		account := s.GetAccountByID(id)
		if account == nil {
			continue
		}
		actors = append(actors, Actor{
			ID:       account.ID,
			Name:     account.Name,
			Username: account.Username,
			Details: ActorDetails{
				Tagline: account.Details["tagline"],
				Summary: account.Details["summary"],
				Quote:   account.Details["quote"],
			},
		})
	}
	return actors
}

// Goals

func (s *Store) CreateGoal(goal Goal) {
	s.goalMu.Lock()
	s.goals[goal.RoomID] = append(s.goals[goal.RoomID], goal)
	s.goalMu.Unlock()
}

// UpdateGoal replaces the goal with the same id within its room.
func (s *Store) UpdateGoal(goal Goal) {
	s.goalMu.Lock()
	defer s.goalMu.Unlock()
	goals := s.goals[goal.RoomID]
	for i, g := range goals {
		if g.ID == goal.ID {
			goals[i] = goal
		}
	}
	s.goals[goal.RoomID] = goals
}

// UpdateGoalStatus patches the status of the goal wherever it lives; the
// scan is global across all rooms.
func (s *Store) UpdateGoalStatus(goalID string, status GoalStatus) {
	s.goalMu.Lock()
	defer s.goalMu.Unlock()
	for roomID, goals := range s.goals {
		for i, g := range goals {
			if g.ID == goalID {
				g.Status = status
				goals[i] = g
			}
		}
		s.goals[roomID] = goals
	}
}

func (s *Store) RemoveGoal(goalID string) {
	s.goalMu.Lock()
	defer s.goalMu.Unlock()
	for roomID, goals := range s.goals {
		kept := goals[:0]
		for _, g := range goals {
			if g.ID != goalID {
				kept = append(kept, g)
			}
		}
		s.goals[roomID] = kept
	}
}

func (s *Store) RemoveAllGoals(roomID string) {
	s.goalMu.Lock()
	delete(s.goals, roomID)
	s.goalMu.Unlock()
}

type GoalQuery struct {
	RoomID         string
	UserID         string
	OnlyInProgress bool
	Count          int
}

func (s *Store) GetGoals(q GoalQuery) []Goal {
	s.goalMu.RLock()
	goals := append([]Goal(nil), s.goals[q.RoomID]...)
	s.goalMu.RUnlock()

	filtered := goals[:0]
	for _, g := range goals {
		if q.OnlyInProgress && g.Status != GoalStatusInProgress {
			continue
		}
		if q.UserID != "" && g.UserID != q.UserID {
			continue
		}
		filtered = append(filtered, g)
	}
	if q.Count > 0 && q.Count < len(filtered) {
		filtered = filtered[:q.Count]
	}
	return filtered
}

// Relationships

// CreateRelationship creates or overwrites the single edge for the
// unordered {userA, userB} pair with status ACTIVE, a fresh id/roomId and
// the current timestamp. Last write wins.
func (s *Store) CreateRelationship(userA, userB string) bool {
	rel := Relationship{
		ID:        NewID(),
		UserA:     userA,
		UserB:     userB,
		UserID:    userA,
		RoomID:    NewID(),
		Status:    "ACTIVE",
		CreatedAt: s.now().UTC(),
	}
	s.relMu.Lock()
	s.relationships[normalizedPair(userA, userB)] = rel
	s.relMu.Unlock()
	return true
}

func (s *Store) GetRelationship(userA, userB string) *Relationship {
	s.relMu.RLock()
	defer s.relMu.RUnlock()
	rel, ok := s.relationships[normalizedPair(userA, userB)]
	if !ok {
		return nil
	}
	out := rel
	return &out
}

// GetRelationships scans for edges touching the user on either side.
func (s *Store) GetRelationships(userID string) []Relationship {
	s.relMu.RLock()
	defer s.relMu.RUnlock()
	keys := make([]pairKey, 0, len(s.relationships))
	for key := range s.relationships {
		if key.A == userID || key.B == userID {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	out := make([]Relationship, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.relationships[key])
	}
	return out
}

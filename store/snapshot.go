package store

import "sort"

// PartitionState is one (tableName, roomId) memory list in a snapshot.
type PartitionState struct {
	Table   string   `json:"table"`
	RoomID  string   `json:"room_id"`
	Entries []Memory `json:"entries"`
}

// State is the full serializable content of a Store. Field order inside the
// slices is deterministic so snapshots of equal stores compare equal.
type State struct {
	Accounts      []Account         `json:"accounts"`
	Rooms         []Room            `json:"rooms"`
	Partitions    []PartitionState  `json:"memory_partitions"`
	Goals         map[string][]Goal `json:"goals"`
	Relationships []Relationship    `json:"relationships"`
}

// Snapshot deep-copies the entire store content.
func (s *Store) Snapshot() State {
	var state State

	s.accountMu.RLock()
	accountIDs := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)
	for _, id := range accountIDs {
		state.Accounts = append(state.Accounts, s.accounts[id])
	}
	s.accountMu.RUnlock()

	s.roomMu.RLock()
	for _, id := range s.sortedRoomIDsLocked() {
		room := s.rooms[id]
		copied := Room{
			ID:           room.ID,
			Participants: append([]string(nil), room.Participants...),
			UserStates:   make(map[string]UserState, len(room.UserStates)),
		}
		for user, st := range room.UserStates {
			copied.UserStates[user] = st
		}
		state.Rooms = append(state.Rooms, copied)
	}
	s.roomMu.RUnlock()

	s.memMu.RLock()
	keys := make([]partitionKey, 0, len(s.partitions))
	for key := range s.partitions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Table != keys[j].Table {
			return keys[i].Table < keys[j].Table
		}
		return keys[i].Room < keys[j].Room
	})
	for _, key := range keys {
		p := s.partitions[key]
		p.mu.RLock()
		entries := append([]Memory(nil), p.entries...)
		p.mu.RUnlock()
		if len(entries) == 0 {
			continue
		}
		state.Partitions = append(state.Partitions, PartitionState{
			Table:   key.Table,
			RoomID:  key.Room,
			Entries: entries,
		})
	}
	s.memMu.RUnlock()

	s.goalMu.RLock()
	state.Goals = make(map[string][]Goal, len(s.goals))
	for roomID, goals := range s.goals {
		if len(goals) == 0 {
			continue
		}
		state.Goals[roomID] = append([]Goal(nil), goals...)
	}
	s.goalMu.RUnlock()

	s.relMu.RLock()
	relKeys := make([]pairKey, 0, len(s.relationships))
	for key := range s.relationships {
		relKeys = append(relKeys, key)
	}
	sort.Slice(relKeys, func(i, j int) bool {
		if relKeys[i].A != relKeys[j].A {
			return relKeys[i].A < relKeys[j].A
		}
		return relKeys[i].B < relKeys[j].B
	})
	for _, key := range relKeys {
		state.Relationships = append(state.Relationships, s.relationships[key])
	}
	s.relMu.RUnlock()

	return state
}

// Restore replaces the store content with the snapshot, rebuilding the
// memory id index. It must run before any request is processed.
func (s *Store) Restore(state State) {
	s.accountMu.Lock()
	s.accounts = make(map[string]Account, len(state.Accounts))
	for _, account := range state.Accounts {
		s.accounts[account.ID] = account
	}
	s.accountMu.Unlock()

	s.roomMu.Lock()
	s.rooms = make(map[string]*Room, len(state.Rooms))
	for _, room := range state.Rooms {
		copied := Room{
			ID:           room.ID,
			Participants: append([]string(nil), room.Participants...),
			UserStates:   make(map[string]UserState, len(room.UserStates)),
		}
		for user, st := range room.UserStates {
			copied.UserStates[user] = st
		}
		s.rooms[room.ID] = &copied
	}
	s.roomMu.Unlock()

	s.memMu.Lock()
	s.partitions = make(map[partitionKey]*memoryPartition, len(state.Partitions))
	s.byID = make(map[string]Memory)
	for _, part := range state.Partitions {
		p := &memoryPartition{entries: append([]Memory(nil), part.Entries...)}
		s.partitions[partitionKey{Table: part.Table, Room: part.RoomID}] = p
		for _, m := range p.entries {
			if m.ID != "" {
				s.byID[m.ID] = m
			}
		}
	}
	s.memMu.Unlock()

	s.goalMu.Lock()
	s.goals = make(map[string][]Goal, len(state.Goals))
	for roomID, goals := range state.Goals {
		s.goals[roomID] = append([]Goal(nil), goals...)
	}
	s.goalMu.Unlock()

	s.relMu.Lock()
	s.relationships = make(map[pairKey]Relationship, len(state.Relationships))
	for _, rel := range state.Relationships {
		s.relationships[normalizedPair(rel.UserA, rel.UserB)] = rel
	}
	s.relMu.Unlock()
}

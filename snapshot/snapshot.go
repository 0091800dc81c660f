// Package snapshot persists the full in-memory runtime state across a
// process restart. State is written once at controlled shutdown and read
// once at startup; there is no incremental persistence in between.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dreaminglucid/eliza/internal/fsstore"
	"github.com/dreaminglucid/eliza/store"
)

// Version tags the snapshot layout. Loading rejects snapshots written by a
// newer layout.
const Version = 1

// AgentRecord is one agent's durable state: its registry entry plus the
// full content of its conversational store.
type AgentRecord struct {
	Config   map[string]any `json:"config"`
	Status   string         `json:"status"`
	Messages []string       `json:"messages,omitempty"`
	Store    store.State    `json:"store"`
}

// State is the whole-process snapshot blob.
type State struct {
	Version int                    `json:"version"`
	SavedAt time.Time              `json:"saved_at"`
	Agents  map[string]AgentRecord `json:"agents"`
}

// Store reads and writes the snapshot slot at a fixed path.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	return &Store{path: path}, nil
}

// Load reads the snapshot slot. A missing file is not an error; found
// reports whether a snapshot was present. The decode is strict: unknown
// fields, trailing data, or a failed validation all reject the file rather
// than silently restoring partial state.
func (s *Store) Load() (State, bool, error) {
	if s == nil {
		return State{}, false, fmt.Errorf("nil snapshot store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return State{}, false, fmt.Errorf("snapshot file is empty: %s", s.path)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var state State
	if err := dec.Decode(&state); err != nil {
		return State{}, false, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		return State{}, false, fmt.Errorf("decode snapshot %s: trailing data", s.path)
	}
	if err := validate(state); err != nil {
		return State{}, false, err
	}
	return state, true, nil
}

// Save writes the snapshot slot atomically. Failure here is the single hard
// failure of the shutdown path: the caller must abort the restart rather
// than lose the state.
func (s *Store) Save(state State) error {
	if s == nil {
		return fmt.Errorf("nil snapshot store")
	}
	if err := validate(state); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fsstore.WriteJSONAtomic(s.path, state)
}

func validate(state State) error {
	if state.Version <= 0 || state.Version > Version {
		return fmt.Errorf("unsupported snapshot version %d", state.Version)
	}
	if state.Agents == nil {
		return fmt.Errorf("agents is required")
	}
	for name, agent := range state.Agents {
		if name == "" || strings.TrimSpace(name) != name {
			return fmt.Errorf("agent name is invalid")
		}
		if agent.Status == "" {
			return fmt.Errorf("agent %q has no status", name)
		}
	}
	return nil
}

package integration

import (
	"fmt"

	"github.com/dreaminglucid/eliza/character"
	"github.com/dreaminglucid/eliza/guard"
	"github.com/dreaminglucid/eliza/snapshot"
	"github.com/dreaminglucid/eliza/store"
)

// Snapshot serializes the whole registry, including every agent's store
// content.
func (r *Runtime) Snapshot() snapshot.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := snapshot.State{
		Version: snapshot.Version,
		SavedAt: r.now().UTC(),
		Agents:  make(map[string]snapshot.AgentRecord, len(r.agents)),
	}
	for name, a := range r.agents {
		config := a.config
		if config == nil {
			config = map[string]any{}
		}
		state.Agents[name] = snapshot.AgentRecord{
			Config:   config,
			Status:   string(a.status),
			Messages: append([]string(nil), a.messages...),
			Store:    a.store.Snapshot(),
		}
	}
	return state
}

// Restore replaces the registry with the snapshot's content. Guards restart
// empty: in-flight admissions do not survive a process boundary.
func (r *Runtime) Restore(state snapshot.State) error {
	if state.Agents == nil {
		return fmt.Errorf("restore: snapshot has no agents map")
	}
	agents := make(map[string]*runtimeAgent, len(state.Agents))
	for name, rec := range state.Agents {
		st := store.New()
		st.Restore(rec.Store)
		status := Status(rec.Status)
		if status != StatusRunning && status != StatusStopped {
			return fmt.Errorf("restore: agent %q has unknown status %q", name, rec.Status)
		}
		agents[name] = &runtimeAgent{
			name:     name,
			char:     restoreCharacter(name, rec.Config),
			config:   rec.Config,
			status:   status,
			messages: append([]string(nil), rec.Messages...),
			store:    st,
			guard:    guard.New(),
		}
	}
	r.mu.Lock()
	r.agents = agents
	r.mu.Unlock()
	return nil
}

// restoreCharacter rebuilds a persona from the agent's config entry. The
// config may carry a "character" sub-map with name/username/bio keys; absent
// that, the agent name doubles as the persona.
func restoreCharacter(name string, config map[string]any) character.Character {
	char := character.Character{Name: name, Username: name, FallbackText: character.DefaultFallbackText}
	sub, ok := config["character"].(map[string]any)
	if !ok {
		return char
	}
	if v, ok := sub["name"].(string); ok && v != "" {
		char.Name = v
	}
	if v, ok := sub["username"].(string); ok && v != "" {
		char.Username = v
	}
	if lines, ok := sub["bio"].([]any); ok {
		for _, line := range lines {
			if s, ok := line.(string); ok {
				char.Bio = append(char.Bio, s)
			}
		}
	}
	return char
}

// RestoreFromDisk loads the snapshot slot and restores it, if present. It
// runs once at startup before any message is processed.
func (r *Runtime) RestoreFromDisk() error {
	if r.snaps == nil {
		return nil
	}
	state, found, err := r.snaps.Load()
	if err != nil {
		return fmt.Errorf("restore from disk: %w", err)
	}
	if !found {
		r.logger.Info("no snapshot found, starting empty")
		return nil
	}
	if err := r.Restore(state); err != nil {
		return err
	}
	r.logger.Info("restored snapshot", "agents", len(state.Agents), "saved_at", state.SavedAt)
	return nil
}

// SaveToDisk writes the snapshot slot. It runs at controlled shutdown; a
// failure here must abort the restart rather than lose state.
func (r *Runtime) SaveToDisk() error {
	if r.snaps == nil {
		return nil
	}
	state := r.Snapshot()
	if err := r.snaps.Save(state); err != nil {
		return fmt.Errorf("save to disk: %w", err)
	}
	r.logger.Info("saved snapshot", "agents", len(state.Agents))
	return nil
}

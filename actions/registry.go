package actions

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds actions keyed by name. Registration replaces any earlier
// action registered under the same name.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

func (r *Registry) Register(a Action) error {
	if a == nil {
		return fmt.Errorf("register action: nil action")
	}
	name := a.Name()
	if name == "" {
		return fmt.Errorf("register action: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = a
	return nil
}

func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// Names returns registered action names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders one "name: description" line per registered action,
// suitable for inclusion in a prompt.
func (r *Registry) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, r.actions[name].Describe())
	}
	return strings.TrimRight(b.String(), "\n")
}

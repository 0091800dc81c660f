// Package guard tracks in-flight message identifiers so a redelivered event
// is handled by at most one pipeline invocation at a time. It is not a
// durable log: entries are forgotten on release, and true duplicate memory
// suppression relies on the store's id-based indexing.
package guard

import "sync"

type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func New() *Guard {
	return &Guard{inflight: make(map[string]struct{})}
}

// Admit attempts to claim the message id. The membership check and insert
// are a single atomic operation; a second admission for the same id fails
// until Release runs.
func (g *Guard) Admit(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inflight[id]; ok {
		return false
	}
	g.inflight[id] = struct{}{}
	return true
}

// Release forgets the id. It must run exactly once per admitted id, on
// every exit path.
func (g *Guard) Release(id string) {
	g.mu.Lock()
	delete(g.inflight, id)
	g.mu.Unlock()
}

// InFlight reports the number of ids currently being handled.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

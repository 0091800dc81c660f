// Package integration wires the gateway's components into a reusable
// runtime: a named-agent registry over explicit state containers, the
// snapshot lifecycle around the process restart boundary, and the thin
// administrative surface.
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dreaminglucid/eliza/agent"
	"github.com/dreaminglucid/eliza/character"
	"github.com/dreaminglucid/eliza/guard"
	"github.com/dreaminglucid/eliza/llm"
	"github.com/dreaminglucid/eliza/snapshot"
	"github.com/dreaminglucid/eliza/store"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// runtimeAgent is one registered agent and its private state containers.
type runtimeAgent struct {
	name     string
	char     character.Character
	config   map[string]any
	status   Status
	messages []string
	store    *store.Store
	guard    *guard.Guard
}

// Runtime owns the process-wide agent registry. All state is held in this
// container; nothing is package-level.
type Runtime struct {
	mu     sync.RWMutex
	agents map[string]*runtimeAgent

	llm    llm.Client
	snaps  *snapshot.Store
	logger *slog.Logger
	now    func() time.Time
}

type Config struct {
	LLM          llm.Client
	SnapshotPath string
	Logger       *slog.Logger
}

func New(cfg Config) (*Runtime, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("new runtime: llm client is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runtime{
		agents: make(map[string]*runtimeAgent),
		llm:    cfg.LLM,
		logger: logger,
		now:    time.Now,
	}
	if cfg.SnapshotPath != "" {
		snaps, err := snapshot.NewStore(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		r.snaps = snaps
	}
	return r, nil
}

// CreateAgent registers an agent or replaces an existing one's character and
// config. A new agent starts running with a fresh store; re-creating an
// existing agent keeps its store content.
func (r *Runtime) CreateAgent(name string, char character.Character, config map[string]any) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("create agent: name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.agents[name]; ok {
		existing.char = char
		existing.config = config
		existing.status = StatusRunning
		return nil
	}
	r.agents[name] = &runtimeAgent{
		name:   name,
		char:   char,
		config: config,
		status: StatusRunning,
		store:  store.New(),
		guard:  guard.New(),
	}
	return nil
}

func (r *Runtime) StartAgent(name string) error {
	return r.setStatus(name, StatusRunning)
}

func (r *Runtime) StopAgent(name string) error {
	return r.setStatus(name, StatusStopped)
}

func (r *Runtime) setStatus(name string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[name]
	if !ok {
		return fmt.Errorf("agent %q not found", name)
	}
	a.status = status
	return nil
}

func (r *Runtime) ListAgents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Runtime) AgentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// AgentInfo is the administrative view of one agent.
type AgentInfo struct {
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Config   map[string]any `json:"config"`
	Messages []string       `json:"messages,omitempty"`
}

func (r *Runtime) AgentStatus(name string) (AgentInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return AgentInfo{}, false
	}
	return AgentInfo{
		Name:     a.name,
		Status:   a.status,
		Config:   a.config,
		Messages: append([]string(nil), a.messages...),
	}, true
}

// AgentResources exposes the state containers a transport adapter needs to
// drive one agent's pipeline.
type AgentResources struct {
	Character character.Character
	Store     *store.Store
	Guard     *guard.Guard
	Status    Status
}

func (r *Runtime) AgentResources(name string) (AgentResources, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return AgentResources{}, false
	}
	return AgentResources{
		Character: a.char,
		Store:     a.store,
		Guard:     a.guard,
		Status:    a.status,
	}, true
}

// SendMessage runs one administrative exchange against a named agent: it
// records the inbound text as a memory, generates a reply, records the
// reply, and returns it synchronously.
func (r *Runtime) SendMessage(ctx context.Context, name, userID, roomID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("send message: text is required")
	}
	// CreateAgent may replace char and config concurrently, so everything
	// the exchange needs is copied out under the lock.
	r.mu.Lock()
	a, ok := r.agents[name]
	var (
		status Status
		char   character.Character
		st     *store.Store
	)
	if ok {
		a.messages = append(a.messages, text)
		status = a.status
		char = a.char
		st = a.store
	}
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("agent %q not found", name)
	}
	if status != StatusRunning {
		return "", fmt.Errorf("agent %q is not running", name)
	}

	if userID == "" {
		userID = "default-user-id"
	}
	if roomID == "" {
		roomID = "default-room-id"
	}
	userID = store.StringToUUID(userID)
	roomID = store.StringToUUID(roomID)

	st.CreateAccount(store.Account{ID: userID, Name: "Admin User", Username: "admin"})
	st.CreateAccount(store.Account{ID: name, Name: char.Name, Username: char.Username})
	st.AddParticipant(userID, roomID)
	st.AddParticipant(name, roomID)

	inbound := store.Memory{
		ID:        store.NewID(),
		UserID:    userID,
		AgentID:   name,
		RoomID:    roomID,
		CreatedAt: r.now().UnixMilli(),
		Content:   store.Content{Text: text, Source: "admin"},
	}
	st.CreateMemory(inbound, "messages", false)

	state := agent.ComposeState(st, char, roomID, nil, 0)
	raw, err := r.llm.Complete(ctx, llm.Request{
		Context:     agent.BuildMessagePrompt(state),
		Stop:        []string{"<|eot|>", "<|eom|>"},
		Temperature: 0.5,
	})
	reply := ""
	if err != nil {
		r.logger.Error("admin generation failed", "agent", name, "error", err)
		reply = char.FallbackText
	} else {
		resp, perr := agent.ParseResponse(raw)
		if perr != nil {
			r.logger.Error("admin generation output unparseable", "agent", name, "error", perr)
			reply = char.FallbackText
		} else {
			reply = resp.Text
		}
	}

	st.CreateMemory(store.Memory{
		ID:        store.NewID(),
		UserID:    name,
		AgentID:   name,
		RoomID:    roomID,
		CreatedAt: r.now().UnixMilli(),
		Content:   store.Content{Text: reply, Source: "admin", InReplyTo: inbound.ID},
	}, "messages", false)

	return reply, nil
}

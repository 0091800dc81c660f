package store

import "time"

// Content is the message payload carried by a Memory. Required fields are
// explicit; anything transport-specific goes into the Extra map so store
// invariants stay checkable.
type Content struct {
	Text        string         `json:"text"`
	Source      string         `json:"source"`
	Action      string         `json:"action,omitempty"`
	InReplyTo   string         `json:"in_reply_to,omitempty"`
	Attachments []string       `json:"attachments,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

type Account struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Username  string            `json:"username"`
	Details   map[string]string `json:"details,omitempty"`
	Email     string            `json:"email,omitempty"`
	AvatarURL string            `json:"avatar_url,omitempty"`
}

type UserState string

const (
	UserStateNone     UserState = ""
	UserStateFollowed UserState = "FOLLOWED"
	UserStateMuted    UserState = "MUTED"
)

// Room is one conversation thread. Participants holds no duplicates;
// UserStates may carry entries for non-participants (the original behaves
// this way and callers rely on the laxity).
type Room struct {
	ID           string               `json:"id"`
	Participants []string             `json:"participants"`
	UserStates   map[string]UserState `json:"user_states,omitempty"`
}

// Memory is the append-only log unit: one inbound user message or one
// outbound agent chunk. Never mutated after creation except the Unique flag
// at insert time.
type Memory struct {
	ID         string    `json:"id,omitempty"`
	UserID     string    `json:"user_id"`
	AgentID    string    `json:"agent_id"`
	Content    Content   `json:"content"`
	RoomID     string    `json:"room_id"`
	CreatedAt  int64     `json:"created_at,omitempty"` // unix milliseconds
	Embedding  []float32 `json:"embedding,omitempty"`
	Unique     bool      `json:"unique,omitempty"`
	Similarity float64   `json:"similarity,omitempty"`
}

type GoalStatus string

const (
	GoalStatusInProgress GoalStatus = "IN_PROGRESS"
	GoalStatusDone       GoalStatus = "DONE"
	GoalStatusFailed     GoalStatus = "FAILED"
)

type Objective struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type Goal struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"room_id"`
	UserID     string      `json:"user_id"`
	Status     GoalStatus  `json:"status"`
	Name       string      `json:"name"`
	Objectives []Objective `json:"objectives"`
}

// Relationship is an undirected social edge between two accounts. At most
// one edge exists per unordered {UserA, UserB} pair; repeated creation
// overwrites it (last write wins).
type Relationship struct {
	ID        string    `json:"id"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	UserID    string    `json:"user_id"`
	RoomID    string    `json:"room_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type ActorDetails struct {
	Tagline string `json:"tagline"`
	Summary string `json:"summary"`
	Quote   string `json:"quote"`
}

// Actor is a display-oriented projection of a room participant.
type Actor struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Username string       `json:"username"`
	Details  ActorDetails `json:"details"`
}

// Participant joins a participant id against its account row.
type Participant struct {
	ID      string  `json:"id"`
	Account Account `json:"account"`
}

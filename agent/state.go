package agent

import (
	"fmt"
	"strings"

	"github.com/dreaminglucid/eliza/actions"
	"github.com/dreaminglucid/eliza/character"
	"github.com/dreaminglucid/eliza/store"
)

// defaultRecentMessageCount bounds how much room history is folded into one
// prompt.
const defaultRecentMessageCount = 20

// State is the conversation snapshot handed to the prompt builders. It is
// composed once per pipeline invocation and read-only afterwards.
type State struct {
	AgentName       string
	Bio             string
	Lore            string
	Style           []string
	MessageExamples []string
	Actors          []store.Actor
	RecentMessages  []store.Memory
	Goals           []store.Goal
	ActionNames     []string
	ActionSummary   string
}

// ComposeState assembles the prompt state for one room from the store and
// the registered capabilities.
func ComposeState(st *store.Store, char character.Character, roomID string, registry *actions.Registry, recentCount int) State {
	if recentCount <= 0 {
		recentCount = defaultRecentMessageCount
	}
	s := State{
		AgentName:       char.Name,
		Bio:             char.BioText(),
		Lore:            char.LoreText(),
		Style:           char.Style,
		MessageExamples: char.MessageExamples,
		Actors:          st.GetActorDetails(roomID),
		RecentMessages: st.GetMemories(store.MemoryQuery{
			RoomID:    roomID,
			TableName: "messages",
			Count:     recentCount,
		}),
		Goals: st.GetGoals(store.GoalQuery{RoomID: roomID}),
	}
	if registry != nil {
		s.ActionNames = registry.Names()
		s.ActionSummary = registry.Describe()
	}
	return s
}

// FormatRecentMessages renders the room history oldest-first as
// "Name: text (action)" lines, resolving sender names through the actor
// list.
func (s State) FormatRecentMessages() string {
	names := make(map[string]string, len(s.Actors))
	for _, a := range s.Actors {
		names[a.ID] = a.Name
	}
	var b strings.Builder
	for _, m := range s.RecentMessages {
		name := names[m.UserID]
		if name == "" {
			name = "Unknown User"
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(m.Content.Text)
		if m.Content.Action != "" {
			fmt.Fprintf(&b, " (%s)", m.Content.Action)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

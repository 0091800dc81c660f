package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dreaminglucid/eliza/actions"
	"github.com/dreaminglucid/eliza/character"
	"github.com/dreaminglucid/eliza/guard"
	"github.com/dreaminglucid/eliza/internal/bus"
	"github.com/dreaminglucid/eliza/llm"
	"github.com/dreaminglucid/eliza/store"
)

type fakeLLM struct {
	completeText       string
	completeErr        error
	shouldRespondToken string
	completeCalls      int
	shouldRespondCalls int
	lastContext        string
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.completeCalls++
	f.lastContext = req.Context
	return f.completeText, f.completeErr
}

func (f *fakeLLM) ShouldRespond(ctx context.Context, req llm.Request) (string, error) {
	f.shouldRespondCalls++
	return f.shouldRespondToken, nil
}

type sentCall struct {
	chatID  string
	text    string
	replyTo string
}

type fakeSender struct {
	calls   []sentCall
	failAt  int // 1-based send index that fails, 0 for never
	nextID  int
	sentAt  time.Time
	lastErr error
}

func (f *fakeSender) Send(ctx context.Context, chatID, text, replyTo string) (bus.SentMessage, error) {
	f.nextID++
	if f.failAt > 0 && f.nextID == f.failAt {
		f.lastErr = fmt.Errorf("transport unavailable")
		return bus.SentMessage{}, f.lastErr
	}
	f.calls = append(f.calls, sentCall{chatID: chatID, text: text, replyTo: replyTo})
	return bus.SentMessage{
		MessageID: fmt.Sprintf("sent-%d", f.nextID),
		Text:      text,
		SentAt:    f.sentAt,
	}, nil
}

func testCharacter(t *testing.T) character.Character {
	t.Helper()
	c, err := character.Parse([]byte("name: Eliza\nusername: eliza_bot\nbio:\n  - A helpful conversational agent.\n"))
	if err != nil {
		t.Fatalf("Parse() = %v, want nil", err)
	}
	return c
}

func newTestPipeline(t *testing.T, client *fakeLLM, sender *fakeSender, reg *actions.Registry) (*Pipeline, *store.Store) {
	t.Helper()
	st := store.New()
	cfg := Config{
		AgentID:         "agent-uuid-1",
		AgentExternalID: testAgentExternalID,
		AgentUsername:   testAgentUsername,
		Source:          "telegram",
	}
	p, err := NewPipeline(cfg, testCharacter(t), Deps{
		Store:   st,
		Guard:   guard.New(),
		LLM:     client,
		Sender:  sender,
		Actions: reg,
		Logger:  slog.New(slog.NewTextHandler(testWriter{t}, nil)),
	})
	if err != nil {
		t.Fatalf("NewPipeline() = %v, want nil", err)
	}
	return p, st
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func inboundText(text string, kind bus.ChatKind) bus.InboundMessage {
	return bus.InboundMessage{
		MessageID:         "msg-1",
		SenderID:          "user-1",
		SenderDisplayName: "Alice",
		ChatID:            "chat-1",
		ChatKind:          kind,
		Text:              text,
		SentAt:            time.Unix(1700000000, 0),
	}
}

func outboundMemories(st *store.Store, roomID, agentID string) []store.Memory {
	var out []store.Memory
	for _, m := range st.GetMemories(store.MemoryQuery{RoomID: roomID, TableName: "messages", Count: 100}) {
		if m.UserID == agentID {
			out = append(out, m)
		}
	}
	return out
}

func TestHandleMessagePrivateClassifierRespond(t *testing.T) {
	client := &fakeLLM{completeText: `{"text": "Hello! How can I help?"}`, shouldRespondToken: "RESPOND"}
	sender := &fakeSender{sentAt: time.Unix(1700000001, 0)}
	p, st := newTestPipeline(t, client, sender, nil)

	msg := inboundText("hi", bus.ChatKindPrivate)
	if err := p.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}

	if client.shouldRespondCalls != 1 {
		t.Fatalf("shouldRespondCalls = %d, want 1", client.shouldRespondCalls)
	}
	roomID := store.StringToUUID(msg.ChatID)
	out := outboundMemories(st, roomID, "agent-uuid-1")
	if len(out) != 1 {
		t.Fatalf("outbound memories = %d, want 1", len(out))
	}
	if out[0].Content.Text == "" {
		t.Fatal("outbound memory has empty text")
	}
	if want := store.StringToUUID(msg.MessageID); out[0].Content.InReplyTo != want {
		t.Fatalf("InReplyTo = %q, want %q", out[0].Content.InReplyTo, want)
	}
	if sender.calls[0].replyTo != msg.MessageID {
		t.Fatalf("first chunk replyTo = %q, want %q", sender.calls[0].replyTo, msg.MessageID)
	}
}

func TestHandleMessageGroupMentionSkipsClassifier(t *testing.T) {
	client := &fakeLLM{completeText: `{"text": "Next up: testing."}`, shouldRespondToken: "IGNORE"}
	sender := &fakeSender{sentAt: time.Unix(1700000001, 0)}
	p, st := newTestPipeline(t, client, sender, nil)

	msg := inboundText("@eliza_bot what's next", bus.ChatKindGroup)
	if err := p.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}

	if client.shouldRespondCalls != 0 {
		t.Fatalf("shouldRespondCalls = %d, want 0", client.shouldRespondCalls)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("sends = %d, want 1", len(sender.calls))
	}
	out := outboundMemories(st, store.StringToUUID(msg.ChatID), "agent-uuid-1")
	if len(out) != 1 {
		t.Fatalf("outbound memories = %d, want 1", len(out))
	}
}

func TestHandleMessageOwnMessageIgnored(t *testing.T) {
	client := &fakeLLM{completeText: `{"text": "never sent"}`, shouldRespondToken: "RESPOND"}
	sender := &fakeSender{}
	p, st := newTestPipeline(t, client, sender, nil)

	msg := inboundText("@eliza_bot hello me", bus.ChatKindPrivate)
	msg.SenderID = testAgentExternalID
	if err := p.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}

	if client.shouldRespondCalls != 0 || client.completeCalls != 0 {
		t.Fatalf("classifier/generation invoked for own message: %d, %d", client.shouldRespondCalls, client.completeCalls)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("sends = %d, want 0", len(sender.calls))
	}
	if out := outboundMemories(st, store.StringToUUID(msg.ChatID), "agent-uuid-1"); len(out) != 0 {
		t.Fatalf("outbound memories = %d, want 0", len(out))
	}
}

func TestHandleMessageGenerationFailureFallsBack(t *testing.T) {
	client := &fakeLLM{completeErr: fmt.Errorf("upstream 500"), shouldRespondToken: "RESPOND"}
	sender := &fakeSender{sentAt: time.Unix(1700000001, 0)}
	p, st := newTestPipeline(t, client, sender, nil)

	msg := inboundText("hi", bus.ChatKindPrivate)
	if err := p.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}

	out := outboundMemories(st, store.StringToUUID(msg.ChatID), "agent-uuid-1")
	if len(out) != 1 {
		t.Fatalf("outbound memories = %d, want 1", len(out))
	}
	if out[0].Content.Text != character.DefaultFallbackText {
		t.Fatalf("fallback text = %q, want %q", out[0].Content.Text, character.DefaultFallbackText)
	}
}

func TestHandleMessageChunkedDelivery(t *testing.T) {
	lines := []string{
		strings.Repeat("a", 30),
		strings.Repeat("b", 30),
		strings.Repeat("c", 30),
	}
	client := &fakeLLM{
		completeText:       fmt.Sprintf(`{"text": %q, "action": "mute_room"}`, strings.Join(lines, "\n")),
		shouldRespondToken: "RESPOND",
	}
	sender := &fakeSender{sentAt: time.Unix(1700000001, 0)}
	st := store.New()
	reg := actions.NewRegistry()
	if err := reg.Register(actions.NewMuteRoom("agent-uuid-1", st)); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}
	cfg := Config{
		AgentID:          "agent-uuid-1",
		AgentExternalID:  testAgentExternalID,
		AgentUsername:    testAgentUsername,
		MaxMessageLength: 40,
	}
	p, err := NewPipeline(cfg, testCharacter(t), Deps{
		Store:   st,
		Guard:   guard.New(),
		LLM:     client,
		Sender:  sender,
		Actions: reg,
		Logger:  slog.New(slog.NewTextHandler(testWriter{t}, nil)),
	})
	if err != nil {
		t.Fatalf("NewPipeline() = %v, want nil", err)
	}

	msg := inboundText("hi", bus.ChatKindPrivate)
	if err := p.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}

	if len(sender.calls) != 3 {
		t.Fatalf("sends = %d, want 3", len(sender.calls))
	}
	if sender.calls[0].replyTo != msg.MessageID {
		t.Fatalf("first chunk replyTo = %q, want %q", sender.calls[0].replyTo, msg.MessageID)
	}
	for i := 1; i < len(sender.calls); i++ {
		if sender.calls[i].replyTo != "" {
			t.Fatalf("chunk %d replyTo = %q, want empty", i, sender.calls[i].replyTo)
		}
	}

	roomID := store.StringToUUID(msg.ChatID)
	out := outboundMemories(st, roomID, "agent-uuid-1")
	if len(out) != 3 {
		t.Fatalf("outbound memories = %d, want 3", len(out))
	}
	for i, m := range out {
		want := ContinueAction
		if i == len(out)-1 {
			want = "mute_room"
		}
		if m.Content.Action != want {
			t.Fatalf("chunk %d action = %q, want %q", i, m.Content.Action, want)
		}
		if got := store.StringToUUID(msg.MessageID); m.Content.InReplyTo != got {
			t.Fatalf("chunk %d InReplyTo = %q, want %q", i, m.Content.InReplyTo, got)
		}
	}

	// The terminal action executed and muted the room.
	if got := st.GetParticipantUserState(roomID, "agent-uuid-1"); got != store.UserStateMuted {
		t.Fatalf("GetParticipantUserState() = %q, want %q", got, store.UserStateMuted)
	}
}

func TestHandleMessagePartialDeliveryStillLogs(t *testing.T) {
	lines := []string{strings.Repeat("a", 30), strings.Repeat("b", 30)}
	client := &fakeLLM{
		completeText:       fmt.Sprintf(`{"text": %q}`, strings.Join(lines, "\n")),
		shouldRespondToken: "RESPOND",
	}
	sender := &fakeSender{failAt: 2, sentAt: time.Unix(1700000001, 0)}
	st := store.New()
	cfg := Config{
		AgentID:          "agent-uuid-1",
		AgentExternalID:  testAgentExternalID,
		AgentUsername:    testAgentUsername,
		MaxMessageLength: 40,
	}
	p, err := NewPipeline(cfg, testCharacter(t), Deps{
		Store:  st,
		Guard:  guard.New(),
		LLM:    client,
		Sender: sender,
		Logger: slog.New(slog.NewTextHandler(testWriter{t}, nil)),
	})
	if err != nil {
		t.Fatalf("NewPipeline() = %v, want nil", err)
	}

	msg := inboundText("hi", bus.ChatKindPrivate)
	if err := p.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}

	out := outboundMemories(st, store.StringToUUID(msg.ChatID), "agent-uuid-1")
	if len(out) != 1 {
		t.Fatalf("outbound memories = %d, want 1", len(out))
	}
	if out[0].Content.Action != ContinueAction {
		t.Fatalf("partial chunk action = %q, want %q", out[0].Content.Action, ContinueAction)
	}
}

func TestHandleMessageRecentMessagesBoundsPromptHistory(t *testing.T) {
	client := &fakeLLM{completeText: `{"text": "ok"}`, shouldRespondToken: "RESPOND"}
	sender := &fakeSender{sentAt: time.Unix(1700000001, 0)}
	st := store.New()
	cfg := Config{
		AgentID:         "agent-uuid-1",
		AgentExternalID: testAgentExternalID,
		AgentUsername:   testAgentUsername,
		RecentMessages:  1,
	}
	p, err := NewPipeline(cfg, testCharacter(t), Deps{
		Store:  st,
		Guard:  guard.New(),
		LLM:    client,
		Sender: sender,
		Logger: slog.New(slog.NewTextHandler(testWriter{t}, nil)),
	})
	if err != nil {
		t.Fatalf("NewPipeline() = %v, want nil", err)
	}

	msg := inboundText("hi", bus.ChatKindPrivate)
	roomID := store.StringToUUID(msg.ChatID)
	st.CreateMemory(store.Memory{
		ID:        store.NewID(),
		UserID:    store.StringToUUID(msg.SenderID),
		AgentID:   "agent-uuid-1",
		RoomID:    roomID,
		CreatedAt: 1,
		Content:   store.Content{Text: "earlier banter"},
	}, "messages", false)

	if err := p.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}

	// Two messages exist but only one fits the configured window.
	if !strings.Contains(client.lastContext, "earlier banter") {
		t.Fatal("prompt is missing the first room message")
	}
	if strings.Contains(client.lastContext, ": hi") {
		t.Fatal("prompt contains history beyond the configured window")
	}
}

// scriptedLLM returns one canned completion per call, repeating the last
// one when the script runs out.
type scriptedLLM struct {
	replies []string
	calls   int
}

func (s *scriptedLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	reply := s.replies[len(s.replies)-1]
	if s.calls < len(s.replies) {
		reply = s.replies[s.calls]
	}
	s.calls++
	return reply, nil
}

func (s *scriptedLLM) ShouldRespond(ctx context.Context, req llm.Request) (string, error) {
	return "RESPOND", nil
}

func TestHandleMessageDeliveryFailureSendsInCharacterNotice(t *testing.T) {
	client := &scriptedLLM{replies: []string{
		`{"text": "the reply that never arrives"}`,
		`{"text": "Oh dear, something went sideways. Give me a moment."}`,
	}}
	sender := &fakeSender{failAt: 1, sentAt: time.Unix(1700000001, 0)}
	st := store.New()
	cfg := Config{
		AgentID:         "agent-uuid-1",
		AgentExternalID: testAgentExternalID,
		AgentUsername:   testAgentUsername,
	}
	p, err := NewPipeline(cfg, testCharacter(t), Deps{
		Store:  st,
		Guard:  guard.New(),
		LLM:    client,
		Sender: sender,
		Logger: slog.New(slog.NewTextHandler(testWriter{t}, nil)),
	})
	if err != nil {
		t.Fatalf("NewPipeline() = %v, want nil", err)
	}

	msg := inboundText("hi", bus.ChatKindPrivate)
	if err := p.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}

	// One completion for the response, one for the notice.
	if client.calls != 2 {
		t.Fatalf("Complete calls = %d, want 2", client.calls)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("sends = %d, want 1", len(sender.calls))
	}
	if want := "Oh dear, something went sideways. Give me a moment."; sender.calls[0].text != want {
		t.Fatalf("notice text = %q, want %q", sender.calls[0].text, want)
	}
	if sender.calls[0].replyTo != "" {
		t.Fatalf("notice replyTo = %q, want empty", sender.calls[0].replyTo)
	}
	// The notice is not a conversational memory.
	if out := outboundMemories(st, store.StringToUUID(msg.ChatID), "agent-uuid-1"); len(out) != 0 {
		t.Fatalf("outbound memories = %d, want 0", len(out))
	}
}

func TestHandleMessageStopMutesRoom(t *testing.T) {
	client := &fakeLLM{completeText: `{"text": "never sent"}`, shouldRespondToken: "STOP"}
	sender := &fakeSender{}
	p, st := newTestPipeline(t, client, sender, nil)

	msg := inboundText("please stop", bus.ChatKindPrivate)
	if err := p.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}
	roomID := store.StringToUUID(msg.ChatID)
	if got := st.GetParticipantUserState(roomID, "agent-uuid-1"); got != store.UserStateMuted {
		t.Fatalf("GetParticipantUserState() = %q, want %q", got, store.UserStateMuted)
	}

	// Muted: plain messages are ignored without invoking the classifier.
	client.shouldRespondToken = "RESPOND"
	calls := client.shouldRespondCalls
	msg2 := inboundText("are you there?", bus.ChatKindPrivate)
	msg2.MessageID = "msg-2"
	if err := p.HandleMessage(context.Background(), msg2); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}
	if client.shouldRespondCalls != calls {
		t.Fatalf("classifier invoked while muted: %d calls", client.shouldRespondCalls-calls)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("sends while muted = %d, want 0", len(sender.calls))
	}

	// A direct mention lifts the mute and responds.
	msg3 := inboundText("@eliza_bot come back", bus.ChatKindPrivate)
	msg3.MessageID = "msg-3"
	if err := p.HandleMessage(context.Background(), msg3); err != nil {
		t.Fatalf("HandleMessage() = %v, want nil", err)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("sends after mention = %d, want 1", len(sender.calls))
	}
	if got := st.GetParticipantUserState(roomID, "agent-uuid-1"); got != store.UserStateNone {
		t.Fatalf("GetParticipantUserState() after mention = %q, want none", got)
	}
}

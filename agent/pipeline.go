// Package agent implements the message gateway core: the respond/ignore/stop
// decision procedure, the response pipeline, and the chunked delivery and
// logging protocol.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dreaminglucid/eliza/actions"
	"github.com/dreaminglucid/eliza/character"
	"github.com/dreaminglucid/eliza/guard"
	"github.com/dreaminglucid/eliza/internal/bus"
	"github.com/dreaminglucid/eliza/internal/telegramutil"
	"github.com/dreaminglucid/eliza/llm"
	"github.com/dreaminglucid/eliza/store"
)

// ContinueAction tags every outbound chunk except the last one, so readers
// of the memory log can tell continuations from the response's terminal
// action.
const ContinueAction = "CONTINUE"

// messagesTable is the memory table conversation messages are appended to.
const messagesTable = "messages"

// Sender delivers one chunk to the transport. replyToMessageID is the
// transport-native id of the message being replied to, empty for plain
// sends.
type Sender interface {
	Send(ctx context.Context, chatID, text, replyToMessageID string) (bus.SentMessage, error)
}

// ImageDescriber resolves an image attachment into a title and description
// for prompt context.
type ImageDescriber interface {
	Describe(ctx context.Context, imageURL string) (title, description string, err error)
}

// Config carries the per-agent identifiers the pipeline decides and logs
// with.
type Config struct {
	// AgentID is the account id outbound memories are attributed to.
	AgentID string
	// AgentExternalID is the agent's transport-level sender id, compared
	// against inbound sender and reply-to ids.
	AgentExternalID string
	// AgentUsername is the mention handle, without the leading @.
	AgentUsername string
	// Source tags every memory content with its originating transport.
	Source string
	// MaxMessageLength bounds one outbound chunk after escaping.
	MaxMessageLength int
	// RecentMessages bounds how much room history goes into one prompt.
	RecentMessages int
}

// Deps are the pipeline's collaborators. Store, Guard, LLM and Sender are
// required; Describer and Actions are optional.
type Deps struct {
	Store     *store.Store
	Guard     *guard.Guard
	LLM       llm.Client
	Sender    Sender
	Describer ImageDescriber
	Actions   *actions.Registry
	Logger    *slog.Logger
}

type Pipeline struct {
	cfg       Config
	char      character.Character
	store     *store.Store
	guard     *guard.Guard
	llm       llm.Client
	sender    Sender
	describer ImageDescriber
	actions   *actions.Registry
	logger    *slog.Logger
}

func NewPipeline(cfg Config, char character.Character, deps Deps) (*Pipeline, error) {
	if cfg.AgentID == "" {
		return nil, fmt.Errorf("new pipeline: agent id is required")
	}
	if deps.Store == nil || deps.Guard == nil || deps.LLM == nil || deps.Sender == nil {
		return nil, fmt.Errorf("new pipeline: store, guard, llm and sender are required")
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = telegramutil.MaxMessageLength
	}
	if cfg.RecentMessages <= 0 {
		cfg.RecentMessages = defaultRecentMessageCount
	}
	if cfg.Source == "" {
		cfg.Source = "telegram"
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		char:      char,
		store:     deps.Store,
		guard:     deps.Guard,
		llm:       deps.LLM,
		sender:    deps.Sender,
		describer: deps.Describer,
		actions:   deps.Actions,
		logger:    logger,
	}, nil
}

// HandleMessage runs one inbound message through the full pipeline:
// admission, account and room upserts, inbound memory, decision, generation,
// chunked delivery and outbound memory logging. Redeliveries and messages
// the agent decides to ignore are dropped silently; recoverable faults are
// absorbed into the fallback response so the transport never sees an error
// mid-conversation.
func (p *Pipeline) HandleMessage(ctx context.Context, msg bus.InboundMessage) error {
	if err := msg.Validate(); err != nil {
		p.logger.Warn("dropping malformed inbound message", "error", err)
		return nil
	}

	if !p.guard.Admit(msg.MessageID) {
		p.logger.Debug("skipping duplicate message", "message_id", msg.MessageID)
		return nil
	}
	defer p.guard.Release(msg.MessageID)

	userID := store.StringToUUID(msg.SenderID)
	roomID := store.StringToUUID(msg.ChatID)
	messageUUID := store.StringToUUID(msg.MessageID)

	p.store.CreateAccount(store.Account{
		ID:       p.cfg.AgentID,
		Name:     p.char.Name,
		Username: p.char.Username,
	})
	userName := msg.SenderDisplayName
	if userName == "" {
		userName = "Unknown User"
	}
	p.store.CreateAccount(store.Account{ID: userID, Name: userName, Username: userName})
	p.store.AddParticipant(userID, roomID)
	p.store.AddParticipant(p.cfg.AgentID, roomID)

	fullText := msg.Body()
	if msg.HasMedia && msg.ImageURL != "" && p.describer != nil {
		title, description, err := p.describer.Describe(ctx, msg.ImageURL)
		if err != nil {
			p.logger.Warn("image description failed", "error", err)
		} else {
			tag := fmt.Sprintf("[Image: %s\n%s]", title, description)
			if strings.TrimSpace(fullText) == "" {
				fullText = tag
			} else {
				fullText = fullText + " " + tag
			}
		}
	}
	if strings.TrimSpace(fullText) == "" {
		return nil
	}

	inbound := store.Memory{
		ID:        messageUUID,
		UserID:    userID,
		AgentID:   p.cfg.AgentID,
		RoomID:    roomID,
		CreatedAt: msg.SentAt.UnixMilli(),
		Content: store.Content{
			Text:   fullText,
			Source: p.cfg.Source,
		},
	}
	if msg.ReplyToMessageID != "" {
		inbound.Content.InReplyTo = store.StringToUUID(msg.ReplyToMessageID)
	}
	p.store.CreateMemory(inbound, messagesTable, false)

	state := ComposeState(p.store, p.char, roomID, p.actions, p.cfg.RecentMessages)

	decision, err := p.decide(ctx, msg, state, roomID)
	if err != nil {
		p.logger.Error("decision classifier failed", "error", err, "message_id", msg.MessageID)
		return nil
	}
	switch decision {
	case DecisionStop:
		p.store.SetParticipantUserState(roomID, p.cfg.AgentID, store.UserStateMuted)
		p.logger.Info("muting room on stop decision", "room_id", roomID)
		return nil
	case DecisionIgnore:
		p.logger.Debug("ignoring message", "message_id", msg.MessageID)
		return nil
	}

	resp := p.generate(ctx, state)
	outbound, err := p.deliver(ctx, msg, messageUUID, roomID, resp)
	if err != nil {
		p.logger.Error("delivery failed", "error", err, "message_id", msg.MessageID)
		p.notifyError(ctx, msg.ChatID, state, err.Error())
		if len(outbound) == 0 {
			return nil
		}
	}

	p.runAction(ctx, resp.Action, state, inbound, outbound, msg.ChatID)
	return nil
}

// decide applies the static precedence rules and, when they defer, the
// generative classifier. A muted room suppresses everything except a direct
// mention.
func (p *Pipeline) decide(ctx context.Context, msg bus.InboundMessage, state State, roomID string) (Decision, error) {
	decision, needClassifier := StaticDecide(msg, p.cfg.AgentExternalID, p.cfg.AgentUsername)

	if p.store.GetParticipantUserState(roomID, p.cfg.AgentID) == store.UserStateMuted {
		if decision == DecisionRespond {
			// A direct mention lifts the mute.
			p.store.SetParticipantUserState(roomID, p.cfg.AgentID, store.UserStateNone)
			return DecisionRespond, nil
		}
		return DecisionIgnore, nil
	}

	if !needClassifier {
		return decision, nil
	}

	raw, err := p.llm.ShouldRespond(ctx, llm.Request{
		Context:   BuildShouldRespondPrompt(state),
		Stop:      []string{"\n"},
		MaxTokens: 5,
	})
	if err != nil {
		return DecisionIgnore, fmt.Errorf("should-respond completion: %w", err)
	}
	return ParseDecision(raw), nil
}

// generate invokes the external generation service and parses its structured
// output. Any fault collapses into the character's fixed fallback response.
func (p *Pipeline) generate(ctx context.Context, state State) Response {
	raw, err := p.llm.Complete(ctx, llm.Request{
		Context:     BuildMessagePrompt(state),
		Stop:        []string{"<|eot|>", "<|eom|>"},
		Temperature: 0.5,
	})
	if err != nil {
		p.logger.Error("generation failed", "error", err)
		return Response{Text: p.char.FallbackText}
	}
	resp, err := ParseResponse(raw)
	if err != nil {
		p.logger.Error("generation output unparseable", "error", err)
		return Response{Text: p.char.FallbackText}
	}
	return resp
}

// deliver runs the two-phase delivery protocol: phase one sends the chunks
// strictly in order and collects the transport's sent-chunk descriptors;
// phase two writes exactly one outbound memory per descriptor. A mid-send
// failure stops phase one but the chunks that did send are still logged.
func (p *Pipeline) deliver(ctx context.Context, msg bus.InboundMessage, inReplyTo, roomID string, resp Response) ([]store.Memory, error) {
	chunks := telegramutil.SplitMessage(resp.Text, p.cfg.MaxMessageLength)

	var sent []bus.SentMessage
	var sendErr error
	for i, chunk := range chunks {
		replyTo := ""
		if i == 0 {
			replyTo = msg.MessageID
		}
		sm, err := p.sender.Send(ctx, msg.ChatID, chunk, replyTo)
		if err != nil {
			sendErr = fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
			break
		}
		sent = append(sent, sm)
	}

	memories := make([]store.Memory, 0, len(sent))
	for i, sm := range sent {
		action := ContinueAction
		if i == len(sent)-1 && sendErr == nil {
			action = resp.Action
		}
		m := store.Memory{
			ID:        store.StringToUUID(sm.MessageID),
			UserID:    p.cfg.AgentID,
			AgentID:   p.cfg.AgentID,
			RoomID:    roomID,
			CreatedAt: sm.SentAt.UnixMilli(),
			Content: store.Content{
				Text:      sm.Text,
				Source:    p.cfg.Source,
				Action:    action,
				InReplyTo: inReplyTo,
			},
		}
		p.store.CreateMemory(m, messagesTable, false)
		memories = append(memories, m)
	}
	return memories, sendErr
}

// runAction resolves the response's action tag against the registry and
// executes it. Action failures are logged and surfaced to the room but never
// fail the pipeline.
func (p *Pipeline) runAction(ctx context.Context, name string, state State, inbound store.Memory, outbound []store.Memory, chatID string) {
	if name == "" || name == ContinueAction || p.actions == nil {
		return
	}
	action, ok := p.actions.Get(name)
	if !ok {
		p.logger.Warn("response named unknown action", "action", name)
		return
	}
	ok, err := action.Validate(ctx, inbound)
	if err != nil {
		p.logger.Error("action validation failed", "action", name, "error", err)
		return
	}
	if !ok {
		return
	}
	if err := action.Execute(ctx, inbound, outbound); err != nil {
		p.logger.Error("action execution failed", "action", name, "error", err)
		p.notifyError(ctx, chatID, state, err.Error())
	}
}

// notifyError makes a best-effort attempt to tell the room something went
// wrong, in the character's own voice when the generation service
// cooperates and with a fixed apology when it does not. The notice is not
// logged as a memory and its own failure is only logged.
func (p *Pipeline) notifyError(ctx context.Context, chatID string, state State, errContext string) {
	notice := "Sorry, I encountered an error while processing your request."
	raw, err := p.llm.Complete(ctx, llm.Request{
		Context:     BuildErrorPrompt(state, errContext),
		Stop:        []string{"<|eot|>", "<|eom|>"},
		Temperature: 0.5,
	})
	if err != nil {
		p.logger.Error("error notice generation failed", "error", err)
	} else if resp, perr := ParseResponse(raw); perr != nil {
		p.logger.Error("error notice output unparseable", "error", perr)
	} else {
		notice = resp.Text
	}
	if _, err := p.sender.Send(ctx, chatID, notice, ""); err != nil {
		p.logger.Error("error notice failed", "error", err)
	}
}

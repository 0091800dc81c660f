package agent

import (
	"strings"

	"github.com/dreaminglucid/eliza/internal/bus"
)

// Decision is the verdict of the respond/ignore/stop procedure.
type Decision string

const (
	DecisionRespond Decision = "RESPOND"
	DecisionIgnore  Decision = "IGNORE"
	DecisionStop    Decision = "STOP"
)

// StaticDecide evaluates the rule ladder that runs before any classifier
// call. The first matching rule wins. needClassifier reports that no static
// rule settled the message and the generative classifier must break the tie.
//
//  1. Own message: never respond to the agent's own output.
//  2. Explicit @mention in text or caption: respond immediately.
//  3. Private chat with a non-empty body: classifier; empty body: ignore.
//  4. Group chat reply to the agent, or a media message: classifier.
//  5. Anything else: ignore.
func StaticDecide(msg bus.InboundMessage, agentExternalID, agentUsername string) (d Decision, needClassifier bool) {
	if msg.SenderID == agentExternalID {
		return DecisionIgnore, false
	}

	mention := "@" + agentUsername
	if agentUsername != "" && (strings.Contains(msg.Text, mention) || strings.Contains(msg.Caption, mention)) {
		return DecisionRespond, false
	}

	if msg.ChatKind == bus.ChatKindPrivate {
		if strings.TrimSpace(msg.Body()) == "" {
			return DecisionIgnore, false
		}
		return DecisionIgnore, true
	}

	if msg.ReplyToSenderID != "" && msg.ReplyToSenderID == agentExternalID {
		return DecisionIgnore, true
	}
	if msg.HasMedia {
		return DecisionIgnore, true
	}

	return DecisionIgnore, false
}

// ParseDecision maps the classifier's raw output onto a Decision. Only the
// literal RESPOND token responds; STOP is preserved so the caller can
// suppress future engagement; everything else is treated as ignore.
func ParseDecision(raw string) Decision {
	token := strings.ToUpper(strings.TrimSpace(raw))
	token = strings.Trim(token, "[]")
	switch token {
	case string(DecisionRespond):
		return DecisionRespond
	case string(DecisionStop):
		return DecisionStop
	default:
		return DecisionIgnore
	}
}

package telegram

import (
	"strconv"
	"strings"
	"time"

	"github.com/dreaminglucid/eliza/internal/bus"
)

// normalizeMessage maps one transport-native message onto the gateway's
// inbound shape. Channel posts and chat types outside private/group are not
// conversations and come back false.
func normalizeMessage(m *message) (bus.InboundMessage, bool) {
	if m == nil || m.Chat == nil || m.From == nil {
		return bus.InboundMessage{}, false
	}

	var kind bus.ChatKind
	switch m.Chat.Type {
	case "private":
		kind = bus.ChatKindPrivate
	case "group", "supergroup":
		kind = bus.ChatKindGroup
	default:
		return bus.InboundMessage{}, false
	}

	out := bus.InboundMessage{
		MessageID:         strconv.FormatInt(m.MessageID, 10),
		SenderID:          strconv.FormatInt(m.From.ID, 10),
		SenderDisplayName: displayName(m.From),
		ChatID:            strconv.FormatInt(m.Chat.ID, 10),
		ChatKind:          kind,
		Text:              m.Text,
		Caption:           m.Caption,
		SentAt:            time.Unix(m.Date, 0),
	}
	if m.ReplyTo != nil {
		out.ReplyToMessageID = strconv.FormatInt(m.ReplyTo.MessageID, 10)
		if m.ReplyTo.From != nil {
			out.ReplyToSenderID = strconv.FormatInt(m.ReplyTo.From.ID, 10)
		}
	}
	if fileID := imageFileID(m); fileID != "" {
		out.HasMedia = true
	}
	return out, true
}

// imageFileID picks the largest photo size, or an image document.
func imageFileID(m *message) string {
	if len(m.Photo) > 0 {
		best := m.Photo[0]
		for _, p := range m.Photo[1:] {
			if p.Width*p.Height > best.Width*best.Height {
				best = p
			}
		}
		return best.FileID
	}
	if m.Document != nil && strings.HasPrefix(m.Document.MimeType, "image/") {
		return m.Document.FileID
	}
	return ""
}

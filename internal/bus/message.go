// Package bus defines the normalized message shapes exchanged between the
// transport adapters and the gateway core. The core never parses
// transport-native payloads; adapters normalize into these structs first.
package bus

import (
	"fmt"
	"strings"
	"time"
)

type ChatKind string

const (
	ChatKindPrivate ChatKind = "private"
	ChatKindGroup   ChatKind = "group"
)

// InboundMessage is one normalized inbound chat event.
type InboundMessage struct {
	MessageID         string
	SenderID          string
	SenderDisplayName string
	ChatID            string
	ChatKind          ChatKind
	Text              string
	Caption           string
	ReplyToMessageID  string
	ReplyToSenderID   string
	HasMedia          bool
	ImageURL          string
	SentAt            time.Time
}

func (m InboundMessage) Validate() error {
	if strings.TrimSpace(m.MessageID) == "" {
		return fmt.Errorf("message_id is required")
	}
	if strings.TrimSpace(m.SenderID) == "" {
		return fmt.Errorf("sender_id is required")
	}
	if strings.TrimSpace(m.ChatID) == "" {
		return fmt.Errorf("chat_id is required")
	}
	switch m.ChatKind {
	case ChatKindPrivate, ChatKindGroup:
	default:
		return fmt.Errorf("chat_kind must be private|group")
	}
	return nil
}

// Body returns the message text, falling back to the media caption.
func (m InboundMessage) Body() string {
	if strings.TrimSpace(m.Text) != "" {
		return m.Text
	}
	return m.Caption
}

// SentMessage describes one chunk the transport has accepted, in send order.
type SentMessage struct {
	MessageID string
	Text      string
	SentAt    time.Time
}

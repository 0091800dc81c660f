// Package telegramutil holds transport-format helpers for the telegram bot
// API: MarkdownV2 escaping and message chunking.
package telegramutil

import "strings"

// MaxMessageLength is the telegram sendMessage text limit.
const MaxMessageLength = 4096

// SplitMessage splits text into ordered chunks whose escaped length stays
// within max. Splits happen only at line boundaries; a single line whose
// escaped form alone exceeds max becomes its own oversized chunk rather
// than being truncated. Joining the chunks with newlines reproduces the
// input exactly.
func SplitMessage(text string, max int) []string {
	if max <= 0 {
		max = MaxMessageLength
	}
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	hasContent := false

	for _, line := range strings.Split(text, "\n") {
		lineLen := escapedLen(line)
		sep := 0
		if hasContent {
			sep = 1
		}
		if currentLen+sep+lineLen <= max {
			if sep == 1 {
				current.WriteByte('\n')
			}
			current.WriteString(line)
			currentLen += sep + lineLen
			hasContent = true
			continue
		}
		if hasContent {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(line)
		currentLen = lineLen
		hasContent = true
	}
	if hasContent {
		chunks = append(chunks, current.String())
	}
	return chunks
}

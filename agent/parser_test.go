package agent

import (
	"errors"
	"testing"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Response
	}{
		{
			name: "plain json",
			raw:  `{"text": "hello there", "action": "mute_room"}`,
			want: Response{Text: "hello there", Action: "mute_room"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"text\": \"hi\"}\n```",
			want: Response{Text: "hi"},
		},
		{
			name: "json embedded in prose",
			raw:  "Sure, here you go: {\"text\": \"done\"} hope that helps",
			want: Response{Text: "done"},
		},
		{
			name: "plain text fallback",
			raw:  "just a plain answer",
			want: Response{Text: "just a plain answer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			if err != nil {
				t.Fatalf("ParseResponse() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Fatalf("ParseResponse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseResponseFailures(t *testing.T) {
	for _, raw := range []string{"", "   ", `{"action": "none"}`, `{"text": ""}`} {
		if _, err := ParseResponse(raw); !errors.Is(err, ErrParseFailure) {
			t.Fatalf("ParseResponse(%q) error = %v, want ErrParseFailure", raw, err)
		}
	}
}

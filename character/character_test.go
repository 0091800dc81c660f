package character

import (
	"strings"
	"testing"
)

func TestParseDefaultsFallbackText(t *testing.T) {
	c, err := Parse([]byte("name: Beff\nusername: beff_bot\nbio:\n  - an accelerating agent\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.FallbackText != DefaultFallbackText {
		t.Fatalf("FallbackText = %q, want default", c.FallbackText)
	}
	if c.BioText() != "an accelerating agent" {
		t.Fatalf("BioText() = %q", c.BioText())
	}
}

func TestParseRequiresNameAndUsername(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{raw: "username: x\n", want: "name is required"},
		{raw: "name: x\n", want: "username is required"},
	}
	for _, tc := range cases {
		_, err := Parse([]byte(tc.raw))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("Parse(%q) error = %v, want %q", tc.raw, err, tc.want)
		}
	}
}

// Package character loads agent identity profiles from YAML files.
package character

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Character describes one agent persona. Name and Username are required;
// everything else defaults.
type Character struct {
	Name            string   `yaml:"name"`
	Username        string   `yaml:"username"`
	Bio             []string `yaml:"bio,omitempty"`
	Lore            []string `yaml:"lore,omitempty"`
	Style           []string `yaml:"style,omitempty"`
	MessageExamples []string `yaml:"message_examples,omitempty"`
	FallbackText    string   `yaml:"fallback_text,omitempty"`
}

// DefaultFallbackText is sent when the generation service fails or returns
// an empty result.
const DefaultFallbackText = "I'm sorry, I couldn't process that request. Please try again."

func Load(path string) (Character, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Character{}, fmt.Errorf("read character %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Character, error) {
	var c Character
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Character{}, fmt.Errorf("decode character: %w", err)
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Username = strings.TrimSpace(c.Username)
	if c.Name == "" {
		return Character{}, fmt.Errorf("character name is required")
	}
	if c.Username == "" {
		return Character{}, fmt.Errorf("character username is required")
	}
	if strings.TrimSpace(c.FallbackText) == "" {
		c.FallbackText = DefaultFallbackText
	}
	return c, nil
}

// BioText joins the bio lines for prompt composition.
func (c Character) BioText() string {
	return strings.Join(c.Bio, "\n")
}

func (c Character) LoreText() string {
	return strings.Join(c.Lore, "\n")
}

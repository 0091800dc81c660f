package agent

import (
	"fmt"
	"strings"
)

// BuildMessagePrompt renders the generation prompt for one exchange. The
// model is instructed to answer with a single JSON object so the response
// text and action tag can be parsed back out.
func BuildMessagePrompt(s State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Task: Generate dialog and actions for the character %s.\n\n", s.AgentName)

	fmt.Fprintf(&b, "About %s:\n", s.AgentName)
	if s.Bio != "" {
		b.WriteString(s.Bio)
		b.WriteString("\n")
	}
	if s.Lore != "" {
		b.WriteString(s.Lore)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(s.MessageExamples) > 0 {
		fmt.Fprintf(&b, "Examples of %s's dialog:\n", s.AgentName)
		for _, ex := range s.MessageExamples {
			b.WriteString(ex)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(s.Style) > 0 {
		b.WriteString("# Style Directions\n")
		for _, line := range s.Style {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(s.Goals) > 0 {
		b.WriteString("# Goals\n")
		for _, g := range s.Goals {
			fmt.Fprintf(&b, "- %s (%s)\n", g.Name, g.Status)
		}
		b.WriteString("\n")
	}

	if s.ActionSummary != "" {
		b.WriteString("# Available Actions\n")
		b.WriteString(s.ActionSummary)
		b.WriteString("\n\n")
	}

	b.WriteString("# Guidelines\n")
	b.WriteString("- Keep responses focused and relevant.\n")
	b.WriteString("- Avoid open-ended questions that would require unnecessary follow-ups.\n")
	b.WriteString("- If providing information, be concise and complete in one response.\n")
	b.WriteString("- Consider the chat context (group vs private).\n\n")

	b.WriteString("# Recent Messages\n")
	b.WriteString(s.FormatRecentMessages())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "# Instructions: Write the next message for %s. Include an action if appropriate.", s.AgentName)
	if len(s.ActionNames) > 0 {
		fmt.Fprintf(&b, " Possible actions: %s.", strings.Join(s.ActionNames, ", "))
	}
	b.WriteString("\n")
	b.WriteString("Respond with a single JSON object and nothing else:\n")
	b.WriteString("{ \"text\": \"<string>\", \"action\": \"<string, optional>\" }\n")

	return b.String()
}

// BuildShouldRespondPrompt renders the respond/ignore/stop classifier
// prompt. The model must answer with exactly one of the three tokens on a
// single line.
func BuildShouldRespondPrompt(s State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Task: Decide if %s should respond.\n", s.AgentName)
	fmt.Fprintf(&b, "About %s:\n", s.AgentName)
	if s.Bio != "" {
		b.WriteString(s.Bio)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "# INSTRUCTIONS: Determine if %s should respond to the last message. Respond with exactly one of RESPOND, IGNORE, or STOP.\n\n", s.AgentName)

	b.WriteString("# RESPONSE EXAMPLES\n")
	b.WriteString("<user 1>: I just saw a really great movie\n")
	b.WriteString("<user 2>: Oh? Which movie?\n")
	b.WriteString("Result: IGNORE\n\n")
	fmt.Fprintf(&b, "%s: Oh, this is my favorite scene\n", s.AgentName)
	b.WriteString("<user 1>: sick\n")
	b.WriteString("<user 2>: wait, why is it your favorite scene\n")
	b.WriteString("Result: RESPOND\n\n")
	b.WriteString("<user>: stfu bot\n")
	b.WriteString("Result: STOP\n\n")
	fmt.Fprintf(&b, "<user>: Hey %s, can you help me with something\n", s.AgentName)
	b.WriteString("Result: RESPOND\n\n")
	fmt.Fprintf(&b, "<user>: %s stop responding plz\n", s.AgentName)
	b.WriteString("Result: STOP\n\n")
	b.WriteString("<user>: i need help\n")
	fmt.Fprintf(&b, "%s: how can I help you?\n", s.AgentName)
	b.WriteString("<user>: no. i need help from someone else\n")
	b.WriteString("Result: IGNORE\n\n")

	b.WriteString("# Rules\n")
	fmt.Fprintf(&b, "- Respond with RESPOND to messages directed at %s or to conversations that are meaningful or relevant.\n", s.AgentName)
	b.WriteString("- Respond with IGNORE to messages that are brief, vague, or not addressed to the agent.\n")
	fmt.Fprintf(&b, "- Respond with STOP if a user asks %s to stop or the conversation has concluded.\n", s.AgentName)
	fmt.Fprintf(&b, "- If the last message was from %s, respond with IGNORE.\n", s.AgentName)
	b.WriteString("- If unsure, prefer IGNORE.\n\n")

	b.WriteString("# Recent Messages\n")
	b.WriteString(s.FormatRecentMessages())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "# INSTRUCTIONS: Select the option that best describes %s's response to the last message.\n", s.AgentName)

	return b.String()
}

// BuildErrorPrompt renders a prompt asking the model to acknowledge a
// processing failure in the character's own voice.
func BuildErrorPrompt(s State, errContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Task: Generate an error message for %s.\n", s.AgentName)
	fmt.Fprintf(&b, "About %s:\n", s.AgentName)
	if s.Bio != "" {
		b.WriteString(s.Bio)
		b.WriteString("\n")
	}
	b.WriteString("\n# Error Context\n")
	b.WriteString(errContext)
	b.WriteString("\n\n")
	b.WriteString("# Instructions: Write a short, friendly message that acknowledges the issue, stays in character, and offers guidance if possible.\n")
	b.WriteString("Respond with a single JSON object and nothing else:\n")
	b.WriteString("{ \"text\": \"<string>\" }\n")
	return b.String()
}

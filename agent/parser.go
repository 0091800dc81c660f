package agent

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrParseFailure signals that the model output could not be mapped onto a
// Response with a non-empty text.
var ErrParseFailure = errors.New("failed to parse response from model output")

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n\\s*```")

// Response is the structured payload extracted from a generation result.
type Response struct {
	Text   string `json:"text"`
	Action string `json:"action,omitempty"`
}

// ParseResponse extracts a Response from raw model output. It tries the
// output verbatim, then a fenced code block, then the outermost JSON object.
// As a last resort non-empty plain text is accepted as the response text.
func ParseResponse(raw string) (Response, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Response{}, ErrParseFailure
	}

	if resp, err := unmarshalResponse([]byte(text)); err == nil {
		return resp, nil
	}

	if jsonStr := extractFromCodeBlock(text); jsonStr != "" {
		if resp, err := unmarshalResponse([]byte(jsonStr)); err == nil {
			return resp, nil
		}
	}

	if jsonStr := extractJSONObject(text); jsonStr != "" {
		if resp, err := unmarshalResponse([]byte(jsonStr)); err == nil {
			return resp, nil
		}
	}

	if strings.HasPrefix(text, "{") {
		return Response{}, ErrParseFailure
	}
	return Response{Text: text}, nil
}

func unmarshalResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return Response{}, ErrParseFailure
	}
	return resp, nil
}

func extractFromCodeBlock(text string) string {
	m := codeBlockRe.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

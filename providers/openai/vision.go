package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const describePrompt = "Describe the image in two lines. First line: a short title. Second line: one sentence describing what the image shows."

type visionContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type visionMessage struct {
	Role    string              `json:"role"`
	Content []visionContentPart `json:"content"`
}

type visionRequest struct {
	Model     string          `json:"model"`
	Messages  []visionMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

// Describe asks the model for a short title and a one-sentence caption
// of the image behind imageURL. It satisfies agent.ImageDescriber.
func (c *Client) Describe(ctx context.Context, imageURL string) (string, string, error) {
	body := visionRequest{
		Model: c.Model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionContentPart{
				{Type: "text", Text: describePrompt},
				{Type: "image_url", ImageURL: &struct {
					URL string `json:"url"`
				}{URL: imageURL}},
			},
		}},
		MaxTokens: 200,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", "", err
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", "", fmt.Errorf("decode vision response: %w", err)
	}
	if out.Error != nil {
		return "", "", fmt.Errorf("vision error (%s): %s", out.Error.Type, out.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("vision request failed: status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", "", fmt.Errorf("vision response had no choices")
	}
	title, description := splitTitleDescription(out.Choices[0].Message.Content)
	return title, description, nil
}

func splitTitleDescription(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	title, description, found := strings.Cut(raw, "\n")
	title = strings.TrimSpace(title)
	if !found {
		return title, title
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = title
	}
	return title, description
}

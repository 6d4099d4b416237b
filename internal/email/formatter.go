// Package email renders the final travel answer as HTML and delivers it.
package email

import (
	"context"
	"fmt"
	"strings"

	"waypoint/internal/llm"
)

// Formatter converts an answer into an HTML email body with one model call.
type Formatter struct {
	client      llm.Client
	model       string
	temperature float32
}

func NewFormatter(client llm.Client, model string, temperature float32) *Formatter {
	return &Formatter{client: client, model: model, temperature: temperature}
}

// Format returns the HTML body for text. Model errors are returned as is.
func (f *Formatter) Format(ctx context.Context, text string) (string, error) {
	resp, err := f.client.Chat(ctx, &llm.ChatRequest{
		Model: f.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: text},
		},
		Temperature: f.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("email formatting failed: %w", err)
	}
	return stripFence(resp.Message.Content), nil
}

// stripFence removes a ```html code fence the model sometimes adds anyway.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```html")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

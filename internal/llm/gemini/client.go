package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"waypoint/internal/llm"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when Gemini answers without a candidate.
var ErrEmptyResponse = errors.New("gemini: response contained no candidates")

// Client adapts the Gemini API to llm.Client.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client. baseURL is optional and mostly useful for proxies.
func NewClient(ctx context.Context, apiKey, model string, baseURL ...string) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if len(baseURL) > 0 && baseURL[0] != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL[0]}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	system, contents := convertMessages(req.Messages)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
		Tools:       convertTools(req.Tools),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	return convertResponse(resp)
}

func (c *Client) Provider() string {
	return "gemini"
}

func (c *Client) Model() string {
	return c.model
}

// convertMessages folds system messages into a single instruction and maps
// the remaining turns onto Gemini contents.
func convertMessages(msgs []llm.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)

		case llm.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})

		case llm.RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				args := callArgs(tc.Function.Arguments)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Function.Name,
						Args: args,
					},
				})
			}
			contents = append(contents, content)

		case llm.RoleTool:
			part := &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     msg.Name,
					Response: map[string]any{"output": msg.Content},
				},
			}
			// Results of one batch travel together in a single user turn.
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{part},
			})
		}
	}

	return strings.Join(system, "\n\n"), contents
}

func isFunctionResponseTurn(c *genai.Content) bool {
	if c.Role != genai.RoleUser || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

func convertTools(tools []*llm.ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Function.Name,
			Description:          t.Function.Description,
			ParametersJsonSchema: t.Function.Parameters,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func convertResponse(resp *genai.GenerateContentResponse) (*llm.ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}
	candidate := resp.Candidates[0]

	result := &llm.ChatResponse{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Timestamp: time.Now(),
		},
		StopReason: llm.StopReasonStop,
	}

	var text []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			text = append(text, part.Text)
		}
		if fc := part.FunctionCall; fc != nil {
			id := fc.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args, err := json.Marshal(fc.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to encode function call args: %w", err)
			}
			result.Message.ToolCalls = append(result.Message.ToolCalls, llm.NewToolCall(id, fc.Name, string(args)))
		}
	}
	result.Message.Content = strings.Join(text, "")

	if len(result.Message.ToolCalls) > 0 {
		result.StopReason = llm.StopReasonToolCalls
	} else if candidate.FinishReason == genai.FinishReasonMaxTokens {
		result.StopReason = llm.StopReasonLength
	}

	if u := resp.UsageMetadata; u != nil {
		result.Usage = llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return result, nil
}

// callArgs decodes stored call arguments. Text that is not a JSON object is
// kept under "raw_arguments" so the model still sees what it sent.
func callArgs(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"raw_arguments": raw}
	}
	return args
}

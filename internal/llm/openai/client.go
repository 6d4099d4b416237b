package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waypoint/internal/llm"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the API answers without any choice.
var ErrEmptyResponse = errors.New("openai: response contained no choices")

type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI client with the given API key and model.
// A non-empty baseURL targets an OpenAI-compatible endpoint instead of the default one.
func NewClient(apiKey, model string, baseURL ...string) *Client {
	var client *openai.Client

	if len(baseURL) > 0 && baseURL[0] != "" {
		config := openai.DefaultConfig(apiKey)
		config.BaseURL = baseURL[0]
		client = openai.NewClientWithConfig(config)
	} else {
		client = openai.NewClient(apiKey)
	}

	return &Client{
		client: client,
		model:  model,
	}
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(req.Messages),
		Tools:       convertTools(req.Tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	return convertResponse(resp)
}

func (c *Client) Provider() string {
	return "openai"
}

func (c *Client) Model() string {
	return c.model
}

func convertMessages(msgs []llm.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(msgs))
	for i, msg := range msgs {
		ocMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		if len(msg.ToolCalls) > 0 {
			ocMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				ocMsg.ToolCalls[j] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				}
			}
		}

		if msg.Role == llm.RoleTool {
			ocMsg.ToolCallID = msg.ToolCallID
			ocMsg.Name = msg.Name
		}

		result[i] = ocMsg
	}
	return result
}

func convertTools(tools []*llm.ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		}
	}
	return result
}

func convertResponse(resp openai.ChatCompletionResponse) (*llm.ChatResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	choice := resp.Choices[0]
	msg := choice.Message

	result := &llm.ChatResponse{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   msg.Content,
			Timestamp: time.Now(),
		},
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	if len(msg.ToolCalls) > 0 {
		result.Message.ToolCalls = make([]*llm.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			result.Message.ToolCalls[i] = llm.NewToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments)
		}
		result.StopReason = llm.StopReasonToolCalls
	} else {
		result.StopReason = llm.StopReason(choice.FinishReason)
	}

	return result, nil
}

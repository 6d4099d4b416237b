package llm

import "context"

// Client is a chat-completion provider that supports function calling.
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Provider() string
	Model() string
}

type ChatRequest struct {
	// Model overrides the client's default model when set.
	Model       string
	Messages    []Message
	Tools       []*ToolDefinition
	Temperature float32
	MaxTokens   int
}

type ChatResponse struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
}

type ToolDefinition struct {
	Type     string
	Function *FunctionDef
}

type FunctionDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// NewFunctionTool builds a function-type tool definition.
func NewFunctionTool(name, description string, params map[string]any) *ToolDefinition {
	return &ToolDefinition{
		Type: "function",
		Function: &FunctionDef{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

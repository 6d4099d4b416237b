// Package tool holds the tool contract offered to the model, the registry of
// available tools and the executor that resolves a batch of tool calls.
package tool

import (
	"context"
	"encoding/json"
	"time"
)

// Tool is a capability the model can call by name.
type Tool interface {
	Name() string
	Description() string

	// BestPractices is appended to the system prompt of every domain that
	// offers the tool. Empty means nothing to add.
	BestPractices() string

	// Parameters is the JSON schema advertised for the arguments.
	Parameters() map[string]any

	// Execute receives the (possibly enriched) JSON arguments. A returned
	// error and a Result with Success false both reach the model as an
	// error payload.
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// Result is what a tool produced. Output is the exact payload appended to
// the conversation.
type Result struct {
	Success bool
	Output  string
	Error   string
	Data    map[string]any
}

// CallResult records one resolved tool call.
type CallResult struct {
	ToolName  string
	CallID    string
	Params    json.RawMessage
	Result    *Result
	StartTime time.Time
	EndTime   time.Time
}

func (c *CallResult) Duration() time.Duration {
	return c.EndTime.Sub(c.StartTime)
}

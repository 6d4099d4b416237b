package llm

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content,omitempty"`
	ToolCalls  []*ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	Name       string      `json:"name,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// HasToolCalls reports whether the message requests at least one tool call.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

type ToolCall struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Function *FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name string `json:"name"`
	// Arguments is the raw JSON object emitted by the model.
	Arguments string `json:"arguments"`
}

// NewToolCall builds a function tool call.
func NewToolCall(id, name, arguments string) *ToolCall {
	return &ToolCall{
		ID:   id,
		Type: "function",
		Function: &FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
	}
}

type StopReason string

const (
	StopReasonStop      StopReason = "stop"
	StopReasonLength    StopReason = "length"
	StopReasonToolCalls StopReason = "tool_calls"
)

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CloneMessages returns a deep copy of msgs.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if m.ToolCalls != nil {
			out[i].ToolCalls = make([]*ToolCall, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				cp := *tc
				if tc.Function != nil {
					fn := *tc.Function
					cp.Function = &fn
				}
				out[i].ToolCalls[j] = &cp
			}
		}
	}
	return out
}

package agent

import (
	"time"

	"waypoint/internal/logger"
	"waypoint/internal/tool"
)

// ExecutionContext tracks one Start or Resume call and logs its progress.
// It is the tool.Observer handed to the executor.
type ExecutionContext struct {
	Logger        *logger.Logger
	StartTime     time.Time
	MaxTurns      int
	Turns         int
	ToolCallCount int
	Calls         []*tool.CallResult
}

func NewExecutionContext(log *logger.Logger, maxTurns int) *ExecutionContext {
	return &ExecutionContext{
		Logger:    log,
		StartTime: time.Now(),
		MaxTurns:  maxTurns,
	}
}

// LogToolCall logs a tool call with its parameters
func (ec *ExecutionContext) LogToolCall(toolName, params string) {
	ec.ToolCallCount++
	ec.Logger.ToolCall(toolName, params)
}

// LogToolResult logs a tool execution result
func (ec *ExecutionContext) LogToolResult(toolName string, success bool, output string, duration time.Duration) {
	ec.Logger.ToolResult(toolName, success, output, duration)
}

func (ec *ExecutionContext) LogResponse(content string) {
	ec.Logger.AgentResponse(content)
}

// LogProgress logs the current model call against the turn budget.
func (ec *ExecutionContext) LogProgress() {
	ec.Logger.Info("Turn %d/%d: calling model...", ec.Turns, ec.MaxTurns)
}

func (ec *ExecutionContext) LogEnd(state string) {
	ec.Logger.SessionEnd(state, time.Since(ec.StartTime), ec.Turns, ec.ToolCallCount)
}

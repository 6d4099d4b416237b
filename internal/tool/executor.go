package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waypoint/internal/hook"
	"waypoint/internal/llm"
)

// UnknownToolPayload is returned to the model when it names a tool that is not registered.
const UnknownToolPayload = "bad tool name, retry"

// ErrorPayloadPrefix prefixes the payload of every failed tool execution.
const ErrorPayloadPrefix = "Error: "

// EmptyOutputPlaceholder is returned when a tool produces no output.
// LLM APIs reject tool messages with empty content.
const EmptyOutputPlaceholder = "(Tool executed successfully with no output)"

// Enricher rewrites the raw JSON arguments of a call before execution.
type Enricher func(toolName, arguments string) (string, error)

// Observer receives per-call notifications. Implemented by the agent's execution context.
type Observer interface {
	LogToolCall(toolName, params string)
	LogToolResult(toolName string, success bool, output string, duration time.Duration)
}

// Executor dispatches tool calls strictly in order, one at a time.
// It never returns an error for a failing tool: failures become payloads.
type Executor struct {
	registry    *Registry
	hookManager *hook.Manager
	enrich      Enricher
	sessionID   string
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// SetHookManager sets the hook manager for tool execution hooks
func (e *Executor) SetHookManager(manager *hook.Manager) {
	e.hookManager = manager
}

// SetEnricher installs an argument enricher applied to every resolved call.
func (e *Executor) SetEnricher(fn Enricher) {
	e.enrich = fn
}

// SetSessionID tags hook events with the session being served.
func (e *Executor) SetSessionID(id string) {
	e.sessionID = id
}

// Registry returns the registry the executor resolves names against.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute resolves every call and returns one result per call, in request order.
func (e *Executor) Execute(ctx context.Context, toolCalls []*llm.ToolCall, obs Observer) []*CallResult {
	results := make([]*CallResult, len(toolCalls))
	for i, tc := range toolCalls {
		if obs != nil {
			obs.LogToolCall(tc.Function.Name, tc.Function.Arguments)
		}

		results[i] = e.executeOne(ctx, tc)

		if obs != nil {
			r := results[i]
			obs.LogToolResult(r.ToolName, r.Result.Success, r.Result.Output, r.Duration())
		}
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, tc *llm.ToolCall) *CallResult {
	cr := &CallResult{
		ToolName:  tc.Function.Name,
		CallID:    tc.ID,
		Params:    []byte(tc.Function.Arguments),
		StartTime: time.Now(),
	}
	finish := func(r *Result) *CallResult {
		cr.Result = r
		cr.EndTime = time.Now()
		return cr
	}

	t, err := e.registry.Get(tc.Function.Name)
	if err != nil {
		return finish(&Result{Success: false, Output: UnknownToolPayload, Error: err.Error()})
	}

	args := tc.Function.Arguments
	if e.enrich != nil {
		enriched, err := e.enrich(tc.Function.Name, args)
		if err != nil {
			return finish(failure(err))
		}
		args = enriched
		cr.Params = []byte(args)
	}

	if e.hookManager.HasHandlers(hook.BeforeToolExecution) {
		hookData := hook.NewHookData(hook.BeforeToolExecution, tc.Function.Name).
			ForSession(e.sessionID).
			Set("params", args)

		feedback, err := e.hookManager.Trigger(ctx, hookData)
		if err != nil {
			return finish(failure(fmt.Errorf("hook error: %w", err)))
		}

		if !feedback.Allow {
			return finish(failure(fmt.Errorf("tool execution was denied by the user: %s", feedback.Message)))
		}
	}

	result, err := safeExecute(ctx, t, []byte(args))
	if err != nil {
		return finish(failure(err))
	}
	if !result.Success && result.Output == "" {
		msg := result.Error
		if msg == "" {
			msg = "tool reported failure"
		}
		result.Output = ErrorPayloadPrefix + msg
	}

	if e.hookManager.HasHandlers(hook.AfterToolExecution) {
		hookData := hook.NewHookData(hook.AfterToolExecution, tc.Function.Name).
			ForSession(e.sessionID).
			Set("params", args).
			Set("result", result).
			Set("duration", time.Since(cr.StartTime))

		// after hooks are advisory
		_, _ = e.hookManager.Trigger(ctx, hookData)
	}

	if result.Output == "" {
		result.Output = EmptyOutputPlaceholder
	}

	return finish(result)
}

func failure(err error) *Result {
	return &Result{
		Success: false,
		Output:  ErrorPayloadPrefix + err.Error(),
		Error:   err.Error(),
	}
}

// safeExecute contains panics raised by a tool.
func safeExecute(ctx context.Context, t Tool, params []byte) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("panic in %s: %v", t.Name(), r)
		}
	}()
	res, err = t.Execute(ctx, params)
	if err == nil && res == nil {
		err = errors.New("tool returned no result")
	}
	return res, err
}

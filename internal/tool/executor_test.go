package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"waypoint/internal/hook"
	"waypoint/internal/llm"
)

type panicTool struct{ MockTool }

func (t *panicTool) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	panic("boom")
}

type recordingObserver struct {
	calls   []string
	results []string
}

func (o *recordingObserver) LogToolCall(name, params string) { o.calls = append(o.calls, name) }
func (o *recordingObserver) LogToolResult(name string, ok bool, out string, d time.Duration) {
	o.results = append(o.results, out)
}

func TestExecutor_OrderAndSentinel(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(&MockTool{name: "a", output: "A"}, &MockTool{name: "b", output: "B"})
	exec := NewExecutor(registry)

	calls := []*llm.ToolCall{
		llm.NewToolCall("1", "b", "{}"),
		llm.NewToolCall("2", "nope", "{}"),
		llm.NewToolCall("3", "a", "{}"),
	}
	obs := &recordingObserver{}
	results := exec.Execute(context.Background(), calls, obs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.CallID != calls[i].ID {
			t.Errorf("result %d has call id %s, want %s", i, r.CallID, calls[i].ID)
		}
	}
	if results[0].Result.Output != "B" || results[2].Result.Output != "A" {
		t.Errorf("unexpected outputs: %q %q", results[0].Result.Output, results[2].Result.Output)
	}
	if results[1].Result.Output != UnknownToolPayload {
		t.Errorf("expected sentinel, got %q", results[1].Result.Output)
	}
	if len(obs.calls) != 3 || len(obs.results) != 3 {
		t.Errorf("observer saw %d calls and %d results", len(obs.calls), len(obs.results))
	}
}

func TestExecutor_ErrorPayload(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(&MockTool{name: "flaky", err: errors.New("connection refused")})
	exec := NewExecutor(registry)

	results := exec.Execute(context.Background(), []*llm.ToolCall{llm.NewToolCall("1", "flaky", "{}")}, nil)

	if got := results[0].Result.Output; got != "Error: connection refused" {
		t.Errorf("expected exact error payload, got %q", got)
	}
}

func TestExecutor_PanicContained(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(&panicTool{MockTool{name: "explodes"}})
	exec := NewExecutor(registry)

	results := exec.Execute(context.Background(), []*llm.ToolCall{llm.NewToolCall("1", "explodes", "{}")}, nil)

	if !strings.HasPrefix(results[0].Result.Output, ErrorPayloadPrefix) {
		t.Errorf("expected error payload, got %q", results[0].Result.Output)
	}
}

func TestExecutor_EnricherRewritesArgs(t *testing.T) {
	registry := NewRegistry()
	mt := &MockTool{name: "a", output: "ok"}
	registry.MustRegister(mt)
	exec := NewExecutor(registry)
	exec.SetEnricher(func(name, args string) (string, error) {
		if name == "a" {
			return `{"params":{"currency":"EUR"}}`, nil
		}
		return args, nil
	})

	results := exec.Execute(context.Background(), []*llm.ToolCall{llm.NewToolCall("1", "a", "{}")}, nil)
	if string(results[0].Params) != `{"params":{"currency":"EUR"}}` {
		t.Errorf("expected enriched params to be recorded, got %s", results[0].Params)
	}
}

func TestExecutor_EnricherFailure(t *testing.T) {
	registry := NewRegistry()
	mt := &MockTool{name: "a"}
	registry.MustRegister(mt)
	exec := NewExecutor(registry)
	exec.SetEnricher(func(name, args string) (string, error) {
		return "", errors.New("arguments are not a JSON object")
	})

	results := exec.Execute(context.Background(), []*llm.ToolCall{llm.NewToolCall("1", "a", "[]")}, nil)
	if results[0].Result.Output != "Error: arguments are not a JSON object" {
		t.Errorf("unexpected payload %q", results[0].Result.Output)
	}
	if mt.calls != 0 {
		t.Error("tool must not run when enrichment fails")
	}
}

func TestExecutor_HookDenial(t *testing.T) {
	registry := NewRegistry()
	mt := &MockTool{name: "a"}
	registry.MustRegister(mt)

	m := hook.NewManager()
	m.Register(hook.HandlerFunc{HandlerName: "deny", Point: hook.BeforeToolExecution, Fn: func(ctx context.Context, d *hook.HookData) (*hook.Feedback, error) {
		return hook.DenyFeedback("not now"), nil
	}})
	exec := NewExecutor(registry)
	exec.SetHookManager(m)

	results := exec.Execute(context.Background(), []*llm.ToolCall{llm.NewToolCall("1", "a", "{}")}, nil)
	if !strings.Contains(results[0].Result.Output, "not now") {
		t.Errorf("expected denial reason in payload, got %q", results[0].Result.Output)
	}
	if mt.calls != 0 {
		t.Error("denied tool must not run")
	}
}

func TestExecutor_EmptyOutputPlaceholder(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(&MockTool{name: "quiet"})
	exec := NewExecutor(registry)

	results := exec.Execute(context.Background(), []*llm.ToolCall{llm.NewToolCall("1", "quiet", "{}")}, nil)
	if results[0].Result.Output != EmptyOutputPlaceholder {
		t.Errorf("expected placeholder, got %q", results[0].Result.Output)
	}
}

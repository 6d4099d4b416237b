package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"waypoint/internal/config"
	"waypoint/internal/email"
	"waypoint/internal/llm"
	"waypoint/internal/session"
	"waypoint/internal/tool"
	"waypoint/internal/tool/finder"
)

// ScriptedModel replays canned responses and records every request.
type ScriptedModel struct {
	mu        sync.Mutex
	responses []llm.Message
	err       error
	always    *llm.Message
	requests  []*llm.ChatRequest
}

func (m *ScriptedModel) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.always != nil {
		return &llm.ChatResponse{Message: *m.always, StopReason: llm.StopReasonToolCalls}, nil
	}
	if len(m.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	msg := m.responses[0]
	m.responses = m.responses[1:]
	return &llm.ChatResponse{Message: msg, StopReason: llm.StopReasonStop}, nil
}

func (m *ScriptedModel) Provider() string { return "scripted" }
func (m *ScriptedModel) Model() string    { return "scripted" }

func callMsg(calls ...*llm.ToolCall) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, ToolCalls: calls}
}

func textMsg(s string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, Content: s}
}

// recordingTool stands in for a finder and remembers the arguments it got.
type recordingTool struct {
	name   string
	output string
	err    error
	mu     sync.Mutex
	args   []string
}

func (t *recordingTool) Name() string               { return t.name }
func (t *recordingTool) Description() string        { return "test " + t.name }
func (t *recordingTool) BestPractices() string      { return "" }
func (t *recordingTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (t *recordingTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	t.mu.Lock()
	t.args = append(t.args, string(params))
	t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	return &tool.Result{Success: true, Output: t.output}, nil
}

func (t *recordingTool) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.args)
}

type fixture struct {
	agent *Agent
	model *ScriptedModel
	tools map[string]*recordingTool
	store *session.MemoryStore
}

func newFixture(t *testing.T, model *ScriptedModel, mailer *email.Service) *fixture {
	t.Helper()
	reg := tool.NewRegistry()
	tools := map[string]*recordingTool{}
	for _, name := range []string{finder.FlightsFinder, finder.HotelsFinder, finder.TrainsFinder, finder.AirbnbFinder, finder.JobsFinder} {
		rt := &recordingTool{name: name, output: `{"status":"success","search_params":{}}`}
		tools[name] = rt
		reg.MustRegister(rt)
	}

	store := session.NewMemoryStore()
	a, err := New(Options{
		Client:   model,
		Registry: reg,
		Store:    store,
		Email:    mailer,
		Config:   config.DefaultAgentConfig(),
		Clock:    func() time.Time { return time.Date(2025, time.December, 3, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &fixture{agent: a, model: model, tools: tools, store: store}
}

func decodeParams(t *testing.T, raw string) map[string]any {
	t.Helper()
	var args struct {
		Params map[string]any `json:"params"`
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		t.Fatalf("bad arguments %q: %v", raw, err)
	}
	return args.Params
}

func TestStart_FlightScenario(t *testing.T) {
	model := &ScriptedModel{responses: []llm.Message{
		callMsg(llm.NewToolCall("call_1", finder.FlightsFinder, `{"params":{"departure_airport":"MAD","arrival_airport":"JFK","outbound_date":"2025-10-01","return_date":"2025-10-07"}}`)),
		textMsg("Iberia, 702 EUR"),
	}}
	f := newFixture(t, model, nil)

	turn, err := f.agent.Start(context.Background(), StartRequest{SessionID: "s1", Domain: DomainTravel, Text: "flights MAD to JFK Oct 1-7"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if len(turn.Messages) != 4 {
		t.Fatalf("expected 4 stored messages, got %d", len(turn.Messages))
	}
	roles := []llm.Role{llm.RoleUser, llm.RoleAssistant, llm.RoleTool, llm.RoleAssistant}
	for i, m := range turn.Messages {
		if m.Role != roles[i] {
			t.Errorf("message %d has role %s, want %s", i, m.Role, roles[i])
		}
	}
	if turn.Messages[2].ToolCallID != "call_1" || turn.Messages[2].Name != finder.FlightsFinder {
		t.Errorf("unexpected tool result: %+v", turn.Messages[2])
	}
	if !turn.Paused || turn.State != session.StateAwaitingEmail || turn.Result != "Iberia, 702 EUR" {
		t.Errorf("expected paused travel turn, got %+v", turn)
	}
	if len(model.requests) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(model.requests))
	}

	first := model.requests[0]
	if first.Messages[0].Role != llm.RoleSystem || !strings.Contains(first.Messages[0].Content, "year 2025 month 12") {
		t.Errorf("system prompt not prepended: %+v", first.Messages[0])
	}
	if len(first.Tools) != 4 {
		t.Errorf("travel should offer 4 tools, got %d", len(first.Tools))
	}
	if len(model.requests[1].Messages) != 4 {
		t.Errorf("second call should see system + 3 messages, got %d", len(model.requests[1].Messages))
	}

	params := decodeParams(t, f.tools[finder.FlightsFinder].args[0])
	if params["departure_airport"] != "MAD" || params["sort_by"] != "price" || params["currency"] != "EUR" {
		t.Errorf("unexpected enriched params: %v", params)
	}
	if params["max_results"] != float64(5) {
		t.Errorf("expected max_results 5, got %v", params["max_results"])
	}

	cp, err := f.agent.Session(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	for _, m := range cp.Messages {
		if m.Role == llm.RoleSystem {
			t.Error("system prompt must not be stored with the messages")
		}
	}
}

func TestStart_ToolErrorBecomesPayload(t *testing.T) {
	model := &ScriptedModel{responses: []llm.Message{
		callMsg(llm.NewToolCall("c1", finder.JobsFinder, `{"params":{"keywords":["Go"]}}`)),
		textMsg("nothing found"),
	}}
	f := newFixture(t, model, nil)
	f.tools[finder.JobsFinder].err = errors.New("connection refused")

	turn, err := f.agent.Start(context.Background(), StartRequest{SessionID: "s", Domain: DomainJobs, Text: "go jobs"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := turn.Messages[2].Content; got != "Error: connection refused" {
		t.Errorf("expected error payload, got %q", got)
	}
	if turn.State != session.StateDone || turn.Paused {
		t.Errorf("jobs sessions finish without interrupt, got %s", turn.State)
	}
}

func TestStart_NoToolCallsTerminatesAfterOneModelCall(t *testing.T) {
	for _, domain := range []string{DomainTravel, DomainJobs} {
		model := &ScriptedModel{responses: []llm.Message{textMsg("hello")}}
		f := newFixture(t, model, nil)

		turn, err := f.agent.Start(context.Background(), StartRequest{SessionID: "s", Domain: domain, Text: "hi"})
		if err != nil {
			t.Fatalf("%s: Start failed: %v", domain, err)
		}
		if len(model.requests) != 1 || len(turn.Messages) != 2 {
			t.Errorf("%s: expected one model call and 2 messages, got %d and %d", domain, len(model.requests), len(turn.Messages))
		}
		want := session.StateDone
		if domain == DomainTravel {
			want = session.StateAwaitingEmail
		}
		if turn.State != want {
			t.Errorf("%s: expected %s, got %s", domain, want, turn.State)
		}
	}
}

func TestStart_UnknownToolAndOrder(t *testing.T) {
	model := &ScriptedModel{responses: []llm.Message{
		callMsg(
			llm.NewToolCall("a", finder.HotelsFinder, `{}`),
			llm.NewToolCall("b", "weather_finder", `{}`),
			llm.NewToolCall("c", finder.TrainsFinder, `{"params":{"origin_city":"Paris"}}`),
		),
		textMsg("done"),
	}}
	f := newFixture(t, model, nil)

	turn, err := f.agent.Start(context.Background(), StartRequest{SessionID: "s", Domain: DomainTravel, Text: "trip"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	results := turn.Messages[2:5]
	for i, id := range []string{"a", "b", "c"} {
		if results[i].ToolCallID != id {
			t.Errorf("result %d has id %s, want %s", i, results[i].ToolCallID, id)
		}
	}
	if results[1].Content != tool.UnknownToolPayload {
		t.Errorf("expected sentinel, got %q", results[1].Content)
	}
	if len(turn.ToolCalls) != 3 {
		t.Errorf("expected 3 call results, got %d", len(turn.ToolCalls))
	}

	hotel := decodeParams(t, f.tools[finder.HotelsFinder].args[0])
	if hotel["max_results"] != float64(5) || hotel["currency"] != "EUR" {
		t.Errorf("params object should be created and enriched, got %v", hotel)
	}
	train := decodeParams(t, f.tools[finder.TrainsFinder].args[0])
	if train["origin_city"] != "Paris" || train["max_results"] != float64(10) {
		t.Errorf("unexpected train params: %v", train)
	}
}

func TestStart_JobsEnrichmentOverwrites(t *testing.T) {
	model := &ScriptedModel{responses: []llm.Message{
		callMsg(llm.NewToolCall("c1", finder.JobsFinder, `{"params":{"keywords":["Go"],"contract_type":"CDI","max_results":50}}`)),
		textMsg("ok"),
	}}
	f := newFixture(t, model, nil)

	skills := []string{"Go"}
	_, err := f.agent.Start(context.Background(), StartRequest{
		SessionID: "s", Domain: DomainJobs, Text: "go jobs",
		Overrides: &config.Overrides{RequiredSkills: skills},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	params := decodeParams(t, f.tools[finder.JobsFinder].args[0])
	if params["contract_type"] != "Prestataire" || params["max_results"] != float64(10) {
		t.Errorf("config keys must overwrite model values: %v", params)
	}
	if s, _ := params["required_skills"].([]any); len(s) != 1 || s[0] != "Go" {
		t.Errorf("unexpected required_skills: %v", params["required_skills"])
	}
	if _, ok := params["remote_options"]; !ok {
		t.Errorf("remote_options must always be set: %v", params)
	}
}

func TestStart_MaxTurnsExceeded(t *testing.T) {
	loop := callMsg(llm.NewToolCall("c", finder.FlightsFinder, `{}`))
	model := &ScriptedModel{always: &loop}
	f := newFixture(t, model, nil)

	maxTurns := 3
	_, err := f.agent.Start(context.Background(), StartRequest{
		SessionID: "s", Domain: DomainTravel, Text: "loop",
		Overrides: &config.Overrides{MaxTurns: &maxTurns},
	})
	if !errors.Is(err, ErrMaxTurnsExceeded) {
		t.Fatalf("expected ErrMaxTurnsExceeded, got %v", err)
	}
	if len(model.requests) != maxTurns {
		t.Errorf("expected %d model calls, got %d", maxTurns, len(model.requests))
	}

	cp, _ := f.agent.Session(context.Background(), "s")
	if cp.State != session.StateFailed || cp.Error == "" {
		t.Errorf("expected failed checkpoint, got %s", cp.State)
	}

	_, err = f.agent.Start(context.Background(), StartRequest{SessionID: "s", Domain: DomainTravel, Text: "again"})
	if !errors.Is(err, ErrSessionFailed) {
		t.Errorf("expected ErrSessionFailed, got %v", err)
	}
}

func TestStart_ModelFailurePropagates(t *testing.T) {
	model := &ScriptedModel{err: errors.New("rate limited")}
	f := newFixture(t, model, nil)

	_, err := f.agent.Start(context.Background(), StartRequest{SessionID: "s", Domain: DomainJobs, Text: "jobs"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected model error, got %v", err)
	}
	cp, _ := f.agent.Session(context.Background(), "s")
	if cp.State != session.StateFailed {
		t.Errorf("expected failed session, got %s", cp.State)
	}
}

func TestStart_Validation(t *testing.T) {
	f := newFixture(t, &ScriptedModel{}, nil)
	ctx := context.Background()

	if _, err := f.agent.Start(ctx, StartRequest{SessionID: "s", Domain: "cars", Text: "x"}); !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("expected ErrUnknownDomain, got %v", err)
	}
	if _, err := f.agent.Start(ctx, StartRequest{SessionID: "s", Domain: DomainJobs}); !errors.Is(err, ErrEmptyRequest) {
		t.Errorf("expected ErrEmptyRequest, got %v", err)
	}
	bad := -1
	if _, err := f.agent.Start(ctx, StartRequest{SessionID: "s", Domain: DomainJobs, Text: "x", Overrides: &config.Overrides{MaxTurns: &bad}}); !errors.Is(err, ErrInvalidRequest) {
		t.Error("expected invalid overrides to be rejected")
	}
}

func TestStart_FollowUpDropsInterrupt(t *testing.T) {
	model := &ScriptedModel{responses: []llm.Message{textMsg("first"), textMsg("second")}}
	f := newFixture(t, model, nil)
	ctx := context.Background()

	if _, err := f.agent.Start(ctx, StartRequest{SessionID: "s", Domain: DomainTravel, Text: "one"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	turn, err := f.agent.Start(ctx, StartRequest{SessionID: "s", Domain: DomainTravel, Text: "two"})
	if err != nil {
		t.Fatalf("follow-up failed: %v", err)
	}
	if len(turn.Messages) != 4 || turn.Result != "second" {
		t.Errorf("expected conversation to continue, got %d messages and %q", len(turn.Messages), turn.Result)
	}

	if _, err := f.agent.Start(ctx, StartRequest{SessionID: "s", Domain: DomainJobs, Text: "three"}); !errors.Is(err, ErrDomainMismatch) {
		t.Errorf("expected ErrDomainMismatch, got %v", err)
	}
}

func TestStart_SessionBusy(t *testing.T) {
	f := newFixture(t, &ScriptedModel{responses: []llm.Message{textMsg("x")}}, nil)
	f.agent.locks.acquire("s")

	_, err := f.agent.Start(context.Background(), StartRequest{SessionID: "s", Domain: DomainJobs, Text: "x"})
	if !errors.Is(err, ErrSessionBusy) {
		t.Errorf("expected ErrSessionBusy, got %v", err)
	}
	if _, err := f.agent.Resume(context.Background(), "s", email.Request{To: "a@example.com"}); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("expected ErrSessionBusy from Resume, got %v", err)
	}

	f.agent.locks.release("s")
	if _, err := f.agent.Start(context.Background(), StartRequest{SessionID: "s", Domain: DomainJobs, Text: "x"}); err != nil {
		t.Errorf("expected lock to be released, got %v", err)
	}
}

func TestDispatch_ConsumesBatchOnce(t *testing.T) {
	f := newFixture(t, &ScriptedModel{}, nil)
	ctx := context.Background()

	err := f.store.Save(ctx, &session.Checkpoint{
		SessionID: "s",
		Domain:    DomainTravel,
		State:     session.StateDispatchTools,
		Config:    config.DefaultAgentConfig(),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "hotels in Lyon"},
			callMsg(llm.NewToolCall("c1", finder.HotelsFinder, `{"params":{"q":"Lyon"}}`)),
		},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	results, err := f.agent.Dispatch(ctx, "s")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(results) != 1 || results[0].CallID != "c1" {
		t.Fatalf("unexpected results: %+v", results)
	}

	again, err := f.agent.Dispatch(ctx, "s")
	if err != nil {
		t.Fatalf("second Dispatch failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("resolved batch must not run again, got %d results", len(again))
	}
	if n := f.tools[finder.HotelsFinder].calls(); n != 1 {
		t.Errorf("tool invoked %d times, want 1", n)
	}

	cp, _ := f.agent.Session(ctx, "s")
	if len(cp.Messages) != 3 || cp.State != session.StateAwaitingModel {
		t.Errorf("unexpected checkpoint after dispatch: %d messages, %s", len(cp.Messages), cp.State)
	}
}

type fakeSender struct {
	sent []email.Message
	err  error
}

func (s *fakeSender) Send(ctx context.Context, msg email.Message) (*email.Receipt, error) {
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return nil, s.err
	}
	return &email.Receipt{Delivered: true, To: msg.To, StatusCode: 202}, nil
}

func newMailer(sender email.Sender) *email.Service {
	formatter := email.NewFormatter(&ScriptedModel{responses: []llm.Message{textMsg("<p>trip</p>")}}, "gpt-4o", 0.1)
	return email.NewService(formatter, sender, "agent@example.com", "Travel Information")
}

func TestResume_SendsEmail(t *testing.T) {
	sender := &fakeSender{}
	f := newFixture(t, &ScriptedModel{responses: []llm.Message{textMsg("Iberia, 702 EUR")}}, newMailer(sender))
	ctx := context.Background()

	if _, err := f.agent.Start(ctx, StartRequest{SessionID: "s", Domain: DomainTravel, Text: "trip"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	receipt, err := f.agent.Resume(ctx, "s", email.Request{To: "me@example.com", Subject: "My trip"})
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if !receipt.Delivered || len(sender.sent) != 1 {
		t.Fatalf("expected one delivered email, got %+v", receipt)
	}
	msg := sender.sent[0]
	if msg.From != "agent@example.com" || msg.To != "me@example.com" || msg.Subject != "My trip" || msg.HTML != "<p>trip</p>" {
		t.Errorf("unexpected email: %+v", msg)
	}

	cp, _ := f.agent.Session(ctx, "s")
	if cp.State != session.StateDone || cp.Email == nil {
		t.Errorf("expected done session with receipt, got %s", cp.State)
	}

	if _, err := f.agent.Resume(ctx, "s", email.Request{To: "me@example.com"}); !errors.Is(err, ErrNoPendingInterrupt) {
		t.Errorf("expected ErrNoPendingInterrupt on second resume, got %v", err)
	}
}

func TestResume_SendFailureStillFinishes(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	f := newFixture(t, &ScriptedModel{responses: []llm.Message{textMsg("answer")}}, newMailer(sender))
	ctx := context.Background()

	if _, err := f.agent.Start(ctx, StartRequest{SessionID: "s", Domain: DomainTravel, Text: "trip"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	receipt, err := f.agent.Resume(ctx, "s", email.Request{To: "me@example.com"})
	if err != nil {
		t.Fatalf("send failures must not fail Resume, got %v", err)
	}
	if receipt.Delivered || receipt.Error != "smtp down" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	cp, _ := f.agent.Session(ctx, "s")
	if cp.State != session.StateDone {
		t.Errorf("expected done, got %s", cp.State)
	}
}

func TestResume_Faults(t *testing.T) {
	f := newFixture(t, &ScriptedModel{responses: []llm.Message{textMsg("jobs")}}, newMailer(&fakeSender{}))
	ctx := context.Background()

	if _, err := f.agent.Resume(ctx, "missing", email.Request{To: "me@example.com"}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := f.agent.Start(ctx, StartRequest{SessionID: "j", Domain: DomainJobs, Text: "jobs"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := f.agent.Resume(ctx, "j", email.Request{To: "me@example.com"}); !errors.Is(err, ErrNoPendingInterrupt) {
		t.Errorf("expected ErrNoPendingInterrupt, got %v", err)
	}
}

func TestResume_BadAddressKeepsSessionPaused(t *testing.T) {
	f := newFixture(t, &ScriptedModel{responses: []llm.Message{textMsg("answer")}}, newMailer(&fakeSender{}))
	ctx := context.Background()

	if _, err := f.agent.Start(ctx, StartRequest{SessionID: "s", Domain: DomainTravel, Text: "trip"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := f.agent.Resume(ctx, "s", email.Request{}); !errors.Is(err, email.ErrMissingRecipient) {
		t.Errorf("expected ErrMissingRecipient, got %v", err)
	}
	cp, _ := f.agent.Session(ctx, "s")
	if !cp.Paused() {
		t.Errorf("session should stay paused, got %s", cp.State)
	}
}

func TestResume_EmailDisabled(t *testing.T) {
	f := newFixture(t, &ScriptedModel{responses: []llm.Message{textMsg("answer")}}, nil)
	ctx := context.Background()

	if _, err := f.agent.Start(ctx, StartRequest{SessionID: "s", Domain: DomainTravel, Text: "trip"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := f.agent.Resume(ctx, "s", email.Request{To: "me@example.com"}); !errors.Is(err, ErrEmailDisabled) {
		t.Errorf("expected ErrEmailDisabled, got %v", err)
	}
}

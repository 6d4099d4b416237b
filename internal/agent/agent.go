// Package agent runs the tool-calling loop: ask the model, dispatch the
// tools it requests, repeat until it answers without tool calls.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"waypoint/internal/config"
	"waypoint/internal/email"
	"waypoint/internal/hook"
	"waypoint/internal/llm"
	"waypoint/internal/logger"
	"waypoint/internal/session"
	"waypoint/internal/tool"
)

var (
	ErrUnknownDomain      = errors.New("unknown domain")
	ErrDomainMismatch     = errors.New("session belongs to another domain")
	ErrSessionBusy        = errors.New("session is busy")
	ErrSessionFailed      = errors.New("session has failed")
	ErrNoPendingInterrupt = errors.New("no pending interrupt")
	ErrMaxTurnsExceeded   = errors.New("max turns exceeded")
	ErrEmailDisabled      = errors.New("email step is not configured")
	ErrEmptyRequest       = errors.New("request text is empty")
	ErrInvalidRequest     = errors.New("invalid request")
)

// Options wires an Agent.
type Options struct {
	Client   llm.Client
	Registry *tool.Registry
	Store    session.Store
	// Email may be nil; travel sessions then pause but cannot be resumed.
	Email  *email.Service
	Hooks  *hook.Manager
	Logger *logger.Logger
	Config config.AgentConfig
	// Domains defaults to Domains().
	Domains []Domain
	Clock   func() time.Time
}

// Agent serves sessions of one or more domains.
type Agent struct {
	client llm.Client
	store  session.Store
	mailer *email.Service
	hooks  *hook.Manager
	log    *logger.Logger
	base   config.AgentConfig
	now    func() time.Time

	domains map[string]*boundDomain
	locks   sessionLocks
}

type boundDomain struct {
	Domain
	registry *tool.Registry
}

// StartRequest opens a session or continues a finished one.
type StartRequest struct {
	SessionID string
	Domain    string
	Text      string
	Overrides *config.Overrides
}

// Turn is the outcome of a Start call.
type Turn struct {
	SessionID string
	State     session.State
	Result    string
	Paused    bool
	Messages  []llm.Message
	ToolCalls []*tool.CallResult
}

func New(opts Options) (*Agent, error) {
	if opts.Client == nil {
		return nil, errors.New("llm client is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}

	a := &Agent{
		client:  opts.Client,
		store:   opts.Store,
		mailer:  opts.Email,
		hooks:   opts.Hooks,
		log:     opts.Logger,
		base:    opts.Config.Clone(),
		now:     opts.Clock,
		domains: make(map[string]*boundDomain),
		locks:   sessionLocks{busy: make(map[string]bool)},
	}
	if a.store == nil {
		a.store = session.NewMemoryStore()
	}
	if a.log == nil {
		a.log = logger.Discard()
	}
	if a.now == nil {
		a.now = time.Now
	}

	domains := opts.Domains
	if len(domains) == 0 {
		domains = Domains()
	}
	for _, d := range domains {
		reg, err := opts.Registry.Subset(d.Tools...)
		if err != nil {
			return nil, fmt.Errorf("domain %s: %w", d.Name, err)
		}
		a.domains[d.Name] = &boundDomain{Domain: d, registry: reg}
	}
	return a, nil
}

// Store returns the checkpoint store.
func (a *Agent) Store() session.Store {
	return a.store
}

// Session returns a copy of the checkpoint of sessionID.
func (a *Agent) Session(ctx context.Context, sessionID string) (*session.Checkpoint, error) {
	return a.store.Load(ctx, sessionID)
}

// Start appends req.Text as a human message and runs the loop until the
// model stops requesting tools. Travel sessions then pause at the email
// interrupt; others finish.
//
// Calling Start on a finished or paused session continues the conversation.
// A pending interrupt is dropped and overrides, when given, replace the
// session configuration.
func (a *Agent) Start(ctx context.Context, req StartRequest) (*Turn, error) {
	if req.Text == "" {
		return nil, ErrEmptyRequest
	}
	if req.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	bd, ok := a.domains[req.Domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, req.Domain)
	}

	if !a.locks.acquire(req.SessionID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, req.SessionID)
	}
	defer a.locks.release(req.SessionID)

	cp, err := a.openSession(ctx, bd, req)
	if err != nil {
		return nil, err
	}

	log := a.log.WithSession(cp.SessionID)
	ctx = logger.WithContext(ctx, log)
	log.SessionStart(bd.Name, req.Text)

	cp.Messages = append(cp.Messages, llm.Message{
		Role:      llm.RoleUser,
		Content:   req.Text,
		Timestamp: a.now(),
	})
	cp.State = session.StateAwaitingModel
	cp.Result = ""
	cp.Error = ""
	cp.Email = nil

	ec := NewExecutionContext(log, cp.Config.MaxTurns)
	runErr := a.run(ctx, bd, cp, ec)
	ec.LogEnd(string(cp.State))

	if err := a.store.Save(ctx, cp); err != nil {
		log.Error("Failed to save checkpoint: %v", err)
		if runErr == nil {
			return nil, fmt.Errorf("failed to save checkpoint: %w", err)
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	return &Turn{
		SessionID: cp.SessionID,
		State:     cp.State,
		Result:    cp.Result,
		Paused:    cp.Paused(),
		Messages:  llm.CloneMessages(cp.Messages),
		ToolCalls: ec.Calls,
	}, nil
}

func (a *Agent) openSession(ctx context.Context, bd *boundDomain, req StartRequest) (*session.Checkpoint, error) {
	cp, err := a.store.Load(ctx, req.SessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		cfg := a.base.Merge(req.Overrides)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: overrides: %w", ErrInvalidRequest, err)
		}
		return &session.Checkpoint{
			SessionID:    req.SessionID,
			Domain:       bd.Name,
			Config:       cfg,
			SystemPrompt: a.systemPrompt(bd, cfg),
			CreatedAt:    a.now(),
		}, nil
	case err != nil:
		return nil, err
	}

	if cp.Domain != bd.Name {
		return nil, fmt.Errorf("%w: %s is a %s session", ErrDomainMismatch, cp.SessionID, cp.Domain)
	}
	if cp.State == session.StateFailed {
		return nil, fmt.Errorf("%w: %s", ErrSessionFailed, cp.Error)
	}
	if req.Overrides != nil {
		cfg := cp.Config.Merge(req.Overrides)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: overrides: %w", ErrInvalidRequest, err)
		}
		cp.Config = cfg
		cp.SystemPrompt = a.systemPrompt(bd, cfg)
	}
	return cp, nil
}

func (a *Agent) systemPrompt(bd *boundDomain, cfg config.AgentConfig) string {
	prompt := bd.Prompt(cfg, a.now())
	if bp := bd.registry.GetToolBestPractices(); bp != "" {
		prompt += "\n\n" + bp
	}
	return prompt
}

// run drives the state machine until the session pauses, finishes or fails.
// On failure cp is marked failed and the error returned.
func (a *Agent) run(ctx context.Context, bd *boundDomain, cp *session.Checkpoint, ec *ExecutionContext) error {
	fail := func(err error) error {
		cp.State = session.StateFailed
		cp.Error = err.Error()
		ec.Logger.Error("%v", err)
		return err
	}

	for {
		switch cp.State {
		case session.StateAwaitingModel:
			if ec.Turns >= cp.Config.MaxTurns {
				return fail(fmt.Errorf("%w: the model was called %d times", ErrMaxTurnsExceeded, ec.Turns))
			}
			msg, err := a.callModel(ctx, bd, cp, ec)
			if err != nil {
				return fail(err)
			}
			cp.Messages = append(cp.Messages, *msg)

			if msg.HasToolCalls() {
				cp.State = session.StateDispatchTools
				continue
			}
			cp.Result = msg.Content
			if bd.Interrupt {
				cp.State = session.StateAwaitingEmail
			} else {
				cp.State = session.StateDone
			}
			return nil

		case session.StateDispatchTools:
			a.dispatchPending(ctx, bd, cp, ec)
			if err := a.store.Save(ctx, cp); err != nil {
				ec.Logger.Warn("Failed to save checkpoint: %v", err)
			}

		default:
			return nil
		}
	}
}

func (a *Agent) callModel(ctx context.Context, bd *boundDomain, cp *session.Checkpoint, ec *ExecutionContext) (*llm.Message, error) {
	ec.Turns++
	cp.Turns++
	ec.LogProgress()
	a.trigger(ctx, hook.NewHookData(hook.OnTurnStart, "").ForSession(cp.SessionID).Set("turn", ec.Turns))

	messages := make([]llm.Message, 0, len(cp.Messages)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: cp.SystemPrompt})
	messages = append(messages, cp.Messages...)

	resp, err := a.client.Chat(ctx, &llm.ChatRequest{
		Model:       cp.Config.Model,
		Messages:    messages,
		Tools:       bd.registry.GetToolDefinitions(),
		Temperature: cp.Config.Temperature,
		MaxTokens:   cp.Config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	msg := resp.Message
	msg.Role = llm.RoleAssistant
	if msg.Timestamp.IsZero() {
		msg.Timestamp = a.now()
	}
	if msg.Content != "" {
		ec.LogResponse(msg.Content)
	}
	if resp.StopReason == llm.StopReasonLength {
		ec.Logger.Warn("Model response truncated by the token limit")
	}

	a.trigger(ctx, hook.NewHookData(hook.OnTurnEnd, "").
		ForSession(cp.SessionID).
		Set("turn", ec.Turns).
		Set("tool_calls", len(msg.ToolCalls)))
	return &msg, nil
}

// pendingCalls returns the tool calls of the trailing model message when no
// results have been appended for them yet.
func pendingCalls(msgs []llm.Message) []*llm.ToolCall {
	if len(msgs) == 0 {
		return nil
	}
	last := msgs[len(msgs)-1]
	if last.Role != llm.RoleAssistant || !last.HasToolCalls() {
		return nil
	}
	return last.ToolCalls
}

// dispatchPending resolves the pending batch, appends every result in
// request order and moves the session back to awaiting the model.
// It is a no-op when the batch has already been consumed.
func (a *Agent) dispatchPending(ctx context.Context, bd *boundDomain, cp *session.Checkpoint, ec *ExecutionContext) []*tool.CallResult {
	calls := pendingCalls(cp.Messages)
	if len(calls) == 0 {
		return nil
	}
	ec.Logger.Info("Executing %d tool call(s)...", len(calls))

	exec := tool.NewExecutor(bd.registry)
	exec.SetHookManager(a.hooks)
	exec.SetEnricher(bd.enricher(cp.Config))
	exec.SetSessionID(cp.SessionID)

	results := exec.Execute(ctx, calls, ec)

	batch := make([]llm.Message, 0, len(results))
	for _, r := range results {
		batch = append(batch, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: r.CallID,
			Name:       r.ToolName,
			Content:    r.Result.Output,
			Timestamp:  r.EndTime,
		})
	}
	cp.Messages = append(cp.Messages, batch...)
	cp.ToolCalls += len(results)
	cp.State = session.StateAwaitingModel
	ec.Calls = append(ec.Calls, results...)

	ec.Logger.Info("➡️ Returning results to model")
	return results
}

// Dispatch executes the pending tool batch of a session without calling the
// model. A batch is consumed once: calling Dispatch again returns no results.
func (a *Agent) Dispatch(ctx context.Context, sessionID string) ([]*tool.CallResult, error) {
	if !a.locks.acquire(sessionID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}
	defer a.locks.release(sessionID)

	cp, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	bd, ok := a.domains[cp.Domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, cp.Domain)
	}

	log := a.log.WithSession(sessionID)
	ctx = logger.WithContext(ctx, log)
	results := a.dispatchPending(ctx, bd, cp, NewExecutionContext(log, cp.Config.MaxTurns))
	if results == nil {
		return nil, nil
	}
	if err := a.store.Save(ctx, cp); err != nil {
		return results, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return results, nil
}

// Resume continues a paused travel session past the interrupt: the final
// answer is formatted and emailed to req. Addressing errors leave the
// session paused. A failed send is reported in the receipt and the session
// still finishes; a model failure while formatting fails the session.
func (a *Agent) Resume(ctx context.Context, sessionID string, req email.Request) (*email.Receipt, error) {
	if !a.locks.acquire(sessionID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}
	defer a.locks.release(sessionID)

	cp, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !cp.Paused() {
		return nil, fmt.Errorf("%w: session %s is %s", ErrNoPendingInterrupt, sessionID, cp.State)
	}
	if a.mailer == nil {
		return nil, ErrEmailDisabled
	}
	if _, err := a.mailer.Resolve(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	log := a.log.WithSession(sessionID)
	ctx = logger.WithContext(ctx, log)

	receipt, err := a.mailer.Deliver(ctx, sessionID, cp.Result, req)
	if err != nil {
		cp.State = session.StateFailed
		cp.Error = err.Error()
		log.Error("Email step failed: %v", err)
		if saveErr := a.store.Save(ctx, cp); saveErr != nil {
			log.Error("Failed to save checkpoint: %v", saveErr)
		}
		return nil, err
	}

	cp.Email = receipt
	cp.State = session.StateDone
	if err := a.store.Save(ctx, cp); err != nil {
		return receipt, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return receipt, nil
}

func (a *Agent) trigger(ctx context.Context, data *hook.HookData) {
	if _, err := a.hooks.Trigger(ctx, data); err != nil {
		logger.FromContext(ctx).Warn("Hook failed at %s: %v", data.Point, err)
	}
}

// sessionLocks rejects concurrent use of one session instead of queueing.
type sessionLocks struct {
	mu   sync.Mutex
	busy map[string]bool
}

func (l *sessionLocks) acquire(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy[id] {
		return false
	}
	l.busy[id] = true
	return true
}

func (l *sessionLocks) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.busy, id)
}

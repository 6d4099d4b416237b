// Package watch runs saved searches on a cron schedule.
package watch

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"waypoint/internal/agent"
	"waypoint/internal/config"
	"waypoint/internal/email"
	"waypoint/internal/logger"
	"waypoint/internal/session"
)

// Runner is the part of the agent a watch needs.
type Runner interface {
	Start(ctx context.Context, req agent.StartRequest) (*agent.Turn, error)
	Resume(ctx context.Context, sessionID string, req email.Request) (*email.Receipt, error)
}

// Outcome is the result of one watch run.
type Outcome struct {
	Watch     string
	SessionID string
	State     session.State
	Result    string
	Receipt   *email.Receipt
}

// Scheduler owns the cron entries of the configured watches.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	log    *logger.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func New(runner Runner, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		log:     log,
		entries: make(map[string]cron.EntryID),
	}
}

// Add schedules w, replacing any watch with the same name.
func (s *Scheduler) Add(w config.WatchConfig) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(w.Schedule); err != nil {
		return fmt.Errorf("%s: invalid cron expression: %w", w.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[w.Name]; ok {
		s.cron.Remove(id)
		delete(s.entries, w.Name)
	}

	id, err := s.cron.AddFunc(w.Schedule, func() {
		if _, err := s.RunOnce(context.Background(), w); err != nil {
			s.log.Error("Watch %s failed: %v", w.Name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("%s: failed to add schedule: %w", w.Name, err)
	}
	s.entries[w.Name] = id
	s.log.Info("⏰ Watch %s scheduled (%s)", w.Name, w.Schedule)
	return nil
}

// Names returns the scheduled watch names.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// RunOnce runs w immediately in a fresh session. A travel watch with an
// email configured resumes past the interrupt on its own.
func (s *Scheduler) RunOnce(ctx context.Context, w config.WatchConfig) (*Outcome, error) {
	sessionID := fmt.Sprintf("watch-%s-%s", w.Name, session.NewID())
	s.log.Info("⏰ Running watch %s (session %s)", w.Name, sessionID)

	turn, err := s.runner.Start(ctx, agent.StartRequest{
		SessionID: sessionID,
		Domain:    w.Domain,
		Text:      w.Request,
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Watch:     w.Name,
		SessionID: sessionID,
		State:     turn.State,
		Result:    turn.Result,
	}
	if !turn.Paused || w.Email == nil {
		return out, nil
	}

	receipt, err := s.runner.Resume(ctx, sessionID, email.Request{
		From:    w.Email.From,
		To:      w.Email.To,
		Subject: w.Email.Subject,
	})
	if err != nil {
		return out, fmt.Errorf("watch %s: email step failed: %w", w.Name, err)
	}
	out.State = session.StateDone
	out.Receipt = receipt
	return out, nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

package watch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"waypoint/internal/agent"
	"waypoint/internal/config"
	"waypoint/internal/email"
	"waypoint/internal/session"
)

type fakeRunner struct {
	starts  []agent.StartRequest
	resumes []email.Request
	paused  bool
	err     error
}

func (r *fakeRunner) Start(ctx context.Context, req agent.StartRequest) (*agent.Turn, error) {
	r.starts = append(r.starts, req)
	if r.err != nil {
		return nil, r.err
	}
	state := session.StateDone
	if r.paused {
		state = session.StateAwaitingEmail
	}
	return &agent.Turn{SessionID: req.SessionID, State: state, Paused: r.paused, Result: "found 3"}, nil
}

func (r *fakeRunner) Resume(ctx context.Context, id string, req email.Request) (*email.Receipt, error) {
	r.resumes = append(r.resumes, req)
	return &email.Receipt{Delivered: true, To: req.To}, nil
}

func TestRunOnce_TravelWithEmail(t *testing.T) {
	r := &fakeRunner{paused: true}
	s := New(r, nil)

	out, err := s.RunOnce(context.Background(), config.WatchConfig{
		Name:     "lisbon",
		Schedule: "0 8 * * *",
		Domain:   "travel",
		Request:  "hotels in Lisbon next weekend",
		Email:    &config.WatchEmail{To: "me@example.com", Subject: "Lisbon"},
	})
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if out.State != session.StateDone || out.Receipt == nil || !out.Receipt.Delivered {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if len(r.resumes) != 1 || r.resumes[0].To != "me@example.com" || r.resumes[0].Subject != "Lisbon" {
		t.Errorf("unexpected resume: %+v", r.resumes)
	}
	if !strings.HasPrefix(r.starts[0].SessionID, "watch-lisbon-") || r.starts[0].Domain != "travel" {
		t.Errorf("unexpected start: %+v", r.starts[0])
	}
}

func TestRunOnce_FreshSessionEachRun(t *testing.T) {
	r := &fakeRunner{}
	s := New(r, nil)
	w := config.WatchConfig{Name: "go", Schedule: "@daily", Domain: "jobs", Request: "go jobs"}

	for i := 0; i < 2; i++ {
		out, err := s.RunOnce(context.Background(), w)
		if err != nil {
			t.Fatalf("RunOnce failed: %v", err)
		}
		if out.Receipt != nil || out.State != session.StateDone {
			t.Errorf("jobs watches never send email: %+v", out)
		}
	}
	if r.starts[0].SessionID == r.starts[1].SessionID {
		t.Error("each run must use a new session id")
	}
}

func TestRunOnce_PausedWithoutEmail(t *testing.T) {
	r := &fakeRunner{paused: true}
	out, err := New(r, nil).RunOnce(context.Background(), config.WatchConfig{Name: "t", Schedule: "@daily", Domain: "travel", Request: "x"})
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if out.State != session.StateAwaitingEmail || len(r.resumes) != 0 {
		t.Errorf("expected session left paused, got %+v", out)
	}
}

func TestRunOnce_StartError(t *testing.T) {
	r := &fakeRunner{err: errors.New("model down")}
	if _, err := New(r, nil).RunOnce(context.Background(), config.WatchConfig{Name: "t", Schedule: "@daily", Domain: "jobs", Request: "x"}); err == nil {
		t.Error("expected error")
	}
}

func TestAdd(t *testing.T) {
	s := New(&fakeRunner{}, nil)

	w := config.WatchConfig{Name: "daily", Schedule: "0 9 * * 1-5", Domain: "jobs", Request: "go jobs"}
	if err := s.Add(w); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	w.Schedule = "@every 1h"
	if err := s.Add(w); err != nil {
		t.Fatalf("re-Add failed: %v", err)
	}
	if names := s.Names(); len(names) != 1 || names[0] != "daily" {
		t.Errorf("expected a single entry, got %v", names)
	}

	if err := s.Add(config.WatchConfig{Name: "bad", Schedule: "every day", Domain: "jobs", Request: "x"}); err == nil {
		t.Error("expected invalid cron expression to be rejected")
	}
	if err := s.Add(config.WatchConfig{Name: "bad", Schedule: "@daily", Domain: "cars", Request: "x"}); err == nil {
		t.Error("expected invalid domain to be rejected")
	}
}

// Package session persists agent checkpoints between Start and Resume.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"waypoint/internal/config"
	"waypoint/internal/email"
	"waypoint/internal/llm"
)

// ErrNotFound is returned when no checkpoint exists for a session id.
var ErrNotFound = errors.New("session not found")

// NewID returns a time-ordered session id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// State is where a session sits in the agent state machine.
type State string

const (
	StateAwaitingModel State = "awaiting_model"
	StateDispatchTools State = "dispatch_tools"
	// StateAwaitingEmail is the interrupt checkpoint before the email step.
	StateAwaitingEmail State = "awaiting_email"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Checkpoint is the full persisted state of one session.
// The system prompt is kept alongside the messages but never inside them.
type Checkpoint struct {
	SessionID    string             `json:"session_id"`
	Domain       string             `json:"domain"`
	State        State              `json:"state"`
	Config       config.AgentConfig `json:"config"`
	SystemPrompt string             `json:"system_prompt"`
	Messages     []llm.Message      `json:"messages"`
	Result       string             `json:"result,omitempty"`
	Turns        int                `json:"turns"`
	ToolCalls    int                `json:"tool_calls"`
	Error        string             `json:"error,omitempty"`
	Email        *email.Receipt     `json:"email,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Paused reports whether the session waits at the interrupt checkpoint.
func (c *Checkpoint) Paused() bool {
	return c.State == StateAwaitingEmail
}

// Clone returns a deep copy so callers never share message slices with a store.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	out.Config = c.Config.Clone()
	out.Messages = llm.CloneMessages(c.Messages)
	if c.Email != nil {
		r := *c.Email
		out.Email = &r
	}
	return &out
}

// Store persists checkpoints keyed by session id.
type Store interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Load(ctx context.Context, sessionID string) (*Checkpoint, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

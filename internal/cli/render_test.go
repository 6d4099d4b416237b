package cli

import (
	"bytes"
	"strings"
	"testing"

	"waypoint/internal/agent"
	"waypoint/internal/email"
	"waypoint/internal/session"
	"waypoint/internal/watch"
)

func newTestRenderer(color bool) (*Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetColorMode(color)
	return NewRenderer(w), &buf
}

func TestRenderer_TurnPlain(t *testing.T) {
	r, buf := newTestRenderer(false)
	r.Turn(&agent.Turn{SessionID: "s1", State: session.StateAwaitingEmail, Paused: true, Result: "# Flights\nAF 1234"})

	out := buf.String()
	for _, want := range []string{"# Flights\n", "AF 1234\n", "session s1: awaiting_email, 0 tool calls", "paused before the email step"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("color codes written with color disabled")
	}
}

func TestRenderer_MarkdownColors(t *testing.T) {
	r, buf := newTestRenderer(true)
	r.Markdown("# Title\n```\ncode\n```\ntext")

	out := buf.String()
	if !strings.Contains(out, ColorBold+"# Title"+ColorReset) {
		t.Errorf("heading not bold: %q", out)
	}
	if !strings.Contains(out, ColorCyan+"code"+ColorReset) {
		t.Errorf("code not cyan: %q", out)
	}
	if !strings.Contains(out, "\ntext\n") {
		t.Errorf("plain line altered: %q", out)
	}
}

func TestRenderer_ReceiptAndOutcome(t *testing.T) {
	r, buf := newTestRenderer(false)
	r.Outcome(&watch.Outcome{
		Watch:     "lisbon",
		SessionID: "w1",
		State:     session.StateDone,
		Result:    "3 hotels",
		Receipt:   &email.Receipt{Delivered: true, To: "me@example.com", StatusCode: 202},
	})
	r.Receipt(&email.Receipt{Error: "unauthorized"})
	r.Receipt(nil)

	out := buf.String()
	for _, want := range []string{"== lisbon (w1, done)", "3 hotels", "email sent to me@example.com (status 202)", "email not sent: unauthorized"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

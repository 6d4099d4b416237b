// Package cli renders agent output on a terminal.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"waypoint/internal/agent"
	"waypoint/internal/email"
	"waypoint/internal/watch"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
	ColorBold   = "\033[1m"
)

// Writer writes plain or colored text.
type Writer struct {
	w         io.Writer
	colorMode bool
}

func NewWriter(w io.Writer) *Writer {
	if w == nil {
		w = os.Stdout
	}
	return &Writer{w: w, colorMode: true}
}

func (w *Writer) SetColorMode(enabled bool) {
	w.colorMode = enabled
}

func (w *Writer) Line(content string) {
	fmt.Fprintln(w.w, content)
}

func (w *Writer) Colored(content, color string) {
	if w.colorMode {
		fmt.Fprintf(w.w, "%s%s%s\n", color, content, ColorReset)
	} else {
		fmt.Fprintln(w.w, content)
	}
}

// Renderer prints agent results. Markdown headings are bolded and fenced
// blocks are shown in cyan.
type Renderer struct {
	out *Writer
}

func NewRenderer(out *Writer) *Renderer {
	return &Renderer{out: out}
}

// Markdown prints text line by line.
func (r *Renderer) Markdown(text string) {
	inCode := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "```"):
			inCode = !inCode
			r.out.Colored(line, ColorGray)
		case inCode:
			r.out.Colored(line, ColorCyan)
		case strings.HasPrefix(trimmed, "#"):
			r.out.Colored(line, ColorBold)
		default:
			r.out.Line(line)
		}
	}
}

func (r *Renderer) Turn(turn *agent.Turn) {
	r.Markdown(turn.Result)
	r.out.Line("")
	r.out.Colored(fmt.Sprintf("session %s: %s, %d tool calls", turn.SessionID, turn.State, len(turn.ToolCalls)), ColorGray)
	if turn.Paused {
		r.out.Colored("paused before the email step", ColorYellow)
	}
}

func (r *Renderer) Receipt(receipt *email.Receipt) {
	switch {
	case receipt == nil:
	case receipt.Delivered:
		r.out.Colored(fmt.Sprintf("✓ email sent to %s (status %d)", receipt.To, receipt.StatusCode), ColorGreen)
	default:
		r.out.Colored("✗ email not sent: "+receipt.Error, ColorRed)
	}
}

func (r *Renderer) Outcome(out *watch.Outcome) {
	r.out.Colored(fmt.Sprintf("== %s (%s, %s)", out.Watch, out.SessionID, out.State), ColorBold)
	r.Markdown(out.Result)
	r.Receipt(out.Receipt)
}

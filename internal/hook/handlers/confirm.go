package handlers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"waypoint/internal/hook"
)

// prompter reads a y/N answer from a terminal-like reader.
type prompter struct {
	reader *bufio.Reader
	writer io.Writer
}

func newPrompter(r io.Reader, w io.Writer) prompter {
	return prompter{reader: bufio.NewReader(r), writer: w}
}

func (p prompter) confirm() (bool, error) {
	fmt.Fprintf(p.writer, "Allow? [y/N]: ")

	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}

	switch strings.TrimSpace(strings.ToLower(line)) {
	case "y", "yes":
		fmt.Fprintf(p.writer, "\033[32m✓ Allowed\033[0m\n\n")
		return true, nil
	default:
		fmt.Fprintf(p.writer, "\033[31m✗ Denied\033[0m\n\n")
		return false, nil
	}
}

// EmailConfirmHandler asks for consent before the summary email is sent.
type EmailConfirmHandler struct {
	prompt prompter
}

// NewEmailConfirmHandler creates a handler bound to stdin/stdout.
func NewEmailConfirmHandler() *EmailConfirmHandler {
	return NewEmailConfirmHandlerWithIO(os.Stdin, os.Stdout)
}

// NewEmailConfirmHandlerWithIO creates a handler with custom IO (for testing)
func NewEmailConfirmHandlerWithIO(reader io.Reader, writer io.Writer) *EmailConfirmHandler {
	return &EmailConfirmHandler{prompt: newPrompter(reader, writer)}
}

func (h *EmailConfirmHandler) Name() string {
	return "email_confirm"
}

func (h *EmailConfirmHandler) Points() []hook.HookPoint {
	return []hook.HookPoint{hook.BeforeEmailSend}
}

func (h *EmailConfirmHandler) Priority() int {
	return 100
}

func (h *EmailConfirmHandler) Handle(ctx context.Context, data *hook.HookData) (*hook.Feedback, error) {
	w := h.prompt.writer
	fmt.Fprintf(w, "\n\033[33m📧 Send the travel summary by email?\033[0m\n")
	fmt.Fprintf(w, "    From:    %s\n", data.GetString("from"))
	fmt.Fprintf(w, "    To:      %s\n", data.GetString("to"))
	fmt.Fprintf(w, "    Subject: %s\n\n", data.GetString("subject"))

	ok, err := h.prompt.confirm()
	if err != nil {
		return nil, err
	}
	if !ok {
		return hook.DenyFeedback("User declined the email"), nil
	}
	return hook.AllowFeedback(), nil
}

// ToolConfirmHandler prompts user for confirmation before executing a tool
type ToolConfirmHandler struct {
	prompt    prompter
	toolNames map[string]bool // Only confirm these tools (empty = all)
}

// NewToolConfirmHandler creates a new tool confirmation handler
func NewToolConfirmHandler(tools ...string) *ToolConfirmHandler {
	return NewToolConfirmHandlerWithIO(os.Stdin, os.Stdout, tools...)
}

// NewToolConfirmHandlerWithIO creates a handler with custom IO (for testing)
func NewToolConfirmHandlerWithIO(reader io.Reader, writer io.Writer, tools ...string) *ToolConfirmHandler {
	toolNames := make(map[string]bool)
	for _, t := range tools {
		toolNames[t] = true
	}
	return &ToolConfirmHandler{
		prompt:    newPrompter(reader, writer),
		toolNames: toolNames,
	}
}

func (h *ToolConfirmHandler) Name() string {
	return "tool_confirm"
}

func (h *ToolConfirmHandler) Points() []hook.HookPoint {
	return []hook.HookPoint{hook.BeforeToolExecution}
}

func (h *ToolConfirmHandler) Priority() int {
	return 100
}

func (h *ToolConfirmHandler) Handle(ctx context.Context, data *hook.HookData) (*hook.Feedback, error) {
	if len(h.toolNames) > 0 && !h.toolNames[data.ToolName] {
		return hook.AllowFeedback(), nil
	}

	w := h.prompt.writer
	fmt.Fprintf(w, "\n\033[33m⚠️  Tool '%s' requires confirmation:\033[0m\n", data.ToolName)
	if params := data.GetString("params"); params != "" {
		fmt.Fprintf(w, "    Parameters: %s\n", params)
	}
	fmt.Fprintln(w)

	ok, err := h.prompt.confirm()
	if err != nil {
		return nil, err
	}
	if !ok {
		return hook.DenyFeedback("User denied tool execution"), nil
	}
	return hook.AllowFeedback(), nil
}

package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the log level
type Level int

const (
	LevelDebug Level = iota // Debug information (only shown with --verbose)
	LevelInfo               // Important steps
	LevelTool               // Tool call related
	LevelAgent              // Agent response
	LevelError              // Error messages
)

// ParseLevel maps a config string to a Level. Unknown names fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "tool":
		return LevelTool
	case "agent":
		return LevelAgent
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ANSI color codes for terminal output
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorGray    = "\033[90m"
	ColorBold    = "\033[1m"
)

// Logger writes leveled, optionally colored output for agent sessions.
// Loggers derived with WithSession share the writer and its lock.
type Logger struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     Level
	showTime  bool
	colorMode bool
	session   string
}

// NewLogger creates a new Logger instance
func NewLogger(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{
		mu:        &sync.Mutex{},
		writer:    w,
		level:     level,
		showTime:  true,
		colorMode: true,
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	l := NewLogger(io.Discard, LevelError)
	l.colorMode = false
	return l
}

// WithSession returns a child logger that prefixes every line with a short session id.
func (l *Logger) WithSession(id string) *Logger {
	child := *l
	if len(id) > 8 {
		id = id[:8]
	}
	child.session = id
	return &child
}

// SetColorMode enables or disables colored output
func (l *Logger) SetColorMode(enabled bool) {
	l.colorMode = enabled
}

// SetShowTime enables or disables timestamp display
func (l *Logger) SetShowTime(enabled bool) {
	l.showTime = enabled
}

// Debug logs debug information (only shown in verbose mode)
func (l *Logger) Debug(format string, args ...any) {
	if l.level <= LevelDebug {
		l.log(ColorGray, "DEBUG", format, args...)
	}
}

// Info logs general information
func (l *Logger) Info(format string, args ...any) {
	if l.level <= LevelInfo {
		l.log(ColorBlue, "INFO", format, args...)
	}
}

// Warn logs recoverable conditions such as empty search results or a failed send.
func (l *Logger) Warn(format string, args ...any) {
	if l.level <= LevelAgent {
		l.log(ColorYellow, "WARN", format, args...)
	}
}

// Error logs error messages
func (l *Logger) Error(format string, args ...any) {
	l.log(ColorRed, "ERROR", format, args...)
}

// AgentResponse logs the model's final answer.
func (l *Logger) AgentResponse(content string) {
	if l.level <= LevelAgent {
		l.printSection(ColorGreen, "💬 Agent Response", content)
	}
}

// ToolCall logs a tool call with its parameters
func (l *Logger) ToolCall(toolName string, params string) {
	if l.level <= LevelTool {
		l.printSection(ColorCyan, fmt.Sprintf("🔧 Tool Call: %s", toolName), formatJSON(params))
	}
}

// ToolResult logs a tool execution result. Display is truncated; the transcript is not.
func (l *Logger) ToolResult(toolName string, success bool, output string, duration time.Duration) {
	if l.level > LevelTool {
		return
	}

	status := "✅ Success"
	color := ColorGreen
	if !success {
		status = "❌ Failed"
		color = ColorRed
	}

	header := fmt.Sprintf("📊 Tool Result: %s [%s] (%s)", toolName, status, duration.Round(time.Millisecond))
	l.printSection(color, header, truncate(output, 2, 500))
}

// SessionStart logs the beginning of an agent turn.
func (l *Logger) SessionStart(domain, request string) {
	l.printBanner(ColorCyan, fmt.Sprintf("🚀 %s search started", domain), request)
}

// SessionEnd logs the completion of an agent turn with statistics.
func (l *Logger) SessionEnd(state string, duration time.Duration, turns, toolCallCount int) {
	summary := fmt.Sprintf("State: %s | Duration: %s | Model calls: %d | Tool Calls: %d",
		state, duration.Round(time.Millisecond), turns, toolCallCount)
	l.printBanner(ColorGreen, "✨ Turn Completed", summary)
}

// EmailResult logs the outcome of an email delivery.
func (l *Logger) EmailResult(to string, statusCode int, err error) {
	if err != nil {
		l.Error("Email to %s failed: %v", to, err)
		return
	}
	l.Info("📧 Email sent to %s (status %d)", to, statusCode)
}

// truncate limits s to maxLines lines and maxLength bytes.
func truncate(s string, maxLines, maxLength int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	out := s
	truncatedLines := false

	if len(lines) > maxLines {
		out = strings.Join(lines[:maxLines], "\n")
		truncatedLines = true
	}

	if len(out) > maxLength {
		out = out[:maxLength] + "..."
	} else if truncatedLines {
		out += "\n..."
	}
	return out
}

func (l *Logger) prefix() string {
	if l.session == "" {
		return ""
	}
	return "(" + l.session + ") "
}

func (l *Logger) log(color, level, format string, args ...any) {
	timestamp := ""
	if l.showTime {
		timestamp = time.Now().Format("15:04:05") + " "
	}

	msg := l.prefix() + fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.colorMode {
		fmt.Fprintf(l.writer, "%s%s[%s]%s %s\n", color, timestamp, level, ColorReset, msg)
	} else {
		fmt.Fprintf(l.writer, "%s[%s] %s\n", timestamp, level, msg)
	}
}

func (l *Logger) printSection(color, header, content string) {
	separator := strings.Repeat("─", 60)
	header = l.prefix() + header

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.colorMode {
		fmt.Fprintf(l.writer, "\n%s%s%s%s\n", ColorBold, color, header, ColorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", color, separator, ColorReset)
		fmt.Fprintf(l.writer, "%s\n", content)
		fmt.Fprintf(l.writer, "%s%s%s\n\n", color, separator, ColorReset)
	} else {
		fmt.Fprintf(l.writer, "\n%s\n%s\n%s\n%s\n\n", header, separator, content, separator)
	}
}

func (l *Logger) printBanner(color, title, subtitle string) {
	separator := strings.Repeat("═", 70)
	title = l.prefix() + title

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.colorMode {
		fmt.Fprintf(l.writer, "\n%s%s%s%s\n", ColorBold, color, separator, ColorReset)
		fmt.Fprintf(l.writer, "%s%s  %s%s\n", ColorBold, color, title, ColorReset)
		if subtitle != "" {
			fmt.Fprintf(l.writer, "%s  %s%s\n", color, subtitle, ColorReset)
		}
		fmt.Fprintf(l.writer, "%s%s%s%s\n\n", ColorBold, color, separator, ColorReset)
	} else {
		fmt.Fprintf(l.writer, "\n%s\n  %s\n", separator, title)
		if subtitle != "" {
			fmt.Fprintf(l.writer, "  %s\n", subtitle)
		}
		fmt.Fprintf(l.writer, "%s\n\n", separator)
	}
}

// formatJSON keeps short payloads compact and pretty-prints long ones.
func formatJSON(jsonStr string) string {
	compact := strings.TrimSpace(jsonStr)
	if len(compact) < 80 {
		return compact
	}

	var obj any
	if err := json.Unmarshal([]byte(compact), &obj); err != nil {
		return compact
	}

	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return compact
	}
	return string(pretty)
}

package output

import (
	"fmt"
	"io"
	"os"
)

// Level classifies a user-facing notice.
type Level string

// Notice levels, matching the toast variants of the web page.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warning"
	LevelError   Level = "error"
)

func (l Level) prefix() string {
	switch l {
	case LevelSuccess:
		return "✅ "
	case LevelWarn:
		return "⚠️  "
	case LevelError:
		return "❌ "
	default:
		return "ℹ️  "
	}
}

// Notice writes a titled message with the level's prefix.
func Notice(w io.Writer, level Level, title, msg string) {
	if msg == "" {
		_, _ = fmt.Fprintln(w, level.prefix()+title)
		return
	}
	_, _ = fmt.Fprintf(w, "%s%s: %s\n", level.prefix(), title, msg)
}

// Info prints an informational message to stdout.
func Info(msg string) {
	Notice(os.Stdout, LevelInfo, msg, "")
}

// Infof prints a formatted informational message to stdout.
func Infof(format string, args ...any) {
	Info(fmt.Sprintf(format, args...))
}

// Warn prints a warning message to stderr.
func Warn(msg string) {
	Notice(os.Stderr, LevelWarn, msg, "")
}

// Warnf prints a formatted warning message to stderr.
func Warnf(format string, args ...any) {
	Warn(fmt.Sprintf(format, args...))
}

// Success prints a success message to stdout.
func Success(msg string) {
	Notice(os.Stdout, LevelSuccess, msg, "")
}

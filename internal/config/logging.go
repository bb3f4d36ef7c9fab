package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel is the verbosity of the file log.
type LogLevel int

// Log levels, least verbose first.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

const logTimeLayout = "2006-01-02 15:04:05.000"

// ParseLogLevel reads a level name. Unknown names mean error.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the level name.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

// logSink is the destination shared by a logger and its component children.
type logSink struct {
	mu    sync.Mutex
	level LogLevel
	out   io.WriteCloser
	path  string
	now   func() time.Time
}

// Logger appends timestamped lines to the log file. Loggers derived with
// With share the file and the level, and tag each line with a component.
type Logger struct {
	sink      *logSink
	component string
}

// NewLogger opens (or creates) the log file at filePath. With level off or
// an empty path nothing is opened and every call is a no-op.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	s := &logSink{level: level, path: filePath, now: time.Now}
	if level == LogLevelOff || filePath == "" {
		return &Logger{sink: s}, nil
	}

	s.path = ExpandHome(filePath)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	s.out = f
	return &Logger{sink: s}, nil
}

// NewWriterLogger logs to w. Close leaves w open.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	return &Logger{sink: &logSink{level: level, out: nopCloser{w}, now: time.Now}}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// NullLogger discards everything.
func NullLogger() *Logger {
	return &Logger{sink: &logSink{level: LogLevelOff, now: time.Now}}
}

// With returns a logger that prefixes lines with component. Nested
// components are joined with a dot.
func (l *Logger) With(component string) *Logger {
	if l.component != "" {
		component = l.component + "." + component
	}
	return &Logger{sink: l.sink, component: component}
}

// Path returns the log file path, empty when logging to a writer or off.
func (l *Logger) Path() string {
	return l.sink.path
}

// Close closes the log file. It affects every logger sharing it.
func (l *Logger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.out == nil {
		return nil
	}
	err := l.sink.out.Close()
	l.sink.out = nil
	return err
}

// SetLevel changes the level for every logger sharing the file.
func (l *Logger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	l.sink.level = level
	l.sink.mu.Unlock()
}

// Level returns the current level.
func (l *Logger) Level() LogLevel {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

// Enabled reports whether a message at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.enabledLocked(level)
}

func (l *Logger) enabledLocked(level LogLevel) bool {
	return l.sink.out != nil && level != LogLevelOff && level <= l.sink.level
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Error logs at error level.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if !l.enabledLocked(level) {
		return
	}

	// One record per line, even for multi-line RPC error bodies.
	msg := strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", `\n`)

	var b strings.Builder
	b.WriteString(l.sink.now().Format(logTimeLayout))
	b.WriteString(" [")
	b.WriteString(strings.ToUpper(level.String()))
	b.WriteString("] ")
	if l.component != "" {
		b.WriteString(l.component)
		b.WriteString(": ")
	}
	b.WriteString(msg)
	b.WriteByte('\n')

	_, _ = io.WriteString(l.sink.out, b.String())
}

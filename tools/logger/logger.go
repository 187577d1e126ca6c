package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents logging severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name ("debug", "info", "warn", "error") to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger provides levelled, prefixed logging for the quiz
type Logger struct {
	mu       *sync.Mutex
	out      io.Writer
	minLevel Level
	prefix   string
	now      func() time.Time
}

// New creates a new logger
func New(out io.Writer, minLevel Level, prefix string) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		mu:       &sync.Mutex{},
		out:      out,
		minLevel: minLevel,
		prefix:   prefix,
		now:      time.Now,
	}
}

// Default returns a default logger to stdout
func Default() *Logger {
	return New(os.Stdout, LevelInfo, "")
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelError+1, "")
}

// WithPrefix creates a sub-logger with an additional prefix.
// Sub-loggers share the parent's writer lock.
func (l *Logger) WithPrefix(prefix string) *Logger {
	newPrefix := prefix
	if l.prefix != "" {
		newPrefix = l.prefix + "/" + prefix
	}
	return &Logger{
		mu:       l.mu,
		out:      l.out,
		minLevel: l.minLevel,
		prefix:   newPrefix,
		now:      l.now,
	}
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.minLevel
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.minLevel {
		return
	}
	l.write(level, l.prefix, fmt.Sprintf(format, args...))
}

func (l *Logger) write(level Level, prefix, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := l.now().Format("15:04:05.000")
	if prefix != "" {
		prefix = fmt.Sprintf("[%s] ", prefix)
	}
	fmt.Fprintf(l.out, "%s %s %s%s\n", timestamp, level.String(), prefix, msg)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...any) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Step logs a named step with timing
func (l *Logger) Step(name string) func() {
	start := l.now()
	l.Info("▶ Starting: %s", name)
	return func() {
		l.Info("✓ Completed: %s (took %v)", name, l.now().Sub(start).Round(time.Millisecond))
	}
}

// Tokens logs token usage
func (l *Logger) Tokens(input, output int) {
	l.Info("📊 Tokens - Input: %d, Output: %d, Total: %d", input, output, input+output)
}

// Stage logs the reveal state of a character
func (l *Logger) Stage(character string, stage, remaining int) {
	l.Info("✎ Character [%s]: stage %d, %d component(s) visible", character, stage, remaining)
}

// Request logs one served HTTP request
func (l *Logger) Request(method, path string, status int, took time.Duration) {
	level := LevelInfo
	if status >= 500 {
		level = LevelError
	}
	l.log(level, "%s %s → %d (%v)", method, path, status, took.Round(time.Microsecond))
}

// Export logs a written snapshot
func (l *Logger) Export(path string, size int) {
	l.Info("🖼 Snapshot written: %s (%d bytes)", path, size)
}

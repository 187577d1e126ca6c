package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixedLogger(buf *bytes.Buffer, level Level) *Logger {
	l := New(buf, level, "quiz")
	l.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return l
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LevelWarn)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)
	l.Error("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-threshold message written: %q", out)
	}
	if got := strings.Count(out, "shown"); got != 2 {
		t.Errorf("got %d messages, want 2: %q", got, out)
	}
	if !strings.Contains(out, "12:00:00.000 WARN [quiz] shown 3") {
		t.Errorf("unexpected format: %q", out)
	}
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LevelInfo).WithPrefix("canvas")
	l.Info("ready")

	if !strings.Contains(buf.String(), "[quiz/canvas] ready") {
		t.Errorf("prefix not nested: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSlogBridge(t *testing.T) {
	var buf bytes.Buffer
	s := fixedLogger(&buf, LevelInfo).Slog()

	s.Debug("dropped")
	s.WithGroup("gpu").Warn("fallback", "reason", "headless")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("debug record passed an info logger: %q", out)
	}
	if !strings.Contains(out, "WARN [quiz] fallback gpu.reason=headless") {
		t.Errorf("unexpected slog output: %q", out)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	if l.Enabled(LevelError) {
		t.Error("discard logger reports errors as enabled")
	}
}

package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Handler adapts a Logger to slog.Handler so libraries that log through
// *slog.Logger (the gg renderer, for one) end up in the same output.
type Handler struct {
	l      *Logger
	attrs  []slog.Attr
	groups []string
}

// Handler returns an slog.Handler writing through l.
func (l *Logger) Handler() *Handler {
	return &Handler{l: l}
}

// Slog returns an *slog.Logger writing through l.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(l.Handler())
}

func fromSlog(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return h.l.Enabled(fromSlog(level))
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)

	prefix := strings.Join(h.groups, ".")
	writeAttr := func(a slog.Attr) {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			return
		}
		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		fmt.Fprintf(&b, " %s=%v", key, a.Value.Any())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})

	h.l.write(fromSlog(r.Level), h.l.prefix, b.String())
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

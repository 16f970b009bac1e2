// Package testutil provides logging helpers for tests.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(newTextHandler(t))
}

// NewRecordingLogger returns a logger writing to t.Log() and a recorder
// holding every record it handled.
func NewRecordingLogger(t testing.TB) (*slog.Logger, *LogRecorder) {
	t.Helper()
	rec := &LogRecorder{
		Handler: newTextHandler(t),
		state:   &recorderState{},
	}
	return slog.New(rec), rec
}

// LogEntry is a handled record reduced to what tests assert on.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogRecorder is a slog.Handler that keeps handled records.
type LogRecorder struct {
	slog.Handler
	attrs []slog.Attr
	state *recorderState
}

type recorderState struct {
	mu      sync.Mutex
	entries []LogEntry
}

// Handle records r and passes it on to the wrapped handler.
func (h *LogRecorder) Handle(ctx context.Context, r slog.Record) error {
	entry := LogEntry{Level: r.Level, Message: r.Message, Attrs: map[string]string{}}
	for _, a := range h.attrs {
		entry.Attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attrs[a.Key] = a.Value.String()
		return true
	})

	h.state.mu.Lock()
	h.state.entries = append(h.state.entries, entry)
	h.state.mu.Unlock()

	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogRecorder{
		Handler: h.Handler.WithAttrs(attrs),
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
		state:   h.state,
	}
}

// WithGroup implements slog.Handler. Group names are not recorded.
func (h *LogRecorder) WithGroup(name string) slog.Handler {
	return &LogRecorder{
		Handler: h.Handler.WithGroup(name),
		attrs:   h.attrs,
		state:   h.state,
	}
}

// Entries returns the records at or above level.
func (h *LogRecorder) Entries(level slog.Level) []LogEntry {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()

	var out []LogEntry
	for _, e := range h.state.entries {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether a record at or above level has a message
// containing substr.
func (h *LogRecorder) Contains(level slog.Level, substr string) bool {
	for _, e := range h.Entries(level) {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func newTextHandler(t testing.TB) slog.Handler {
	return slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

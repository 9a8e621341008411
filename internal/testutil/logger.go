// Package testutil provides loggers and parameter fixtures shared by package tests.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"
)

// NewTestLogger returns a debug-level logger that writes through t.Log, so
// model and store logs only show for failing tests or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	logger, _ := NewRecordingLogger(t)
	return logger
}

// LogEntry is one record kept by a LogRecorder, with attributes flattened
// to strings keyed by their group-qualified name.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogRecorder collects the records of a logger from NewRecordingLogger.
type LogRecorder struct {
	mu      sync.Mutex
	entries []LogEntry
}

// Entries returns the records logged so far at level or above.
func (r *LogRecorder) Entries(level slog.Level) []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LogEntry
	for _, e := range r.entries {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the first record with message msg.
func (r *LogRecorder) Find(msg string) (LogEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.entries, func(e LogEntry) bool { return e.Message == msg })
	if i < 0 {
		return LogEntry{}, false
	}
	return r.entries[i], true
}

// NewRecordingLogger returns a logger like NewTestLogger together with a
// recorder of everything it logged.
func NewRecordingLogger(t testing.TB) (*slog.Logger, *LogRecorder) {
	t.Helper()
	rec := &LogRecorder{}
	return slog.New(&recordingHandler{t: t, rec: rec}), rec
}

type recordingHandler struct {
	t     testing.TB
	rec   *LogRecorder
	attrs []slog.Attr
	group string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{Level: r.Level, Message: r.Message, Attrs: map[string]string{}}
	for _, a := range h.attrs {
		addAttr(entry.Attrs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(entry.Attrs, h.group, a)
		return true
	})

	h.rec.mu.Lock()
	h.rec.entries = append(h.rec.entries, entry)
	h.rec.mu.Unlock()

	var line bytes.Buffer
	text := slog.NewTextHandler(&line, &slog.HandlerOptions{Level: slog.LevelDebug})
	var handler slog.Handler = text.WithAttrs(h.attrs)
	if h.group != "" {
		handler = handler.WithGroup(h.group)
	}
	if err := handler.Handle(context.Background(), r); err != nil {
		return err
	}
	h.t.Log(line.String())
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		if h.group != "" {
			a = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *recordingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	next.group = name
	return &next
}

func addAttr(dst map[string]string, prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(dst, key, ga)
		}
		return
	}
	dst[key] = a.Value.Resolve().String()
}

// Package slogutil is the analyzer's logging layer: a line-oriented
// slog handler, a gzip-compressing rotating file writer, and a
// factory handing out one logger per pipeline subsystem. The build
// never aborts on a single artifact's failure, so diagnostics
// accumulate here instead: everything flows to the subsystem's log
// file, and warnings and errors are echoed to stderr.
package slogutil

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// NewLogger wraps w in the line handler at the given level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(w, level))
}

// NewDiscardLogger returns a logger that drops everything, for tests
// and for callers that could not open a log destination.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LevelFromString maps "debug", "info", "warn"/"warning" or "error"
// (any case) to its slog.Level. Anything else is info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// multiHandler fans each record out to every member handler enabled
// for its level. The factory uses it to pair a subsystem's rotating
// file with the stderr echo.
type multiHandler []slog.Handler

// Fanout combines handlers into one.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return multiHandler(handlers)
}

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}

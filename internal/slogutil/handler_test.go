package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func record(level slog.Level, msg string, attrs ...slog.Attr) slog.Record {
	r := slog.NewRecord(time.Date(2026, 8, 2, 9, 15, 4, 0, time.UTC), level, msg, 0)
	r.AddAttrs(attrs...)
	return r
}

func TestHandlerLineFormat(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, slog.LevelInfo)

	err := h.Handle(context.Background(), record(slog.LevelWarn, "parse failed",
		slog.String("path", "/etc/systemd/system/foo.service")))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := "2026-08-02T09:15:04Z WARN parse failed path=/etc/systemd/system/foo.service\n"
	if buf.String() != want {
		t.Errorf("line = %q, want %q", buf.String(), want)
	}
}

func TestHandlerQuotesSpacedValues(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, slog.LevelInfo)

	h.Handle(context.Background(), record(slog.LevelInfo, "note",
		slog.String("detail", "two words")))

	if !strings.Contains(buf.String(), `detail="two words"`) {
		t.Errorf("line = %q, want quoted value", buf.String())
	}
}

func TestHandlerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record leaked through warn-level handler: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = NewHandler(&buf, slog.LevelInfo)
	h = h.WithAttrs([]slog.Attr{slog.String("subsystem", "build")})
	h = h.WithGroup("walk")

	h.Handle(context.Background(), record(slog.LevelInfo, "entry",
		slog.String("path", "/etc/systemd/system")))

	out := buf.String()
	if !strings.Contains(out, "subsystem=build") {
		t.Errorf("preset attr missing: %q", out)
	}
	if !strings.Contains(out, "walk.path=/etc/systemd/system") {
		t.Errorf("group prefix missing: %q", out)
	}
}

func TestHandlerGroupAttr(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, slog.LevelInfo)

	h.Handle(context.Background(), record(slog.LevelInfo, "entry",
		slog.Group("tool", slog.String("name", "readelf"))))

	if !strings.Contains(buf.String(), "tool.name=readelf") {
		t.Errorf("inline group not flattened: %q", buf.String())
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.input); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFanoutRoutesByLevel(t *testing.T) {
	var verbose, quiet bytes.Buffer
	logger := slog.New(Fanout(
		NewHandler(&verbose, slog.LevelDebug),
		NewHandler(&quiet, slog.LevelWarn),
	))

	logger.Info("info line")
	logger.Warn("warn line")

	if !strings.Contains(verbose.String(), "info line") || !strings.Contains(verbose.String(), "warn line") {
		t.Errorf("verbose sink missing records: %q", verbose.String())
	}
	if strings.Contains(quiet.String(), "info line") {
		t.Errorf("quiet sink received info record: %q", quiet.String())
	}
	if !strings.Contains(quiet.String(), "warn line") {
		t.Errorf("quiet sink missing warn record: %q", quiet.String())
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	logger.Error("nothing should happen")
}

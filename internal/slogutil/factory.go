package slogutil

import (
	"io"
	"log/slog"
	"os"

	"sysdsnap/internal/config"
)

// LoggerFactory hands out one logger per pipeline subsystem ("build",
// "closure", "diff", "graph"). Each logger fans out to two sinks: the
// full record stream goes to a gzip-rotated file under the cache
// home, and records at warn or above are echoed to stderr, so a run's
// accumulated diagnostics surface without digging for the log file.
// Level precedence: CLI flag > config file/env > info.
type LoggerFactory struct {
	cfg      *config.Config
	cliLevel slog.Level // 0 means "not set"
	closers  []io.Closer
}

// NewLoggerFactory creates a factory. cliLevel should be 0 if no CLI
// override was given.
func NewLoggerFactory(cfg *config.Config, cliLevel slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.Default()
	}
	return &LoggerFactory{cfg: cfg, cliLevel: cliLevel}
}

// SubsystemLogger builds the logger for the named subsystem. If the
// log destination cannot be opened, the file sink is dropped and the
// stderr echo alone remains.
func (f *LoggerFactory) SubsystemLogger(subsystem string) (*slog.Logger, error) {
	level := f.effectiveLevel()

	stderrLevel := slog.LevelWarn
	if level > stderrLevel {
		stderrLevel = level
	}
	stderr := NewHandler(os.Stderr, stderrLevel)

	logPath, err := config.LogPath(subsystem)
	if err != nil {
		return slog.New(stderr), nil
	}
	rw, err := NewRotatingWriter(logPath, ParseSize(f.cfg.Logging.MaxSize), f.cfg.Logging.MaxBackups)
	if err != nil {
		return slog.New(stderr), nil
	}
	f.closers = append(f.closers, rw)

	return slog.New(Fanout(NewHandler(rw, level), stderr)), nil
}

// BuildLogger is the logger for the master-structure builder and its
// collaborators (parser, resolver, inspector, fstab emulator).
func (f *LoggerFactory) BuildLogger() (*slog.Logger, error) { return f.SubsystemLogger("build") }

// ClosureLogger is the logger for the closure engine.
func (f *LoggerFactory) ClosureLogger() (*slog.Logger, error) { return f.SubsystemLogger("closure") }

// DiffLogger is the logger for the differ.
func (f *LoggerFactory) DiffLogger() (*slog.Logger, error) { return f.SubsystemLogger("diff") }

// GraphLogger is the logger for the graph assembler.
func (f *LoggerFactory) GraphLogger() (*slog.Logger, error) { return f.SubsystemLogger("graph") }

func (f *LoggerFactory) effectiveLevel() slog.Level {
	if f.cliLevel != 0 {
		return f.cliLevel
	}
	if f.cfg.Logging.Level != "" {
		return LevelFromString(f.cfg.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes every log file the factory opened.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}

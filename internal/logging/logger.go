package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"flashbulb/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	handler, _, err := newHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

func newHandler(opts Options) (slog.Handler, []io.Closer, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	writer, closers, err := openWriters(paths)
	if err != nil {
		return nil, nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		return newConsoleHandler(writer, levelVar, addSource), closers, nil
	case "json":
		return newJSONHandler(writer, levelVar, addSource), closers, nil
	default:
		closeAll(closers)
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// RunLogger is a logger bound to one build run. Console output goes to
// stdout in the configured format; a JSON copy is written to a per-run file.
type RunLogger struct {
	*slog.Logger
	// Path is the per-run log file, empty when no log directory is configured.
	Path    string
	closers []io.Closer
}

// Close flushes and closes the per-run log file.
func (r *RunLogger) Close() error {
	if r == nil {
		return nil
	}
	return closeAll(r.closers)
}

// NewForRun creates the logger for a single build run identified by runID.
func NewForRun(cfg *config.Config, runID string) (*RunLogger, error) {
	if cfg == nil {
		logger, err := New(Options{Level: "info", Format: "console"})
		if err != nil {
			return nil, err
		}
		return &RunLogger{Logger: logger}, nil
	}

	console, _, err := newHandler(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}

	logDir := strings.TrimSpace(cfg.Paths.LogDir)
	if logDir == "" || strings.TrimSpace(runID) == "" {
		return &RunLogger{Logger: slog.New(console).With(String(FieldRunID, runID))}, nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	logPath := filepath.Join(logDir, RunLogName(runID))
	file, closers, err := newHandler(Options{
		Level:       cfg.Logging.Level,
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		return nil, err
	}

	logger := slog.New(TeeHandler(console, file)).With(String(FieldRunID, runID))
	return &RunLogger{Logger: logger, Path: logPath, closers: closers}, nil
}

// RunLogName returns the per-run log file name for runID.
func RunLogName(runID string) string {
	return "flashbulb-" + runID + ".log"
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func openWriters(paths []string) (io.Writer, []io.Closer, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer
	var closers []io.Closer

	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					closeAll(closers)
					return nil, nil, fmt.Errorf("ensure log directory: %w", err)
				}
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				closeAll(closers)
				return nil, nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
			closers = append(closers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, closers, nil
	case 1:
		return writers[0], closers, nil
	default:
		return io.MultiWriter(writers...), closers, nil
	}
}

func closeAll(closers []io.Closer) error {
	var firstErr error
	for _, c := range closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

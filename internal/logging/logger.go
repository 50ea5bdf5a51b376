// Package logging provides structured logging configuration using log/slog.
//
// Each import run carries a run ID in its context. Loggers obtained through
// FromContext include it, so every entry of a run can be correlated, also
// across rotated log files.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the global logger.
type Options struct {
	Level  string // debug, info, warn, error (default: info)
	Format string // text, json (default: text)

	// Output is console, file or both (default: console). Console output
	// goes to stderr so stdout stays free for the import report.
	Output string

	File       string // Log file path for file output
	MaxSizeMB  int    // Rotate after this many megabytes
	MaxBackups int    // Rotated files to keep
	MaxAgeDays int    // Days to keep rotated files
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup configures the global slog logger. The returned Closer releases the
// log file, if any, and must be closed on exit.
//
// Use "json" format when logs are shipped somewhere for machine parsing.
// Use "text" format for human readability.
func Setup(opts Options) (io.Closer, error) {
	return setup(opts, os.Stderr)
}

func setup(opts Options, console io.Writer) (io.Closer, error) {
	var (
		writers []io.Writer
		closer  io.Closer = nopCloser{}
	)

	output := strings.ToLower(opts.Output)
	if output == "" {
		output = "console"
	}

	if output == "console" || output == "both" {
		writers = append(writers, console)
	}

	if output == "file" || output == "both" {
		if opts.File == "" {
			return nil, fmt.Errorf("log output %q needs a log file", output)
		}
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		fileWriter := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		writers = append(writers, fileWriter)
		closer = fileWriter
	}

	if len(writers) == 0 {
		return nil, fmt.Errorf("unknown log output %q", opts.Output)
	}

	slog.SetDefault(slog.New(newHandler(io.MultiWriter(writers...), opts)))
	return closer, nil
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	handlerOpts := &slog.HandlerOptions{
		Level: parseLevel(opts.Level),
	}
	if strings.ToLower(opts.Format) == "json" {
		return slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.NewTextHandler(w, handlerOpts)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

type runIDKey struct{}

// WithRunID stores the run ID of an import in ctx.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run ID stored in ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// FromContext returns the default logger enriched with the run ID in ctx.
//
// Usage:
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger := logging.FromContext(ctx)
//	logger.Info("import started", "target", name)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if id := RunID(ctx); id != "" {
		logger = logger.With("run_id", id)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// This is useful for creating operation-specific loggers that carry
// consistent context through a multi-step process.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

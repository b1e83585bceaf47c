// Package logging provides structured logging for monitoring runs. It wraps
// log/slog with a JSON handler writing to a run log file so the interactive
// console output (spinner, prompts) stays clean.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Logger writes structured JSON log records for one run.
type Logger struct {
	logger *slog.Logger
	file   *os.File
}

// New creates a Logger writing to {dir}/debug.log. If dir is empty, records
// go to stderr. Debug enables DEBUG-level records; otherwise INFO and above.
func New(dir string, debug bool) (*Logger, error) {
	var writer io.Writer = os.Stderr
	var file *os.File

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		path := filepath.Join(dir, "debug.log")
		var err error
		file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writer = file
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	return &Logger{logger: slog.New(handler), file: file}, nil
}

// NewDiscard returns a Logger that drops all records. Used in tests and as
// the default for components constructed without an explicit logger.
func NewDiscard() *Logger {
	handler := slog.NewJSONHandler(io.Discard, nil)
	return &Logger{logger: slog.New(handler)}
}

// With returns a Logger carrying persistent attributes (component names etc).
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), file: l.file}
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Close releases the underlying log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

package store

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with store-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithName adds a blob name field to the logger.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("name", name),
	}
}

// LogSave logs a save operation.
func (l *Logger) LogSave(ctx context.Context, name string, entries uint32, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"entries", entries,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "save completed",
			"name", name,
			"entries", entries,
			"bytes", size,
		)
	}
}

// LogLoad logs a load operation.
func (l *Logger) LogLoad(ctx context.Context, name string, entries uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "load completed",
			"name", name,
			"entries", entries,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"name", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"name", name,
		)
	}
}

// LogBatch logs a batch save or load.
func (l *Logger) LogBatch(ctx context.Context, op string, count int, err error) {
	if err != nil {
		l.WarnContext(ctx, "batch failed",
			"op", op,
			"count", count,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "batch completed",
			"op", op,
			"count", count,
		)
	}
}

package h5features

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with h5features-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithGroup adds the group name to the logger.
func (l *Logger) WithGroup(group string) *Logger {
	return &Logger{
		Logger: l.Logger.With("group", group),
	}
}

// WithLocation adds the container location to the logger.
func (l *Logger) WithLocation(loc string) *Logger {
	return &Logger{
		Logger: l.Logger.With("location", loc),
	}
}

// WithItem adds an item name to the logger.
func (l *Logger) WithItem(item string) *Logger {
	return &Logger{
		Logger: l.Logger.With("item", item),
	}
}

// LogWrite logs a write of items rows.
func (l *Logger) LogWrite(ctx context.Context, items int, rows int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"items", items,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "write completed",
			"items", items,
			"rows", rows,
		)
	}
}

// LogRead logs a read.
func (l *Logger) LogRead(ctx context.Context, fromItem, toItem string, rows int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "read failed",
			"from_item", fromItem,
			"to_item", toItem,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "read completed",
			"from_item", fromItem,
			"to_item", toItem,
			"rows", rows,
		)
	}
}

// LogCommit logs a committed group generation.
func (l *Logger) LogCommit(ctx context.Context, generation uint64, continued bool) {
	l.InfoContext(ctx, "group committed",
		"generation", generation,
		"continued", continued,
	)
}

package templix

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with templix-specific context.
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPhase adds a phase label field to the logger.
func (l *Logger) WithPhase(label string) *Logger {
	return &Logger{
		Logger: l.Logger.With("phase", label),
	}
}

// WithN adds an n (match count) field to the logger.
func (l *Logger) WithN(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("n", n),
	}
}

// WithTemplates adds a template-count field to the logger.
func (l *Logger) WithTemplates(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("templates", count),
	}
}

// WithPosition adds scan-position fields to the logger.
func (l *Logger) WithPosition(x, y int) *Logger {
	return &Logger{
		Logger: l.Logger.With("x", x, "y", y),
	}
}

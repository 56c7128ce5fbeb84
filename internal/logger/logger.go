// Package logger provides a slog-backed leveled logger with context-aware methods.
package logger

import (
	"context"
	"io"
	"log/slog"
)

// Level controls the minimum level emitted by the logger.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LoggerInterface is the logging surface consumed by the rest of the codebase.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
	With(keysAndValues ...any) LoggerInterface
}

// Logger implements LoggerInterface on top of log/slog.
type Logger struct {
	sl *slog.Logger
}

// New creates a Logger writing to w at the given level. The service name is
// attached to every record; extra static attributes may be passed as
// alternating key/value pairs.
func New(w io.Writer, level Level, service string, attrs []any) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: toSlogLevel(level),
	})

	sl := slog.New(handler)
	if service != "" {
		sl = sl.With("service", service)
	}
	if len(attrs) > 0 {
		sl = sl.With(attrs...)
	}

	return &Logger{sl: sl}
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	l.sl.DebugContext(ctx, msg, keysAndValues...)
}

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, msg string, keysAndValues ...any) {
	l.sl.InfoContext(ctx, msg, keysAndValues...)
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, keysAndValues ...any) {
	l.sl.WarnContext(ctx, msg, keysAndValues...)
}

// Error logs at error level.
func (l *Logger) Error(ctx context.Context, msg string, keysAndValues ...any) {
	l.sl.ErrorContext(ctx, msg, keysAndValues...)
}

// With returns a logger with additional static attributes.
func (l *Logger) With(keysAndValues ...any) LoggerInterface {
	return &Logger{sl: l.sl.With(keysAndValues...)}
}

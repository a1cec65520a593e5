// Package logger implements ports.Logger on top of log/slog, matching the
// teacher's choice of a structured stdlib logger over a third-party one.
package logger

import (
	"log/slog"
	"os"
)

// Logger adapts *slog.Logger to ports.Logger.
type Logger struct {
	inner *slog.Logger
}

// New creates a Logger writing text-formatted records to stderr at level.
func New(level string) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return &Logger{inner: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }

// Error logs err along with any extra key/value pairs.
func (l *Logger) Error(err error, args ...any) {
	all := append([]any{"error", err}, args...)
	l.inner.Error("error", all...)
}

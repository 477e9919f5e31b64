// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Logger provides structured logging capabilities.
type Logger struct {
	*slog.Logger
}

// ParseLevel converts a level name to a slog level.
// The second result is false for unknown names.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// NewLoggerTo creates a new logger with the specified level writing to w.
func NewLoggerTo(w io.Writer, level string) *Logger {
	logLevel, _ := ParseLevel(level)

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithArchive returns a logger with archive information.
func (l *Logger) WithArchive(path string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("archive", path)),
	}
}

// Package logger provides the structured logger used by the rehash CLI.
package logger

import (
	"io"
	"log/slog"
	"strings"
)

// Logger represents application logger.
type Logger struct {
	*slog.Logger
}

// ParseLevel maps a config level name to a slog level, defaulting to warn.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

// New creates a Logger writing text records at or above level to w.
func New(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, slog.LevelError+1)
}

package core

import (
	"io"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
)

// NewLogger returns a slog.Logger that renders through charmbracelet/log,
// which keeps key/value output readable on a terminal.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmLevel(level),
		ReportTimestamp: false,
		Prefix:          "likes",
	})
	return slog.New(handler)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}

// Package logging builds the slog logger the adapter family shares: a
// text handler over a size-rotated logs.log next to the process,
// mirrored to stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New constructs a logger writing to path with rotation. level accepts
// debug, info, warn and error; anything else means info.
func New(path, level string) *slog.Logger {
	rolling := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}
	h := slog.NewTextHandler(io.MultiWriter(rolling, os.Stderr), &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(h)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package logging builds the process-wide structured logger. Every binary
// installs it as the slog default so library code logs through the same
// handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON logger tagged with the service name.
func New(service, level string) *slog.Logger {
	return newWithWriter(os.Stdout, service, level)
}

// Setup builds the service logger and installs it as the slog default.
func Setup(service, level string) *slog.Logger {
	logger := New(service, level)
	slog.SetDefault(logger)
	return logger
}

// SetupStderr is Setup for binaries whose stdout carries a protocol stream.
func SetupStderr(service, level string) *slog.Logger {
	logger := newWithWriter(os.Stderr, service, level)
	slog.SetDefault(logger)
	return logger
}

func newWithWriter(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// parseLevel tolerates unknown values and falls back to info: a typo in
// LOG_LEVEL must not silence a binary.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

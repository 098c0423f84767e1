// Package logging builds the structured logger injected into every service.
// Built on log/slog; level and format come from configuration so production
// can run JSON while local development stays readable.
package logging

import (
	"log/slog"
	"os"
)

// New constructs a slog.Logger for the given level ("debug", "info", "warn",
// "error") and format ("text" or "json"). Unknown values fall back to
// info/text.
func New(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

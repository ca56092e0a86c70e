package observability

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds a *slog.Logger from logging config values. Format "json"
// selects the JSON handler; anything else gets the text handler. Sensitive
// attribute values are redacted by both.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = NewJSONHandler(w, lvl)
	} else {
		handler = NewTextHandler(w, lvl)
	}

	return slog.New(handler)
}

// NewNopLogger returns a logger that discards everything. Components accept
// it instead of checking for nil loggers.
func NewNopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ParseLevel converts a config level string to a slog.Level.
// Unknown strings default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewJSONHandler creates a new JSON log handler with the specified output and level.
// JSON format is ideal for structured logging in production environments.
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	})
}

// NewTextHandler creates a new text log handler with the specified output and level.
// Text format is human-readable and useful for development and debugging.
func NewTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	})
}

// sensitiveKeys are attribute names whose values never reach a log line.
// Keys are compared after lowercasing and stripping underscores, so
// "api_key", "apiKey", and "APIKey" all match "apikey".
var sensitiveKeys = map[string]bool{
	"apikey":        true,
	"secret":        true,
	"secretkey":     true,
	"password":      true,
	"token":         true,
	"credential":    true,
	"authorization": true,
	"bearer":        true,
}

// redactAttr replaces values of sensitive attributes with "[REDACTED]".
func redactAttr(groups []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(strings.ReplaceAll(a.Key, "_", ""))
	if sensitiveKeys[key] {
		a.Value = slog.StringValue("[REDACTED]")
	}
	return a
}

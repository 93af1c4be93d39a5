package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"electiondesk/internal/platform/config"
)

// New returns a structured logger writing to stdout and installs it as the slog default.
func New(cfg config.LogConfig) *slog.Logger {
	l := NewWithWriter(cfg, os.Stdout)
	slog.SetDefault(l)
	return l
}

// NewWithWriter builds a logger without touching the global default.
func NewWithWriter(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", "electiondesk")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

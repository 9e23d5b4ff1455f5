// Package logging configures the process-wide slog handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/querybird/querybird/internal/config"
)

// ParseLevel maps a config level name to a slog.Level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// New returns a logger writing to w. Format is "json" or "text"; anything
// else is text.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Setup installs the default logger described by cfg. When verbose is false
// and no log file is configured, only warnings and errors reach stderr so the
// REPL stays readable. The returned closer releases the log file, if any.
func Setup(cfg config.LogConfig, verbose bool) (func() error, error) {
	level := ParseLevel(cfg.Level)
	var (
		w     io.Writer = os.Stderr
		closeFn         = func() error { return nil }
	)

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.File, err)
		}
		w, closeFn = f, f.Close
	} else if !verbose && level < slog.LevelWarn {
		level = slog.LevelWarn
	}

	slog.SetDefault(New(w, level, cfg.Format))
	return closeFn, nil
}

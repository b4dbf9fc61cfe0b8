// Package logging builds the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"aquora-api/internal/config"
)

// New creates a slog logger from configuration.
//
// LOG_FORMAT selects json or text; when unset, prod logs JSON and dev logs text.
// Every record carries the service name and app mode.
func New(cfg config.LogConfig, appMode string) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg, appMode)
}

// NewWithWriter is New with an explicit output, used by tests.
func NewWithWriter(w io.Writer, cfg config.LogConfig, appMode string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "text"
		if appMode == "prod" {
			format = "json"
		}
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", "aquora-api"),
		slog.String("mode", appMode),
	}))
}

// parseLevel converts a string log level to slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/scanpoint/scanpoint-core/internal/infrastructure/config"
)

// serviceName is stamped onto every record so aggregated logs from the
// daemon and its tooling stay distinguishable.
const serviceName = "scanpoint"

// Logger is the application logger: a slog.Logger carrying the service
// and version fields on every record. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of the configuration.
//
// Format selects the handler (json by default, "text" for local
// development), Level filters records, and Output picks stdout or
// stderr. Unrecognised values fall back rather than fail: logging has
// to come up even when the config is sloppy.
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(destination(cfg.Output), cfg.Format, parseLevel(cfg.Level))
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// Default returns the bootstrap logger used before the configuration has
// been read: JSON to stdout at info level, version "dev".
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// With returns a child logger whose records carry the given key-value
// pairs in addition to the parent's fields. The conventional use is one
// child per component:
//
//	bridgeLog := log.With("component", "bridge")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func destination(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel maps the configured level name onto slog's levels. Unknown
// names mean info.
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

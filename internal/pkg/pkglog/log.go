package pkglog

import (
	"log/slog"
	"os"
	"strings"
)

// InitLogging installs a JSON slog handler as the process default. The level
// comes from LOG_LEVEL (debug, info, warn, error) and defaults to info.
func InitLogging() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     ParseLevel(os.Getenv("LOG_LEVEL")),
		AddSource: os.Getenv("LOG_SOURCE") == "true",
	})
	slog.SetDefault(slog.New(handler))
}

func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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

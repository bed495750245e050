package config

import (
	"log/slog"
	"os"
	"strings"
)

// InitLogger installs the process-wide structured logger. Both binaries
// (the server and the sweep CLI) call this before anything else logs, so
// every line carries the same level and format.
func InitLogger(cfg *Config) {
	slog.SetDefault(slog.New(newHandler(cfg)))

	slog.Info("Logger initialized",
		"level", cfg.LogLevel,
		"format", cfg.LogFormat,
	)
}

func newHandler(cfg *Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if strings.ToLower(cfg.LogFormat) == "text" {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	// JSON is the default; check sweeps log bursts of correlated lines
	// that only stay greppable with structured output.
	return slog.NewJSONHandler(os.Stdout, opts)
}

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

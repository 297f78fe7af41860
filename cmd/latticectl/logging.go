package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/c360/latticectl/config"
)

// setupLogger builds the process logger. The returned LevelVar lets a config
// reload change the level in place. Logs go to w so stdout stays parseable.
func setupLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	parsed, err := config.ParseLevel(cfg.Level)
	if err != nil {
		parsed = slog.LevelInfo
	}
	level.Set(parsed)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: parsed == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	), level
}

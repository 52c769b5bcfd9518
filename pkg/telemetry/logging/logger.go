package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"mercator-hq/ganymede/pkg/config"
)

// New creates the process logger from configuration. Output goes to
// stdout unless a writer is supplied for testing.
func New(cfg *config.LoggingConfig, writer io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json", "":
		handler = slog.NewJSONHandler(writer, opts)
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	return slog.New(handler), nil
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

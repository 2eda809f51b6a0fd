// Package logging configures structured slog logging with size-based
// file rotation.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 3).
	MaxFiles int
	// WriteToStderr whether to also write to stderr (default: true).
	WriteToStderr bool
}

// DefaultConfig returns sensible defaults for file logging under dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		Level:         "info",
		FilePath:      filepath.Join(dataDir, "logs", "recall.log"),
		MaxSizeMB:     10,
		MaxFiles:      3,
		WriteToStderr: true,
	}
}

// Setup initializes logging and returns the logger plus a cleanup function
// that flushes and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var output io.Writer = os.Stderr
	cleanup := func() {}

	if cfg.FilePath != "" {
		writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		output = writer
		if cfg.WriteToStderr {
			output = io.MultiWriter(writer, os.Stderr)
		}
		cleanup = func() { _ = writer.Close() }
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	return slog.New(handler), cleanup, nil
}

// SetupDefault sets up logging under dataDir and installs it as the
// default logger. Returns the cleanup function.
func SetupDefault(dataDir, level string) (func(), error) {
	cfg := DefaultConfig(dataDir)
	if level != "" {
		cfg.Level = level
	}
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

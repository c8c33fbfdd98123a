package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/abhisek/cclprep/internal/config"
	"github.com/abhisek/cclprep/internal/store"
)

var logFile *os.File

// setupLogging sends slog output to cclprep.log in the data directory.
// The terminal belongs to the TUI, so nothing is logged to stderr.
func setupLogging() error {
	if logFile != nil {
		return nil
	}
	level := parseLevel(config.Get("LOG_LEVEL", "info"))

	var w io.Writer = io.Discard
	if dir, err := store.DataDir(); err == nil {
		path := filepath.Join(dir, "cclprep.log")
		if err := store.EnsureDir(path); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		w = f
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func closeLog() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
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

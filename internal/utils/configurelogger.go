package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Configure the default slog logger with a log level and an optional output
// file.
//
// Valid log levels are "none", "error", "warn", "info" and "debug"; anything
// else returns an error. With logFile empty the logger writes text to
// stdout; otherwise it writes JSON to the given file.
//
// Returns the os.File slog writes to (nil for stdout) so the caller can
// close it on exit:
//
//	logFilePointer, err := utils.ConfigureDefaultLogger("info", "")
//	if logFilePointer != nil {
//		defer logFilePointer.Close()
//	}
func ConfigureDefaultLogger(logLevel string, logFile string) (*os.File, error) {
	var level slog.Level
	switch logLevel {
	case "none":
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		return nil, fmt.Errorf("unexpected log level %q", logLevel)
	}
	opts := &slog.HandlerOptions{Level: level}

	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
		return nil, nil
	}

	logFilePointer, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logFilePointer, opts)))
	return logFilePointer, nil
}

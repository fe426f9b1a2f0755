package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Init installs the global slog logger. Every record goes to stderr via the
// console handler; if logPath is non-empty the same record is also appended
// to the log file as a "[<unix-timestamp>] <message>" line. The file is the
// durable sink: it survives the console being closed (the desktop shell is
// normally launched without one). Reads LOG_LEVEL from the environment
// (debug/info/warn/error; default is info).
//
// Opening the file can fail (read-only install dir, missing home). That is
// swallowed: diagnostics must never prevent the shell from starting.
func Init(logPath string) {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{newConsoleHandler(os.Stderr, opts)}
	if fh := openFileHandler(logPath, opts); fh != nil {
		handlers = append(handlers, fh)
	}
	slog.SetDefault(slog.New(&fanoutHandler{handlers: handlers}))
}

// openFileHandler opens logPath for append, creating parent directories.
// Returns nil on any failure.
func openFileHandler(logPath string, opts *slog.HandlerOptions) slog.Handler {
	if logPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return newFileHandler(f, opts)
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

// Package applog is the ambient structured-logging setup shared by
// every command: a log/slog logger backed by a lumberjack rotating
// file sink (or stderr in the foreground), switchable between
// human-readable text and JSON.
//
// Grounded on the teacher's go.mod dependency on
// gopkg.in/natefinch/lumberjack.v2 (used by its daemon log rotation);
// this package generalizes that rotation policy to the application's
// own structured logger rather than the raw process-stdout capture
// internal/logger handles for supervised worker subprocesses.
package applog

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process-wide logger.
type Options struct {
	// Path is the log file path. Empty means log to Stderr instead of
	// a rotating file (used in foreground/interactive runs).
	Path       string
	JSON       bool
	Level      slog.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a slog.Logger per opts. It does not install itself as
// the process default; callers that want that call slog.SetDefault
// explicitly (cmd/xmlhub's root command does this once at startup).
func New(opts Options) *slog.Logger {
	var w io.Writer = os.Stderr
	if opts.Path != "" {
		w = &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    nonZero(opts.MaxSizeMB, 50),
			MaxBackups: nonZero(opts.MaxBackups, 5),
			MaxAge:     nonZero(opts.MaxAgeDays, 30),
			Compress:   true,
		}
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, handlerOpts)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(h)
}

func nonZero(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

// Package logging provides the daemon's leveled, rotating logger: a
// log/slog.Logger backed by lumberjack so long-running watch/ingest/sweep
// processes don't need an external log-rotation setup.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the rotating file sink. A zero Options still produces
// a usable logger that writes to stderr only.
type Options struct {
	// Dir is the directory log files are written under. Empty disables
	// file logging; only stderr is used.
	Dir string
	// Level is one of "debug", "info", "warn", "error". Defaults to info.
	Level string
	// MaxSizeMB is the size at which a log file is rotated.
	MaxSizeMB int
	// MaxBackups is how many rotated files are kept.
	MaxBackups int
	// MaxAgeDays is how long a rotated file is kept regardless of count.
	MaxAgeDays int
	// AlsoStderr tees output to stderr in addition to the file sink.
	AlsoStderr bool
}

// New builds a structured logger per opts. Components log through the
// returned *slog.Logger rather than the package-level default so tests can
// substitute their own (e.g. slog.New(slog.NewTextHandler(io.Discard, nil))).
func New(opts Options) *slog.Logger {
	level := parseLevel(opts.Level)

	var writers []io.Writer
	if opts.Dir != "" {
		size := opts.MaxSizeMB
		if size <= 0 {
			size = 50
		}
		backups := opts.MaxBackups
		if backups <= 0 {
			backups = 5
		}
		age := opts.MaxAgeDays
		if age <= 0 {
			age = 30
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "memoryd.log"),
			MaxSize:    size,
			MaxBackups: backups,
			MaxAge:     age,
			Compress:   true,
		})
	}
	if opts.AlsoStderr || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

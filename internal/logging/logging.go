// Package logging builds the service logger: structured slog records written
// to a size-rotated cleanup.log and optionally mirrored to the console.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"xcleanup/internal/config"
)

// Logger is a slog.Logger bound to a rotating file.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *lumberjack.Logger
}

// New opens <cfg.Directory>/cleanup.log through lumberjack. When console is
// non-nil (and cfg.Console is set) records are mirrored to it.
func New(cfg config.LoggingCfg, console io.Writer) *Logger {
	file := &lumberjack.Logger{
		Filename:   config.LogFilePath(cfg.Directory),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	var w io.Writer = file
	if cfg.Console && console != nil {
		w = io.MultiWriter(console, file)
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level))

	return &Logger{
		Logger: slog.New(newHandler(w, cfg.JSONLogs, level)),
		level:  level,
		file:   file,
	}
}

// NewConsole returns a logger that only writes to w. It is used before a
// configuration has been loaded.
func NewConsole(w io.Writer, level string) *slog.Logger {
	lv := new(slog.LevelVar)
	lv.Set(ParseLevel(level))
	return slog.New(newHandler(w, false, lv))
}

func newHandler(w io.Writer, json bool, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SetLevel changes the minimum level of an existing logger.
func (l *Logger) SetLevel(level string) {
	l.level.Set(ParseLevel(level))
}

// Rotate forces lumberjack to start a new file.
func (l *Logger) Rotate() error {
	return l.file.Rotate()
}

// Close releases the log file.
func (l *Logger) Close() error {
	return l.file.Close()
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown values
// fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

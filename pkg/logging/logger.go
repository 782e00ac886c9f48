// Package logging provides a process-wide structured logger for the
// storage engine, wrapping log/slog behind a single global instance so
// every subsystem logs through the same sink and level.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	logger   *slog.Logger
	loggerMu sync.RWMutex
	isInited bool
	initOnce sync.Once
)

// Level is the logging verbosity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Config configures the global logger.
type Config struct {
	Level  Level
	JSON   bool
}

// Init installs the global logger. Safe to call once; subsequent calls are
// no-ops so library code can call Init defensively without clobbering a
// host application's configuration.
func Init(cfg Config) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if isInited {
		return
	}
	logger = build(cfg)
	isInited = true
}

func build(cfg Config) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// GetLogger returns the process-wide logger, lazily initializing it with
// defaults (INFO, text, stderr) if Init was never called.
func GetLogger() *slog.Logger {
	loggerMu.RLock()
	if isInited {
		l := logger
		loggerMu.RUnlock()
		return l
	}
	loggerMu.RUnlock()

	initOnce.Do(func() {
		Init(Config{Level: LevelInfo})
	})

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

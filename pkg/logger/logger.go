package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 28
)

var (
	Logger       *slog.Logger
	currentLevel atomic.Int32
	handlerLevel = new(slog.LevelVar)
)

func init() {
	SetLogLevel(INFO)
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: handlerLevel}))
}

// Options configures the package logger. File, when set, is written in
// addition to stdout and rotated by size.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func Configure(opts Options) error {
	level := LogLevel(currentLevel.Load())
	var levelErr error
	if strings.TrimSpace(opts.Level) != "" {
		level, levelErr = ParseLogLevel(opts.Level)
	}

	writer := io.Writer(os.Stdout)
	var fileErr error
	if strings.TrimSpace(opts.File) != "" {
		dir := filepath.Dir(opts.File)
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			fileErr = mkErr
		} else {
			writer = io.MultiWriter(os.Stdout, &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    orDefault(opts.MaxSizeMB, defaultMaxSizeMB),
				MaxBackups: orDefault(opts.MaxBackups, defaultMaxBackups),
				MaxAge:     orDefault(opts.MaxAgeDays, defaultMaxAgeDays),
				Compress:   true,
			})
		}
	}

	SetLogLevel(level)
	Logger = slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: handlerLevel}))

	if levelErr != nil || fileErr != nil {
		return errors.Join(levelErr, fileErr)
	}
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// SetLogLevel is safe to call while other goroutines log.
func SetLogLevel(level LogLevel) {
	currentLevel.Store(int32(level))
	handlerLevel.Set(slogLevel(level))
}

// Enabled reports whether messages at level pass the current filter.
func Enabled(level LogLevel) bool {
	return LogLevel(currentLevel.Load()) <= level
}

func ParseLogLevel(value string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("invalid log level %q", value)
	}
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) {
	if Enabled(DEBUG) {
		Logger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if Enabled(INFO) {
		Logger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Enabled(WARN) {
		Logger.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Enabled(ERROR) {
		Logger.Error(msg, args...)
	}
}

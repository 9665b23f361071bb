package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smith3v/habit-reminder/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowThreshold = 200 * time.Millisecond
	defaultGormLogLevel  = gormlogger.Warn
)

// queryLogger routes gorm output into the package logger so SQL shares the
// sink and level filter of the rest of the service.
type queryLogger struct {
	slowThreshold time.Duration
	logLevel      gormlogger.LogLevel
}

func newGormLogger(levelValue string) (gormlogger.Interface, error) {
	level := defaultGormLogLevel
	var levelErr error
	if strings.TrimSpace(levelValue) != "" {
		level, levelErr = parseGormLogLevel(levelValue)
	}
	return &queryLogger{slowThreshold: defaultSlowThreshold, logLevel: level}, levelErr
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Info, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Warn, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, gormlogger.Error, fmt.Sprintf(msg, data...))
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil:
		// Missing rows are an expected outcome of lookups, not a failure.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return
		}
		sql, rows := fc()
		l.emit(ctx, gormlogger.Error, "gorm query error",
			slog.Duration("elapsed", elapsed), slog.Int64("rows", rows), slog.String("sql", sql), slog.Any("error", err))
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		sql, rows := fc()
		l.emit(ctx, gormlogger.Warn, "gorm slow query",
			slog.Duration("elapsed", elapsed), slog.Int64("rows", rows), slog.String("sql", sql), slog.Duration("threshold", l.slowThreshold))
	default:
		if !l.enabled(gormlogger.Info) {
			return
		}
		sql, rows := fc()
		l.emit(ctx, gormlogger.Info, "gorm query",
			slog.Duration("elapsed", elapsed), slog.Int64("rows", rows), slog.String("sql", sql))
	}
}

func (l *queryLogger) emit(ctx context.Context, level gormlogger.LogLevel, msg string, attrs ...slog.Attr) {
	if !l.enabled(level) {
		return
	}
	logger.Logger.LogAttrs(ctx, slogLevelFor(level), msg, attrs...)
}

func (l *queryLogger) enabled(level gormlogger.LogLevel) bool {
	if l.logLevel == gormlogger.Silent || l.logLevel < level {
		return false
	}
	switch level {
	case gormlogger.Info:
		return logger.Enabled(logger.INFO)
	case gormlogger.Warn:
		return logger.Enabled(logger.WARN)
	case gormlogger.Error:
		return logger.Enabled(logger.ERROR)
	default:
		return false
	}
}

func slogLevelFor(level gormlogger.LogLevel) slog.Level {
	switch level {
	case gormlogger.Error:
		return slog.LevelError
	case gormlogger.Warn:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func parseGormLogLevel(value string) (gormlogger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "silent":
		return gormlogger.Silent, nil
	case "error":
		return gormlogger.Error, nil
	case "warn":
		return gormlogger.Warn, nil
	case "info":
		return gormlogger.Info, nil
	default:
		return defaultGormLogLevel, fmt.Errorf("invalid gorm log level %q", value)
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = time.Second

// slogGormLogger sends gorm's SQL tracing to slog. Statements are logged
// at debug level, slow ones at warn, failures at error.
type slogGormLogger struct {
	logger *slog.Logger
	level  gormLogger.LogLevel
}

func newGormLogger(l *slog.Logger) *slogGormLogger {
	return &slogGormLogger{logger: l.With("component", "gorm"), level: gormLogger.Warn}
}

func gormConfig(l *slog.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: newGormLogger(l),
		// Transactions are opened explicitly by the importer.
		SkipDefaultTransaction: true,
	}
}

func (g *slogGormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *slogGormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Info {
		g.logger.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *slogGormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Warn {
		g.logger.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *slogGormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormLogger.Error {
		g.logger.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormLogger.Error:
		g.logger.ErrorContext(ctx, "query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case elapsed > slowQueryThreshold && g.level >= gormLogger.Warn:
		g.logger.WarnContext(ctx, "slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	default:
		g.logger.DebugContext(ctx, "query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}

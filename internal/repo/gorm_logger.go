package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQuery is the statement duration above which a query is logged
// at WARN.
const DefaultSlowQuery = 200 * time.Millisecond

// GormLogger routes GORM's logging through the global zerolog logger.
// Record-not-found is never logged; it is a normal lookup outcome here.
type GormLogger struct {
	level zerolog.Level
	slow  time.Duration
}

var _ gormlogger.Interface = GormLogger{}

// NewGormLogger logs failed statements at ERROR and statements slower than
// slow at WARN. A slow of 0 disables slow query logging.
func NewGormLogger(slow time.Duration) GormLogger {
	return GormLogger{level: zerolog.WarnLevel, slow: slow}
}

// LogMode maps GORM's levels onto zerolog's.
func (l GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	switch level {
	case gormlogger.Silent:
		l.level = zerolog.Disabled
	case gormlogger.Error:
		l.level = zerolog.ErrorLevel
	case gormlogger.Warn:
		l.level = zerolog.WarnLevel
	default:
		l.level = zerolog.InfoLevel
	}
	return l
}

func (l GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.emit(zerolog.InfoLevel).Msg(fmt.Sprintf(msg, args...))
}

func (l GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.emit(zerolog.WarnLevel).Msg(fmt.Sprintf(msg, args...))
}

func (l GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.emit(zerolog.ErrorLevel).Msg(fmt.Sprintf(msg, args...))
}

// Trace logs one executed statement when it failed or was slow.
func (l GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.emit(zerolog.ErrorLevel).Err(err).Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("sql error")
	case l.slow > 0 && elapsed > l.slow:
		sql, rows := fc()
		l.emit(zerolog.WarnLevel).Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("slow sql")
	case l.level <= zerolog.InfoLevel:
		sql, rows := fc()
		l.emit(zerolog.InfoLevel).Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("sql")
	}
}

// emit returns a nil event, on which every call is a no-op, when lvl is below
// the configured level.
func (l GormLogger) emit(lvl zerolog.Level) *zerolog.Event {
	if lvl < l.level {
		return nil
	}
	return log.WithLevel(lvl)
}

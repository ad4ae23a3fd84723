package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// GormLogger routes GORM output to zap, tagging every statement with the
// request, account and trace of the context it ran under.
type GormLogger struct {
	logger                    *zap.Logger
	logLevel                  gormlogger.LogLevel
	slowThreshold             time.Duration
	maxSQLLength              int
	ignoreRecordNotFoundError bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold warns about statements slower than threshold; zero disables
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError drops gorm.ErrRecordNotFound from the error log
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.ignoreRecordNotFoundError = ignore
	}
}

// WithMaxSQLLength truncates logged statements to n bytes; zero keeps them whole
func WithMaxSQLLength(n int) GormLoggerOption {
	return func(l *GormLogger) {
		l.maxSQLLength = n
	}
}

// NewGormLogger creates a GORM logger writing to the "gorm" child of base
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:                    base.Named("gorm"),
		logLevel:                  level,
		slowThreshold:             defaultSlowThreshold,
		ignoreRecordNotFoundError: true,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode returns a copy at level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.logLevel = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(min gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.logLevel < min {
		return
	}
	l.logger.Sugar().Logf(level, msg, data...)
}

// Trace logs one executed statement: failures at error, slow statements at
// warn and everything else at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !(l.ignoreRecordNotFoundError && errors.Is(err, gormlogger.ErrRecordNotFound))
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	switch {
	case failed && l.logLevel >= gormlogger.Error:
		l.logger.Error("SQL Error", append(l.statementFields(ctx, elapsed, fc), zap.Error(err))...)
	case err != nil && !failed:
		// not-found lookups are an expected outcome
	case slow && l.logLevel >= gormlogger.Warn:
		l.logger.Warn("Slow SQL", append(l.statementFields(ctx, elapsed, fc),
			zap.Duration("threshold", l.slowThreshold))...)
	case l.logLevel >= gormlogger.Info:
		l.logger.Debug("SQL Query", l.statementFields(ctx, elapsed, fc)...)
	}
}

func (l *GormLogger) statementFields(ctx context.Context, elapsed time.Duration, fc func() (string, int64)) []zap.Field {
	sql, rows := fc()
	if l.maxSQLLength > 0 && len(sql) > l.maxSQLLength {
		sql = sql[:l.maxSQLLength] + "..."
	}
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	for key, value := range map[string]string{
		"request_id": GetRequestID(ctx),
		"account_id": GetAccountID(ctx),
		"trace_id":   GetTraceID(ctx),
	} {
		if value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}
	return fields
}

// MapGormLogLevel maps the application log level onto GORM's levels. Debug
// and info both log every statement.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormLogger adapts logrus to gorm's logger interface so database activity
// shares the application log stream.
type GormLogger struct {
	logger *logrus.Logger
}

func NewGormLogger(l *logrus.Logger) *GormLogger {
	return &GormLogger{
		logger: l,
	}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	return &newLogger
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Infof(msg, data...)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Warnf(msg, data...)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Errorf(msg, data...)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := logrus.Fields{
		"elapsed": elapsed,
		"rows":    rows,
		"sql":     sql,
	}

	if err != nil {
		l.logger.WithContext(ctx).WithFields(fields).Error(err)
	} else if elapsed > slowQueryThreshold {
		l.logger.WithContext(ctx).WithFields(fields).Warnf("SLOW SQL >= %s", slowQueryThreshold)
	} else {
		l.logger.WithContext(ctx).WithFields(fields).Debug("SQL")
	}
}

package gorm

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// zapWriter routes GORM log lines to zap
type zapWriter struct {
	logger *zap.Logger
}

// Printf implements logger.Writer
func (w zapWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch {
	case strings.Contains(msg, "SLOW SQL"):
		w.logger.Warn("GORM slow query", zap.String("message", msg))
	case strings.Contains(msg, "Error"), strings.Contains(msg, "error"):
		w.logger.Error("GORM query error", zap.String("message", msg))
	default:
		w.logger.Debug("GORM query", zap.String("message", msg))
	}
}

// NewLogger returns a GORM logger backed by zap. The level names follow the
// application log levels: debug traces every query, info and warn only
// report slow queries and errors, anything else is silent.
func NewLogger(log *zap.Logger, level string, slowThreshold time.Duration) logger.Interface {
	lvl := logger.Silent
	switch level {
	case "debug":
		lvl = logger.Info
	case "info", "warn":
		lvl = logger.Warn
	case "error":
		lvl = logger.Error
	}

	return logger.New(
		zapWriter{logger: log.Named("gorm")},
		logger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

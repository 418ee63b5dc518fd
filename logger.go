package roulette

import (
	"fmt"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogger implements Logger using standard log package
type DefaultLogger struct{}

// Info logs an info message
func (l *DefaultLogger) Info(msg string, args ...any) {
	log.Printf("[INFO] "+msg, args...)
}

// Error logs an error message
func (l *DefaultLogger) Error(msg string, args ...any) {
	log.Printf("[ERROR] "+msg, args...)
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(msg string, args ...any) {
	log.Printf("[DEBUG] "+msg, args...)
}

// SilentLogger implements Logger interface but does not output any logs
// This is useful for testing environments where log output is not desired
type SilentLogger struct{}

// NewSilentLogger creates a new silent logger instance
func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

// Info does nothing (silent)
func (l *SilentLogger) Info(msg string, args ...any) {}

// Error does nothing (silent)
func (l *SilentLogger) Error(msg string, args ...any) {}

// Debug does nothing (silent)
func (l *SilentLogger) Debug(msg string, args ...any) {}

// ZapLogger adapts a zap SugaredLogger to the Logger interface
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// WrapZap wraps an existing zap logger
func WrapZap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar()}
}

// NewZapLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
func NewZapLogger(cfg *LoggingConfig) (*ZapLogger, error) {
	if cfg == nil {
		cfg = DefaultLoggingConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return WrapZap(logger), nil
}

// Info logs an info message
func (l *ZapLogger) Info(msg string, args ...any) { l.sugar.Infof(msg, args...) }

// Error logs an error message
func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorf(msg, args...) }

// Debug logs a debug message
func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugf(msg, args...) }

// Sync flushes buffered log entries
func (l *ZapLogger) Sync() error { return l.sugar.Sync() }

func orDefaultLogger(logger Logger) Logger {
	if logger == nil {
		return &DefaultLogger{}
	}
	return logger
}

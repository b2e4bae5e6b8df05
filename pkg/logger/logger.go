package logger

import (
	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
)

// Logger is re-exported from eigensdk-go so package users don't have to
// import sdklogging separately.
type Logger = sdklogging.Logger

// LogLevel mirrors the sdk levels accepted by NewZapLogger.
type LogLevel = sdklogging.LogLevel

const (
	Development LogLevel = sdklogging.Development
	Production  LogLevel = sdklogging.Production
)

// NewZapLogger builds the production or development zap-backed logger.
func NewZapLogger(level LogLevel) (Logger, error) {
	return sdklogging.NewZapLogger(level)
}

// NoOpLogger implements Logger with no-op methods to avoid nil pointer
// panics where a logger is optional.
type NoOpLogger struct{}

func (l *NoOpLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *NoOpLogger) Infof(format string, args ...interface{})       {}
func (l *NoOpLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (l *NoOpLogger) Debugf(format string, args ...interface{})      {}
func (l *NoOpLogger) Error(msg string, keysAndValues ...interface{}) {}
func (l *NoOpLogger) Errorf(format string, args ...interface{})      {}
func (l *NoOpLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (l *NoOpLogger) Warnf(format string, args ...interface{})       {}
func (l *NoOpLogger) Fatal(msg string, keysAndValues ...interface{}) {}
func (l *NoOpLogger) Fatalf(format string, args ...interface{})      {}
func (l *NoOpLogger) With(keysAndValues ...interface{}) Logger       { return l }
func (l *NoOpLogger) WithComponent(componentName string) Logger      { return l }
func (l *NoOpLogger) WithName(name string) Logger                    { return l }
func (l *NoOpLogger) WithServiceName(serviceName string) Logger      { return l }
func (l *NoOpLogger) WithHostName(hostName string) Logger            { return l }
func (l *NoOpLogger) Sync() error                                    { return nil }

// NewNoOpLogger creates a new no-op logger instance.
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

// EnsureLogger returns the logger if not nil, otherwise a no-op logger.
func EnsureLogger(logger Logger) Logger {
	if logger == nil {
		return NewNoOpLogger()
	}
	return logger
}

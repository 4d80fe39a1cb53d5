package logger

import "github.com/johnblat/scrubcache/pkg/ports"

// NoopLogger discards everything. Quiet mode and the terminal UI without a
// log file use it.
type NoopLogger struct{}

func NewNoop() *NoopLogger { return &NoopLogger{} }

func (l *NoopLogger) Debug(string, ...interface{}) {}
func (l *NoopLogger) Info(string, ...interface{})  {}
func (l *NoopLogger) Warn(string, ...interface{})  {}
func (l *NoopLogger) Error(string, ...interface{}) {}

func (l *NoopLogger) WithComponent(string) ports.Logger { return l }

package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// LogEntry is one message captured by Logger.
type LogEntry struct {
	Level     ports.LogLevel
	Component string
	Message   string
}

// Logger is a mock ports.Logger that records formatted messages.
type Logger struct {
	component string
	store     *logStore
}

type logStore struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogger creates a recording logger.
func NewLogger() *Logger {
	return &Logger{store: &logStore{}}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.add(ports.LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.add(ports.LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.add(ports.LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.add(ports.LevelError, msg, args) }

// WithComponent returns a logger sharing the same store.
func (l *Logger) WithComponent(component string) ports.Logger {
	return &Logger{component: component, store: l.store}
}

// Entries returns a copy of everything logged so far.
func (l *Logger) Entries() []LogEntry {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return append([]LogEntry(nil), l.store.entries...)
}

// Count returns the number of entries at level whose message contains substr.
func (l *Logger) Count(level ports.LogLevel, substr string) int {
	n := 0
	for _, e := range l.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

func (l *Logger) add(level ports.LogLevel, msg string, args []interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.store.mu.Lock()
	l.store.entries = append(l.store.entries, LogEntry{Level: level, Component: l.component, Message: msg})
	l.store.mu.Unlock()
}

var _ ports.Logger = (*Logger)(nil)

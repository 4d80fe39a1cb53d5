package ports

import (
	"fmt"
	"strings"
)

// LogLevel is the minimum severity a Logger emits.
type LogLevel int

const (
	LevelDebug LogLevel = iota // per-request worker and seek detail
	LevelInfo                  // session and pipeline progress
	LevelWarn                  // dropped requests, backend fallbacks
	LevelError                 // failures that end a command
	LevelQuiet                 // nothing at all
)

var levelNames = [...]string{"debug", "info", "warn", "error", "quiet"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelQuiet {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLogLevel parses a level name case-insensitively. "warning" is
// accepted for warn.
func ParseLogLevel(s string) (LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	for i, n := range levelNames {
		if n == name {
			return LogLevel(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is the logging port. msg is a translatable format key: adapters
// run it through l10n before formatting args.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that tags lines with component.
	WithComponent(component string) Logger
}

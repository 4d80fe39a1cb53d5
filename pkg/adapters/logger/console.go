// Package logger provides ports.Logger implementations.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"

	"github.com/johnblat/scrubcache/pkg/ports"
)

const stampLayout = "15:04:05.000"

// ConsoleLogger writes translated messages as lines. Console loggers split
// warnings and errors onto stderr and color them on a terminal; writer
// loggers put every level on one stream with a timestamp and level tag.
type ConsoleLogger struct {
	level     ports.LogLevel
	component string
	out       io.Writer
	errOut    io.Writer
	stamped   bool
	now       func() time.Time
	paint     map[ports.LogLevel]*color.Color
	tag       *color.Color
	mu        *sync.Mutex
}

// NewConsole creates a logger on stdout/stderr. Color is enabled when stdout
// is a terminal.
func NewConsole(level ports.LogLevel) *ConsoleLogger {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	l := &ConsoleLogger{
		level:  level,
		out:    os.Stdout,
		errOut: os.Stderr,
		now:    time.Now,
		mu:     &sync.Mutex{},
	}
	if tty {
		l.paint = map[ports.LogLevel]*color.Color{
			ports.LevelDebug: color.New(color.Faint),
			ports.LevelWarn:  color.New(color.FgYellow),
			ports.LevelError: color.New(color.FgRed),
		}
		l.tag = color.New(color.FgCyan)
		for _, c := range l.paint {
			c.EnableColor()
		}
		l.tag.EnableColor()
	}
	return l
}

// NewWriter creates an uncolored logger that sends every level to w.
// The terminal UI logs through it so nothing lands on the screen it draws.
func NewWriter(level ports.LogLevel, w io.Writer) *ConsoleLogger {
	return &ConsoleLogger{
		level:   level,
		out:     w,
		errOut:  w,
		stamped: true,
		now:     time.Now,
		mu:      &sync.Mutex{},
	}
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.log(ports.LevelDebug, msg, args) }
func (l *ConsoleLogger) Info(msg string, args ...interface{})  { l.log(ports.LevelInfo, msg, args) }
func (l *ConsoleLogger) Warn(msg string, args ...interface{})  { l.log(ports.LevelWarn, msg, args) }
func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.log(ports.LevelError, msg, args) }

// WithComponent returns a logger that prefixes lines with [component].
// It shares the output and its lock.
func (l *ConsoleLogger) WithComponent(component string) ports.Logger {
	c := *l
	c.component = component
	return &c
}

func (l *ConsoleLogger) log(level ports.LogLevel, msg string, args []interface{}) {
	if level < l.level {
		return
	}

	var b strings.Builder
	if l.stamped {
		fmt.Fprintf(&b, "%s %-5s ", l.now().Format(stampLayout), strings.ToUpper(level.String()))
	}
	if l.component != "" {
		prefix := "[" + l.component + "]"
		if l.tag != nil {
			prefix = l.tag.Sprint(prefix)
		}
		b.WriteString(prefix)
		b.WriteByte(' ')
	}
	text := l10n.F(msg, args...)
	if c := l.paint[level]; c != nil {
		text = c.Sprint(text)
	}
	b.WriteString(text)

	w := l.out
	if level >= ports.LevelWarn {
		w = l.errOut
	}
	l.mu.Lock()
	fmt.Fprintln(w, b.String())
	l.mu.Unlock()
}

var _ ports.Logger = (*ConsoleLogger)(nil)

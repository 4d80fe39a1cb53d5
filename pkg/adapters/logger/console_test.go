package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/johnblat/scrubcache/pkg/ports"
)

var fixed = time.Date(2024, 3, 1, 9, 30, 15, 250*int(time.Millisecond), time.UTC)

func newTestWriter(level ports.LogLevel, buf *bytes.Buffer) *ConsoleLogger {
	l := NewWriter(level, buf)
	l.now = func() time.Time { return fixed }
	return l
}

func lines(buf *bytes.Buffer) []string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestWriterLogger_Levels(t *testing.T) {
	tests := []struct {
		level ports.LogLevel
		want  []string
	}{
		{ports.LevelDebug, []string{
			"09:30:15.250 DEBUG debug 1",
			"09:30:15.250 INFO  info 2",
			"09:30:15.250 WARN  warn 3",
			"09:30:15.250 ERROR error 4",
		}},
		{ports.LevelInfo, []string{
			"09:30:15.250 INFO  info 2",
			"09:30:15.250 WARN  warn 3",
			"09:30:15.250 ERROR error 4",
		}},
		{ports.LevelError, []string{"09:30:15.250 ERROR error 4"}},
		{ports.LevelQuiet, nil},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			l := newTestWriter(tt.level, &buf)
			l.Debug("debug %d", 1)
			l.Info("info %d", 2)
			l.Warn("warn %d", 3)
			l.Error("error %d", 4)

			got := lines(&buf)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d lines, got %q", len(tt.want), got)
			}
			for i, want := range tt.want {
				if got[i] != want {
					t.Errorf("line %d: expected %q, got %q", i, want, got[i])
				}
			}
		})
	}
}

func TestWriterLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	l := newTestWriter(ports.LevelInfo, &buf)
	l.WithComponent("worker").Info("ready for %s", "requests")

	want := "09:30:15.250 INFO  [worker] ready for requests"
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Error("expected no color codes in writer output")
	}
}

func TestConsoleLogger_SplitsStreams(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewConsole(ports.LevelInfo)
	l.out, l.errOut, l.paint, l.tag = &out, &errOut, nil, nil

	l.Info("opened")
	l.Warn("slow")
	l.Error("broken")

	if got := lines(&out); len(got) != 1 || got[0] != "opened" {
		t.Errorf("expected info on stdout, got %q", got)
	}
	if got := lines(&errOut); len(got) != 2 || got[0] != "slow" || got[1] != "broken" {
		t.Errorf("expected warn and error on stderr, got %q", got)
	}
}

func TestConsoleLogger_Color(t *testing.T) {
	var out bytes.Buffer
	l := NewConsole(ports.LevelDebug)
	l.out, l.errOut = &out, &out
	l.paint = map[ports.LogLevel]*color.Color{ports.LevelWarn: color.New(color.FgYellow)}
	l.tag = color.New(color.FgCyan)
	l.paint[ports.LevelWarn].EnableColor()
	l.tag.EnableColor()

	l.WithComponent("ring").Warn("late")

	got := out.String()
	if !strings.Contains(got, "\033[33mlate") {
		t.Errorf("expected yellow message, got %q", got)
	}
	if !strings.Contains(got, "\033[36m[ring]") {
		t.Errorf("expected cyan component tag, got %q", got)
	}
}

func TestNoopLogger(t *testing.T) {
	l := NewNoop()
	l.Info("ignored")
	if l.WithComponent("x") != ports.Logger(l) {
		t.Error("expected WithComponent to return the same logger")
	}
}

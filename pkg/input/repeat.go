// Package input turns key press and release events into playhead steps.
package input

import (
	"time"

	"github.com/johnblat/scrubcache/pkg/ports"
)

const (
	// DefaultDelay is how long a key must be held before it repeats.
	DefaultDelay = 150 * time.Millisecond

	// maxBurst bounds the steps produced by one Tick after a stall.
	maxBurst = 8
)

// Intent is what the UI should do in response to input.
type Intent struct {
	Key   ports.Key
	Steps int
}

// Repeater implements hold-to-repeat. A press steps once; a key held for
// at least the delay steps on every Tick, or once per interval when an
// interval is set.
type Repeater struct {
	delay    time.Duration
	interval time.Duration
	now      func() time.Time

	held      ports.Key
	pressedAt time.Time
	last      time.Time
}

// NewRepeater creates a repeater. A zero interval repeats on every Tick.
func NewRepeater(delay, interval time.Duration) *Repeater {
	return &Repeater{delay: delay, interval: interval, now: time.Now}
}

// WithClock replaces the time source.
func (r *Repeater) WithClock(now func() time.Time) *Repeater {
	r.now = now
	return r
}

// Held returns the key currently held down.
func (r *Repeater) Held() ports.Key {
	return r.held
}

// Handle records a press or release. Presses of a key that is already held
// are ignored, so terminal auto-repeat does not double up with Tick.
func (r *Repeater) Handle(ev ports.InputEvent) Intent {
	if !ev.Pressed {
		if ev.Key == r.held {
			r.held = ports.KeyNone
		}
		return Intent{}
	}
	if ev.Key == ports.KeyQuit {
		return Intent{Key: ports.KeyQuit, Steps: 1}
	}
	if ev.Key == r.held || !stepping(ev.Key) {
		return Intent{}
	}

	now := r.now()
	r.held = ev.Key
	r.pressedAt = now
	r.last = now
	return Intent{Key: ev.Key, Steps: 1}
}

// Tick returns the steps due for the held key.
func (r *Repeater) Tick() Intent {
	if !stepping(r.held) {
		return Intent{}
	}
	now := r.now()
	start := r.pressedAt.Add(r.delay)
	if now.Before(start) {
		return Intent{}
	}

	if r.interval <= 0 {
		r.last = now
		return Intent{Key: r.held, Steps: 1}
	}

	if r.last.Before(start) {
		r.last = start.Add(-r.interval)
	}
	n := int(now.Sub(r.last) / r.interval)
	if n <= 0 {
		return Intent{}
	}
	r.last = r.last.Add(time.Duration(n) * r.interval)
	if n > maxBurst {
		n = maxBurst
	}
	return Intent{Key: r.held, Steps: n}
}

func stepping(k ports.Key) bool {
	return k == ports.KeyAdvance || k == ports.KeyRetreat
}

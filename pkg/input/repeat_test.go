package input

import (
	"testing"
	"time"

	"github.com/johnblat/scrubcache/pkg/ports"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func press(k ports.Key) ports.InputEvent   { return ports.InputEvent{Key: k, Pressed: true} }
func release(k ports.Key) ports.InputEvent { return ports.InputEvent{Key: k} }

func TestRepeater_PressStepsOnce(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	r := NewRepeater(DefaultDelay, 0).WithClock(clock.now)

	got := r.Handle(press(ports.KeyAdvance))
	if got != (Intent{Key: ports.KeyAdvance, Steps: 1}) {
		t.Errorf("expected one advance step, got %+v", got)
	}
	if got := r.Handle(press(ports.KeyAdvance)); got.Steps != 0 {
		t.Errorf("expected repeated press to be ignored, got %+v", got)
	}

	clock.advance(100 * time.Millisecond)
	if got := r.Tick(); got.Steps != 0 {
		t.Errorf("expected no repeat before the delay, got %+v", got)
	}
}

func TestRepeater_HoldRepeatsEveryTick(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	r := NewRepeater(DefaultDelay, 0).WithClock(clock.now)
	r.Handle(press(ports.KeyRetreat))

	clock.advance(149 * time.Millisecond)
	if got := r.Tick(); got.Steps != 0 {
		t.Fatalf("expected no repeat at 149ms, got %+v", got)
	}
	clock.advance(time.Millisecond)
	for i := 0; i < 3; i++ {
		got := r.Tick()
		if got != (Intent{Key: ports.KeyRetreat, Steps: 1}) {
			t.Fatalf("tick %d: expected one retreat step, got %+v", i, got)
		}
		clock.advance(16 * time.Millisecond)
	}

	r.Handle(release(ports.KeyRetreat))
	if got := r.Tick(); got.Steps != 0 {
		t.Errorf("expected no steps after release, got %+v", got)
	}
	if r.Held() != ports.KeyNone {
		t.Errorf("expected no held key, got %v", r.Held())
	}
}

func TestRepeater_Interval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	r := NewRepeater(DefaultDelay, 40*time.Millisecond).WithClock(clock.now)
	r.Handle(press(ports.KeyAdvance))

	tests := []struct {
		advance time.Duration
		want    int
	}{
		{150 * time.Millisecond, 1},
		{20 * time.Millisecond, 0},
		{20 * time.Millisecond, 1},
		{120 * time.Millisecond, 3},
		{time.Second, maxBurst},
	}
	for i, tt := range tests {
		clock.advance(tt.advance)
		if got := r.Tick(); got.Steps != tt.want {
			t.Errorf("tick %d: expected %d steps, got %d", i, tt.want, got.Steps)
		}
	}
}

func TestRepeater_SwitchingKeys(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	r := NewRepeater(DefaultDelay, 0).WithClock(clock.now)

	r.Handle(press(ports.KeyAdvance))
	clock.advance(200 * time.Millisecond)
	got := r.Handle(press(ports.KeyRetreat))
	if got != (Intent{Key: ports.KeyRetreat, Steps: 1}) {
		t.Fatalf("expected retreat step, got %+v", got)
	}
	// Releasing the old key does not stop the new one.
	r.Handle(release(ports.KeyAdvance))
	if r.Held() != ports.KeyRetreat {
		t.Errorf("expected retreat held, got %v", r.Held())
	}
	if got := r.Tick(); got.Steps != 0 {
		t.Errorf("expected the delay to restart for the new key, got %+v", got)
	}
}

func TestRepeater_Quit(t *testing.T) {
	r := NewRepeater(DefaultDelay, 0)
	if got := r.Handle(press(ports.KeyQuit)); got.Key != ports.KeyQuit {
		t.Errorf("expected quit, got %+v", got)
	}
	if got := r.Tick(); got.Steps != 0 {
		t.Errorf("expected quit not to repeat, got %+v", got)
	}
}

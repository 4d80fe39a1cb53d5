// Package ring holds the in-memory cache of decoded frames around the
// playhead. The ring is split into equal subsections; when the playhead
// crosses from one subsection into a neighbour, the subsection on the far
// side is refilled so frames stay decoded in the direction of travel.
package ring

import (
	"errors"
	"fmt"

	"github.com/johnblat/scrubcache/pkg/ports"
)

var (
	// ErrGeometry is returned for rings that cannot form a transition table.
	ErrGeometry = errors.New("ring: need at least 3 subsections of at least 1 frame")
	// ErrNotFilled is returned when a subsection refill is attempted before
	// the ring holds a full window.
	ErrNotFilled = errors.New("ring: not filled")
	// ErrSubsection is returned for subsection indexes out of range.
	ErrSubsection = errors.New("ring: subsection out of range")
)

// Slot is one cached frame.
type Slot struct {
	Picture  *ports.Picture
	Frame    int64
	Keyframe bool
}

// Transition is a crossing from one subsection into an adjacent one.
type Transition struct {
	From int
	To   int
}

type refill struct {
	subsection int
	forward    bool
}

// Ring is a circular cache of Cap() decoded frames.
type Ring struct {
	subsections int
	size        int

	arena *Arena
	stage *Arena
	slots []Slot

	staged []int64
	// heads is the first frame each subsection holds, or will hold once
	// its scheduled refill lands.
	heads []int64

	valid   int
	pos     int
	prevPos int
	total   int64

	table map[Transition]refill
}

// New creates a ring of subsections*size slots holding width x height pictures.
func New(subsections, size, width, height int) (*Ring, error) {
	if subsections < 3 || size < 1 {
		return nil, fmt.Errorf("%w: %d x %d", ErrGeometry, subsections, size)
	}
	capacity := subsections * size
	r := &Ring{
		subsections: subsections,
		size:        size,
		arena:       NewArena(capacity, width, height),
		stage:       NewArena(capacity, width, height),
		slots:       make([]Slot, capacity),
		staged:      make([]int64, capacity),
		heads:       make([]int64, subsections),
		table:       buildTable(subsections),
	}
	for i := range r.slots {
		r.slots[i] = Slot{Picture: r.arena.Picture(i), Frame: -1}
	}
	for i := range r.heads {
		r.heads[i] = -1
	}
	return r, nil
}

// buildTable maps every adjacent crossing to the subsection to refill.
// Moving forward into "to" refills the subsection after it, moving backward
// refills the one before it.
func buildTable(s int) map[Transition]refill {
	t := make(map[Transition]refill, 2*s)
	for from := 0; from < s; from++ {
		fwd := (from + 1) % s
		t[Transition{from, fwd}] = refill{subsection: (fwd + 1) % s, forward: true}
		back := (from - 1 + s) % s
		t[Transition{from, back}] = refill{subsection: (back - 1 + s) % s, forward: false}
	}
	return t
}

// Cap returns the number of slots.
func (r *Ring) Cap() int { return len(r.slots) }

// Subsections returns the number of subsections.
func (r *Ring) Subsections() int { return r.subsections }

// SubsectionSize returns the number of slots per subsection.
func (r *Ring) SubsectionSize() int { return r.size }

// Valid returns the number of slots holding frames.
func (r *Ring) Valid() int { return r.valid }

// Pos returns the playhead slot.
func (r *Ring) Pos() int { return r.pos }

// PrevPos returns the playhead slot before the last move.
func (r *Ring) PrevPos() int { return r.prevPos }

// TotalFrames returns the stream length recorded by the last Fill.
func (r *Ring) TotalFrames() int64 { return r.total }

// Slot returns slot i.
func (r *Ring) Slot(i int) Slot { return r.slots[i] }

// Current returns the slot under the playhead.
func (r *Ring) Current() Slot { return r.slots[r.pos] }

// Frames returns the frame number held by each slot, -1 for empty slots.
func (r *Ring) Frames() []int64 {
	out := make([]int64, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.Frame
	}
	return out
}

// SubsectionOf returns the subsection containing slot.
func (r *Ring) SubsectionOf(slot int) int {
	return slot / r.size
}

// FirstSlotOf returns the first slot of subsection.
func (r *Ring) FirstSlotOf(subsection int) int {
	return subsection * r.size
}

// Next moves the playhead one slot forward, wrapping at the end.
func (r *Ring) Next() {
	if r.valid == 0 {
		return
	}
	r.prevPos = r.pos
	r.pos = (r.pos + 1) % r.valid
}

// Prev moves the playhead one slot backward, wrapping at the start.
func (r *Ring) Prev() {
	if r.valid == 0 {
		return
	}
	r.prevPos = r.pos
	r.pos = (r.pos - 1 + r.valid) % r.valid
}

// Seat places the playhead on slot without recording a move, so the next
// Crossed reports nothing until the playhead leaves its subsection.
func (r *Ring) Seat(slot int) {
	if slot < 0 || slot >= r.valid {
		return
	}
	r.pos = slot
	r.prevPos = slot
}

// Crossed reports the subsection transition made by the last move, if any.
func (r *Ring) Crossed() (Transition, bool) {
	from, to := r.SubsectionOf(r.prevPos), r.SubsectionOf(r.pos)
	if from == to {
		return Transition{}, false
	}
	return Transition{From: from, To: to}, true
}

// TransitionToRefill returns the subsection to refill after crossing from
// one subsection into another. ok is false for pairs that are not adjacent.
func (r *Ring) TransitionToRefill(from, to int) (subsection int, ok bool) {
	rf, ok := r.table[Transition{from, to}]
	return rf.subsection, ok
}

// StartFrameForRefill returns the first frame the refilled subsection must
// hold so that frames run contiguously through the destination subsection.
// The destination is taken at its scheduled content, which may still be
// in flight from an earlier refill.
func (r *Ring) StartFrameForRefill(from, to int) (int64, bool) {
	rf, ok := r.table[Transition{from, to}]
	if !ok || r.valid < len(r.slots) {
		return 0, false
	}
	first := r.heads[to]
	if first < 0 {
		return 0, false
	}
	if rf.forward {
		return Wrap(first+int64(r.size), r.total), true
	}
	return Wrap(first-int64(r.size), r.total), true
}

// Fill decodes Cap() consecutive frames starting at start into the ring and
// resets the playhead to the first slot. It returns the number of frames
// installed. On error the ring is left as it was.
func (r *Ring) Fill(src FrameSource, start int64) (int, error) {
	total := src.TotalFrames()
	start = Wrap(start, total)

	n, err := DecodeRun(src, start, len(r.slots),
		func(i int) (*ports.Picture, error) { return r.stage.Picture(i), nil },
		func(i int, frame int64, _ *ports.Picture) error {
			r.staged[i] = frame
			return nil
		})
	if err != nil {
		return 0, fmt.Errorf("fill from frame %d: %w", start, err)
	}

	for i := range r.slots {
		if i < n {
			r.install(i, r.stage.Picture(i), r.staged[i])
		} else {
			r.slots[i].Frame = -1
		}
	}
	r.valid = n
	r.pos = 0
	r.prevPos = 0
	r.total = total
	for k := range r.heads {
		r.heads[k] = -1
		if (k+1)*r.size <= n {
			r.heads[k] = Wrap(start+int64(k*r.size), total)
		}
	}
	return n, nil
}

// Schedule records that subsection will be refilled from start. Refills
// serviced elsewhere and installed slot by slot call this when requested.
func (r *Ring) Schedule(subsection int, start int64) {
	if subsection < 0 || subsection >= r.subsections {
		return
	}
	r.heads[subsection] = Wrap(start, r.total)
}

// Head returns the first frame subsection holds or is scheduled to hold,
// -1 if unknown.
func (r *Ring) Head(subsection int) int64 {
	if subsection < 0 || subsection >= r.subsections {
		return -1
	}
	return r.heads[subsection]
}

// FillSubsection decodes one subsection worth of frames starting at start
// into subsection and returns the number of frames installed. The playhead
// does not move. On error the ring is left as it was.
func (r *Ring) FillSubsection(src FrameSource, start int64, subsection int) (int, error) {
	if subsection < 0 || subsection >= r.subsections {
		return 0, fmt.Errorf("%w: %d", ErrSubsection, subsection)
	}
	if r.valid < len(r.slots) {
		return 0, ErrNotFilled
	}

	n, err := DecodeRun(src, start, r.size,
		func(i int) (*ports.Picture, error) { return r.stage.Picture(i), nil },
		func(i int, frame int64, _ *ports.Picture) error {
			r.staged[i] = frame
			return nil
		})
	if err != nil {
		return 0, fmt.Errorf("fill subsection %d from frame %d: %w", subsection, start, err)
	}

	first := r.FirstSlotOf(subsection)
	for i := 0; i < n; i++ {
		r.install(first+i, r.stage.Picture(i), r.staged[i])
	}
	r.heads[subsection] = Wrap(start, r.total)
	return n, nil
}

// Install copies pic into slot and records its frame number.
func (r *Ring) Install(slot int, pic *ports.Picture, frame int64) {
	if slot < 0 || slot >= len(r.slots) {
		return
	}
	r.install(slot, pic, frame)
}

func (r *Ring) install(slot int, pic *ports.Picture, frame int64) {
	s := &r.slots[slot]
	s.Picture.CopyFrom(pic)
	s.Frame = frame
	s.Keyframe = pic.Keyframe
}

package ring

import (
	"errors"
	"testing"

	"github.com/johnblat/scrubcache/pkg/mocks"
	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/stream"
)

func openSource(t *testing.T, spec mocks.MediaSpec) (*stream.Stream, *mocks.Demuxer) {
	t.Helper()
	media := mocks.NewMedia(spec)
	s, err := stream.Open(media, "clip.mp4", stream.Options{}, mocks.NewLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, media.Demuxers()[0]
}

func newRing(t *testing.T, s *stream.Stream, subsections, size int) *Ring {
	t.Helper()
	w, h := s.PictureSize()
	r, err := New(subsections, size, w, h)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func assertSlots(t *testing.T, r *Ring, from, to int, firstFrame, total int64) {
	t.Helper()
	for i := from; i < to; i++ {
		want := Wrap(firstFrame+int64(i-from), total)
		slot := r.Slot(i)
		if slot.Frame != want {
			t.Fatalf("slot %d: expected frame %d, got %d", i, want, slot.Frame)
		}
		if got := mocks.FrameOfPicture(slot.Picture); got != want {
			t.Fatalf("slot %d: expected picture of frame %d, got %d", i, want, got)
		}
	}
}

func TestNew_RejectsBadGeometry(t *testing.T) {
	tests := []struct {
		name        string
		subsections int
		size        int
	}{
		{"two subsections", 2, 16},
		{"zero size", 3, 0},
		{"negative", -1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.subsections, tt.size, 8, 4); !errors.Is(err, ErrGeometry) {
				t.Errorf("expected ErrGeometry, got %v", err)
			}
		})
	}
}

func TestRing_TransitionTable(t *testing.T) {
	r, err := New(3, 4, 8, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	legal := map[Transition]int{
		{0, 1}: 2, {1, 2}: 0, {2, 0}: 1,
		{0, 2}: 1, {2, 1}: 0, {1, 0}: 2,
	}
	for tr, want := range legal {
		got, ok := r.TransitionToRefill(tr.From, tr.To)
		if !ok {
			t.Errorf("%v: expected a legal transition", tr)
			continue
		}
		if got != want {
			t.Errorf("%v: expected refill %d, got %d", tr, want, got)
		}
		if got == tr.From || got == tr.To {
			t.Errorf("%v: refill %d must be the third subsection", tr, got)
		}
	}

	for _, tr := range []Transition{{0, 0}, {1, 1}, {2, 2}} {
		if _, ok := r.TransitionToRefill(tr.From, tr.To); ok {
			t.Errorf("%v: expected no refill", tr)
		}
	}
}

func TestRing_TransitionTableWider(t *testing.T) {
	r, err := New(5, 2, 8, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got, _ := r.TransitionToRefill(1, 2); got != 3 {
		t.Errorf("expected forward refill 3, got %d", got)
	}
	if got, _ := r.TransitionToRefill(0, 4); got != 3 {
		t.Errorf("expected backward refill 3, got %d", got)
	}
	if _, ok := r.TransitionToRefill(0, 2); ok {
		t.Error("expected non-adjacent pair to be rejected")
	}
}

func TestRing_SlotGeometry(t *testing.T) {
	r, err := New(3, 16, 8, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if r.Cap() != 48 {
		t.Errorf("expected cap 48, got %d", r.Cap())
	}
	for _, tc := range []struct{ slot, sub int }{{0, 0}, {15, 0}, {16, 1}, {31, 1}, {32, 2}, {47, 2}} {
		if got := r.SubsectionOf(tc.slot); got != tc.sub {
			t.Errorf("slot %d: expected subsection %d, got %d", tc.slot, tc.sub, got)
		}
	}
	if got := r.FirstSlotOf(2); got != 32 {
		t.Errorf("expected first slot 32, got %d", got)
	}
}

func TestRing_Fill(t *testing.T) {
	s, _ := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 16)

	n, err := r.Fill(s, 800)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if n != 48 || r.Valid() != 48 {
		t.Fatalf("expected 48 frames, got %d (valid %d)", n, r.Valid())
	}
	if r.Pos() != 0 {
		t.Errorf("expected playhead at 0, got %d", r.Pos())
	}
	assertSlots(t, r, 0, 48, 800, 1000)
	if !r.Slot(0).Keyframe {
		t.Error("expected frame 800 to be a keyframe")
	}
	if r.Slot(1).Keyframe {
		t.Error("expected frame 801 not to be a keyframe")
	}
}

func TestRing_FillWrapsAtEndOfStream(t *testing.T) {
	s, _ := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 16)

	if _, err := r.Fill(s, 990); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	assertSlots(t, r, 0, 48, 990, 1000)
	if r.Slot(10).Frame != 0 {
		t.Errorf("expected numbering to restart at 0, got %d", r.Slot(10).Frame)
	}
}

func TestRing_FillShortStream(t *testing.T) {
	spec := mocks.DefaultMediaSpec()
	spec.Frames = 20
	s, _ := openSource(t, spec)
	r := newRing(t, s, 3, 16)

	n, err := r.Fill(s, 0)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	// Wrapping fills the window with repeats of the clip.
	if n != 48 {
		t.Fatalf("expected 48 frames, got %d", n)
	}
	assertSlots(t, r, 0, 48, 0, 20)
}

func TestRing_FillEmptyStream(t *testing.T) {
	spec := mocks.DefaultMediaSpec()
	spec.Frames = 0
	spec.HideFrameCount = true
	spec.HideDuration = true
	spec.AvgFrameRate = ports.Rational{Num: 25, Den: 1}
	s, _ := openSource(t, spec)
	r := newRing(t, s, 3, 4)

	n, err := r.Fill(s, 0)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if n != 0 || r.Valid() != 0 {
		t.Errorf("expected an empty ring, got %d", n)
	}
	r.Next()
	if r.Pos() != 0 {
		t.Errorf("expected playhead to stay at 0, got %d", r.Pos())
	}
}

func TestRing_FillErrorLeavesRingUnchanged(t *testing.T) {
	s, dmx := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 16)
	if _, err := r.Fill(s, 100); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	r.Next()
	r.Next()

	boom := errors.New("bad seek")
	dmx.SeekFunc = func(int, int64) error { return boom }

	if _, err := r.Fill(s, 500); !errors.Is(err, boom) {
		t.Fatalf("expected seek error, got %v", err)
	}
	assertSlots(t, r, 0, 48, 100, 1000)
	if r.Pos() != 2 {
		t.Errorf("expected playhead to stay at 2, got %d", r.Pos())
	}

	if _, err := r.FillSubsection(s, 148, 0); !errors.Is(err, boom) {
		t.Fatalf("expected seek error, got %v", err)
	}
	assertSlots(t, r, 0, 48, 100, 1000)
}

func TestRing_FillErrorMidDecode(t *testing.T) {
	s, dmx := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 16)
	if _, err := r.Fill(s, 0); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	boom := errors.New("truncated")
	dmx.ReadFunc = func(cursor int) error {
		if cursor > 310 {
			return boom
		}
		return nil
	}
	if _, err := r.FillSubsection(s, 200, 1); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
	assertSlots(t, r, 0, 48, 0, 1000)
}

func TestRing_NextPrev(t *testing.T) {
	s, _ := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 4)
	if _, err := r.Fill(s, 0); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	r.Prev()
	if r.Pos() != 11 || r.PrevPos() != 0 {
		t.Errorf("expected pos 11 prev 0, got %d prev %d", r.Pos(), r.PrevPos())
	}
	r.Next()
	if r.Pos() != 0 || r.PrevPos() != 11 {
		t.Errorf("expected pos 0 prev 11, got %d prev %d", r.Pos(), r.PrevPos())
	}

	for i := 0; i < 5; i++ {
		r.Next()
	}
	r.Prev()
	if r.Pos() != 4 {
		t.Errorf("expected next then prev to return to 4, got %d", r.Pos())
	}
	if r.Current().Frame != 4 {
		t.Errorf("expected current frame 4, got %d", r.Current().Frame)
	}
}

func TestRing_ForwardCrossingRefill(t *testing.T) {
	s, _ := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 16)
	if _, err := r.Fill(s, 800); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	var crossings []Transition
	for i := 0; i < 16; i++ {
		r.Next()
		if tr, ok := r.Crossed(); ok {
			crossings = append(crossings, tr)
		}
	}
	if len(crossings) != 1 {
		t.Fatalf("expected exactly one crossing, got %v", crossings)
	}
	tr := crossings[0]
	if tr != (Transition{0, 1}) {
		t.Fatalf("expected crossing 0->1, got %v", tr)
	}

	sub, ok := r.TransitionToRefill(tr.From, tr.To)
	if !ok || sub != 2 {
		t.Fatalf("expected refill of subsection 2, got %d (%v)", sub, ok)
	}
	start, ok := r.StartFrameForRefill(tr.From, tr.To)
	if !ok || start != 832 {
		t.Fatalf("expected refill start 832, got %d (%v)", start, ok)
	}

	n, err := r.FillSubsection(s, start, sub)
	if err != nil {
		t.Fatalf("FillSubsection failed: %v", err)
	}
	if n != 16 {
		t.Errorf("expected 16 frames, got %d", n)
	}
	assertSlots(t, r, 32, 48, 832, 1000)
	if r.Pos() != 16 || r.Current().Frame != 816 {
		t.Errorf("expected playhead at slot 16 frame 816, got %d frame %d", r.Pos(), r.Current().Frame)
	}
}

func TestRing_BackwardCrossingRefill(t *testing.T) {
	s, _ := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 16)
	if _, err := r.Fill(s, 10); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	r.Prev()
	tr, ok := r.Crossed()
	if !ok || tr != (Transition{0, 2}) {
		t.Fatalf("expected crossing 0->2, got %v (%v)", tr, ok)
	}
	sub, _ := r.TransitionToRefill(tr.From, tr.To)
	start, ok := r.StartFrameForRefill(tr.From, tr.To)
	if !ok || sub != 1 || start != 26 {
		t.Fatalf("expected refill of 1 from 26, got %d from %d", sub, start)
	}
}

func TestRing_StartFrameForRefillWraps(t *testing.T) {
	s, _ := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 16)
	if _, err := r.Fill(s, 970); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	// Subsection 1 holds 986..999 then 0, 1.
	start, _ := r.StartFrameForRefill(0, 1)
	if start != 2 {
		t.Errorf("expected forward refill start 2, got %d", start)
	}
	// Subsection 2 starts at frame 2, so the subsection before it starts at 986.
	start, _ = r.StartFrameForRefill(0, 2)
	if start != 986 {
		t.Errorf("expected backward refill start 986, got %d", start)
	}
}

func TestRing_SeatDoesNotCross(t *testing.T) {
	s, _ := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 16)
	if _, err := r.Fill(s, 784); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	r.Seat(16)
	if r.Pos() != 16 || r.PrevPos() != 16 || r.Current().Frame != 800 {
		t.Fatalf("expected playhead on slot 16 frame 800, got %d prev %d frame %d", r.Pos(), r.PrevPos(), r.Current().Frame)
	}
	if tr, ok := r.Crossed(); ok {
		t.Errorf("expected no crossing after Seat, got %v", tr)
	}

	r.Prev()
	tr, ok := r.Crossed()
	if !ok || tr != (Transition{1, 0}) {
		t.Fatalf("expected crossing 1->0, got %v (%v)", tr, ok)
	}
	if r.Current().Frame != 799 {
		t.Errorf("expected frame 799, got %d", r.Current().Frame)
	}
	start, _ := r.StartFrameForRefill(tr.From, tr.To)
	if start != 768 {
		t.Errorf("expected backward refill start 768, got %d", start)
	}

	r.Seat(48)
	if r.Pos() != 15 {
		t.Errorf("expected an out of range seat to be ignored, got %d", r.Pos())
	}
}

func TestRing_ScheduledHeadDrivesNextRefill(t *testing.T) {
	s, _ := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 16)
	if _, err := r.Fill(s, 784); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if r.Head(0) != 784 || r.Head(1) != 800 || r.Head(2) != 816 {
		t.Fatalf("unexpected heads %d %d %d", r.Head(0), r.Head(1), r.Head(2))
	}

	// Subsection 0 still holds 784.. but is due to hold 832..
	r.Schedule(0, 832)
	if r.Slot(0).Frame != 784 {
		t.Errorf("expected Schedule to leave slots alone, got %d", r.Slot(0).Frame)
	}
	start, _ := r.StartFrameForRefill(2, 0)
	if start != 848 {
		t.Errorf("expected forward refill start 848, got %d", start)
	}

	r.Schedule(1, 1010)
	if r.Head(1) != 10 {
		t.Errorf("expected scheduled head to wrap to 10, got %d", r.Head(1))
	}
	if r.Head(3) != -1 {
		t.Errorf("expected -1 for an unknown subsection, got %d", r.Head(3))
	}

	if _, err := r.FillSubsection(s, 500, 2); err != nil {
		t.Fatalf("FillSubsection failed: %v", err)
	}
	if r.Head(2) != 500 {
		t.Errorf("expected FillSubsection to record head 500, got %d", r.Head(2))
	}
}

func TestRing_FillSubsectionRequiresFill(t *testing.T) {
	s, _ := openSource(t, mocks.DefaultMediaSpec())
	r := newRing(t, s, 3, 16)

	if _, err := r.FillSubsection(s, 0, 1); !errors.Is(err, ErrNotFilled) {
		t.Errorf("expected ErrNotFilled, got %v", err)
	}
	if _, err := r.Fill(s, 0); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if _, err := r.FillSubsection(s, 0, 3); !errors.Is(err, ErrSubsection) {
		t.Errorf("expected ErrSubsection, got %v", err)
	}
}

func TestRing_Install(t *testing.T) {
	r, err := New(3, 2, 8, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	pic := ports.NewPicture(8, 4)
	mocks.PaintFrame(pic, 321)
	pic.Keyframe = true

	r.Install(5, pic, 321)
	mocks.PaintFrame(pic, 7)

	slot := r.Slot(5)
	if slot.Frame != 321 || !slot.Keyframe {
		t.Errorf("expected keyframe 321, got %d (key %v)", slot.Frame, slot.Keyframe)
	}
	if got := mocks.FrameOfPicture(slot.Picture); got != 321 {
		t.Errorf("expected slot to own a copy of frame 321, got %d", got)
	}

	frames := r.Frames()
	if frames[5] != 321 || frames[0] != -1 {
		t.Errorf("unexpected frames %v", frames)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		frame, total, want int64
	}{
		{5, 10, 5},
		{10, 10, 0},
		{-1, 10, 9},
		{-21, 10, 9},
		{7, 0, 7},
	}
	for _, tt := range tests {
		if got := Wrap(tt.frame, tt.total); got != tt.want {
			t.Errorf("Wrap(%d, %d): expected %d, got %d", tt.frame, tt.total, tt.want, got)
		}
	}
}

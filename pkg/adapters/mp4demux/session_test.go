package mp4demux

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/johnblat/scrubcache/pkg/mocks"
	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/session"
)

// passDecoder emits one picture per packet, tagging it with the fixture's
// frame byte so mocks.FrameOfPicture can read it back.
type passDecoder struct {
	queue    []ports.Picture
	ids      []byte
	draining bool
}

func (d *passDecoder) SendPacket(pkt *ports.Packet) error {
	if pkt == nil {
		d.draining = true
		return nil
	}
	d.queue = append(d.queue, ports.Picture{PTS: pkt.PTS, Keyframe: pkt.Keyframe})
	d.ids = append(d.ids, pkt.Data[len(pkt.Data)-1])
	return nil
}

func (d *passDecoder) ReceiveFrame(dst *ports.Picture) error {
	if len(d.queue) == 0 {
		if d.draining {
			return ports.ErrEOF
		}
		return ports.ErrAgain
	}
	dst.PTS, dst.Keyframe = d.queue[0].PTS, d.queue[0].Keyframe
	if dst.Image != nil {
		dst.Image.Pix[0], dst.Image.Pix[1] = d.ids[0], 0
	}
	d.queue, d.ids = d.queue[1:], d.ids[1:]
	return nil
}

func (d *passDecoder) Flush() {
	d.queue, d.ids, d.draining = nil, nil, false
}

func (d *passDecoder) Close() error { return nil }

func TestSession_OverFragmentedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, buildFragmented(t, 120, 12), 0o644); err != nil {
		t.Fatal(err)
	}
	opener := Opener{Decoders: func(ports.StreamInfo, ports.DecoderOptions) (ports.Decoder, error) {
		return &passDecoder{}, nil
	}}

	opts := session.DefaultOptions()
	opts.Path = path
	opts.StartFrame = 40
	opts.ErrorBackoff = 0
	sess, err := session.Open(&opener, opts, mocks.NewLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	if got := sess.Diagnostics().TotalFrames; got != 120 {
		t.Errorf("expected 120 frames, got %d", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned %v", err)
		}
	}()

	start := sess.Diagnostics().Frame
	for _, move := range []struct {
		dir   session.Direction
		steps int
	}{
		{session.Forward, 30},
		{session.Backward, 50},
	} {
		for i := 0; i < move.steps; i++ {
			if _, err := sess.Step(move.dir); err != nil {
				t.Fatalf("Step failed: %v", err)
			}
		}
		settleCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		err := sess.Settle(settleCtx)
		stop()
		if err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
	}

	if got := sess.Diagnostics().Frame; got != start-20 {
		t.Errorf("expected playhead on frame %d, got %d", start-20, got)
	}

	r := sess.Ring()
	for i := 0; i < r.Cap(); i++ {
		slot := r.Slot(i)
		if slot.Frame < 0 || slot.Picture == nil {
			continue
		}
		if got := mocks.FrameOfPicture(slot.Picture); got != slot.Frame {
			t.Errorf("slot %d: expected picture of frame %d, got %d", i, slot.Frame, got)
		}
		if want := slot.Frame%12 == 0; slot.Keyframe != want {
			t.Errorf("slot %d: frame %d keyframe %v", i, slot.Frame, slot.Keyframe)
		}
	}
}

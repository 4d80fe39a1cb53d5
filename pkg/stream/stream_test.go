package stream

import (
	"bytes"
	"errors"
	"testing"

	"github.com/johnblat/scrubcache/pkg/mocks"
	"github.com/johnblat/scrubcache/pkg/ports"
)

func openTestStream(t *testing.T, spec mocks.MediaSpec) (*Stream, *mocks.Demuxer) {
	t.Helper()
	media := mocks.NewMedia(spec)
	s, err := Open(media, "clip.mp4", Options{}, mocks.NewLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, media.Demuxers()[0]
}

func decodeFrame(t *testing.T, s *Stream) (int64, *ports.Picture) {
	t.Helper()
	w, h := s.PictureSize()
	pic := ports.NewPicture(w, h)
	if err := s.DecodeNext(pic); err != nil {
		t.Fatalf("DecodeNext failed: %v", err)
	}
	return mocks.FrameOfPicture(pic), pic
}

func TestFindVideoStream(t *testing.T) {
	_, err := FindVideoStream([]ports.StreamInfo{{Index: 0, MediaType: ports.MediaAudio}})
	if !errors.Is(err, ErrNoVideoStream) {
		t.Errorf("expected ErrNoVideoStream, got %v", err)
	}

	st, err := FindVideoStream([]ports.StreamInfo{
		{Index: 0, MediaType: ports.MediaAudio},
		{Index: 1, MediaType: ports.MediaVideo},
		{Index: 2, MediaType: ports.MediaVideo},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Index != 1 {
		t.Errorf("expected stream 1, got %d", st.Index)
	}
}

func TestPictureSize(t *testing.T) {
	tests := []struct {
		name         string
		info         ports.StreamInfo
		maxWidth     int
		wantW, wantH int
	}{
		{"native", ports.StreamInfo{Width: 640, Height: 360}, 0, 640, 360},
		{"capped", ports.StreamInfo{Width: 1920, Height: 1080}, 640, 640, 360},
		{"odd made even", ports.StreamInfo{Width: 101, Height: 51}, 0, 100, 50},
		{"unknown", ports.StreamInfo{}, 0, 320, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := PictureSize(tt.info, tt.maxWidth)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestStream_DecodeNextSkipsOtherStreams(t *testing.T) {
	spec := mocks.DefaultMediaSpec()
	spec.Frames = 60
	s, _ := openTestStream(t, spec)

	for want := int64(0); want < 60; want++ {
		got, pic := decodeFrame(t, s)
		if got != want {
			t.Fatalf("expected frame %d, got %d", want, got)
		}
		if pic.PTS != want*spec.FrameDuration {
			t.Fatalf("frame %d: expected pts %d, got %d", want, want*spec.FrameDuration, pic.PTS)
		}
	}

	w, h := s.PictureSize()
	if err := s.DecodeNext(ports.NewPicture(w, h)); !errors.Is(err, ports.ErrEOF) {
		t.Errorf("expected ErrEOF after last frame, got %v", err)
	}
}

func TestStream_DecodeNextReturnsReadErrors(t *testing.T) {
	s, dmx := openTestStream(t, mocks.DefaultMediaSpec())
	boom := errors.New("corrupt container")
	dmx.ReadFunc = func(cursor int) error {
		if cursor == 3 {
			return boom
		}
		return nil
	}

	w, h := s.PictureSize()
	pic := ports.NewPicture(w, h)
	var err error
	for i := 0; i < 10 && err == nil; i++ {
		err = s.DecodeNext(pic)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestStream_SeekToFrameZero(t *testing.T) {
	s, dmx := openTestStream(t, mocks.DefaultMediaSpec())

	// Move away first so the seek has something to undo.
	for i := 0; i < 40; i++ {
		decodeFrame(t, s)
	}
	if err := s.SeekToFrame(0); err != nil {
		t.Fatalf("SeekToFrame(0) failed: %v", err)
	}

	frame, pic := decodeFrame(t, s)
	if frame != 0 {
		t.Errorf("expected frame 0, got %d", frame)
	}
	if pic.PTS != 0 {
		t.Errorf("expected minimum pts 0, got %d", pic.PTS)
	}
	if got := dmx.Decoders()[0].Flushes(); got != 1 {
		t.Errorf("expected 1 flush, got %d", got)
	}
}

func TestStream_SeekToFrameIsFrameAccurate(t *testing.T) {
	targets := []int64{1, 24, 25, 26, 499, 500, 525, 998, 999}

	for _, target := range targets {
		s, _ := openTestStream(t, mocks.DefaultMediaSpec())
		if err := s.SeekToFrame(target); err != nil {
			t.Fatalf("SeekToFrame(%d) failed: %v", target, err)
		}
		if got, _ := decodeFrame(t, s); got != target {
			t.Errorf("SeekToFrame(%d): next frame is %d", target, got)
		}
	}
}

func TestStream_SeekToFrameIsDeterministic(t *testing.T) {
	s, _ := openTestStream(t, mocks.DefaultMediaSpec())

	var first []byte
	for i := 0; i < 3; i++ {
		if err := s.SeekToFrame(500); err != nil {
			t.Fatalf("SeekToFrame(500) failed: %v", err)
		}
		_, pic := decodeFrame(t, s)
		if first == nil {
			first = append([]byte(nil), pic.Image.Pix...)
			continue
		}
		if !bytes.Equal(first, pic.Image.Pix) {
			t.Fatalf("seek %d produced different pixels", i)
		}
		// Scramble the position between seeks.
		decodeFrame(t, s)
	}
}

func TestStream_SeekToFrameUsesBackwardKeyframeSeek(t *testing.T) {
	spec := mocks.DefaultMediaSpec()
	s, dmx := openTestStream(t, spec)

	if err := s.SeekToFrame(510); err != nil {
		t.Fatalf("SeekToFrame failed: %v", err)
	}
	seeks := dmx.Seeks()
	if len(seeks) != 1 || seeks[0] != 510*spec.FrameDuration {
		t.Errorf("expected one seek to ts %d, got %v", 510*spec.FrameDuration, seeks)
	}
}

func TestStream_SeekError(t *testing.T) {
	s, dmx := openTestStream(t, mocks.DefaultMediaSpec())
	rejected := errors.New("out of range")
	dmx.SeekFunc = func(streamIndex int, ts int64) error { return rejected }

	err := s.SeekToFrame(100)
	var seekErr *SeekError
	if !errors.As(err, &seekErr) {
		t.Fatalf("expected *SeekError, got %v", err)
	}
	if seekErr.Frame != 100 {
		t.Errorf("expected frame 100, got %d", seekErr.Frame)
	}
	if !errors.Is(err, rejected) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestStream_SeekPastEndRunsOffEnd(t *testing.T) {
	s, _ := openTestStream(t, mocks.DefaultMediaSpec())

	err := s.SeekToFrame(1200)
	if !errors.Is(err, ErrRanOffEnd) {
		t.Errorf("expected ErrRanOffEnd, got %v", err)
	}

	if err := s.Rewind(); err != nil {
		t.Fatalf("Rewind failed: %v", err)
	}
	if got, _ := decodeFrame(t, s); got != 0 {
		t.Errorf("expected frame 0 after rewind, got %d", got)
	}
}

func TestStream_SeekSurfacesDecodeErrors(t *testing.T) {
	s, dmx := openTestStream(t, mocks.DefaultMediaSpec())
	broken := errors.New("bitstream error")
	dmx.Decoders()[0].FailFrames = map[int64]error{505: broken}

	if err := s.SeekToFrame(510); !errors.Is(err, broken) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestStream_FrameTimestampConversion(t *testing.T) {
	spec := mocks.DefaultMediaSpec()
	s, _ := openTestStream(t, spec)

	if got := s.TimestampOf(10); got != 10*spec.FrameDuration {
		t.Errorf("expected %d, got %d", 10*spec.FrameDuration, got)
	}
	if got := s.FrameOf(10 * spec.FrameDuration); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
	if got := s.TotalFrames(); got != int64(spec.Frames) {
		t.Errorf("expected %d frames, got %d", spec.Frames, got)
	}
}

func TestStream_CloseClosesDemuxer(t *testing.T) {
	media := mocks.NewMedia(mocks.DefaultMediaSpec())
	s, err := Open(media, "clip.mp4", Options{}, mocks.NewLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !media.Demuxers()[0].Closed() {
		t.Error("expected demuxer to be closed")
	}
}

// Package stream wraps a demuxer and a decoder bound to the video stream of
// one container, and provides frame-accurate seeking on top of the coarse
// keyframe seek the container offers.
//
// A Stream is not safe for concurrent use. It must be owned by one goroutine
// at a time.
package stream

import (
	"errors"
	"fmt"

	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/timeline"
)

var (
	// ErrNoVideoStream is returned when the container has no video stream.
	ErrNoVideoStream = errors.New("stream: no video stream")

	// ErrRanOffEnd is returned when the end of the stream is reached while
	// decoding forward towards a seek target.
	ErrRanOffEnd = errors.New("stream: ran off end of stream")
)

// SeekError is returned when the container rejects a keyframe seek.
type SeekError struct {
	Frame     int64
	Timestamp int64
	Err       error
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("stream: seek to frame %d (ts %d): %v", e.Frame, e.Timestamp, e.Err)
}

func (e *SeekError) Unwrap() error {
	return e.Err
}

// Options configures how a stream is opened.
type Options struct {
	// MaxWidth caps the width of decoded pictures. 0 keeps the stream width.
	MaxWidth int

	// Threads is passed to the decoder.
	Threads int
}

const (
	defaultWidth  = 320
	defaultHeight = 180
)

// Stream is an opened container positioned on its video stream.
type Stream struct {
	demuxer ports.Demuxer
	decoder ports.Decoder
	info    ports.StreamInfo
	est     *timeline.Estimator
	log     ports.Logger

	width  int
	height int

	pkt      ports.Packet
	scratch  *ports.Picture
	pushback bool
	draining bool
}

// Open opens path with opener and binds a decoder to its first video stream.
func Open(opener ports.MediaOpener, path string, opts Options, log ports.Logger) (*Stream, error) {
	dmx, err := opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s, err := New(dmx, opts, log)
	if err != nil {
		dmx.Close()
		return nil, err
	}
	return s, nil
}

// New binds a decoder to the first video stream of an opened demuxer.
// The stream takes ownership of dmx.
func New(dmx ports.Demuxer, opts Options, log ports.Logger) (*Stream, error) {
	info, err := FindVideoStream(dmx.Streams())
	if err != nil {
		return nil, err
	}

	width, height := PictureSize(info, opts.MaxWidth)
	dec, err := dmx.OpenDecoder(info.Index, ports.DecoderOptions{
		Width:   width,
		Height:  height,
		Threads: opts.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("open decoder: %w", err)
	}

	s := &Stream{
		demuxer: dmx,
		decoder: dec,
		info:    info,
		est:     timeline.NewEstimator(info),
		log:     log.WithComponent("stream"),
		width:   width,
		height:  height,
		scratch: ports.NewPicture(width, height),
	}
	s.log.Debug("Video stream %d: %s %dx%d, %d frames (%s estimate)",
		info.Index, info.Codec, info.Width, info.Height, s.est.TotalFrames(), s.est.Method())
	return s, nil
}

// FindVideoStream returns the first video stream in streams.
func FindVideoStream(streams []ports.StreamInfo) (ports.StreamInfo, error) {
	for _, st := range streams {
		if st.MediaType == ports.MediaVideo {
			return st, nil
		}
	}
	return ports.StreamInfo{}, ErrNoVideoStream
}

// PictureSize returns the decoded picture size for a stream, keeping the
// aspect ratio when the width is capped. Both sides are even.
func PictureSize(info ports.StreamInfo, maxWidth int) (int, int) {
	w, h := info.Width, info.Height
	if w <= 0 || h <= 0 {
		w, h = defaultWidth, defaultHeight
	}
	if maxWidth > 0 && w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
	}
	w &^= 1
	h &^= 1
	if w < 2 {
		w = 2
	}
	if h < 2 {
		h = 2
	}
	return w, h
}

// Info returns the video stream description.
func (s *Stream) Info() ports.StreamInfo {
	return s.info
}

// Estimator returns the frame/timestamp estimator of the video stream.
func (s *Stream) Estimator() *timeline.Estimator {
	return s.est
}

// TotalFrames returns the estimated number of frames in the video stream.
func (s *Stream) TotalFrames() int64 {
	return s.est.TotalFrames()
}

// PictureSize returns the size of the pictures the stream decodes to.
func (s *Stream) PictureSize() (int, int) {
	return s.width, s.height
}

// FrameOf converts a presentation timestamp to a frame number.
func (s *Stream) FrameOf(pts int64) int64 {
	return s.est.TimestampToFrame(pts - s.startTime())
}

// TimestampOf converts a frame number to an estimated presentation timestamp.
func (s *Stream) TimestampOf(frame int64) int64 {
	return s.startTime() + s.est.FrameToTimestamp(frame)
}

func (s *Stream) startTime() int64 {
	if s.info.StartTime == ports.NoPTS || s.info.StartTime < 0 {
		return 0
	}
	return s.info.StartTime
}

// DecodeNext decodes the next video picture into dst.
//
// Packets of other streams are skipped. When the decoder needs more input
// another packet is read. At the end of the container the decoder is
// drained and ports.ErrEOF is returned once it is empty. Any other error
// is returned immediately.
func (s *Stream) DecodeNext(dst *ports.Picture) error {
	if s.pushback {
		s.pushback = false
		dst.CopyFrom(s.scratch)
		return nil
	}

	for {
		err := s.decoder.ReceiveFrame(dst)
		if err == nil {
			return nil
		}
		if errors.Is(err, ports.ErrEOF) {
			return ports.ErrEOF
		}
		if !errors.Is(err, ports.ErrAgain) {
			return fmt.Errorf("receive frame: %w", err)
		}
		if s.draining {
			return ports.ErrEOF
		}

		if err := s.demuxer.ReadPacket(&s.pkt); err != nil {
			if !errors.Is(err, ports.ErrEOF) {
				return fmt.Errorf("read packet: %w", err)
			}
			s.draining = true
			if err := s.decoder.SendPacket(nil); err != nil && !errors.Is(err, ports.ErrEOF) {
				return fmt.Errorf("drain decoder: %w", err)
			}
			continue
		}
		if s.pkt.StreamIndex != s.info.Index {
			continue
		}
		if err := s.decoder.SendPacket(&s.pkt); err != nil {
			return fmt.Errorf("send packet: %w", err)
		}
	}
}

// SeekToFrame positions the stream so that the next DecodeNext returns
// target.
//
// The container is seeked backward to the nearest keyframe, the decoder is
// flushed, and frames are decoded and discarded until the frame just before
// target has been consumed. Seeking to frame 0 needs no refinement.
// It returns a *SeekError when the container rejects the seek and
// ErrRanOffEnd when the stream ends before the target is reached.
func (s *Stream) SeekToFrame(target int64) error {
	targetTs := s.TimestampOf(target)
	s.pushback = false

	if target < 0 {
		return &SeekError{Frame: target, Timestamp: targetTs, Err: errors.New("negative frame number")}
	}
	if err := s.demuxer.SeekBackward(s.info.Index, targetTs); err != nil {
		return &SeekError{Frame: target, Timestamp: targetTs, Err: err}
	}
	s.decoder.Flush()
	s.draining = false

	if target == 0 || targetTs == 0 {
		return nil
	}

	refTs := s.TimestampOf(target - 1)
	// A picture past the midpoint between the two estimates is the target
	// itself, reached when the keyframe seek lands exactly on it.
	mid := refTs + (targetTs-refTs)/2
	discarded := 0
	for {
		err := s.DecodeNext(s.scratch)
		if errors.Is(err, ports.ErrEOF) {
			return fmt.Errorf("%w: frame %d after %d frames", ErrRanOffEnd, target, discarded)
		}
		if err != nil {
			return fmt.Errorf("refine seek to frame %d: %w", target, err)
		}
		if s.scratch.PTS == ports.NoPTS || s.scratch.PTS < refTs {
			discarded++
			continue
		}
		if targetTs > refTs && s.scratch.PTS > mid {
			s.pushback = true
		}
		s.log.Debug("Seek to frame %d: discarded %d frames", target, discarded)
		return nil
	}
}

// Rewind seeks back to the first frame.
func (s *Stream) Rewind() error {
	return s.SeekToFrame(0)
}

// Close releases the decoder and the demuxer.
func (s *Stream) Close() error {
	var errs []error
	if s.decoder != nil {
		if err := s.decoder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close decoder: %w", err))
		}
		s.decoder = nil
	}
	if s.demuxer != nil {
		if err := s.demuxer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close demuxer: %w", err))
		}
		s.demuxer = nil
	}
	return errors.Join(errs...)
}

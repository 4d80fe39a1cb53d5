package ring

import (
	"errors"
	"fmt"

	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/stream"
)

// FrameSource is the decoder a ring is filled from. *stream.Stream
// implements it.
type FrameSource interface {
	SeekToFrame(frame int64) error
	DecodeNext(dst *ports.Picture) error
	Rewind() error
	TotalFrames() int64
}

// DecodeRun seeks src to start and decodes count consecutive frames. At the
// end of the stream it rewinds to the first frame and keeps going, so frame
// numbers restart at 0.
//
// For each frame, dest(i) supplies the picture to decode into and done(i,
// frame, pic) receives it. An error from either callback stops the run.
// It returns the number of frames passed to done, which is less than count
// only when the stream holds no frames at all.
func DecodeRun(
	src FrameSource,
	start int64,
	count int,
	dest func(i int) (*ports.Picture, error),
	done func(i int, frame int64, pic *ports.Picture) error,
) (int, error) {
	next := start
	err := src.SeekToFrame(start)
	if errors.Is(err, stream.ErrRanOffEnd) {
		err = src.Rewind()
		next = 0
	}
	if err != nil {
		return 0, err
	}

	n := 0
	rewound := false
	sinceRewind := 0
	for n < count {
		pic, err := dest(n)
		if err != nil {
			return n, err
		}

		err = src.DecodeNext(pic)
		if errors.Is(err, ports.ErrEOF) {
			if rewound && sinceRewind == 0 {
				break
			}
			if err := src.Rewind(); err != nil {
				return n, fmt.Errorf("rewind: %w", err)
			}
			rewound = true
			sinceRewind = 0
			next = 0
			continue
		}
		if err != nil {
			return n, fmt.Errorf("decode frame %d: %w", next, err)
		}

		if err := done(n, next, pic); err != nil {
			return n, err
		}
		n++
		next++
		sinceRewind++
	}
	return n, nil
}

// Wrap maps frame into [0, total).
func Wrap(frame, total int64) int64 {
	if total <= 0 {
		return frame
	}
	return ((frame % total) + total) % total
}

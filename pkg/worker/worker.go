// Package worker runs the background decoder that refills ring subsections.
//
// The worker pops DecodeRequests, decodes the requested frames from the
// stream and pushes each picture, tagged with the ring slot it belongs in,
// onto the image queue. It never touches the ring itself.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/queue"
	"github.com/johnblat/scrubcache/pkg/ring"
)

// DecodeRequest asks for FrameCount frames starting at StartFrame to be
// decoded into TargetSubsection.
type DecodeRequest struct {
	StartFrame       int64
	FrameCount       int
	TargetSubsection int
}

func (r DecodeRequest) String() string {
	return fmt.Sprintf("%d frames from %d into subsection %d", r.FrameCount, r.StartFrame, r.TargetSubsection)
}

// DecodedImage is one decoded frame on its way to a ring slot. The Picture
// belongs to a PicturePool.
type DecodedImage struct {
	Picture       *ports.Picture
	FrameNumber   int64
	RingSlotIndex int
	Keyframe      bool
}

// Stats counts the work done by a worker.
type Stats struct {
	Serviced uint64
	Failed   uint64
	Frames   uint64
}

// Options configures a worker.
type Options struct {
	// SubsectionSize and Capacity describe the ring being refilled.
	SubsectionSize int
	Capacity       int

	// ErrorBackoff is the pause after a failed request.
	ErrorBackoff time.Duration
}

// Worker decodes requests from one stream.
type Worker struct {
	src      ring.FrameSource
	requests *queue.Queue[DecodeRequest]
	images   *queue.Queue[DecodedImage]
	pool     *PicturePool
	opts     Options
	log      ports.Logger

	exit     atomic.Bool
	serviced atomic.Uint64
	failed   atomic.Uint64
	frames   atomic.Uint64
}

// New creates a worker. Images dropped by the image queue are returned to pool.
func New(
	src ring.FrameSource,
	requests *queue.Queue[DecodeRequest],
	images *queue.Queue[DecodedImage],
	pool *PicturePool,
	opts Options,
	log ports.Logger,
) *Worker {
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}
	images.OnDrop(func(img DecodedImage) { pool.Put(img.Picture) })
	return &Worker{
		src:      src,
		requests: requests,
		images:   images,
		pool:     pool,
		opts:     opts,
		log:      log.WithComponent("worker"),
	}
}

// Run services requests until Stop is called, the request queue is closed,
// or ctx is done. The source must not be used by anyone else while Run is
// active.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Debug("Decode worker started")
	defer w.log.Debug("Decode worker stopped")

	for !w.exit.Load() {
		req, err := w.requests.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("pop request: %w", err)
		}

		start := time.Now()
		n, err := w.service(ctx, req)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return nil
			}
			w.failed.Add(1)
			w.log.Error("Decode request failed (%s): %v", req, err)
			w.backoff(ctx)
			continue
		}
		w.serviced.Add(1)
		w.log.Debug("Decoded %d frames from %d into subsection %d in %v",
			n, req.StartFrame, req.TargetSubsection, time.Since(start))
	}
	return nil
}

// Stop makes Run return after the request in progress. A Run blocked
// waiting for a request is woken by closing the request queue.
func (w *Worker) Stop() {
	w.exit.Store(true)
	w.requests.Close()
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Serviced: w.serviced.Load(),
		Failed:   w.failed.Load(),
		Frames:   w.frames.Load(),
	}
}

func (w *Worker) service(ctx context.Context, req DecodeRequest) (int, error) {
	first := req.TargetSubsection * w.opts.SubsectionSize

	var held *ports.Picture
	defer func() { w.pool.Put(held) }()

	dest := func(int) (*ports.Picture, error) {
		if held == nil {
			pic, err := w.pool.Get(ctx)
			if err != nil {
				return nil, err
			}
			held = pic
		}
		return held, nil
	}

	done := func(i int, frame int64, pic *ports.Picture) error {
		held = nil
		img := DecodedImage{
			Picture:       pic,
			FrameNumber:   frame,
			RingSlotIndex: (first + i) % w.opts.Capacity,
			Keyframe:      pic.Keyframe,
		}
		err := w.images.Push(ctx, img)
		switch {
		case err == nil:
			w.frames.Add(1)
			return nil
		case errors.Is(err, queue.ErrFull):
			return nil
		default:
			w.pool.Put(pic)
			return err
		}
	}

	return ring.DecodeRun(w.src, req.StartFrame, req.FrameCount, dest, done)
}

func (w *Worker) backoff(ctx context.Context) {
	if w.opts.ErrorBackoff <= 0 {
		return
	}
	t := time.NewTimer(w.opts.ErrorBackoff)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

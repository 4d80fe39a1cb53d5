// Package session ties the stream, the scrub ring, the queues and the
// decode worker into one playback session.
//
// The UI side (Step, Drain, Current, Diagnostics) must be driven from a
// single goroutine. Run hosts the decode worker on another goroutine; the
// two sides only share the request and image queues.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/queue"
	"github.com/johnblat/scrubcache/pkg/ring"
	"github.com/johnblat/scrubcache/pkg/stream"
	"github.com/johnblat/scrubcache/pkg/timeline"
	"github.com/johnblat/scrubcache/pkg/worker"
)

// ErrRunning is returned by Run when the worker is already running.
var ErrRunning = errors.New("session: worker already running")

// Direction is the way the playhead moves.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Options configures a session.
type Options struct {
	Path     string
	MaxWidth int
	Threads  int

	Subsections    int
	SubsectionSize int
	StartFrame     int64

	RequestCap    int
	RequestPolicy queue.Policy
	ImagePolicy   queue.Policy

	// WorkerEnabled false refills subsections synchronously inside Step.
	WorkerEnabled bool
	ErrorBackoff  time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Subsections:    3,
		SubsectionSize: 16,
		RequestCap:     8,
		RequestPolicy:  queue.PolicyDropOldest,
		ImagePolicy:    queue.PolicyBlock,
		WorkerEnabled:  true,
		ErrorBackoff:   50 * time.Millisecond,
	}
}

// Diagnostics is a snapshot of the session state for status lines and
// debug output.
type Diagnostics struct {
	Pos             int     `json:"pos"`
	PrevPos         int     `json:"prev_pos"`
	Subsection      int     `json:"subsection"`
	Frame           int64   `json:"frame"`
	Keyframe        bool    `json:"keyframe"`
	TotalFrames     int64   `json:"total_frames"`
	Method          string  `json:"estimator"`
	Frames          []int64 `json:"frames"`
	PendingRequests int     `json:"pending_requests"`
	PendingImages   int     `json:"pending_images"`
	DroppedRequests uint64  `json:"dropped_requests"`
	DroppedImages   uint64  `json:"dropped_images"`
	Requests        uint64  `json:"requests"`
	Installed       uint64  `json:"installed"`
	Worker          struct {
		Serviced uint64 `json:"serviced"`
		Failed   uint64 `json:"failed"`
		Frames   uint64 `json:"frames"`
	} `json:"worker"`
}

// Session is an open video with a warm scrub ring.
type Session struct {
	opts Options
	log  ports.Logger

	stream   *stream.Stream
	ring     *ring.Ring
	requests *queue.Queue[worker.DecodeRequest]
	images   *queue.Queue[worker.DecodedImage]
	pool     *worker.PicturePool
	worker   *worker.Worker

	// sent counts requests handed to the queue, evicted those the queue
	// discarded. Both are only touched by the UI goroutine.
	sent      uint64
	evicted   uint64
	installed uint64

	running   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// Open opens the video at opts.Path and fills the ring around
// opts.StartFrame, leaving that frame under the playhead. The worker is not started until Run is called.
func Open(opener ports.MediaOpener, opts Options, log ports.Logger) (*Session, error) {
	log = log.WithComponent("session")

	st, err := stream.Open(opener, opts.Path, stream.Options{MaxWidth: opts.MaxWidth, Threads: opts.Threads}, log)
	if err != nil {
		return nil, err
	}
	s, err := New(st, opts, log)
	if err != nil {
		st.Close()
		return nil, err
	}
	return s, nil
}

// New builds a session around an already opened stream and performs the
// initial fill. The session owns st from here on.
func New(st *stream.Stream, opts Options, log ports.Logger) (*Session, error) {
	w, h := st.PictureSize()
	r, err := ring.New(opts.Subsections, opts.SubsectionSize, w, h)
	if err != nil {
		return nil, err
	}

	// The window opens one subsection before the start frame so the
	// playhead has a subsection of slack in either direction.
	first := ring.Wrap(opts.StartFrame-int64(opts.SubsectionSize), st.TotalFrames())
	start := time.Now()
	n, err := r.Fill(st, first)
	if err != nil {
		return nil, fmt.Errorf("initial fill: %w", err)
	}
	r.Seat(r.FirstSlotOf(1))
	log.Info("Filled %d frames from frame %d in %v, playhead on frame %d", n, first, time.Since(start), r.Current().Frame)

	if opts.RequestCap < 1 {
		opts.RequestCap = 8
	}
	s := &Session{
		opts:     opts,
		log:      log,
		stream:   st,
		ring:     r,
		requests: queue.New[worker.DecodeRequest](opts.RequestCap, opts.RequestPolicy),
		images:   queue.New[worker.DecodedImage](r.Cap(), opts.ImagePolicy),
		pool:     worker.NewPicturePool(r.Cap()+1, w, h),
		done:     make(chan struct{}),
	}
	s.requests.OnDrop(func(req worker.DecodeRequest) {
		s.evicted++
		s.log.Warn("Dropped decode request: %s", req)
	})
	if opts.WorkerEnabled {
		s.worker = worker.New(st, s.requests, s.images, s.pool, worker.Options{
			SubsectionSize: opts.SubsectionSize,
			Capacity:       r.Cap(),
			ErrorBackoff:   opts.ErrorBackoff,
		}, log)
	}
	return s, nil
}

// Run hosts the decode worker until ctx is done or the session is closed.
// With the worker disabled it returns immediately.
func (s *Session) Run(ctx context.Context) error {
	if s.worker == nil {
		return nil
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(s.done)
	return s.worker.Run(ctx)
}

// Step moves the playhead one frame in dir. When the move crosses into
// another subsection it schedules the refill of the subsection on the far
// side and returns the request.
func (s *Session) Step(dir Direction) (*worker.DecodeRequest, error) {
	if dir == Backward {
		s.ring.Prev()
	} else {
		s.ring.Next()
	}

	tr, crossed := s.ring.Crossed()
	if !crossed {
		return nil, nil
	}
	sub, ok := s.ring.TransitionToRefill(tr.From, tr.To)
	if !ok {
		s.log.Debug("No refill for crossing %d -> %d", tr.From, tr.To)
		return nil, nil
	}
	start, ok := s.ring.StartFrameForRefill(tr.From, tr.To)
	if !ok {
		s.log.Debug("No start frame for crossing %d -> %d", tr.From, tr.To)
		return nil, nil
	}

	req := worker.DecodeRequest{StartFrame: start, FrameCount: s.opts.SubsectionSize, TargetSubsection: sub}
	s.log.Debug("Crossed %d -> %d, refilling %s", tr.From, tr.To, req)

	if s.worker == nil {
		if _, err := s.ring.FillSubsection(s.stream, start, sub); err != nil {
			return &req, err
		}
		s.sent++
		return &req, nil
	}

	// Later crossings extend the window from this subsection whether or not
	// the request survives the queue.
	s.ring.Schedule(sub, start)
	err := s.requests.Push(context.Background(), req)
	switch {
	case err == nil:
		s.sent++
		return &req, nil
	case errors.Is(err, queue.ErrFull):
		s.sent++
		return nil, nil
	default:
		return nil, fmt.Errorf("queue request: %w", err)
	}
}

// Drain installs up to max decoded images into the ring without waiting
// and returns how many were installed. max <= 0 drains everything queued.
func (s *Session) Drain(max int) int {
	n := 0
	for max <= 0 || n < max {
		img, ok := s.images.TryPop()
		if !ok {
			break
		}
		img.Picture.Keyframe = img.Keyframe
		s.ring.Install(img.RingSlotIndex, img.Picture, img.FrameNumber)
		s.pool.Put(img.Picture)
		n++
	}
	s.installed += uint64(n)
	return n
}

// Settle waits until every queued request has been decoded and installed.
func (s *Session) Settle(ctx context.Context) error {
	if s.worker == nil {
		return nil
	}
	tick := time.NewTicker(2 * time.Millisecond)
	defer tick.Stop()
	for {
		s.Drain(0)
		st := s.worker.Stats()
		if st.Serviced+st.Failed+s.evicted >= s.sent && s.images.Empty() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// Current returns the slot under the playhead.
func (s *Session) Current() ring.Slot {
	return s.ring.Current()
}

// Ring exposes the ring for read-only inspection.
func (s *Session) Ring() *ring.Ring {
	return s.ring
}

// Info returns the video stream description.
func (s *Session) Info() ports.StreamInfo {
	return s.stream.Info()
}

// Estimator returns the frame timing estimator of the stream.
func (s *Session) Estimator() *timeline.Estimator {
	return s.stream.Estimator()
}

// Diagnostics returns a snapshot of the session state.
func (s *Session) Diagnostics() Diagnostics {
	cur := s.ring.Current()
	d := Diagnostics{
		Pos:             s.ring.Pos(),
		PrevPos:         s.ring.PrevPos(),
		Subsection:      s.ring.SubsectionOf(s.ring.Pos()),
		Frame:           cur.Frame,
		Keyframe:        cur.Keyframe,
		TotalFrames:     s.ring.TotalFrames(),
		Method:          s.stream.Estimator().Method().String(),
		Frames:          s.ring.Frames(),
		PendingRequests: s.requests.Len(),
		PendingImages:   s.images.Len(),
		DroppedRequests: s.requests.Dropped(),
		DroppedImages:   s.images.Dropped(),
		Requests:        s.sent,
		Installed:       s.installed,
	}
	if s.worker != nil {
		st := s.worker.Stats()
		d.Worker.Serviced = st.Serviced
		d.Worker.Failed = st.Failed
		d.Worker.Frames = st.Frames
	}
	return d
}

// Close stops the worker, waits for it to finish and closes the stream.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.worker != nil {
			s.worker.Stop()
		}
		s.images.Close()
		if s.running.Load() {
			<-s.done
		}
		err = s.stream.Close()
	})
	return err
}

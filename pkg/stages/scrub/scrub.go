// Package scrub implements the stage that opens a session, scrubs it the
// way the terminal UI would and captures the ring.
package scrub

import (
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/johnblat/scrubcache/pkg/pipeline"
	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/session"
)

// Opener opens a session for the given options.
type Opener func(opts session.Options) (*session.Session, error)

// Stage scrubs a video and captures the ring contents.
type Stage struct {
	open   Opener
	logger ports.Logger
}

// New creates a new scrub stage.
func New(open Opener, logger ports.Logger) *Stage {
	return &Stage{
		open:   open,
		logger: logger.WithComponent("scrub"),
	}
}

// Execute steps the playhead input.Steps times, draining one decoded image
// per step like a UI frame, waits for outstanding refills and copies the ring.
func (s *Stage) Execute(ctx context.Context, input pipeline.ScrubInput) (pipeline.ScrubResult, error) {
	start := time.Now()

	sess, err := s.open(input.Session)
	if err != nil {
		return pipeline.ScrubResult{}, fmt.Errorf("open session: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })

	result, err := s.scrub(gctx, sess, input)
	cerr := sess.Close()
	if werr := g.Wait(); werr != nil {
		return pipeline.ScrubResult{}, fmt.Errorf("decode worker: %w", werr)
	}
	if err != nil {
		return pipeline.ScrubResult{}, err
	}
	if cerr != nil {
		return pipeline.ScrubResult{}, fmt.Errorf("close session: %w", cerr)
	}

	result.ElapsedMs = int(time.Since(start).Milliseconds())
	return result, nil
}

func (s *Stage) scrub(ctx context.Context, sess *session.Session, input pipeline.ScrubInput) (pipeline.ScrubResult, error) {
	s.logger.Debug("Scrubbing %d steps %s", input.Steps, input.Direction)
	for i := 0; i < input.Steps; i++ {
		if err := ctx.Err(); err != nil {
			return pipeline.ScrubResult{}, err
		}
		if _, err := sess.Step(input.Direction); err != nil {
			return pipeline.ScrubResult{}, fmt.Errorf("step %d: %w", i, err)
		}
		sess.Drain(1)
	}
	if err := sess.Settle(ctx); err != nil {
		return pipeline.ScrubResult{}, fmt.Errorf("settle: %w", err)
	}

	r := sess.Ring()
	result := pipeline.ScrubResult{
		Info:        sess.Info(),
		Method:      sess.Estimator().Method().String(),
		Slots:       make([]pipeline.SlotImage, r.Cap()),
		Diagnostics: sess.Diagnostics(),
	}
	for i := range result.Slots {
		slot := r.Slot(i)
		img := cloneRGBA(slot.Picture.Image)
		result.Slots[i] = pipeline.SlotImage{
			Index:    i,
			Frame:    slot.Frame,
			Keyframe: slot.Keyframe,
			Image:    img,
		}
		result.Picture = pipeline.Dimension{Width: img.Rect.Dx(), Height: img.Rect.Dy()}
	}
	s.logger.Debug("Scrub completed at frame %d", result.Diagnostics.Frame)
	return result, nil
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, src.Rect.Dx(), src.Rect.Dy()))
	copy(dst.Pix, src.Pix)
	return dst
}

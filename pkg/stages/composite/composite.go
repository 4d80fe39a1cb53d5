// Package composite draws the captured ring into a single strip image.
package composite

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sort"
	"sync"

	"github.com/johnblat/scrubcache/pkg/pipeline"
	"github.com/johnblat/scrubcache/pkg/ports"
)

const (
	bandStroke     = 1
	playheadStroke = 3
	keyframeMarker = 6
)

// Stage composes ring slots into a strip.
type Stage struct {
	renderer   ports.Renderer
	sink       ports.SnapshotSink
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new composite stage.
func NewStage(renderer ports.Renderer, sink ports.SnapshotSink, logger ports.Logger, numWorkers int) *Stage {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Stage{
		renderer:   renderer,
		sink:       sink,
		logger:     logger.WithComponent("composite"),
		numWorkers: numWorkers,
	}
}

// Execute scales every filled slot to its thumbnail cell and draws the strip.
func (s *Stage) Execute(ctx context.Context, input pipeline.CompositeInput) (pipeline.CompositeResult, error) {
	layout := input.Layout
	if layout.Canvas.Width <= 0 || layout.Canvas.Height <= 0 {
		return pipeline.CompositeResult{}, fmt.Errorf("empty canvas %dx%d", layout.Canvas.Width, layout.Canvas.Height)
	}

	s.logger.Debug("Compositing %d slots with %d workers", len(input.Scrub.Slots), s.numWorkers)

	thumbs, err := s.scaleParallel(ctx, input)
	if err != nil {
		return pipeline.CompositeResult{}, err
	}

	img := s.draw(input, thumbs)

	if s.sink.Enabled() {
		if err := s.sink.SaveStrip(img); err != nil {
			s.logger.Warn("Failed to save strip: %v", err)
		}
	}

	s.logger.Debug("Composition completed")
	return pipeline.CompositeResult{Image: img}, nil
}

type indexedThumb struct {
	index int
	image image.Image
}

// scaleParallel resizes slot pictures using a worker pool. The returned
// slice is indexed by slot and holds nil for empty slots.
func (s *Stage) scaleParallel(ctx context.Context, input pipeline.CompositeInput) ([]image.Image, error) {
	slots := input.Scrub.Slots
	jobs := make(chan int, len(slots))
	results := make(chan indexedThumb, len(slots))
	errChan := make(chan error, s.numWorkers)

	var wg sync.WaitGroup
	for w := 0; w < s.numWorkers; w++ {
		wg.Add(1)
		go s.worker(ctx, &wg, input, jobs, results, errChan)
	}

	for i, slot := range slots {
		if slot.Frame >= 0 && slot.Image != nil {
			jobs <- i
		}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
		close(errChan)
	}()

	collected := make([]indexedThumb, 0, len(slots))
	for r := range results {
		collected = append(collected, r)
		if s.sink.Enabled() {
			slot := slots[r.index]
			if err := s.sink.SaveSlot(slot.Index, slot.Frame, slot.Image); err != nil {
				s.logger.Warn("Failed to save slot %d: %v", slot.Index, err)
			}
		}
	}

	if err := <-errChan; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].index < collected[j].index
	})

	thumbs := make([]image.Image, len(slots))
	for _, c := range collected {
		thumbs[c.index] = c.image
	}
	return thumbs, nil
}

func (s *Stage) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	input pipeline.CompositeInput,
	jobs <-chan int,
	results chan<- indexedThumb,
	errChan chan<- error,
) {
	defer wg.Done()

	for idx := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		slot := input.Scrub.Slots[idx]
		if slot.Index < 0 || slot.Index >= len(input.Layout.Thumbs) {
			select {
			case errChan <- fmt.Errorf("slot %d has no cell in the layout", slot.Index):
			default:
			}
			return
		}
		cell := input.Layout.Thumbs[slot.Index]
		results <- indexedThumb{
			index: idx,
			image: s.renderer.ResizeImage(slot.Image, cell.Width, cell.Height),
		}
	}
}

// draw paints the strip from top to bottom: header, subsection bands,
// thumbnails with their labels, then the playhead on top.
func (s *Stage) draw(input pipeline.CompositeInput, thumbs []image.Image) image.Image {
	layout := input.Layout
	theme := input.Theme
	canvas := s.renderer.CreateCanvas(layout.Canvas.Width, layout.Canvas.Height, theme.BackgroundColor)

	if input.Title != "" && layout.Header.Height > 0 {
		style := ports.TextStyle{
			FontSize: float64(layout.Header.Height) * 0.5,
			Color:    theme.TextColor,
			Align:    ports.AlignLeft,
		}
		_, h := canvas.MeasureText(input.Title, style)
		y := layout.Header.Y + int((float64(layout.Header.Height)+h)/2)
		canvas.DrawText(input.Title, layout.Header.X, y, style)
	}

	for _, band := range layout.Bands {
		canvas.DrawRectStroke(band.X, band.Y, band.Width, band.Height, theme.BorderColor, bandStroke)
	}

	labelStyle := ports.TextStyle{Color: theme.TextColor, Align: ports.AlignCenter}
	for i, slot := range input.Scrub.Slots {
		if slot.Index < 0 || slot.Index >= len(layout.Thumbs) {
			continue
		}
		cell := layout.Thumbs[slot.Index]

		if thumbs[i] == nil {
			canvas.DrawRectStroke(cell.X, cell.Y, cell.Width, cell.Height, theme.BorderColor, bandStroke)
			continue
		}
		canvas.DrawImage(thumbs[i], cell.X, cell.Y)

		if slot.Keyframe {
			canvas.DrawRect(cell.X, cell.Y, keyframeMarker, keyframeMarker, theme.AccentColor)
		}

		if slot.Index < len(layout.Labels) {
			label := layout.Labels[slot.Index]
			labelStyle.FontSize = float64(label.Height) * 0.8
			text := fmt.Sprintf("#%d", slot.Frame)
			canvas.DrawText(text, label.X+label.Width/2, label.Y+label.Height-2, labelStyle)
		}
	}

	pos := input.Scrub.Diagnostics.Pos
	if pos >= 0 && pos < len(layout.Thumbs) {
		cell := layout.Thumbs[pos]
		canvas.DrawRectStroke(cell.X-1, cell.Y-1, cell.Width+2, cell.Height+2, theme.AccentColor, playheadStroke)
	}

	return canvas.ToImage()
}

// Package layout implements the strip layout stage.
package layout

import (
	"context"

	"github.com/johnblat/scrubcache/pkg/pipeline"
)

// Stage calculates where each ring slot is drawn in the strip.
// This is a pure function with no external dependencies.
type Stage struct{}

// NewStage creates a new layout stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute calculates the layout based on the input parameters.
func (s *Stage) Execute(ctx context.Context, input pipeline.LayoutInput) (pipeline.LayoutResult, error) {
	return ComputeLayout(input), nil
}

// ComputeLayout places the slots of each subsection in their own band,
// row-major, at most Columns thumbnails per row. Bands are separated by a
// double gap so subsection boundaries stand out.
func ComputeLayout(input pipeline.LayoutInput) pipeline.LayoutResult {
	subsections := input.Subsections
	if subsections < 1 {
		subsections = 1
	}
	size := (input.Slots + subsections - 1) / subsections
	if size < 1 {
		size = 1
	}
	cols := input.Columns
	if cols < 1 || cols > size {
		cols = size
	}
	rowsPerBand := (size + cols - 1) / cols

	cellHeight := input.ThumbHeight + input.LabelHeight
	bandHeight := rowsPerBand*cellHeight + (rowsPerBand-1)*input.Gap
	bandStride := bandHeight + 2*input.Gap
	top := input.HeaderHeight + input.Padding

	width := input.Padding*2 + cols*input.ThumbWidth + (cols-1)*input.Gap
	height := top + input.Padding + subsections*bandHeight + (subsections-1)*2*input.Gap

	result := pipeline.LayoutResult{
		Canvas: pipeline.Dimension{Width: width, Height: height},
		Header: pipeline.Rectangle{X: 0, Y: 0, Width: width, Height: input.HeaderHeight},
		Thumbs: make([]pipeline.Rectangle, input.Slots),
		Labels: make([]pipeline.Rectangle, input.Slots),
		Bands:  make([]pipeline.Rectangle, subsections),
	}

	half := input.Gap / 2
	for s := range result.Bands {
		result.Bands[s] = pipeline.Rectangle{
			X:      input.Padding - half,
			Y:      top + s*bandStride - half,
			Width:  width - input.Padding*2 + 2*half,
			Height: bandHeight + 2*half,
		}
	}

	for i := 0; i < input.Slots; i++ {
		band, j := i/size, i%size
		row, col := j/cols, j%cols
		x := input.Padding + col*(input.ThumbWidth+input.Gap)
		y := top + band*bandStride + row*(cellHeight+input.Gap)

		result.Thumbs[i] = pipeline.Rectangle{X: x, Y: y, Width: input.ThumbWidth, Height: input.ThumbHeight}
		result.Labels[i] = pipeline.Rectangle{X: x, Y: y + input.ThumbHeight, Width: input.ThumbWidth, Height: input.LabelHeight}
	}

	return result
}

// ThumbHeight returns the thumbnail height that keeps the picture aspect
// ratio at thumbWidth, rounded to an even number of pixels.
func ThumbHeight(thumbWidth int, picture pipeline.Dimension) int {
	if picture.Width <= 0 || picture.Height <= 0 {
		return thumbWidth * 9 / 16 &^ 1
	}
	h := (thumbWidth*picture.Height/picture.Width + 1) &^ 1
	if h < 2 {
		h = 2
	}
	return h
}

package pipeline

import (
	"image"
	"image/color"

	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/session"
)

// =============================================================================
// Common Types
// =============================================================================

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// Rectangle represents a rectangular area.
type Rectangle struct {
	X      int
	Y      int
	Width  int
	Height int
}

// =============================================================================
// Scrub Stage Types
// =============================================================================

// ScrubInput describes the scrubbing to perform before the ring is captured.
type ScrubInput struct {
	Session   session.Options
	Steps     int
	Direction session.Direction
}

// ScrubResult is a copy of the ring after scrubbing.
type ScrubResult struct {
	Info        ports.StreamInfo
	Method      string
	Picture     Dimension
	Slots       []SlotImage
	Diagnostics session.Diagnostics
	ElapsedMs   int
}

// SlotImage is one captured ring slot. Frame is -1 for empty slots.
type SlotImage struct {
	Index    int
	Frame    int64
	Keyframe bool
	Image    *image.RGBA
}

// =============================================================================
// Layout Stage Types
// =============================================================================

// LayoutInput contains parameters for the strip layout.
type LayoutInput struct {
	Slots        int // Number of ring slots
	Subsections  int // Slots are grouped in this many bands
	Columns      int // Maximum thumbnails per row (default: 16)
	ThumbWidth   int // Thumbnail width (default: 96)
	ThumbHeight  int // Thumbnail height, derived from the picture aspect
	Gap          int // Gap between thumbnails (default: 4)
	Padding      int // Padding around the canvas (default: 12)
	LabelHeight  int // Height of the frame number label under each thumbnail
	HeaderHeight int // Height of the title area
}

// DefaultLayoutInput returns LayoutInput with default values.
func DefaultLayoutInput() LayoutInput {
	return LayoutInput{
		Slots:        48,
		Subsections:  3,
		Columns:      16,
		ThumbWidth:   96,
		ThumbHeight:  54,
		Gap:          4,
		Padding:      12,
		LabelHeight:  14,
		HeaderHeight: 28,
	}
}

// LayoutResult contains the calculated strip geometry.
type LayoutResult struct {
	Canvas Dimension

	// Header is the title area across the top.
	Header Rectangle

	// Thumbs and Labels are indexed by ring slot.
	Thumbs []Rectangle
	Labels []Rectangle

	// Bands frame each subsection.
	Bands []Rectangle
}

// =============================================================================
// Composite Stage Types
// =============================================================================

// CompositeInput contains everything drawn into the strip.
type CompositeInput struct {
	Scrub  ScrubResult
	Layout LayoutResult
	Theme  CompositeTheme
	Title  string
}

// CompositeTheme defines strip styling.
type CompositeTheme struct {
	BackgroundColor color.Color
	BorderColor     color.Color
	AccentColor     color.Color
	TextColor       color.Color
}

// DefaultCompositeTheme returns a default composite theme.
func DefaultCompositeTheme() CompositeTheme {
	return CompositeTheme{
		BackgroundColor: color.RGBA{R: 30, G: 30, B: 30, A: 255},
		BorderColor:     color.RGBA{R: 80, G: 80, B: 80, A: 255},
		AccentColor:     color.RGBA{R: 76, G: 175, B: 80, A: 255},
		TextColor:       color.White,
	}
}

// CompositeResult contains the composed strip.
type CompositeResult struct {
	Image image.Image
}

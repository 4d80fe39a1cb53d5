package ports

import (
	"image"
	"image/color"
)

// Renderer draws snapshot strips and encodes them.
type Renderer interface {
	// CreateCanvas returns a canvas filled with bg.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// ResizeImage scales img into a new width x height picture.
	ResizeImage(img image.Image, width, height int) image.Image

	// EncodeImage serializes img. quality only applies to JPEG.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)
}

// Canvas is a drawing surface for one strip.
type Canvas interface {
	DrawImage(img image.Image, x, y int)
	DrawRect(x, y, w, h int, c color.Color)
	DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64)

	// DrawText draws text with its baseline at y, aligned on x.
	DrawText(text string, x, y int, style TextStyle)

	// MeasureText returns the width and height text would occupy.
	MeasureText(text string, style TextStyle) (width, height float64)

	ToImage() image.Image
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize float64
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat selects the encoding of a strip or debug picture.
type ImageFormat int

const (
	FormatPNG ImageFormat = iota
	FormatJPEG
)

// String returns the file extension of the format.
func (f ImageFormat) String() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

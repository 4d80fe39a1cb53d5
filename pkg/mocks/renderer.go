package mocks

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc  func(img image.Image, width, height int) image.Image

	mu       sync.Mutex
	canvases []*Canvas
	resizes  int
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	c := &Canvas{width: width, height: height}
	m.mu.Lock()
	m.canvases = append(m.canvases, c)
	m.mu.Unlock()
	return c
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{}, nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	m.mu.Lock()
	m.resizes++
	m.mu.Unlock()
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

// Canvases returns the canvases created so far.
func (m *Renderer) Canvases() []*Canvas {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Canvas(nil), m.canvases...)
}

// Resizes returns the number of ResizeImage calls.
func (m *Renderer) Resizes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resizes
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas is a mock implementation of ports.Canvas that records every
// drawing call as a short description.
type Canvas struct {
	width  int
	height int
	img    *image.RGBA
	Ops    []string
}

func (m *Canvas) record(format string, args ...interface{}) {
	m.Ops = append(m.Ops, fmt.Sprintf(format, args...))
}

func (m *Canvas) DrawImage(img image.Image, x, y int) {
	m.record("image %d,%d %dx%d", x, y, img.Bounds().Dx(), img.Bounds().Dy())
}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color) {
	m.record("rect %d,%d %dx%d", x, y, w, h)
}

func (m *Canvas) DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64) {
	m.record("stroke %d,%d %dx%d %.0f", x, y, w, h, strokeWidth)
}

func (m *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	m.record("text %s", text)
}

func (m *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	return float64(len(text)) * style.FontSize / 2, style.FontSize
}

func (m *Canvas) ToImage() image.Image {
	if m.img != nil {
		return m.img
	}
	return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
}

// Size returns the canvas dimensions.
func (m *Canvas) Size() (int, int) {
	return m.width, m.height
}

var _ ports.Canvas = (*Canvas)(nil)

// Package ggrenderer draws snapshot strips with gg and scales thumbnails
// with x/image/draw.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// Options configures a Renderer.
type Options struct {
	// FontPath is a TrueType font for labels. Empty uses gg's built-in face,
	// which ignores the requested size.
	FontPath string

	// Fast selects bilinear scaling instead of Catmull-Rom for thumbnails.
	Fast bool
}

// Renderer implements ports.Renderer.
type Renderer struct {
	fontPath string
	scaler   draw.Scaler

	mu    sync.Mutex
	faces map[int]font.Face
}

// New creates a Renderer with default options.
func New() *Renderer {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a Renderer.
func NewWithOptions(opts Options) *Renderer {
	var scaler draw.Scaler = draw.CatmullRom
	if opts.Fast {
		scaler = draw.ApproxBiLinear
	}
	return &Renderer{
		fontPath: opts.FontPath,
		scaler:   scaler,
		faces:    make(map[int]font.Face),
	}
}

// CreateCanvas creates a canvas filled with bg.
func (r *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &Canvas{dc: dc, r: r}
}

// ResizeImage scales img into a new RGBA picture. Decoded frames are already
// RGBA, so a same-size request just copies.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if img.Bounds().Dx() == width && img.Bounds().Dy() == height {
		draw.Copy(dst, image.Point{}, img, img.Bounds(), draw.Src, nil)
		return dst
	}
	r.scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// EncodeImage encodes img as PNG or JPEG.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case ports.FormatJPEG:
		if quality < 1 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported image format %d", format)
	}
	return buf.Bytes(), nil
}

// face returns the font face for size, loading it on first use. It returns
// nil when no font is configured or the font cannot be loaded.
func (r *Renderer) face(size float64) font.Face {
	if r.fontPath == "" || size <= 0 {
		return nil
	}
	key := int(math.Round(size))

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f
	}
	f, err := gg.LoadFontFace(r.fontPath, float64(key))
	if err != nil {
		f = nil
	}
	r.faces[key] = f
	return f
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas implements ports.Canvas on a gg.Context.
type Canvas struct {
	dc *gg.Context
	r  *Renderer
}

func (c *Canvas) DrawImage(img image.Image, x, y int) {
	c.dc.DrawImage(img, x, y)
}

func (c *Canvas) DrawRect(x, y, w, h int, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Fill()
}

// DrawRectStroke strokes inside the rectangle so adjacent cells do not overlap.
func (c *Canvas) DrawRectStroke(x, y, w, h int, col color.Color, strokeWidth float64) {
	inset := strokeWidth / 2
	c.dc.SetColor(col)
	c.dc.SetLineWidth(strokeWidth)
	c.dc.DrawRectangle(float64(x)+inset, float64(y)+inset, float64(w)-strokeWidth, float64(h)-strokeWidth)
	c.dc.Stroke()
}

func (c *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	c.useFace(style)
	c.dc.SetColor(style.Color)
	c.dc.DrawStringAnchored(text, float64(x), float64(y), anchor(style.Align), 0)
}

func (c *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	c.useFace(style)
	return c.dc.MeasureString(text)
}

func (c *Canvas) ToImage() image.Image {
	return c.dc.Image()
}

func (c *Canvas) useFace(style ports.TextStyle) {
	if f := c.r.face(style.FontSize); f != nil {
		c.dc.SetFontFace(f)
	}
}

func anchor(a ports.TextAlign) float64 {
	switch a {
	case ports.AlignCenter:
		return 0.5
	case ports.AlignRight:
		return 1
	default:
		return 0
	}
}

var _ ports.Canvas = (*Canvas)(nil)

// Package termfront is a terminal ports.Frontend: tcell for key input and the
// status line, sixel or half-block cells for the picture.
package termfront

import (
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-sixel"
	"golang.org/x/image/draw"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// Mode selects how pictures are drawn.
type Mode int

const (
	// ModeSixel writes sixel graphics to Out.
	ModeSixel Mode = iota
	// ModeCells paints two pixels per cell with the upper half block.
	ModeCells
)

// DefaultReleaseAfter is how long a key may go without a repeat before it
// counts as released. It stays below the hold delay so a tap steps once.
const DefaultReleaseAfter = 120 * time.Millisecond

// Options configures the frontend.
type Options struct {
	Mode Mode

	// Out receives sixel output. Defaults to os.Stdout.
	Out io.Writer

	// CellWidth and CellHeight are the pixel size of one terminal cell,
	// used to fit sixel pictures. Default 8x16.
	CellWidth  int
	CellHeight int

	ReleaseAfter time.Duration
}

// Frontend implements ports.Frontend.
type Frontend struct {
	screen tcell.Screen
	opts   Options
	events chan ports.InputEvent

	mu       sync.Mutex
	held     ports.Key
	lastSeen time.Time
	now      func() time.Time

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New opens the terminal screen.
func New(opts Options) (*Frontend, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	return NewWithScreen(s, opts)
}

// NewWithScreen initializes s and starts delivering its key events.
func NewWithScreen(s tcell.Screen, opts Options) (*Frontend, error) {
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	s.HideCursor()
	s.Clear()

	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.CellWidth <= 0 || opts.CellHeight <= 0 {
		opts.CellWidth, opts.CellHeight = 8, 16
	}
	if opts.ReleaseAfter <= 0 {
		opts.ReleaseAfter = DefaultReleaseAfter
	}

	f := &Frontend{
		screen: s,
		opts:   opts,
		events: make(chan ports.InputEvent, 32),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	f.wg.Add(2)
	go f.pollLoop()
	go f.releaseLoop()
	return f, nil
}

// Events implements ports.Frontend.
func (f *Frontend) Events() <-chan ports.InputEvent {
	return f.events
}

func (f *Frontend) emit(ev ports.InputEvent) {
	select {
	case f.events <- ev:
	case <-f.done:
	}
}

func (f *Frontend) pollLoop() {
	defer f.wg.Done()
	for {
		ev := f.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			f.handleKey(mapKey(ev))
		case *tcell.EventResize:
			f.screen.Sync()
		}
	}
}

// handleKey turns terminal key repeats into press and release events.
func (f *Frontend) handleKey(k ports.Key) {
	switch k {
	case ports.KeyNone:
		return
	case ports.KeyQuit:
		f.emit(ports.InputEvent{Key: k, Pressed: true})
		return
	}

	f.mu.Lock()
	prev := f.held
	f.held = k
	f.lastSeen = f.now()
	f.mu.Unlock()

	if prev == k {
		return
	}
	if prev != ports.KeyNone {
		f.emit(ports.InputEvent{Key: prev})
	}
	f.emit(ports.InputEvent{Key: k, Pressed: true})
}

func (f *Frontend) releaseLoop() {
	defer f.wg.Done()
	tick := time.NewTicker(f.opts.ReleaseAfter / 4)
	defer tick.Stop()
	for {
		select {
		case <-f.done:
			return
		case <-tick.C:
			f.expire()
		}
	}
}

// expire releases the held key once its repeats have stopped.
func (f *Frontend) expire() {
	f.mu.Lock()
	k := f.held
	if k == ports.KeyNone || f.now().Sub(f.lastSeen) < f.opts.ReleaseAfter {
		f.mu.Unlock()
		return
	}
	f.held = ports.KeyNone
	f.mu.Unlock()
	f.emit(ports.InputEvent{Key: k})
}

func mapKey(ev *tcell.EventKey) ports.Key {
	switch ev.Key() {
	case tcell.KeyRight:
		return ports.KeyAdvance
	case tcell.KeyLeft:
		return ports.KeyRetreat
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ports.KeyQuit
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'l', 'L':
			return ports.KeyAdvance
		case 'h', 'H':
			return ports.KeyRetreat
		case 'q', 'Q':
			return ports.KeyQuit
		}
	}
	return ports.KeyNone
}

// Present implements ports.Frontend.
func (f *Frontend) Present(img image.Image, status string) error {
	w, h := f.screen.Size()
	if h < 2 {
		return nil
	}
	rows := h - 1

	if f.opts.Mode == ModeCells {
		if img != nil {
			f.drawCells(img, w, rows)
		}
		f.drawStatus(status, w, rows)
		f.screen.Show()
		return nil
	}

	f.drawStatus(status, w, rows)
	f.screen.Show()
	if img == nil {
		return nil
	}
	scaled := fit(img, w*f.opts.CellWidth, rows*f.opts.CellHeight)
	return f.writeSixel(scaled)
}

func (f *Frontend) writeSixel(img *image.RGBA) error {
	// Sixel data goes around tcell, anchored at the top-left cell.
	if _, err := fmt.Fprint(f.opts.Out, "\033[s\033[1;1H"); err != nil {
		return err
	}
	enc := sixel.NewEncoder(f.opts.Out)
	enc.Width = img.Bounds().Dx()
	enc.Height = img.Bounds().Dy()
	if err := enc.Encode(img); err != nil {
		return fmt.Errorf("sixel encode: %w", err)
	}
	_, err := fmt.Fprint(f.opts.Out, "\033[u")
	return err
}

// drawCells paints img into the cell grid, two pixel rows per cell.
func (f *Frontend) drawCells(img image.Image, cols, rows int) {
	scaled := fit(img, cols, rows*2)
	b := scaled.Bounds()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if x >= b.Dx() || 2*y >= b.Dy() {
				f.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault)
				continue
			}
			top := scaled.RGBAAt(x, 2*y)
			bottom := top
			if 2*y+1 < b.Dy() {
				bottom = scaled.RGBAAt(x, 2*y+1)
			}
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			f.screen.SetContent(x, y, '▀', nil, style)
		}
	}
}

func (f *Frontend) drawStatus(status string, cols, row int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	x := 0
	for _, r := range status {
		if x >= cols {
			break
		}
		if r < 32 || r == 127 {
			continue
		}
		f.screen.SetContent(x, row, r, nil, style)
		x++
	}
	for ; x < cols; x++ {
		f.screen.SetContent(x, row, ' ', nil, style)
	}
}

// fit scales img to the largest size within maxW x maxH keeping its aspect ratio.
func fit(img image.Image, maxW, maxH int) *image.RGBA {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 || maxW <= 0 || maxH <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	scale := float64(maxW) / float64(sw)
	if s := float64(maxH) / float64(sh); s < scale {
		scale = s
	}
	w, h := int(float64(sw)*scale), int(float64(sh)*scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Close implements ports.Frontend.
func (f *Frontend) Close() {
	f.closeOnce.Do(func() {
		close(f.done)
		f.screen.Fini()
		f.wg.Wait()
	})
}

var _ ports.Frontend = (*Frontend)(nil)

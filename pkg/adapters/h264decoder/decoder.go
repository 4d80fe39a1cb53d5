// Package h264decoder decodes H.264 Annex B packets with an external ffmpeg
// process. Packets are collected per GOP and each sealed GOP is decoded by a
// single ffmpeg run.
package h264decoder

import (
	"errors"
	"fmt"
	"sort"

	"github.com/johnblat/scrubcache/pkg/ports"
)

var (
	// ErrDecodeFailed is returned when ffmpeg produces no usable output.
	ErrDecodeFailed = errors.New("h264decoder: decode failed")

	// ErrFFmpegNotFound is returned when ffmpeg cannot be located.
	ErrFFmpegNotFound = errors.New("h264decoder: ffmpeg not found in PATH")

	// ErrDraining is returned when a packet is sent after the drain marker.
	ErrDraining = errors.New("h264decoder: decoder is draining, flush first")

	// ErrNoSize is returned when neither the options nor the stream carry a size.
	ErrNoSize = errors.New("h264decoder: output size unknown")
)

// Runner executes ffmpeg with the given arguments and stdin, returning stdout.
type Runner func(ffmpegPath string, args []string, stdin []byte) ([]byte, error)

type frame struct {
	pix []byte
	pts int64
	key bool
}

// Decoder implements ports.Decoder.
type Decoder struct {
	ffmpegPath string
	run        Runner
	width      int
	height     int

	gop    []byte
	gopPTS []int64
	keyPTS int64

	ready    []frame
	draining bool
}

// New locates ffmpeg and returns a decoder producing pictures of the size in
// opts, or of the stream size when opts leaves it unset.
func New(info ports.StreamInfo, opts ports.DecoderOptions) (*Decoder, error) {
	path, err := findFFmpeg()
	if err != nil {
		return nil, err
	}
	return NewWithRunner(info, opts, path, execRunner)
}

// NewWithRunner returns a decoder that invokes run instead of spawning ffmpeg directly.
func NewWithRunner(info ports.StreamInfo, opts ports.DecoderOptions, ffmpegPath string, run Runner) (*Decoder, error) {
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = info.Width, info.Height
	}
	if w <= 0 || h <= 0 {
		return nil, ErrNoSize
	}
	return &Decoder{
		ffmpegPath: ffmpegPath,
		run:        run,
		width:      w,
		height:     h,
	}, nil
}

// SendPacket implements ports.Decoder. A keyframe seals the pending GOP.
// Packets before the first keyframe are dropped since they cannot be decoded.
func (d *Decoder) SendPacket(pkt *ports.Packet) error {
	if d.draining {
		return ErrDraining
	}
	if pkt == nil {
		d.draining = true
		return d.seal()
	}
	if pkt.Keyframe {
		if err := d.seal(); err != nil {
			return err
		}
		d.keyPTS = pkt.PTS
	} else if len(d.gopPTS) == 0 {
		return nil
	}
	d.gop = append(d.gop, pkt.Data...)
	d.gopPTS = append(d.gopPTS, pkt.PTS)
	return nil
}

// ReceiveFrame implements ports.Decoder.
func (d *Decoder) ReceiveFrame(dst *ports.Picture) error {
	if len(d.ready) == 0 {
		if d.draining {
			return ports.ErrEOF
		}
		return ports.ErrAgain
	}
	f := d.ready[0]
	d.ready = d.ready[1:]

	if dst.Image != nil {
		copy(dst.Image.Pix, f.pix)
	}
	dst.PTS = f.pts
	dst.Keyframe = f.key
	return nil
}

// Flush implements ports.Decoder.
func (d *Decoder) Flush() {
	d.gop = d.gop[:0]
	d.gopPTS = d.gopPTS[:0]
	d.ready = nil
	d.draining = false
}

// Close implements ports.Decoder.
func (d *Decoder) Close() error {
	d.Flush()
	return nil
}

// seal decodes the pending GOP and queues its frames in PTS order.
func (d *Decoder) seal() error {
	if len(d.gopPTS) == 0 {
		return nil
	}
	data := d.gop
	pts := append([]int64(nil), d.gopPTS...)
	d.gop = nil
	d.gopPTS = d.gopPTS[:0]

	out, err := d.run(d.ffmpegPath, d.args(), data)
	if err != nil {
		return fmt.Errorf("decode gop at pts %d: %w", d.keyPTS, err)
	}

	frameSize := d.width * d.height * 4
	n := len(out) / frameSize
	if n == 0 {
		return fmt.Errorf("%w: gop at pts %d produced no frames", ErrDecodeFailed, d.keyPTS)
	}

	sort.Slice(pts, func(i, j int) bool { return pts[i] < pts[j] })
	// Leading pictures referencing the previous GOP are not emitted by ffmpeg.
	if n < len(pts) {
		pts = pts[len(pts)-n:]
	}
	if n > len(pts) {
		n = len(pts)
	}

	for i := 0; i < n; i++ {
		d.ready = append(d.ready, frame{
			pix: out[i*frameSize : (i+1)*frameSize],
			pts: pts[i],
			key: pts[i] == d.keyPTS,
		})
	}
	return nil
}

func (d *Decoder) args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "h264",
		"-i", "pipe:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", d.width, d.height),
		"-fps_mode", "passthrough",
		"pipe:1",
	}
}

var _ ports.Decoder = (*Decoder)(nil)

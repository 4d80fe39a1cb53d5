package mocks

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"sync"

	"github.com/johnblat/scrubcache/pkg/ports"
)

var (
	// ErrMissingReference is returned by Decoder when a delta packet arrives
	// before any keyframe since the last flush.
	ErrMissingReference = errors.New("mocks: delta frame without reference")

	// ErrSeekOutOfRange is returned by Demuxer.SeekBackward for negative timestamps.
	ErrSeekOutOfRange = errors.New("mocks: seek out of range")
)

// MediaSpec describes a synthetic clip.
type MediaSpec struct {
	Frames        int
	GOP           int   // keyframe interval in frames
	FrameDuration int64 // in time base units
	TimeBase      ports.Rational
	Width         int
	Height        int

	// Metadata the container exposes. Zero values hide the field.
	HideDuration   bool
	HideFrameCount bool
	AvgFrameRate   ports.Rational

	// AudioEvery interleaves one audio packet after every n video packets.
	AudioEvery int

	// DecoderDelay is the number of packets the decoder buffers before it
	// emits the first picture.
	DecoderDelay int
}

// DefaultMediaSpec returns a 1000 frame, 25 fps clip with a keyframe every 25 frames.
func DefaultMediaSpec() MediaSpec {
	return MediaSpec{
		Frames:        1000,
		GOP:           25,
		FrameDuration: 512,
		TimeBase:      ports.Rational{Num: 1, Den: 12800},
		Width:         8,
		Height:        4,
		AudioEvery:    2,
		DecoderDelay:  2,
	}
}

// Media is a synthetic ports.MediaOpener whose pictures encode their frame number.
type Media struct {
	Spec MediaSpec

	// OpenFunc overrides Open when set.
	OpenFunc func(path string) (ports.Demuxer, error)

	mu        sync.Mutex
	demuxers  []*Demuxer
	openPaths []string
}

// NewMedia creates a synthetic media opener.
func NewMedia(spec MediaSpec) *Media {
	return &Media{Spec: spec}
}

// Open returns a new demuxer over the synthetic clip.
func (m *Media) Open(path string) (ports.Demuxer, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(path)
	}
	d := NewDemuxer(m.Spec)
	m.mu.Lock()
	m.demuxers = append(m.demuxers, d)
	m.openPaths = append(m.openPaths, path)
	m.mu.Unlock()
	return d, nil
}

// Demuxers returns the demuxers opened so far.
func (m *Media) Demuxers() []*Demuxer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Demuxer(nil), m.demuxers...)
}

// Demuxer is a synthetic container with one video and one audio stream.
type Demuxer struct {
	spec    ports.StreamInfo
	audio   ports.StreamInfo
	packets []ports.Packet
	gop     int
	delay   int

	// SeekFunc overrides SeekBackward when set.
	SeekFunc func(streamIndex int, ts int64) error
	// ReadFunc is consulted before every read; a non-nil error is returned as is.
	ReadFunc func(cursor int) error

	mu       sync.Mutex
	cursor   int
	seeks    []int64
	reads    int
	decoders []*Decoder
	closed   bool
}

// NewDemuxer builds the packet list for spec.
func NewDemuxer(spec MediaSpec) *Demuxer {
	gop := spec.GOP
	if gop <= 0 {
		gop = 1
	}
	duration := int64(spec.Frames) * spec.FrameDuration

	video := ports.StreamInfo{
		Index:        0,
		MediaType:    ports.MediaVideo,
		Codec:        "synthetic",
		TimeBase:     spec.TimeBase,
		Duration:     duration,
		FrameCount:   int64(spec.Frames),
		AvgFrameRate: spec.AvgFrameRate,
		Width:        spec.Width,
		Height:       spec.Height,
	}
	if spec.HideDuration {
		video.Duration = 0
	}
	if spec.HideFrameCount {
		video.FrameCount = 0
	}

	d := &Demuxer{
		spec:  video,
		audio: ports.StreamInfo{Index: 1, MediaType: ports.MediaAudio, Codec: "pcm", TimeBase: spec.TimeBase},
		gop:   gop,
		delay: spec.DecoderDelay,
	}

	for f := 0; f < spec.Frames; f++ {
		data := make([]byte, 8)
		binary.BigEndian.PutUint64(data, uint64(f))
		pts := int64(f) * spec.FrameDuration
		d.packets = append(d.packets, ports.Packet{
			StreamIndex: 0,
			PTS:         pts,
			DTS:         pts,
			Duration:    spec.FrameDuration,
			Keyframe:    f%gop == 0,
			Data:        data,
		})
		if spec.AudioEvery > 0 && f%spec.AudioEvery == spec.AudioEvery-1 {
			d.packets = append(d.packets, ports.Packet{
				StreamIndex: 1,
				PTS:         pts,
				DTS:         pts,
				Keyframe:    true,
				Data:        []byte{0xAA},
			})
		}
	}
	return d
}

// Streams lists the video stream followed by the audio stream.
func (d *Demuxer) Streams() []ports.StreamInfo {
	return []ports.StreamInfo{d.spec, d.audio}
}

// ReadPacket returns the next packet in interleaved order.
func (d *Demuxer) ReadPacket(pkt *ports.Packet) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ReadFunc != nil {
		if err := d.ReadFunc(d.cursor); err != nil {
			return err
		}
	}
	if d.cursor >= len(d.packets) {
		return ports.ErrEOF
	}
	*pkt = d.packets[d.cursor]
	d.cursor++
	d.reads++
	return nil
}

// SeekBackward moves to the latest video keyframe with PTS <= ts.
func (d *Demuxer) SeekBackward(streamIndex int, ts int64) error {
	if d.SeekFunc != nil {
		if err := d.SeekFunc(streamIndex, ts); err != nil {
			return err
		}
	}
	if ts < 0 {
		return fmt.Errorf("%w: %d", ErrSeekOutOfRange, ts)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.seeks = append(d.seeks, ts)

	target := 0
	for i, p := range d.packets {
		if p.StreamIndex != streamIndex || !p.Keyframe {
			continue
		}
		if p.PTS > ts {
			break
		}
		target = i
	}
	d.cursor = target
	return nil
}

// OpenDecoder returns a synthetic decoder.
func (d *Demuxer) OpenDecoder(streamIndex int, opts ports.DecoderOptions) (ports.Decoder, error) {
	if streamIndex != d.spec.Index {
		return nil, fmt.Errorf("mocks: stream %d is not video", streamIndex)
	}
	dec := NewDecoder(d.delay)
	d.mu.Lock()
	d.decoders = append(d.decoders, dec)
	d.mu.Unlock()
	return dec, nil
}

// Close marks the demuxer closed.
func (d *Demuxer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Seeks returns the timestamps passed to SeekBackward.
func (d *Demuxer) Seeks() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.seeks...)
}

// Reads returns the number of packets read.
func (d *Demuxer) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// Closed reports whether Close was called.
func (d *Demuxer) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Decoders returns the decoders opened on this demuxer.
func (d *Demuxer) Decoders() []*Decoder {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Decoder(nil), d.decoders...)
}

// Decoder is a synthetic GOP decoder. It refuses delta packets until it has
// seen a keyframe since the last flush and holds back delay pictures.
type Decoder struct {
	delay int

	// FailFrames makes SendPacket fail for the listed frame numbers.
	FailFrames map[int64]error

	mu       sync.Mutex
	haveRef  bool
	pending  []ports.Packet
	draining bool
	flushes  int
	closed   bool
}

// NewDecoder creates a synthetic decoder with the given output delay.
func NewDecoder(delay int) *Decoder {
	return &Decoder{delay: delay}
}

// SendPacket queues a packet for decoding.
func (d *Decoder) SendPacket(pkt *ports.Packet) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pkt == nil {
		d.draining = true
		return nil
	}
	if d.draining {
		return ports.ErrEOF
	}
	frame := FrameOfPacket(pkt)
	if err, ok := d.FailFrames[frame]; ok {
		return err
	}
	if pkt.Keyframe {
		d.haveRef = true
	}
	if !d.haveRef {
		return fmt.Errorf("%w: frame %d", ErrMissingReference, frame)
	}
	d.pending = append(d.pending, *pkt)
	return nil
}

// ReceiveFrame emits the oldest buffered picture.
func (d *Decoder) ReceiveFrame(dst *ports.Picture) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 || (!d.draining && len(d.pending) <= d.delay) {
		if d.draining {
			return ports.ErrEOF
		}
		return ports.ErrAgain
	}

	pkt := d.pending[0]
	d.pending = d.pending[1:]

	dst.PTS = pkt.PTS
	dst.Keyframe = pkt.Keyframe
	if dst.Image != nil {
		PaintFrame(dst, FrameOfPacket(&pkt))
	}
	return nil
}

// Flush drops buffered packets and the reference.
func (d *Decoder) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	d.haveRef = false
	d.draining = false
	d.flushes++
}

// Close marks the decoder closed.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Flushes returns the number of Flush calls.
func (d *Decoder) Flushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushes
}

// FrameOfPacket returns the frame number encoded in a synthetic packet.
func FrameOfPacket(pkt *ports.Packet) int64 {
	if len(pkt.Data) < 8 {
		return -1
	}
	return int64(binary.BigEndian.Uint64(pkt.Data))
}

// PaintFrame fills the picture with a color derived from frame.
func PaintFrame(p *ports.Picture, frame int64) {
	c := FrameColor(frame)
	pix := p.Image.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = c.R
		pix[i+1] = c.G
		pix[i+2] = c.B
		pix[i+3] = c.A
	}
}

// FrameColor returns the color a synthetic decoder paints for frame.
func FrameColor(frame int64) color.RGBA {
	return color.RGBA{R: uint8(frame), G: uint8(frame >> 8), B: 0x80, A: 0xff}
}

// FrameOfPicture reads back the frame number painted by a synthetic decoder.
func FrameOfPicture(p *ports.Picture) int64 {
	if p == nil || p.Image == nil || len(p.Image.Pix) < 4 {
		return -1
	}
	return int64(p.Image.Pix[0]) | int64(p.Image.Pix[1])<<8
}

var (
	_ ports.MediaOpener = (*Media)(nil)
	_ ports.Demuxer     = (*Demuxer)(nil)
	_ ports.Decoder     = (*Decoder)(nil)
)

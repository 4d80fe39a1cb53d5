package ports

import (
	"errors"
	"image"
)

var (
	// ErrAgain is returned by a Decoder when it needs more input before it can
	// produce a picture.
	ErrAgain = errors.New("media: resource temporarily unavailable")

	// ErrEOF is returned when a demuxer or a draining decoder has nothing left.
	ErrEOF = errors.New("media: end of stream")
)

// NoPTS marks a packet or picture without a presentation timestamp.
const NoPTS int64 = -1 << 63

// Rational is a fraction such as a time base or a frame rate.
type Rational struct {
	Num int64
	Den int64
}

// Valid reports whether both terms are positive.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Float64 returns the value of the fraction, or 0 when the denominator is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// MediaType identifies the kind of elementary stream.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaVideo
	MediaAudio
	MediaData
)

// String returns the string representation of the media type.
func (m MediaType) String() string {
	switch m {
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	case MediaData:
		return "data"
	default:
		return "unknown"
	}
}

// StreamInfo describes one elementary stream of an opened container.
// Duration, FrameCount and AvgFrameRate are zero when the container does not
// expose them.
type StreamInfo struct {
	Index        int
	MediaType    MediaType
	Codec        string
	TimeBase     Rational
	Duration     int64 // in TimeBase units
	FrameCount   int64
	AvgFrameRate Rational
	StartTime    int64
	Width        int
	Height       int

	// Extradata is codec configuration the decoder needs before the first
	// packet (SPS/PPS in Annex B form for H.264).
	Extradata []byte
}

// Packet is one compressed access unit read from a container.
type Packet struct {
	StreamIndex int
	PTS         int64
	DTS         int64
	Duration    int64
	Keyframe    bool
	Data        []byte

	// Ref holds a backend-specific packet handle. It is only valid until the
	// next ReadPacket call on the demuxer that produced it.
	Ref interface{}
}

// Reset clears the packet for reuse.
func (p *Packet) Reset() {
	*p = Packet{PTS: NoPTS, DTS: NoPTS}
}

// Picture is a decoded frame converted to RGBA.
// A Picture with a nil Image only receives timing information.
type Picture struct {
	Image    *image.RGBA
	PTS      int64
	Keyframe bool
}

// NewPicture allocates a picture of the given size.
func NewPicture(width, height int) *Picture {
	return &Picture{
		Image: image.NewRGBA(image.Rect(0, 0, width, height)),
		PTS:   NoPTS,
	}
}

// CopyFrom copies pixels and timing from src. Both images must have the same size.
func (p *Picture) CopyFrom(src *Picture) {
	if p.Image != nil && src.Image != nil {
		copy(p.Image.Pix, src.Image.Pix)
	}
	p.PTS = src.PTS
	p.Keyframe = src.Keyframe
}

// DecoderOptions configures a decoder opened for a stream.
type DecoderOptions struct {
	// Width and Height are the size of the RGBA pictures the decoder produces.
	Width  int
	Height int

	// Threads is a hint for decoders that support frame threading. 0 = auto.
	Threads int
}

// Demuxer abstracts a container reader.
type Demuxer interface {
	// Streams lists the elementary streams of the container.
	Streams() []StreamInfo

	// ReadPacket reads the next packet of any stream into pkt.
	// It returns ErrEOF at the end of the container.
	ReadPacket(pkt *Packet) error

	// SeekBackward repositions the demuxer on the latest keyframe of the
	// stream whose timestamp is at or before ts.
	SeekBackward(streamIndex int, ts int64) error

	// OpenDecoder opens a decoder for the stream.
	OpenDecoder(streamIndex int, opts DecoderOptions) (Decoder, error)

	// Close releases demuxer resources.
	Close() error
}

// Decoder abstracts a send/receive video decoder.
type Decoder interface {
	// SendPacket feeds one packet. A nil packet puts the decoder in draining
	// mode, after which ReceiveFrame returns the buffered pictures and then ErrEOF.
	SendPacket(pkt *Packet) error

	// ReceiveFrame writes the next decoded picture into dst.
	// It returns ErrAgain when more input is needed and ErrEOF once drained.
	ReceiveFrame(dst *Picture) error

	// Flush drops all buffered state. Required after any discontinuous seek.
	Flush()

	// Close releases decoder resources.
	Close() error
}

// MediaOpener opens containers.
type MediaOpener interface {
	// Open opens the container at path.
	Open(path string) (Demuxer, error)
}

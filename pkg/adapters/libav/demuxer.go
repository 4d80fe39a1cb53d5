// Package libav implements the media ports over FFmpeg's libraries through go-astiav.
package libav

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/johnblat/scrubcache/pkg/ports"
)

// Opener implements ports.MediaOpener.
type Opener struct {
	// Threads is passed to decoders when DecoderOptions leaves it at 0.
	Threads int
}

// Open implements ports.MediaOpener.
func (o *Opener) Open(path string) (ports.Demuxer, error) {
	astiav.SetLogLevel(astiav.LogLevelError)

	c := astikit.NewCloser()
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("libav: alloc format context failed")
	}
	c.Add(fc.Free)

	if err := fc.OpenInput(path, nil, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("open input: %w", err)
	}
	c.Add(fc.CloseInput)

	if err := fc.FindStreamInfo(nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("find stream info: %w", err)
	}

	pkt := astiav.AllocPacket()
	c.Add(pkt.Free)

	d := &Demuxer{
		c:       c,
		fc:      fc,
		pkt:     pkt,
		threads: o.Threads,
	}
	for _, s := range fc.Streams() {
		d.streams = append(d.streams, streamInfo(s))
	}
	return d, nil
}

func streamInfo(s *astiav.Stream) ports.StreamInfo {
	par := s.CodecParameters()
	info := ports.StreamInfo{
		Index:      s.Index(),
		Codec:      par.CodecID().Name(),
		TimeBase:   ports.Rational{Num: int64(s.TimeBase().Num()), Den: int64(s.TimeBase().Den())},
		Duration:   s.Duration(),
		FrameCount: s.NbFrames(),
		StartTime:  s.StartTime(),
		Width:      par.Width(),
		Height:     par.Height(),
		Extradata:  par.ExtraData(),
	}
	if info.Duration < 0 {
		info.Duration = 0
	}
	if info.StartTime == astiav.NoPtsValue {
		info.StartTime = 0
	}
	if r := s.AvgFrameRate(); r.Num() > 0 && r.Den() > 0 {
		info.AvgFrameRate = ports.Rational{Num: int64(r.Num()), Den: int64(r.Den())}
	}
	switch par.MediaType() {
	case astiav.MediaTypeVideo:
		info.MediaType = ports.MediaVideo
	case astiav.MediaTypeAudio:
		info.MediaType = ports.MediaAudio
	case astiav.MediaTypeData, astiav.MediaTypeSubtitle:
		info.MediaType = ports.MediaData
	}
	return info
}

// Demuxer implements ports.Demuxer over an AVFormatContext.
type Demuxer struct {
	c       *astikit.Closer
	fc      *astiav.FormatContext
	pkt     *astiav.Packet
	streams []ports.StreamInfo
	threads int
}

// Streams implements ports.Demuxer.
func (d *Demuxer) Streams() []ports.StreamInfo {
	return d.streams
}

// ReadPacket implements ports.Demuxer. pkt.Ref carries the *astiav.Packet
// until the next call.
func (d *Demuxer) ReadPacket(pkt *ports.Packet) error {
	d.pkt.Unref()
	if err := d.fc.ReadFrame(d.pkt); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return ports.ErrEOF
		}
		return fmt.Errorf("read frame: %w", err)
	}

	*pkt = ports.Packet{
		StreamIndex: d.pkt.StreamIndex(),
		PTS:         fromAV(d.pkt.Pts()),
		DTS:         fromAV(d.pkt.Dts()),
		Duration:    d.pkt.Duration(),
		Keyframe:    d.pkt.Flags().Has(astiav.PacketFlagKey),
		Data:        d.pkt.Data(),
		Ref:         d.pkt,
	}
	return nil
}

// SeekBackward implements ports.Demuxer.
func (d *Demuxer) SeekBackward(streamIndex int, ts int64) error {
	if streamIndex < 0 || streamIndex >= len(d.streams) {
		return fmt.Errorf("libav: no stream %d", streamIndex)
	}
	if err := d.fc.SeekFrame(streamIndex, ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("seek frame: %w", err)
	}
	return nil
}

// OpenDecoder implements ports.Demuxer.
func (d *Demuxer) OpenDecoder(streamIndex int, opts ports.DecoderOptions) (ports.Decoder, error) {
	if streamIndex < 0 || streamIndex >= len(d.streams) {
		return nil, fmt.Errorf("libav: no stream %d", streamIndex)
	}
	if opts.Threads == 0 {
		opts.Threads = d.threads
	}
	return newDecoder(d.fc.Streams()[streamIndex], d.streams[streamIndex], opts)
}

// Close implements ports.Demuxer.
func (d *Demuxer) Close() error {
	return d.c.Close()
}

func fromAV(ts int64) int64 {
	if ts == astiav.NoPtsValue {
		return ports.NoPTS
	}
	return ts
}

var (
	_ ports.Demuxer     = (*Demuxer)(nil)
	_ ports.MediaOpener = (*Opener)(nil)
)

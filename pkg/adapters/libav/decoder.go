package libav

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/johnblat/scrubcache/pkg/ports"
)

// Decoder implements ports.Decoder with an AVCodecContext and a software
// scaler converting every frame to RGBA at the output size.
type Decoder struct {
	c      *astikit.Closer
	ctx    *astiav.CodecContext
	frame  *astiav.Frame
	width  int
	height int

	scaler *astiav.SoftwareScaleContext
	rgba   *astiav.Frame
	srcW   int
	srcH   int
	srcFmt astiav.PixelFormat

	spare *astiav.Packet
}

func newDecoder(s *astiav.Stream, info ports.StreamInfo, opts ports.DecoderOptions) (*Decoder, error) {
	par := s.CodecParameters()
	codec := astiav.FindDecoder(par.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("libav: no decoder for %s", info.Codec)
	}

	c := astikit.NewCloser()
	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return nil, errors.New("libav: alloc codec context failed")
	}
	c.Add(ctx.Free)

	if err := par.ToCodecContext(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("codec parameters: %w", err)
	}
	ctx.SetTimeBase(s.TimeBase())
	if opts.Threads > 0 {
		ctx.SetThreadCount(opts.Threads)
	}
	if err := ctx.Open(codec, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("open codec: %w", err)
	}

	frame := astiav.AllocFrame()
	c.Add(frame.Free)
	spare := astiav.AllocPacket()
	c.Add(spare.Free)

	d := &Decoder{c: c, ctx: ctx, frame: frame, spare: spare, width: opts.Width, height: opts.Height}
	if d.width <= 0 || d.height <= 0 {
		d.width, d.height = info.Width, info.Height
	}
	c.Add(d.freeScaler)
	return d, nil
}

// SendPacket implements ports.Decoder.
func (d *Decoder) SendPacket(pkt *ports.Packet) error {
	if pkt == nil {
		return d.send(nil)
	}
	if ref, ok := pkt.Ref.(*astiav.Packet); ok {
		return d.send(ref)
	}

	d.spare.Unref()
	if err := d.spare.FromData(pkt.Data); err != nil {
		return fmt.Errorf("packet from data: %w", err)
	}
	d.spare.SetPts(pkt.PTS)
	d.spare.SetDts(pkt.DTS)
	if pkt.Keyframe {
		d.spare.SetFlags(d.spare.Flags().Add(astiav.PacketFlagKey))
	}
	return d.send(d.spare)
}

func (d *Decoder) send(pkt *astiav.Packet) error {
	if err := d.ctx.SendPacket(pkt); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return ports.ErrEOF
		}
		return fmt.Errorf("send packet: %w", err)
	}
	return nil
}

// ReceiveFrame implements ports.Decoder.
func (d *Decoder) ReceiveFrame(dst *ports.Picture) error {
	if err := d.ctx.ReceiveFrame(d.frame); err != nil {
		switch {
		case errors.Is(err, astiav.ErrEagain):
			return ports.ErrAgain
		case errors.Is(err, astiav.ErrEof):
			return ports.ErrEOF
		}
		return fmt.Errorf("receive frame: %w", err)
	}
	defer d.frame.Unref()

	dst.PTS = fromAV(d.frame.Pts())
	dst.Keyframe = d.frame.PictureType() == astiav.PictureTypeI
	if dst.Image == nil {
		return nil
	}

	if err := d.ensureScaler(d.frame); err != nil {
		return err
	}
	if err := d.scaler.ScaleFrame(d.frame, d.rgba); err != nil {
		return fmt.Errorf("scale frame: %w", err)
	}
	if _, err := d.rgba.ImageCopyToBuffer(dst.Image.Pix, 1); err != nil {
		return fmt.Errorf("copy frame: %w", err)
	}
	return nil
}

func (d *Decoder) ensureScaler(src *astiav.Frame) error {
	sw, sh, sf := src.Width(), src.Height(), src.PixelFormat()
	if d.scaler != nil && sw == d.srcW && sh == d.srcH && sf == d.srcFmt {
		return nil
	}
	d.freeScaler()

	scaler, err := astiav.CreateSoftwareScaleContext(sw, sh, sf, d.width, d.height,
		astiav.PixelFormatRgba, astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear))
	if err != nil {
		return fmt.Errorf("create scaler %dx%d -> %dx%d: %w", sw, sh, d.width, d.height, err)
	}

	rgba := astiav.AllocFrame()
	rgba.SetWidth(d.width)
	rgba.SetHeight(d.height)
	rgba.SetPixelFormat(astiav.PixelFormatRgba)
	if err := rgba.AllocBuffer(1); err != nil {
		rgba.Free()
		scaler.Free()
		return fmt.Errorf("alloc rgba buffer: %w", err)
	}

	d.scaler, d.rgba = scaler, rgba
	d.srcW, d.srcH, d.srcFmt = sw, sh, sf
	return nil
}

func (d *Decoder) freeScaler() {
	if d.rgba != nil {
		d.rgba.Free()
		d.rgba = nil
	}
	if d.scaler != nil {
		d.scaler.Free()
		d.scaler = nil
	}
}

// Flush implements ports.Decoder.
func (d *Decoder) Flush() {
	d.ctx.FlushBuffers()
}

// Close implements ports.Decoder.
func (d *Decoder) Close() error {
	return d.c.Close()
}

var _ ports.Decoder = (*Decoder)(nil)

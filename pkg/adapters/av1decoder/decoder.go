// Package av1decoder provides an AV1 video decoder using libaom.
package av1decoder

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx) {
    return aom_codec_dec_init(ctx, aom_codec_av1_dx(), NULL, 0);
}

static unsigned char* get_plane(aom_image_t *img, int plane) { return img->planes[plane]; }
static int get_stride(aom_image_t *img, int plane) { return img->stride[plane]; }
static unsigned int get_width(aom_image_t *img) { return img->d_w; }
static unsigned int get_height(aom_image_t *img) { return img->d_h; }
static unsigned int get_bit_depth(aom_image_t *img) { return img->bit_depth; }
static unsigned int get_x_shift(aom_image_t *img) { return img->x_chroma_shift; }
static unsigned int get_y_shift(aom_image_t *img) { return img->y_chroma_shift; }
static int is_high_bitdepth(aom_image_t *img) { return (img->fmt & AOM_IMG_FMT_HIGHBITDEPTH) != 0; }
static int is_monochrome(aom_image_t *img) { return img->monochrome; }
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/johnblat/scrubcache/pkg/ports"
)

var (
	// ErrNotInitialized is returned when the codec context could not be created.
	ErrNotInitialized = errors.New("av1decoder: decoder not initialized")

	// ErrDraining is returned when a packet is sent after the drain marker.
	ErrDraining = errors.New("av1decoder: decoder is draining, flush first")
)

type frame struct {
	img *image.RGBA
	pts int64
	key bool
}

// Decoder implements ports.Decoder over libaom. Each packet is one temporal
// unit and yields at most one shown frame, so packet timestamps carry over.
type Decoder struct {
	codec    *C.aom_codec_ctx_t
	width    int
	height   int
	ready    []frame
	draining bool
}

// New creates a decoder producing pictures of the size in opts, or of the
// stream size when opts leaves it unset.
func New(info ports.StreamInfo, opts ports.DecoderOptions) (*Decoder, error) {
	d := &Decoder{width: opts.Width, height: opts.Height}
	if d.width <= 0 || d.height <= 0 {
		d.width, d.height = info.Width, info.Height
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoder) init() error {
	d.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if d.codec == nil {
		return fmt.Errorf("failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_aom_codec_ctx_t)

	if res := C.init_decoder(d.codec); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
		return fmt.Errorf("failed to initialize decoder: %d", res)
	}
	return nil
}

func (d *Decoder) destroy() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

// SendPacket implements ports.Decoder.
func (d *Decoder) SendPacket(pkt *ports.Packet) error {
	if d.codec == nil {
		return ErrNotInitialized
	}
	if d.draining {
		return ErrDraining
	}

	var res C.aom_codec_err_t
	pts, key := ports.NoPTS, false
	if pkt == nil {
		d.draining = true
		res = C.aom_codec_decode(d.codec, nil, 0, nil)
	} else {
		if len(pkt.Data) == 0 {
			return nil
		}
		pts, key = pkt.PTS, pkt.Keyframe
		res = C.aom_codec_decode(d.codec, (*C.uint8_t)(unsafe.Pointer(&pkt.Data[0])), C.size_t(len(pkt.Data)), nil)
	}
	if res != C.AOM_CODEC_OK {
		return fmt.Errorf("decode failed at pts %d: %d", pts, res)
	}

	var iter C.aom_codec_iter_t
	for {
		img := C.aom_codec_get_frame(d.codec, &iter)
		if img == nil {
			break
		}
		d.ready = append(d.ready, frame{img: convert(img), pts: pts, key: key})
	}
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
		scaleInto(dst.Image, f.img)
	}
	dst.PTS = f.pts
	dst.Keyframe = f.key
	return nil
}

// Flush implements ports.Decoder. libaom has no flush call, so the codec is
// re-created.
func (d *Decoder) Flush() {
	d.ready = nil
	d.draining = false
	d.destroy()
	// A failed re-init surfaces as ErrNotInitialized on the next SendPacket.
	_ = d.init()
}

// Close implements ports.Decoder.
func (d *Decoder) Close() error {
	d.ready = nil
	d.destroy()
	return nil
}

// convert copies an aom image out of C memory and converts it to RGBA.
func convert(img *C.aom_image_t) *image.RGBA {
	width := int(C.get_width(img))
	height := int(C.get_height(img))
	xs, ys := uint(C.get_x_shift(img)), uint(C.get_y_shift(img))
	chromaHeight := (height + (1 << ys) - 1) >> ys

	p := yuvPlanes{
		width:      width,
		height:     height,
		xShift:     xs,
		yShift:     ys,
		monochrome: C.is_monochrome(img) != 0,
	}
	if C.is_high_bitdepth(img) != 0 {
		p.bytesPerSample = 2
		p.depth = uint(C.get_bit_depth(img))
	} else {
		p.bytesPerSample = 1
		p.depth = 8
	}

	for i := 0; i < 3; i++ {
		rows := height
		if i > 0 {
			rows = chromaHeight
		}
		stride := int(C.get_stride(img, C.int(i)))
		ptr := C.get_plane(img, C.int(i))
		if ptr == nil || stride <= 0 {
			continue
		}
		p.planes[i] = unsafe.Slice((*byte)(unsafe.Pointer(ptr)), stride*rows)
		p.strides[i] = stride
	}
	return p.toRGBA()
}

var _ ports.Decoder = (*Decoder)(nil)

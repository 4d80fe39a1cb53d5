package av1decoder

import (
	"encoding/binary"
	"image"

	"golang.org/x/image/draw"
)

// yuvPlanes describes a planar YUV picture in Go memory.
type yuvPlanes struct {
	width, height  int
	planes         [3][]byte
	strides        [3]int
	xShift, yShift uint
	bytesPerSample int
	depth          uint
	monochrome     bool
}

func (p *yuvPlanes) sample(plane, x, y int) int {
	row := p.planes[plane]
	if row == nil {
		return 128
	}
	if plane > 0 {
		x >>= p.xShift
		y >>= p.yShift
	}
	idx := y*p.strides[plane] + x*p.bytesPerSample
	if p.bytesPerSample == 2 {
		return int(binary.LittleEndian.Uint16(row[idx:])) >> (p.depth - 8)
	}
	return int(row[idx])
}

// toRGBA converts limited-range BT.601 YUV to RGBA.
func (p *yuvPlanes) toRGBA() *image.RGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			c := p.sample(0, x, y) - 16
			d, e := 0, 0
			if !p.monochrome {
				d = p.sample(1, x, y) - 128
				e = p.sample(2, x, y) - 128
			}

			idx := y*rgba.Stride + x*4
			rgba.Pix[idx] = clamp((298*c + 409*e + 128) >> 8)
			rgba.Pix[idx+1] = clamp((298*c - 100*d - 208*e + 128) >> 8)
			rgba.Pix[idx+2] = clamp((298*c + 516*d + 128) >> 8)
			rgba.Pix[idx+3] = 255
		}
	}
	return rgba
}

// scaleInto writes src into dst, scaling when the sizes differ.
func scaleInto(dst, src *image.RGBA) {
	if dst.Bounds().Size() == src.Bounds().Size() {
		copy(dst.Pix, src.Pix)
		return
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

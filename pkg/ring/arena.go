package ring

import (
	"image"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// Arena is a fixed set of equally sized pictures carved out of one
// allocation. Pictures are reused in place and never reallocated.
type Arena struct {
	width  int
	height int
	pix    []byte
	pics   []*ports.Picture
}

// NewArena allocates n pictures of width x height.
func NewArena(n, width, height int) *Arena {
	stride := width * 4
	size := stride * height
	a := &Arena{
		width:  width,
		height: height,
		pix:    make([]byte, n*size),
		pics:   make([]*ports.Picture, n),
	}
	for i := range a.pics {
		a.pics[i] = &ports.Picture{
			Image: &image.RGBA{
				Pix:    a.pix[i*size : (i+1)*size : (i+1)*size],
				Stride: stride,
				Rect:   image.Rect(0, 0, width, height),
			},
			PTS: ports.NoPTS,
		}
	}
	return a
}

// Len returns the number of pictures.
func (a *Arena) Len() int {
	return len(a.pics)
}

// Picture returns picture i.
func (a *Arena) Picture(i int) *ports.Picture {
	return a.pics[i]
}

// Size returns the picture dimensions.
func (a *Arena) Size() (int, int) {
	return a.width, a.height
}

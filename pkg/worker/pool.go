package worker

import (
	"context"

	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/ring"
)

// PicturePool hands out a fixed set of staging pictures. The worker decodes
// into a picture from the pool and the UI puts it back after copying it into
// the ring.
type PicturePool struct {
	free chan *ports.Picture
	size int
}

// NewPicturePool allocates n pictures of width x height.
func NewPicturePool(n, width, height int) *PicturePool {
	arena := ring.NewArena(n, width, height)
	p := &PicturePool{free: make(chan *ports.Picture, n), size: n}
	for i := 0; i < n; i++ {
		p.free <- arena.Picture(i)
	}
	return p
}

// Get takes a picture, waiting until one is returned or ctx is done.
func (p *PicturePool) Get(ctx context.Context) (*ports.Picture, error) {
	select {
	case pic := <-p.free:
		return pic, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns pic to the pool.
func (p *PicturePool) Put(pic *ports.Picture) {
	if pic == nil {
		return
	}
	select {
	case p.free <- pic:
	default:
	}
}

// Available returns the number of pictures not handed out.
func (p *PicturePool) Available() int {
	return len(p.free)
}

// Size returns the number of pictures the pool was created with.
func (p *PicturePool) Size() int {
	return p.size
}

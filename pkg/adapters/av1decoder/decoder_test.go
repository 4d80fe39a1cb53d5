package av1decoder

import (
	"errors"
	"image"
	"testing"

	"github.com/johnblat/scrubcache/pkg/ports"
)

func TestNew(t *testing.T) {
	d, err := New(ports.StreamInfo{Width: 64, Height: 48}, ports.DecoderOptions{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	if d.width != 64 || d.height != 48 {
		t.Errorf("expected stream size 64x48, got %dx%d", d.width, d.height)
	}
}

func TestDecoder_ReceiveBeforeSend(t *testing.T) {
	d, err := New(ports.StreamInfo{}, ports.DecoderOptions{Width: 16, Height: 16})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	if err := d.ReceiveFrame(ports.NewPicture(16, 16)); !errors.Is(err, ports.ErrAgain) {
		t.Errorf("expected ErrAgain, got %v", err)
	}
}

func TestDecoder_Drain(t *testing.T) {
	d, err := New(ports.StreamInfo{}, ports.DecoderOptions{Width: 16, Height: 16})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	if err := d.SendPacket(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.ReceiveFrame(ports.NewPicture(16, 16)); !errors.Is(err, ports.ErrEOF) {
		t.Errorf("expected ErrEOF, got %v", err)
	}
	if err := d.SendPacket(&ports.Packet{Data: []byte{0x12, 0x00}}); !errors.Is(err, ErrDraining) {
		t.Errorf("expected ErrDraining, got %v", err)
	}

	d.Flush()
	if err := d.ReceiveFrame(ports.NewPicture(16, 16)); !errors.Is(err, ports.ErrAgain) {
		t.Errorf("expected ErrAgain after flush, got %v", err)
	}
}

func TestDecoder_EmptyPacket(t *testing.T) {
	d, err := New(ports.StreamInfo{}, ports.DecoderOptions{Width: 16, Height: 16})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	if err := d.SendPacket(&ports.Packet{}); err != nil {
		t.Errorf("expected empty packet to be ignored, got %v", err)
	}
}

func TestDecoder_ClosedSend(t *testing.T) {
	d, err := New(ports.StreamInfo{}, ports.DecoderOptions{Width: 16, Height: 16})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	d.Close()

	if err := d.SendPacket(&ports.Packet{Data: []byte{1}}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func grayPlanes(w, h int, y, u, v byte) yuvPlanes {
	p := yuvPlanes{width: w, height: h, xShift: 1, yShift: 1, bytesPerSample: 1, depth: 8}
	cw, ch := (w+1)/2, (h+1)/2
	p.planes[0] = make([]byte, w*h)
	p.planes[1] = make([]byte, cw*ch)
	p.planes[2] = make([]byte, cw*ch)
	for i := range p.planes[0] {
		p.planes[0][i] = y
	}
	for i := range p.planes[1] {
		p.planes[1][i] = u
		p.planes[2][i] = v
	}
	p.strides = [3]int{w, cw, cw}
	return p
}

func TestYUVToRGBA(t *testing.T) {
	tests := []struct {
		name    string
		y, u, v byte
		want    [3]uint8
	}{
		{"black", 16, 128, 128, [3]uint8{0, 0, 0}},
		{"white", 235, 128, 128, [3]uint8{255, 255, 255}},
		{"red-ish", 81, 90, 240, [3]uint8{255, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := grayPlanes(4, 4, tt.y, tt.u, tt.v)
			img := p.toRGBA()
			px := img.RGBAAt(1, 1)
			got := [3]uint8{px.R, px.G, px.B}
			for i := range got {
				diff := int(got[i]) - int(tt.want[i])
				if diff < -2 || diff > 2 {
					t.Errorf("expected %v, got %v", tt.want, got)
					break
				}
			}
			if px.A != 255 {
				t.Errorf("expected opaque alpha, got %d", px.A)
			}
		})
	}
}

func TestYUVToRGBA_HighBitDepth(t *testing.T) {
	p := yuvPlanes{width: 2, height: 1, bytesPerSample: 2, depth: 10, monochrome: true}
	// 940 at 10 bits is 235 at 8 bits.
	p.planes[0] = []byte{0xAC, 0x03, 0x40, 0x00}
	p.strides[0] = 4

	img := p.toRGBA()
	if c := img.RGBAAt(0, 0); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("expected white, got %v", c)
	}
	if c := img.RGBAAt(1, 0); c.R != 0 {
		t.Errorf("expected black, got %v", c)
	}
}

func TestScaleInto(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = 200
	}

	same := image.NewRGBA(image.Rect(0, 0, 8, 8))
	scaleInto(same, src)
	if same.Pix[0] != 200 {
		t.Errorf("expected copied pixel 200, got %d", same.Pix[0])
	}

	small := image.NewRGBA(image.Rect(0, 0, 4, 4))
	scaleInto(small, src)
	if small.Pix[0] != 200 {
		t.Errorf("expected scaled pixel 200, got %d", small.Pix[0])
	}
}

package smartsource

import (
	"errors"
	"testing"

	"github.com/johnblat/scrubcache/pkg/mocks"
	"github.com/johnblat/scrubcache/pkg/ports"
)

func failing(err error) *mocks.Media {
	m := mocks.NewMedia(mocks.DefaultMediaSpec())
	m.OpenFunc = func(path string) (ports.Demuxer, error) { return nil, err }
	return m
}

func TestOpener_Backends(t *testing.T) {
	tests := []struct {
		name     string
		backend  Backend
		libavErr error
		mp4Err   error
		want     Backend
		wantErr  bool
	}{
		{"libav only", BackendLibav, nil, nil, BackendLibav, false},
		{"mp4 only", BackendMP4, nil, nil, BackendMP4, false},
		{"auto prefers libav", BackendAuto, nil, nil, BackendLibav, false},
		{"auto falls back", BackendAuto, errors.New("no libav"), nil, BackendMP4, false},
		{"auto both fail", BackendAuto, errors.New("no libav"), errors.New("not mp4"), "", true},
		{"libav fails", BackendLibav, errors.New("no libav"), nil, "", true},
		{"empty means auto", "", nil, nil, BackendLibav, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := mocks.NewMedia(mocks.DefaultMediaSpec())
			if tt.libavErr != nil {
				lib = failing(tt.libavErr)
			}
			mp4 := mocks.NewMedia(mocks.DefaultMediaSpec())
			if tt.mp4Err != nil {
				mp4 = failing(tt.mp4Err)
			}

			log := mocks.NewLogger()
			o := NewWithBackends(tt.backend, lib, mp4, log)
			d, err := o.Open("clip.mp4")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer d.Close()
			if o.Selected() != tt.want {
				t.Errorf("expected backend %s, got %s", tt.want, o.Selected())
			}
			if tt.libavErr != nil && log.Count(ports.LevelWarn, "falling back") != 1 {
				t.Error("expected a fallback warning")
			}
		})
	}
}

func TestOpener_BothErrorsReported(t *testing.T) {
	libErr := errors.New("no libav")
	mp4Err := errors.New("not mp4")
	o := NewWithBackends(BackendAuto, failing(libErr), failing(mp4Err), mocks.NewLogger())

	_, err := o.Open("clip.mkv")
	if !errors.Is(err, libErr) || !errors.Is(err, mp4Err) {
		t.Errorf("expected both backend errors, got %v", err)
	}
}

func TestOpener_UnknownBackend(t *testing.T) {
	o := NewWithBackends("gstreamer", mocks.NewMedia(mocks.DefaultMediaSpec()), mocks.NewMedia(mocks.DefaultMediaSpec()), mocks.NewLogger())
	if _, err := o.Open("clip.mp4"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestDecoderFactory_Unsupported(t *testing.T) {
	_, err := DecoderFactory(ports.StreamInfo{Codec: "hevc"}, ports.DecoderOptions{})
	if !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}

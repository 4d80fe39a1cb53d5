// Package smartsource picks the media backend for a file. libav handles any
// container FFmpeg understands; the mp4 backend needs no FFmpeg libraries and
// decodes H.264 through the ffmpeg CLI and AV1 through libaom.
package smartsource

import (
	"errors"
	"fmt"

	"github.com/johnblat/scrubcache/pkg/adapters/av1decoder"
	"github.com/johnblat/scrubcache/pkg/adapters/h264decoder"
	"github.com/johnblat/scrubcache/pkg/adapters/libav"
	"github.com/johnblat/scrubcache/pkg/adapters/mp4demux"
	"github.com/johnblat/scrubcache/pkg/ports"
)

// Backend names a media backend.
type Backend string

const (
	// BackendAuto tries libav first and falls back to mp4.
	BackendAuto Backend = "auto"
	// BackendLibav uses go-astiav.
	BackendLibav Backend = "libav"
	// BackendMP4 uses mp4ff with per-codec decoders.
	BackendMP4 Backend = "mp4"
)

// ErrUnsupportedCodec is returned by the mp4 backend for codecs it cannot decode.
var ErrUnsupportedCodec = errors.New("smartsource: unsupported codec")

// Options configures backend selection.
type Options struct {
	Backend    Backend
	FFmpegPath string
	Threads    int
}

// Opener implements ports.MediaOpener.
type Opener struct {
	backend Backend
	libav   ports.MediaOpener
	mp4     ports.MediaOpener
	logger  ports.Logger

	selected Backend
}

// New creates an opener with the real backends.
func New(opts Options, logger ports.Logger) *Opener {
	if opts.FFmpegPath != "" {
		h264decoder.SetFFmpegPath(opts.FFmpegPath)
	}
	return NewWithBackends(opts.Backend,
		&libav.Opener{Threads: opts.Threads},
		&mp4demux.Opener{Decoders: DecoderFactory},
		logger)
}

// NewWithBackends creates an opener over the given backend implementations.
func NewWithBackends(backend Backend, libavOpener, mp4Opener ports.MediaOpener, logger ports.Logger) *Opener {
	if backend == "" {
		backend = BackendAuto
	}
	return &Opener{
		backend: backend,
		libav:   libavOpener,
		mp4:     mp4Opener,
		logger:  logger.WithComponent("smartsource"),
	}
}

// Open implements ports.MediaOpener.
func (o *Opener) Open(path string) (ports.Demuxer, error) {
	switch o.backend {
	case BackendLibav:
		return o.open(BackendLibav, o.libav, path)
	case BackendMP4:
		return o.open(BackendMP4, o.mp4, path)
	case BackendAuto:
		d, err := o.open(BackendLibav, o.libav, path)
		if err == nil {
			return d, nil
		}
		o.logger.Warn("libav backend failed, falling back to mp4: %v", err)
		d, mp4Err := o.open(BackendMP4, o.mp4, path)
		if mp4Err != nil {
			return nil, fmt.Errorf("no backend could open %s: %w", path, errors.Join(err, mp4Err))
		}
		return d, nil
	default:
		return nil, fmt.Errorf("smartsource: unknown backend %q", o.backend)
	}
}

func (o *Opener) open(b Backend, opener ports.MediaOpener, path string) (ports.Demuxer, error) {
	d, err := opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", b, err)
	}
	o.selected = b
	o.logger.Debug("opened %s with %s backend", path, b)
	return d, nil
}

// Selected returns the backend that served the last successful Open.
func (o *Opener) Selected() Backend {
	return o.selected
}

// DecoderFactory opens the mp4 backend's decoder for a stream.
func DecoderFactory(info ports.StreamInfo, opts ports.DecoderOptions) (ports.Decoder, error) {
	switch info.Codec {
	case mp4demux.CodecH264:
		return h264decoder.New(info, opts)
	case mp4demux.CodecAV1:
		return av1decoder.New(info, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, info.Codec)
	}
}

var _ ports.MediaOpener = (*Opener)(nil)

// Package nullsink provides a snapshot sink that discards everything.
package nullsink

import (
	"image"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// Sink is a no-op implementation of ports.SnapshotSink.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

func (s *Sink) SaveStrip(img image.Image) error                        { return nil }
func (s *Sink) SaveSlot(index int, frame int64, img image.Image) error { return nil }
func (s *Sink) SaveDiagnosticsJSON(data []byte) error                  { return nil }
func (s *Sink) SaveSummary(data []byte) error                          { return nil }

var _ ports.SnapshotSink = (*Sink)(nil)

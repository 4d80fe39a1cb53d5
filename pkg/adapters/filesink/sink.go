// Package filesink writes snapshot artifacts into a directory.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// Sink saves snapshot artifacts to files under baseDir.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new file sink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveStrip saves the composed strip as strip.png.
func (s *Sink) SaveStrip(img image.Image) error {
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode strip: %w", err)
	}
	return s.write("strip.png", data)
}

// SaveSlot saves one ring slot as slots/slot-NN-fFRAME.png.
func (s *Sink) SaveSlot(index int, frame int64, img image.Image) error {
	dir := filepath.Join(s.baseDir, "slots")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode slot %d: %w", index, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("slot-%02d-f%06d.png", index, frame))
	return s.fs.WriteFile(path, data)
}

// SaveDiagnosticsJSON saves diagnostics.json.
func (s *Sink) SaveDiagnosticsJSON(data []byte) error {
	return s.write("diagnostics.json", data)
}

// SaveSummary saves summary.md.
func (s *Sink) SaveSummary(data []byte) error {
	return s.write("summary.md", data)
}

func (s *Sink) write(name string, data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, name), data)
}

var _ ports.SnapshotSink = (*Sink)(nil)

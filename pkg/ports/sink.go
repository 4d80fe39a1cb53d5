package ports

import (
	"image"
)

// SnapshotSink abstracts where snapshot artifacts are written.
type SnapshotSink interface {
	// Enabled returns true if the sink writes anything.
	Enabled() bool

	// SaveStrip saves the composed ring strip image.
	SaveStrip(img image.Image) error

	// SaveSlot saves the picture held by one ring slot.
	SaveSlot(index int, frame int64, img image.Image) error

	// SaveDiagnosticsJSON saves the session diagnostics as JSON.
	SaveDiagnosticsJSON(data []byte) error

	// SaveSummary saves the Markdown summary.
	SaveSummary(data []byte) error
}

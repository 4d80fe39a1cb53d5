package mocks

import (
	"image"
	"sync"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// SnapshotSink is a mock implementation of ports.SnapshotSink.
type SnapshotSink struct {
	mu sync.RWMutex

	enabled bool

	Strip           image.Image
	Slots           map[int]image.Image
	SlotFrames      map[int]int64
	DiagnosticsJSON []byte
	Summary         []byte

	// SaveDiagnosticsErr is returned by SaveDiagnosticsJSON when set.
	SaveDiagnosticsErr error
}

// NewSnapshotSink creates a new mock SnapshotSink.
func NewSnapshotSink(enabled bool) *SnapshotSink {
	return &SnapshotSink{
		enabled:    enabled,
		Slots:      make(map[int]image.Image),
		SlotFrames: make(map[int]int64),
	}
}

func (m *SnapshotSink) Enabled() bool {
	return m.enabled
}

func (m *SnapshotSink) SaveStrip(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Strip = img
	return nil
}

func (m *SnapshotSink) SaveSlot(index int, frame int64, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Slots[index] = img
	m.SlotFrames[index] = frame
	return nil
}

func (m *SnapshotSink) SaveDiagnosticsJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveDiagnosticsErr != nil {
		return m.SaveDiagnosticsErr
	}
	m.DiagnosticsJSON = data
	return nil
}

func (m *SnapshotSink) SaveSummary(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Summary = data
	return nil
}

// SlotCount returns the number of slots saved.
func (m *SnapshotSink) SlotCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Slots)
}

var _ ports.SnapshotSink = (*SnapshotSink)(nil)

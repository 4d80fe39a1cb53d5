package mocks

import (
	"sync"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// FileSystem is an in-memory ports.FileSystem.
type FileSystem struct {
	WriteFileFunc func(path string, data []byte) error
	MkdirAllFunc  func(path string) error

	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
}

func NewFileSystem() *FileSystem {
	return &FileSystem{files: map[string][]byte{}, dirs: map[string]bool{}}
}

func (m *FileSystem) WriteFile(path string, data []byte) error {
	if m.WriteFileFunc != nil {
		return m.WriteFileFunc(path, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *FileSystem) MkdirAll(path string) error {
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
	return nil
}

// GetFile returns what was written to path.
func (m *FileSystem) GetFile(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return data, ok
}

// HasDir reports whether MkdirAll was called for path.
func (m *FileSystem) HasDir(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[path]
}

// Paths returns the number of files written.
func (m *FileSystem) Paths() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

var _ ports.FileSystem = (*FileSystem)(nil)

package summarizer

import (
	"fmt"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// Writer renders summaries and stores them.
type Writer struct {
	formatter Formatter
	fs        ports.FileSystem
}

// NewWriter creates a Writer that stores reports through fs.
func NewWriter(formatter Formatter, fs ports.FileSystem) *Writer {
	return &Writer{formatter: formatter, fs: fs}
}

// Render formats the summary without writing it anywhere.
func (w *Writer) Render(summary *Summary) []byte {
	return []byte(w.formatter.Format(summary))
}

// Write formats the summary into path.
func (w *Writer) Write(path string, summary *Summary) error {
	if err := w.fs.WriteFile(path, w.Render(summary)); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

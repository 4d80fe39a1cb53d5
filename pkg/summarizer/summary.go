// Package summarizer renders a human-readable report of a snapshot run.
package summarizer

import "time"

// Summary contains everything reported about one snapshot run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time `json:"generated_at"`

	// Source video
	Source SourceInfo `json:"source"`

	// Scrubbing results
	Scrub ScrubInfo `json:"scrub"`

	// Ring and queue settings
	Settings Settings `json:"settings"`

	// Strip output details
	Strip StripInfo `json:"strip"`
}

// SourceInfo describes the opened video stream.
type SourceInfo struct {
	Path        string  `json:"path"`
	Codec       string  `json:"codec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FrameRate   float64 `json:"frame_rate"`
	TotalFrames int64   `json:"total_frames"`
	Method      string  `json:"method"` // How TotalFrames was estimated
}

// ScrubInfo describes where scrubbing ended and what it cost.
type ScrubInfo struct {
	Steps     int    `json:"steps"`
	Direction string `json:"direction"`
	Pos       int    `json:"pos"`
	Frame     int64  `json:"frame"`
	Requests  uint64 `json:"requests"`
	Serviced  uint64 `json:"serviced"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	ElapsedMs int    `json:"elapsed_ms"`
}

// Settings contains the ring and queue configuration.
type Settings struct {
	Backend        string `json:"backend"`
	Subsections    int    `json:"subsections"`
	SubsectionSize int    `json:"subsection_size"`
	RequestCap     int    `json:"request_cap"`
	RequestPolicy  string `json:"request_policy"`
	ImagePolicy    string `json:"image_policy"`
	WorkerEnabled  bool   `json:"worker_enabled"`
}

// StripInfo contains information about the written strip.
type StripInfo struct {
	Path     string `json:"path"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileSize int64  `json:"file_size"`
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSource sets source information.
func (b *Builder) WithSource(source SourceInfo) *Builder {
	b.summary.Source = source
	return b
}

// WithScrub sets scrubbing results.
func (b *Builder) WithScrub(scrub ScrubInfo) *Builder {
	b.summary.Scrub = scrub
	return b
}

// WithSettings sets ring and queue settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithStrip sets strip output information.
func (b *Builder) WithStrip(strip StripInfo) *Builder {
	b.summary.Strip = strip
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}

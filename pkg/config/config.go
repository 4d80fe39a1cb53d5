// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/johnblat/scrubcache/pkg/orchestrator"
	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/queue"
	"github.com/johnblat/scrubcache/pkg/session"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Config represents the full configuration for the scrubber.
type Config struct {
	Source     string `yaml:"source"`
	Backend    string `yaml:"backend"`
	FFmpegPath string `yaml:"ffmpeg_path"`

	Ring    RingConfig    `yaml:"ring"`
	Picture PictureConfig `yaml:"picture"`
	Queues  QueueConfig   `yaml:"queues"`
	Input   InputConfig   `yaml:"input"`
	Worker  WorkerConfig  `yaml:"worker"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// RingConfig sizes the scrub ring.
type RingConfig struct {
	Subsections    int   `yaml:"subsections"`
	SubsectionSize int   `yaml:"subsection_size"`
	StartFrame     int64 `yaml:"start_frame"`
}

// PictureConfig controls decoded picture size.
type PictureConfig struct {
	MaxWidth int `yaml:"max_width"`
	Threads  int `yaml:"threads"`
}

// QueueConfig sizes the request queue and picks backpressure policies.
type QueueConfig struct {
	Requests      int    `yaml:"requests"`
	RequestPolicy string `yaml:"request_policy"`
	ImagePolicy   string `yaml:"image_policy"`
}

// InputConfig controls hold-to-repeat.
type InputConfig struct {
	RepeatDelayMs    int `yaml:"repeat_delay_ms"`
	RepeatIntervalMs int `yaml:"repeat_interval_ms"`
}

// WorkerConfig controls the decode worker.
type WorkerConfig struct {
	Enabled        bool `yaml:"enabled"`
	ErrorBackoffMs int  `yaml:"error_backoff_ms"`
}

// SnapshotConfig controls the strip rendered by the snapshot command.
type SnapshotConfig struct {
	Output     string      `yaml:"output"`
	Quality    int         `yaml:"quality"`
	Steps      int         `yaml:"steps"`
	Backward   bool        `yaml:"backward"`
	Columns    int         `yaml:"columns"`
	ThumbWidth int         `yaml:"thumb_width"`
	Gap        int         `yaml:"gap"`
	Padding    int         `yaml:"padding"`
	Workers    int         `yaml:"workers"`
	FontPath   string      `yaml:"font_path"`
	FastScale  bool        `yaml:"fast_scale"`
	DebugDir   string      `yaml:"debug_dir"`
	Theme      ThemeConfig `yaml:"theme"`
}

// ThemeConfig represents theming options.
type ThemeConfig struct {
	BackgroundColor string `yaml:"background_color"`
	BorderColor     string `yaml:"border_color"`
	AccentColor     string `yaml:"accent_color"`
	TextColor       string `yaml:"text_color"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Backend: "auto",
		Ring: RingConfig{
			Subsections:    3,
			SubsectionSize: 16,
		},
		Picture: PictureConfig{
			MaxWidth: 640,
		},
		Queues: QueueConfig{
			Requests:      8,
			RequestPolicy: queue.PolicyDropOldest.String(),
			ImagePolicy:   queue.PolicyBlock.String(),
		},
		Input: InputConfig{
			RepeatDelayMs: 150,
		},
		Worker: WorkerConfig{
			Enabled:        true,
			ErrorBackoffMs: 50,
		},
		LogLevel: "info",
		Snapshot: SnapshotConfig{
			Output:     "strip.png",
			Quality:    85,
			Columns:    16,
			ThumbWidth: 96,
			Gap:        4,
			Padding:    12,
			Theme: ThemeConfig{
				BackgroundColor: "#1a1a2e",
				BorderColor:     "#333355",
				AccentColor:     "#4ade80",
				TextColor:       "#ffffff",
			},
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	switch c.Backend {
	case "auto", "libav", "mp4":
	default:
		return fmt.Errorf("%w: backend %q (want auto, libav or mp4)", ErrInvalid, c.Backend)
	}
	if c.Ring.Subsections < 3 {
		return fmt.Errorf("%w: ring.subsections must be at least 3, got %d", ErrInvalid, c.Ring.Subsections)
	}
	if c.Ring.SubsectionSize < 1 {
		return fmt.Errorf("%w: ring.subsection_size must be positive, got %d", ErrInvalid, c.Ring.SubsectionSize)
	}
	if c.Ring.StartFrame < 0 {
		return fmt.Errorf("%w: ring.start_frame must not be negative, got %d", ErrInvalid, c.Ring.StartFrame)
	}
	if c.Queues.Requests < 1 {
		return fmt.Errorf("%w: queues.requests must be positive, got %d", ErrInvalid, c.Queues.Requests)
	}
	if _, err := queue.ParsePolicy(c.Queues.RequestPolicy); err != nil {
		return fmt.Errorf("%w: queues.request_policy: %v", ErrInvalid, err)
	}
	if _, err := queue.ParsePolicy(c.Queues.ImagePolicy); err != nil {
		return fmt.Errorf("%w: queues.image_policy: %v", ErrInvalid, err)
	}
	if c.Input.RepeatDelayMs < 0 || c.Input.RepeatIntervalMs < 0 {
		return fmt.Errorf("%w: input repeat timings must not be negative", ErrInvalid)
	}
	if c.Snapshot.Columns < 1 || c.Snapshot.ThumbWidth < 1 {
		return fmt.Errorf("%w: snapshot.columns and snapshot.thumb_width must be positive", ErrInvalid)
	}
	if _, err := ports.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Snapshot.Quality < 1 || c.Snapshot.Quality > 100 {
		return fmt.Errorf("%w: snapshot.quality must be within 1-100, got %d", ErrInvalid, c.Snapshot.Quality)
	}
	return nil
}

// ToSessionOptions converts the playback settings. Call Validate first.
func (c Config) ToSessionOptions() session.Options {
	reqPolicy, _ := queue.ParsePolicy(c.Queues.RequestPolicy)
	imgPolicy, _ := queue.ParsePolicy(c.Queues.ImagePolicy)
	return session.Options{
		Path:           c.Source,
		MaxWidth:       c.Picture.MaxWidth,
		Threads:        c.Picture.Threads,
		Subsections:    c.Ring.Subsections,
		SubsectionSize: c.Ring.SubsectionSize,
		StartFrame:     c.Ring.StartFrame,
		RequestCap:     c.Queues.Requests,
		RequestPolicy:  reqPolicy,
		ImagePolicy:    imgPolicy,
		WorkerEnabled:  c.Worker.Enabled,
		ErrorBackoff:   time.Duration(c.Worker.ErrorBackoffMs) * time.Millisecond,
	}
}

// RepeatTimings returns the hold-to-repeat delay and interval.
func (c Config) RepeatTimings() (delay, interval time.Duration) {
	return time.Duration(c.Input.RepeatDelayMs) * time.Millisecond,
		time.Duration(c.Input.RepeatIntervalMs) * time.Millisecond
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	dir := session.Forward
	if c.Snapshot.Backward {
		dir = session.Backward
	}
	return orchestrator.Config{
		Session:    c.ToSessionOptions(),
		OutputPath: c.Snapshot.Output,
		Quality:    c.Snapshot.Quality,
		Steps:      c.Snapshot.Steps,
		Direction:  dir,

		Columns:    c.Snapshot.Columns,
		ThumbWidth: c.Snapshot.ThumbWidth,
		Gap:        c.Snapshot.Gap,
		Padding:    c.Snapshot.Padding,

		BackgroundColor: rgbaArray(ParseColor(c.Snapshot.Theme.BackgroundColor)),
		BorderColor:     rgbaArray(ParseColor(c.Snapshot.Theme.BorderColor)),
		AccentColor:     rgbaArray(ParseColor(c.Snapshot.Theme.AccentColor)),
		TextColor:       rgbaArray(ParseColor(c.Snapshot.Theme.TextColor)),
	}
}

// ParseColor parses a "#rrggbb" hex color. Malformed input yields black.
func ParseColor(hex string) color.RGBA {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return color.RGBA{A: 255}
	}

	var rgb [3]uint8
	for i := range rgb {
		rgb[i] = hexValue(hex[2*i])<<4 | hexValue(hex[2*i+1])
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

func rgbaArray(c color.RGBA) [4]uint8 {
	return [4]uint8{c.R, c.G, c.B, c.A}
}

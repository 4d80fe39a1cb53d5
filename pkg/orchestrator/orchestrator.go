// Package orchestrator coordinates the snapshot pipeline: scrub a session,
// lay out the ring, compose it into a strip and write it out.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/johnblat/scrubcache/pkg/pipeline"
	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/session"
	"github.com/johnblat/scrubcache/pkg/stages/layout"
)

// marshalDiagnostics is swapped out in tests.
var marshalDiagnostics = json.MarshalIndent

// Config contains all configuration for the orchestrator.
type Config struct {
	// Input
	Session    session.Options
	OutputPath string
	Quality    int // JPEG only

	// Scrubbing
	Steps     int
	Direction session.Direction

	// Layout
	Columns    int
	ThumbWidth int
	Gap        int
	Padding    int

	// Style
	BackgroundColor [4]uint8 // RGBA
	BorderColor     [4]uint8 // RGBA
	AccentColor     [4]uint8 // RGBA
	TextColor       [4]uint8 // RGBA
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	l := pipeline.DefaultLayoutInput()
	return Config{
		Session:    session.DefaultOptions(),
		OutputPath: "strip.png",
		Quality:    85,
		Direction:  session.Forward,
		Columns:    l.Columns,
		ThumbWidth: l.ThumbWidth,
		Gap:        l.Gap,
		Padding:    l.Padding,
	}
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	scrubStage     pipeline.Stage[pipeline.ScrubInput, pipeline.ScrubResult]
	layoutStage    pipeline.Stage[pipeline.LayoutInput, pipeline.LayoutResult]
	compositeStage pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult]
	renderer       ports.Renderer
	fs             ports.FileSystem
	sink           ports.SnapshotSink
	logger         ports.Logger
}

// New creates a new Orchestrator.
func New(
	scrubStage pipeline.Stage[pipeline.ScrubInput, pipeline.ScrubResult],
	layoutStage pipeline.Stage[pipeline.LayoutInput, pipeline.LayoutResult],
	compositeStage pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult],
	renderer ports.Renderer,
	fs ports.FileSystem,
	sink ports.SnapshotSink,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		scrubStage:     scrubStage,
		layoutStage:    layoutStage,
		compositeStage: compositeStage,
		renderer:       renderer,
		fs:             fs,
		sink:           sink,
		logger:         logger,
	}
}

// Run executes the complete pipeline.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	o.logger.Info(l10n.T("Starting pipeline"))

	// 1. Scrub
	o.logger.Info(l10n.F("Scrubbing %d steps %s", config.Steps, config.Direction))
	scrub, err := o.scrubStage.Execute(ctx, pipeline.ScrubInput{
		Session:   config.Session,
		Steps:     config.Steps,
		Direction: config.Direction,
	})
	if err != nil {
		o.logger.Error(l10n.F("Failed to scrub: %s", err))
		return RunResult{}, fmt.Errorf("scrub stage: %w", err)
	}
	o.logger.Info(l10n.F("Scrub completed at frame %d in %d ms", scrub.Diagnostics.Frame, scrub.ElapsedMs))

	if o.sink.Enabled() {
		data, err := marshalDiagnostics(scrub.Diagnostics, "", "  ")
		if err != nil {
			o.logger.Warn("Failed to encode diagnostics: %v", err)
		} else if err := o.sink.SaveDiagnosticsJSON(data); err != nil {
			o.logger.Warn("Failed to save diagnostics: %v", err)
		}
	}

	// 2. Layout
	o.logger.Info(l10n.T("Calculating layout"))
	layoutResult, err := o.layoutStage.Execute(ctx, o.buildLayoutInput(config, scrub))
	if err != nil {
		o.logger.Error(l10n.F("Failed to calculate layout: %s", err))
		return RunResult{}, fmt.Errorf("layout stage: %w", err)
	}
	o.logger.Info(l10n.F("Layout calculated: %dx%d canvas, %d cells",
		layoutResult.Canvas.Width, layoutResult.Canvas.Height, len(layoutResult.Thumbs)))

	// 3. Compose
	composite, err := o.compositeStage.Execute(ctx, o.buildCompositeInput(config, layoutResult, scrub))
	if err != nil {
		o.logger.Error(l10n.F("Failed to composite strip: %s", err))
		return RunResult{}, fmt.Errorf("composite stage: %w", err)
	}
	o.logger.Info(l10n.T("Composition completed"))

	// 4. Encode
	data, err := o.renderer.EncodeImage(composite.Image, FormatFor(config.OutputPath), config.Quality)
	if err != nil {
		o.logger.Error(l10n.F("Failed to encode strip: %s", err))
		return RunResult{}, fmt.Errorf("encode strip: %w", err)
	}
	o.logger.Info(l10n.F("Strip encoded: %d bytes", len(data)))

	// 5. Write output file
	if err := o.fs.WriteFile(config.OutputPath, data); err != nil {
		o.logger.Error(l10n.F("Failed to write output: %s", err))
		return RunResult{}, fmt.Errorf("write output: %w", err)
	}

	o.logger.Info(l10n.T("Pipeline completed successfully"))

	d := scrub.Diagnostics
	return RunResult{
		SourcePath:    config.Session.Path,
		Codec:         scrub.Info.Codec,
		Width:         scrub.Info.Width,
		Height:        scrub.Info.Height,
		FrameRate:     scrub.Info.AvgFrameRate.Float64(),
		TotalFrames:   d.TotalFrames,
		Method:        scrub.Method,
		Steps:         config.Steps,
		Direction:     config.Direction.String(),
		Pos:           d.Pos,
		Frame:         d.Frame,
		Requests:      d.Requests,
		Serviced:      d.Worker.Serviced,
		Failed:        d.Worker.Failed,
		Dropped:       d.DroppedRequests,
		ElapsedMs:     scrub.ElapsedMs,
		StripWidth:    layoutResult.Canvas.Width,
		StripHeight:   layoutResult.Canvas.Height,
		StripFileSize: int64(len(data)),
		OutputPath:    config.OutputPath,
	}, nil
}

func (o *Orchestrator) buildLayoutInput(config Config, scrub pipeline.ScrubResult) pipeline.LayoutInput {
	input := pipeline.DefaultLayoutInput()
	input.Slots = len(scrub.Slots)
	input.Subsections = config.Session.Subsections
	if config.Columns > 0 {
		input.Columns = config.Columns
	}
	if config.ThumbWidth > 0 {
		input.ThumbWidth = config.ThumbWidth
	}
	if config.Gap > 0 {
		input.Gap = config.Gap
	}
	if config.Padding > 0 {
		input.Padding = config.Padding
	}
	input.ThumbHeight = layout.ThumbHeight(input.ThumbWidth, scrub.Picture)
	return input
}

func (o *Orchestrator) buildCompositeInput(
	config Config,
	layoutResult pipeline.LayoutResult,
	scrub pipeline.ScrubResult,
) pipeline.CompositeInput {
	theme := pipeline.DefaultCompositeTheme()
	// Override theme colors if specified
	if config.BackgroundColor != [4]uint8{} {
		theme.BackgroundColor = rgbaFromArray(config.BackgroundColor)
	}
	if config.BorderColor != [4]uint8{} {
		theme.BorderColor = rgbaFromArray(config.BorderColor)
	}
	if config.AccentColor != [4]uint8{} {
		theme.AccentColor = rgbaFromArray(config.AccentColor)
	}
	if config.TextColor != [4]uint8{} {
		theme.TextColor = rgbaFromArray(config.TextColor)
	}

	return pipeline.CompositeInput{
		Scrub:  scrub,
		Layout: layoutResult,
		Theme:  theme,
		Title:  title(config, scrub),
	}
}

func title(config Config, scrub pipeline.ScrubResult) string {
	name := filepath.Base(config.Session.Path)
	d := scrub.Diagnostics
	return fmt.Sprintf("%s  %s %dx%d  frame %d/%d  slot %d  %s",
		name, scrub.Info.Codec, scrub.Info.Width, scrub.Info.Height,
		d.Frame, d.TotalFrames, d.Pos, scrub.Method)
}

// FormatFor picks the strip encoding from the output file extension.
func FormatFor(path string) ports.ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return ports.FormatJPEG
	default:
		return ports.FormatPNG
	}
}

func rgbaFromArray(c [4]uint8) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// RunResult contains the results of a pipeline run for summary generation.
type RunResult struct {
	// Source information
	SourcePath  string
	Codec       string
	Width       int
	Height      int
	FrameRate   float64
	TotalFrames int64
	Method      string // Frame count estimator tier

	// Scrub information
	Steps     int
	Direction string
	Pos       int
	Frame     int64
	Requests  uint64
	Serviced  uint64
	Failed    uint64
	Dropped   uint64
	ElapsedMs int

	// Output information
	StripWidth    int
	StripHeight   int
	StripFileSize int64
	OutputPath    string
}

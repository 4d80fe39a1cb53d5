package main

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/johnblat/scrubcache/pkg/adapters/filesink"
	"github.com/johnblat/scrubcache/pkg/adapters/ggrenderer"
	"github.com/johnblat/scrubcache/pkg/adapters/nullsink"
	"github.com/johnblat/scrubcache/pkg/adapters/osfilesystem"
	"github.com/johnblat/scrubcache/pkg/config"
	"github.com/johnblat/scrubcache/pkg/orchestrator"
	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/session"
	"github.com/johnblat/scrubcache/pkg/stages/composite"
	"github.com/johnblat/scrubcache/pkg/stages/layout"
	"github.com/johnblat/scrubcache/pkg/stages/scrub"
	"github.com/johnblat/scrubcache/pkg/summarizer"
)

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:      "snapshot",
		Usage:     l10n.T("Scrub a video and render the cached frames as a PNG strip"),
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    l10n.T("Output PNG file path"),
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "summary",
				Usage:    l10n.T("Also write a summary to this path (.json for JSON, Markdown otherwise)"),
				Category: l10n.T("Output"),
			},
			&cli.IntFlag{
				Name:     "steps",
				Aliases:  []string{"n"},
				Usage:    l10n.T("Number of playhead steps before the snapshot"),
				Category: l10n.T("Scrubbing"),
			},
			&cli.BoolFlag{
				Name:     "backward",
				Usage:    l10n.T("Step backward instead of forward"),
				Category: l10n.T("Scrubbing"),
			},
			&cli.IntFlag{
				Name:     "columns",
				Usage:    l10n.T("Thumbnails per row (min: 1)"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.IntFlag{
				Name:     "thumb-width",
				Usage:    l10n.T("Thumbnail width in pixels"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.IntFlag{
				Name:     "quality",
				Usage:    l10n.T("JPEG quality when the output ends in .jpg (1-100)"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.StringFlag{
				Name:     "font",
				Usage:    l10n.T("TrueType font for the title and frame labels"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.BoolFlag{
				Name:     "fast-scale",
				Usage:    l10n.T("Use bilinear instead of Catmull-Rom thumbnail scaling"),
				Category: l10n.T("Performance"),
			},
			&cli.StringFlag{
				Name:     "background-color",
				Usage:    l10n.T("Background color (hex, e.g., #1a1a2e)"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.StringFlag{
				Name:     "accent-color",
				Usage:    l10n.T("Playhead and keyframe color (hex)"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.IntFlag{
				Name:     "workers",
				Usage:    l10n.T("Thumbnail scaling workers (default: CPU count)"),
				Category: l10n.T("Performance"),
			},
			&cli.StringFlag{
				Name:     "debug-dir",
				Usage:    l10n.T("Save per-slot images and diagnostics to this directory"),
				Category: l10n.T("Debug"),
			},
		},
		Action: runSnapshot,
	}
}

func applySnapshotFlags(c *cli.Context, cfg *config.Config) {
	s := &cfg.Snapshot
	if c.IsSet("output") {
		s.Output = c.String("output")
	}
	if c.IsSet("font") {
		s.FontPath = c.String("font")
	}
	if c.Bool("fast-scale") {
		s.FastScale = true
	}
	if c.IsSet("quality") {
		s.Quality = c.Int("quality")
	}
	if c.IsSet("steps") {
		s.Steps = c.Int("steps")
	}
	if c.Bool("backward") {
		s.Backward = true
	}
	if c.IsSet("columns") {
		s.Columns = c.Int("columns")
	}
	if c.IsSet("thumb-width") {
		s.ThumbWidth = c.Int("thumb-width")
	}
	if c.IsSet("background-color") {
		s.Theme.BackgroundColor = c.String("background-color")
	}
	if c.IsSet("accent-color") {
		s.Theme.AccentColor = c.String("accent-color")
	}
	if c.IsSet("workers") {
		s.Workers = c.Int("workers")
	}
	if c.IsSet("debug-dir") {
		s.DebugDir = c.String("debug-dir")
	}
}

func runSnapshot(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applySnapshotFlags(c, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closer, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, cancel := signalContext(c.Context, log)
	defer cancel()

	fs := osfilesystem.New()
	renderer := ggrenderer.NewWithOptions(ggrenderer.Options{
		FontPath: cfg.Snapshot.FontPath,
		Fast:     cfg.Snapshot.FastScale,
	})

	var sink ports.SnapshotSink
	if cfg.Snapshot.DebugDir != "" {
		if err := fs.MkdirAll(cfg.Snapshot.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.Snapshot.DebugDir, fs, renderer)
	} else {
		sink = nullsink.New()
	}

	workers := cfg.Snapshot.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	opener := newOpener(cfg, log)
	scrubStage := scrub.New(func(opts session.Options) (*session.Session, error) {
		return session.Open(opener, opts, log)
	}, log)
	orch := orchestrator.New(
		scrubStage,
		layout.NewStage(),
		composite.NewStage(renderer, sink, log, workers),
		renderer,
		fs,
		sink,
		log,
	)

	log.Info(l10n.F("Snapshot of %s after %d steps...", filepath.Base(cfg.Source), cfg.Snapshot.Steps))
	result, err := orch.Run(ctx, cfg.ToOrchestratorConfig())
	if err != nil {
		return err
	}

	summary := buildSummary(cfg, string(opener.Selected()), result)
	mdOpts := []summarizer.MarkdownOption{
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	}
	if sink.Enabled() {
		md := summarizer.NewWriter(summarizer.NewMarkdownFormatter(mdOpts...), fs)
		if err := sink.SaveSummary(md.Render(summary)); err != nil {
			log.Warn(l10n.F("Failed to save summary: %v", err))
		}
	}
	if path := c.String("summary"); path != "" {
		if err := summarizer.NewWriter(summarizer.ForPath(path, mdOpts...), fs).Write(path, summary); err != nil {
			return err
		}
		log.Info(l10n.F("Summary saved to %s", path))
	}

	log.Info(l10n.F("Output saved to %s", result.OutputPath))
	return nil
}

func buildSummary(cfg config.Config, backend string, r orchestrator.RunResult) *summarizer.Summary {
	opts := cfg.ToSessionOptions()
	return summarizer.NewBuilder().
		WithSource(summarizer.SourceInfo{
			Path:        r.SourcePath,
			Codec:       r.Codec,
			Width:       r.Width,
			Height:      r.Height,
			FrameRate:   r.FrameRate,
			TotalFrames: r.TotalFrames,
			Method:      r.Method,
		}).
		WithScrub(summarizer.ScrubInfo{
			Steps:     r.Steps,
			Direction: r.Direction,
			Pos:       r.Pos,
			Frame:     r.Frame,
			Requests:  r.Requests,
			Serviced:  r.Serviced,
			Failed:    r.Failed,
			Dropped:   r.Dropped,
			ElapsedMs: r.ElapsedMs,
		}).
		WithSettings(summarizer.Settings{
			Backend:        backend,
			Subsections:    opts.Subsections,
			SubsectionSize: opts.SubsectionSize,
			RequestCap:     opts.RequestCap,
			RequestPolicy:  opts.RequestPolicy.String(),
			ImagePolicy:    opts.ImagePolicy.String(),
			WorkerEnabled:  opts.WorkerEnabled,
		}).
		WithStrip(summarizer.StripInfo{
			Path:     r.OutputPath,
			Width:    r.StripWidth,
			Height:   r.StripHeight,
			FileSize: r.StripFileSize,
		}).
		Build()
}

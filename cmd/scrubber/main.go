// Package main provides the CLI entry point for scrubber.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/johnblat/scrubcache/pkg/adapters/logger"
	"github.com/johnblat/scrubcache/pkg/adapters/smartsource"
	"github.com/johnblat/scrubcache/pkg/config"
	"github.com/johnblat/scrubcache/pkg/ports"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "scrubber",
		Usage:   l10n.T("Frame-accurate video scrubbing from a warm frame cache"),
		Version: version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			playCommand(),
			probeCommand(),
			snapshotCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %v", err))
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    l10n.T("YAML configuration file"),
			Category: l10n.T("Configuration"),
		},
		&cli.StringFlag{
			Name:     "backend",
			Usage:    l10n.T("Media backend (auto, libav, mp4)"),
			Category: l10n.T("Media"),
		},
		&cli.StringFlag{
			Name:     "ffmpeg-path",
			Usage:    l10n.T("Path to the ffmpeg binary used by the mp4 backend"),
			Category: l10n.T("Media"),
		},
		&cli.IntFlag{
			Name:     "max-width",
			Usage:    l10n.T("Maximum width of decoded pictures"),
			Category: l10n.T("Media"),
		},
		&cli.IntFlag{
			Name:     "subsections",
			Usage:    l10n.T("Number of ring subsections (min: 3)"),
			Category: l10n.T("Cache"),
		},
		&cli.IntFlag{
			Name:     "subsection-size",
			Usage:    l10n.T("Frames per ring subsection"),
			Category: l10n.T("Cache"),
		},
		&cli.Int64Flag{
			Name:     "start",
			Usage:    l10n.T("Frame the playhead starts on"),
			Category: l10n.T("Cache"),
		},
		&cli.BoolFlag{
			Name:     "no-worker",
			Usage:    l10n.T("Refill subsections synchronously instead of on the decode worker"),
			Category: l10n.T("Cache"),
		},
		&cli.StringFlag{
			Name:     "log-level",
			Aliases:  []string{"l"},
			Usage:    l10n.T("Log level (debug, info, warn, error, quiet)"),
			Category: l10n.T("Logging"),
		},
		&cli.StringFlag{
			Name:     "log-file",
			Usage:    l10n.T("Write log output to this file"),
			Category: l10n.T("Logging"),
		},
		&cli.BoolFlag{
			Name:     "quiet",
			Aliases:  []string{"Q"},
			Usage:    l10n.T("Suppress all log output"),
			Category: l10n.T("Logging"),
		},
	}
}

// loadConfig reads the config file, applies flag overrides and validates.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}

	if c.Args().Present() {
		cfg.Source = c.Args().First()
	}
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("ffmpeg-path") {
		cfg.FFmpegPath = c.String("ffmpeg-path")
	}
	if c.IsSet("max-width") {
		cfg.Picture.MaxWidth = c.Int("max-width")
	}
	if c.IsSet("subsections") {
		cfg.Ring.Subsections = c.Int("subsections")
	}
	if c.IsSet("subsection-size") {
		cfg.Ring.SubsectionSize = c.Int("subsection-size")
	}
	if c.IsSet("start") {
		cfg.Ring.StartFrame = c.Int64("start")
	}
	if c.Bool("no-worker") {
		cfg.Worker.Enabled = false
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}
	if c.Bool("quiet") {
		cfg.LogLevel = ports.LevelQuiet.String()
	}

	if cfg.Source == "" {
		return cfg, fmt.Errorf("%s", l10n.T("no video file given"))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger creates the logger for cfg. console is false when the terminal
// is owned by the UI, in which case only a log file receives output.
func newLogger(cfg config.Config, console bool) (ports.Logger, io.Closer, error) {
	level, err := ports.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if level == ports.LevelQuiet {
		return logger.NewNoop(), nil, nil
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return logger.NewWriter(level, f), f, nil
	}
	if !console {
		return logger.NewNoop(), nil, nil
	}
	return logger.NewConsole(level), nil, nil
}

func newOpener(cfg config.Config, log ports.Logger) *smartsource.Opener {
	return smartsource.New(smartsource.Options{
		Backend:    smartsource.Backend(cfg.Backend),
		FFmpegPath: cfg.FFmpegPath,
		Threads:    cfg.Picture.Threads,
	}, log)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Println(l10n.F("scrubber version %s", version))
			return nil
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/johnblat/scrubcache/pkg/stream"
)

// probeReport is what probe prints.
type probeReport struct {
	Path          string `json:"path"`
	Backend       string `json:"backend"`
	StreamIndex   int    `json:"stream_index"`
	Codec         string `json:"codec"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	TimeBase      string `json:"time_base"`
	FrameRate     string `json:"frame_rate"`
	Duration      int64  `json:"duration"`
	FrameCount    int64  `json:"frame_count"`
	TotalFrames   int64  `json:"total_frames"`
	Method        string `json:"estimator"`
	PictureWidth  int    `json:"picture_width"`
	PictureHeight int    `json:"picture_height"`
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show the video stream and how its frame count is estimated"),
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: l10n.T("Print the report as JSON"),
			},
		},
		Action: runProbe,
	}
}

func runProbe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	opener := newOpener(cfg, log)
	st, err := stream.Open(opener, cfg.Source, stream.Options{MaxWidth: cfg.Picture.MaxWidth, Threads: cfg.Picture.Threads}, log)
	if err != nil {
		return err
	}
	defer st.Close()

	info := st.Info()
	est := st.Estimator()
	pw, ph := st.PictureSize()
	r := probeReport{
		Path:          cfg.Source,
		Backend:       string(opener.Selected()),
		StreamIndex:   info.Index,
		Codec:         info.Codec,
		Width:         info.Width,
		Height:        info.Height,
		TimeBase:      fmt.Sprintf("%d/%d", info.TimeBase.Num, info.TimeBase.Den),
		FrameRate:     fmt.Sprintf("%d/%d", info.AvgFrameRate.Num, info.AvgFrameRate.Den),
		Duration:      info.Duration,
		FrameCount:    info.FrameCount,
		TotalFrames:   est.TotalFrames(),
		Method:        est.Method().String(),
		PictureWidth:  pw,
		PictureHeight: ph,
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Println(l10n.F("File:         %s", r.Path))
	fmt.Println(l10n.F("Backend:      %s", r.Backend))
	fmt.Println(l10n.F("Stream:       #%d %s %dx%d", r.StreamIndex, r.Codec, r.Width, r.Height))
	fmt.Println(l10n.F("Time base:    %s", r.TimeBase))
	fmt.Println(l10n.F("Frame rate:   %s", r.FrameRate))
	fmt.Println(l10n.F("Duration:     %d", r.Duration))
	fmt.Println(l10n.F("Frame count:  %d", r.FrameCount))
	fmt.Println(l10n.F("Total frames: %d (%s)", r.TotalFrames, r.Method))
	fmt.Println(l10n.F("Picture:      %dx%d", r.PictureWidth, r.PictureHeight))
	return nil
}

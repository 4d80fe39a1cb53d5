package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/johnblat/scrubcache/pkg/adapters/termfront"
	"github.com/johnblat/scrubcache/pkg/config"
	"github.com/johnblat/scrubcache/pkg/input"
	"github.com/johnblat/scrubcache/pkg/ports"
	"github.com/johnblat/scrubcache/pkg/session"
)

// frameInterval paces the UI loop.
const frameInterval = 16 * time.Millisecond

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Scrub a video in the terminal"),
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:     "cells",
				Usage:    l10n.T("Draw with colored cells instead of sixel graphics"),
				Category: l10n.T("Display"),
			},
			&cli.IntFlag{
				Name:     "repeat-delay",
				Usage:    l10n.T("Milliseconds a key is held before it repeats"),
				Category: l10n.T("Input"),
			},
			&cli.IntFlag{
				Name:     "repeat-interval",
				Usage:    l10n.T("Milliseconds between repeated steps (0 = every frame)"),
				Category: l10n.T("Input"),
			},
		},
		Action: runPlay,
	}
}

func runPlay(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("repeat-delay") {
		cfg.Input.RepeatDelayMs = c.Int("repeat-delay")
	}
	if c.IsSet("repeat-interval") {
		cfg.Input.RepeatIntervalMs = c.Int("repeat-interval")
	}

	log, closer, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, cancel := signalContext(c.Context, log)
	defer cancel()

	sess, err := session.Open(newOpener(cfg, log), cfg.ToSessionOptions(), log)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	mode := termfront.ModeSixel
	if c.Bool("cells") {
		mode = termfront.ModeCells
	}
	front, err := termfront.New(termfront.Options{Mode: mode})
	if err != nil {
		return err
	}
	defer front.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })
	g.Go(func() error {
		// Leaving the UI loop stops the worker as well.
		defer cancel()
		return uiLoop(gctx, sess, front, cfg)
	})
	return g.Wait()
}

// uiLoop applies input, installs at most one decoded image per frame and
// presents the slot under the playhead.
func uiLoop(ctx context.Context, sess *session.Session, front ports.Frontend, cfg config.Config) error {
	rep := input.NewRepeater(cfg.RepeatTimings())
	tick := time.NewTicker(frameInterval)
	defer tick.Stop()

	dirty := true
	for {
		var intent input.Intent
		select {
		case <-ctx.Done():
			return nil
		case ev := <-front.Events():
			intent = rep.Handle(ev)
		case <-tick.C:
			intent = rep.Tick()
			if sess.Drain(1) > 0 {
				dirty = true
			}
		}

		switch intent.Key {
		case ports.KeyQuit:
			return nil
		case ports.KeyAdvance, ports.KeyRetreat:
			dir := session.Forward
			if intent.Key == ports.KeyRetreat {
				dir = session.Backward
			}
			for i := 0; i < intent.Steps; i++ {
				if _, err := sess.Step(dir); err != nil {
					return fmt.Errorf("step: %w", err)
				}
			}
			dirty = true
		}

		if dirty {
			if err := front.Present(sess.Current().Picture.Image, statusLine(sess.Diagnostics())); err != nil {
				return fmt.Errorf("present: %w", err)
			}
			dirty = false
		}
	}
}

func statusLine(d session.Diagnostics) string {
	key := ""
	if d.Keyframe {
		key = " K"
	}
	return l10n.F("frame %d/%d%s  slot %d  sub %d  %s  req %d pending %d dropped %d  [h/l move, q quit]",
		d.Frame, d.TotalFrames, key, d.Pos, d.Subsection, d.Method,
		d.Requests, d.PendingRequests, d.DroppedRequests)
}

package summarizer

import (
	"testing"
	"time"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_FullChain(t *testing.T) {
	summary := NewBuilder().
		WithSource(SourceInfo{Path: "clip.mp4", Codec: "h264", TotalFrames: 1000}).
		WithScrub(ScrubInfo{Steps: 20, Direction: "forward", Frame: 820}).
		WithSettings(Settings{Subsections: 3, SubsectionSize: 16}).
		WithStrip(StripInfo{Path: "strip.png", Width: 1620, Height: 272}).
		Build()

	if summary.Source.Codec != "h264" {
		t.Errorf("expected codec h264, got %q", summary.Source.Codec)
	}
	if summary.Scrub.Frame != 820 {
		t.Errorf("expected frame 820, got %d", summary.Scrub.Frame)
	}
	if summary.Settings.SubsectionSize != 16 {
		t.Errorf("expected subsection size 16, got %d", summary.Settings.SubsectionSize)
	}
	if summary.Strip.Width != 1620 {
		t.Errorf("expected strip width 1620, got %d", summary.Strip.Width)
	}
}

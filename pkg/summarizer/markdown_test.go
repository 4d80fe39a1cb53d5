package summarizer

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/johnblat/scrubcache/pkg/mocks"
)

func fullSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Source: SourceInfo{
			Path:        "/videos/clip.mp4",
			Codec:       "h264",
			Width:       1280,
			Height:      720,
			FrameRate:   25,
			TotalFrames: 1000,
			Method:      "frame_count",
		},
		Scrub: ScrubInfo{
			Steps:     20,
			Direction: "forward",
			Pos:       20,
			Frame:     820,
			Requests:  3,
			Serviced:  2,
			Dropped:   1,
			ElapsedMs: 42,
		},
		Settings: Settings{
			Backend:        "ffmpeg",
			Subsections:    3,
			SubsectionSize: 16,
			RequestCap:     8,
			RequestPolicy:  "drop-oldest",
			ImagePolicy:    "block",
			WorkerEnabled:  true,
		},
		Strip: StripInfo{
			Path:     "strip.png",
			Width:    1620,
			Height:   272,
			FileSize: 1024 * 1024,
		},
	}
}

func TestMarkdownFormatter_Format(t *testing.T) {
	result := NewMarkdownFormatter().Format(fullSummary())

	checks := []string{
		"# Scrub Summary",
		"| File | clip.mp4 |",
		"1280x720",
		"25.000 fps",
		"1000 (frame_count)",
		"20 forward",
		"slot 20, frame 820",
		"3 (2 serviced, 1 dropped)",
		"42 ms",
		"3 x 16",
		"8 (drop-oldest)",
		"| Decode Worker | Enabled |",
		"1620x272",
		"1.00 MB",
		"2024-01-15 10:30:00 UTC",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
	if strings.Contains(result, "failed") {
		t.Error("output should not mention failures when there were none")
	}
}

func TestMarkdownFormatter_NoStrip(t *testing.T) {
	s := fullSummary()
	s.Strip = StripInfo{}
	s.Source.FrameRate = 0
	s.Settings.WorkerEnabled = false

	result := NewMarkdownFormatter().Format(s)

	if strings.Contains(result, "## Strip") {
		t.Error("expected no strip section")
	}
	if !strings.Contains(result, "N/A") {
		t.Error("expected N/A frame rate")
	}
	if !strings.Contains(result, "| Decode Worker | Disabled |") {
		t.Error("expected disabled worker")
	}
}

func TestMarkdownFormatter_WithTranslator(t *testing.T) {
	translator := func(key string) string {
		translations := map[string]string{
			"Scrub Summary": "スクラブサマリー",
			"Source":        "ソース",
			"forward":       "順方向",
		}
		if v, ok := translations[key]; ok {
			return v
		}
		return key
	}

	result := NewMarkdownFormatter(WithTranslator(translator)).Format(fullSummary())

	for _, want := range []string{"スクラブサマリー", "## ソース", "20 順方向"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected translated %q", want)
		}
	}
}

func TestMarkdownFormatter_WithVersion(t *testing.T) {
	result := NewMarkdownFormatter(WithVersion("v1.2.0")).Format(fullSummary())

	if !strings.Contains(result, "v1.2.0") {
		t.Error("expected output to contain version 'v1.2.0'")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1536 * 1024 * 1024, "1.50 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(s *Summary) string { return "frame " + s.Source.Codec }), fs)

	if err := w.Write("out/summary.md", fullSummary()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, ok := fs.GetFile("out/summary.md")
	if !ok {
		t.Fatal("expected summary to be written")
	}
	if string(data) != "frame h264" {
		t.Errorf("expected %q, got %q", "frame h264", data)
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	boom := errors.New("disk full")
	fs.WriteFileFunc = func(string, []byte) error { return boom }

	err := NewWriter(JSONFormatter, fs).Write("summary.json", fullSummary())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped disk error, got %v", err)
	}
}

func TestForPath(t *testing.T) {
	if _, ok := ForPath("run.JSON").(FormatFunc); !ok {
		t.Error("expected JSON formatter for .JSON")
	}
	if _, ok := ForPath("run.md").(*MarkdownFormatter); !ok {
		t.Error("expected Markdown formatter for .md")
	}
}

func TestJSONFormatter(t *testing.T) {
	out := JSONFormatter.Format(fullSummary())

	var decoded struct {
		Source struct {
			Codec       string `json:"codec"`
			TotalFrames int64  `json:"total_frames"`
		} `json:"source"`
		Scrub struct {
			ElapsedMs int `json:"elapsed_ms"`
		} `json:"scrub"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Source.Codec != "h264" {
		t.Errorf("expected codec h264, got %q", decoded.Source.Codec)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("expected trailing newline")
	}
}

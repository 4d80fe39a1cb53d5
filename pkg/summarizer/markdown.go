package summarizer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate headings and labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = t
	}
}

// WithVersion adds the tool version to the footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// NewMarkdownFormatter creates a formatter. Labels stay in English unless a
// translator is given.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{translate: func(s string) string { return s }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Scrub Summary"))

	b.WriteString("## " + t("Source") + "\n\n")
	f.table(&b,
		row{t("File"), filepath.Base(s.Source.Path)},
		row{t("Codec"), s.Source.Codec},
		row{t("Resolution"), fmt.Sprintf("%dx%d", s.Source.Width, s.Source.Height)},
		row{t("Frame Rate"), formatRate(s.Source.FrameRate)},
		row{t("Total Frames"), fmt.Sprintf("%d (%s)", s.Source.TotalFrames, s.Source.Method)},
	)

	b.WriteString("## " + t("Scrub") + "\n\n")
	f.table(&b,
		row{t("Steps"), fmt.Sprintf("%d %s", s.Scrub.Steps, t(s.Scrub.Direction))},
		row{t("Final Position"), fmt.Sprintf("slot %d, frame %d", s.Scrub.Pos, s.Scrub.Frame)},
		row{t("Decode Requests"), f.requests(s.Scrub)},
		row{t("Elapsed"), fmt.Sprintf("%d ms", s.Scrub.ElapsedMs)},
	)

	b.WriteString("## " + t("Settings") + "\n\n")
	worker := t("Enabled")
	if !s.Settings.WorkerEnabled {
		worker = t("Disabled")
	}
	f.table(&b,
		row{t("Backend"), s.Settings.Backend},
		row{t("Ring"), fmt.Sprintf("%d x %d", s.Settings.Subsections, s.Settings.SubsectionSize)},
		row{t("Request Queue"), fmt.Sprintf("%d (%s)", s.Settings.RequestCap, s.Settings.RequestPolicy)},
		row{t("Image Queue"), s.Settings.ImagePolicy},
		row{t("Decode Worker"), worker},
	)

	if s.Strip.Path != "" {
		b.WriteString("## " + t("Strip") + "\n\n")
		f.table(&b,
			row{t("Output"), s.Strip.Path},
			row{t("Canvas Size"), fmt.Sprintf("%dx%d", s.Strip.Width, s.Strip.Height)},
			row{t("File Size"), formatBytes(s.Strip.FileSize)},
		)
	}

	b.WriteString("---\n\n")
	footer := fmt.Sprintf("%s %s", t("Generated at"), s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if f.version != "" {
		footer += " · scrubber " + f.version
	}
	b.WriteString(footer + "\n")

	return b.String()
}

type row struct {
	label string
	value string
}

func (f *MarkdownFormatter) table(b *strings.Builder, rows ...row) {
	fmt.Fprintf(b, "| %s | %s |\n|---|---|\n", f.translate("Item"), f.translate("Value"))
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", r.label, r.value)
	}
	b.WriteString("\n")
}

func (f *MarkdownFormatter) requests(s ScrubInfo) string {
	out := fmt.Sprintf("%d", s.Requests)
	var notes []string
	if s.Serviced > 0 {
		notes = append(notes, fmt.Sprintf("%d %s", s.Serviced, f.translate("serviced")))
	}
	if s.Failed > 0 {
		notes = append(notes, fmt.Sprintf("%d %s", s.Failed, f.translate("failed")))
	}
	if s.Dropped > 0 {
		notes = append(notes, fmt.Sprintf("%d %s", s.Dropped, f.translate("dropped")))
	}
	if len(notes) > 0 {
		out += " (" + strings.Join(notes, ", ") + ")"
	}
	return out
}

func formatRate(fps float64) string {
	if fps <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.3f fps", fps)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 2; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMG"[exp])
}

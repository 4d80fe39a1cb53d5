package summarizer

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Formatter turns a Summary into report text.
type Formatter interface {
	Format(summary *Summary) string
}

// FormatFunc adapts a function to Formatter.
type FormatFunc func(summary *Summary) string

func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// JSONFormatter renders the summary as indented JSON for scripts.
var JSONFormatter = FormatFunc(func(s *Summary) string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		// Summary only holds plain values.
		panic(err)
	}
	return string(data) + "\n"
})

// ForPath picks JSON for a .json path and Markdown otherwise.
func ForPath(path string, opts ...MarkdownOption) Formatter {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSONFormatter
	}
	return NewMarkdownFormatter(opts...)
}

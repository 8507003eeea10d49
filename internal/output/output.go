// Package output provides formatters for scheduler history and status.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/popsched/internal/model"
)

// Formatter formats journaled events for output.
type Formatter interface {
	// Format writes formatted events to the writer.
	Format(w io.Writer, events []model.Event) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatLine  FormatType = "line"
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatKeys  FormatType = "keys"
)

// FormatTypes returns every supported format.
func FormatTypes() []FormatType {
	return []FormatType{FormatLine, FormatPlain, FormatJSON, FormatYAML, FormatKeys}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (FormatType, error) {
	f := FormatType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range FormatTypes() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter()
	case FormatPlain:
		return NewPlainFormatter(opts)
	case FormatKeys:
		return NewKeysFormatter()
	case FormatLine:
		fallthrough
	default:
		return NewLineFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template  string // Custom template for line/plain format
	ShowIndex bool   // Show 1-based index prefix
	ShowTime  bool   // Show relative time
	ShowKey   bool   // Show the queue entry key
	TitleMax  int    // Maximum title length (0 = unlimited)
	Separator string // Field separator for line format
	Compact   bool   // Single-line JSON
}

// DefaultFormatterOptions returns sensible defaults for line output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowTime:  true,
		TitleMax:  60,
		Separator: " | ",
	}
}

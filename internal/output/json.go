package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/popsched/internal/model"
)

// JSONFormatter formats events as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes events as a JSON array, or as one object per line when
// Compact is set.
func (f *JSONFormatter) Format(w io.Writer, events []model.Event) error {
	encoder := json.NewEncoder(w)
	if f.opts.Compact {
		for _, ev := range events {
			if err := encoder.Encode(ev); err != nil {
				return err
			}
		}
		return nil
	}
	encoder.SetIndent("", "  ")
	if events == nil {
		events = []model.Event{}
	}
	return encoder.Encode(events)
}

// FormatSingle writes a single value as indented JSON.
func (f *JSONFormatter) FormatSingle(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

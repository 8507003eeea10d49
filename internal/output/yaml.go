package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/popsched/internal/model"
)

// YAMLFormatter formats events as a YAML sequence.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Format writes events as a YAML document.
func (f *YAMLFormatter) Format(w io.Writer, events []model.Event) error {
	return writeYAML(w, events)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

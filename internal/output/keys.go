package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/popsched/internal/model"
)

// KeysFormatter outputs the queue entry key of each event, one per line.
// Events without an entry (suspend, resume, clear) are skipped.
type KeysFormatter struct{}

// NewKeysFormatter creates a new keys formatter.
func NewKeysFormatter() *KeysFormatter {
	return &KeysFormatter{}
}

// Format writes event keys to the writer, one per line.
func (f *KeysFormatter) Format(w io.Writer, events []model.Event) error {
	for _, ev := range events {
		if !ev.HasItem() {
			continue
		}
		if _, err := fmt.Fprintln(w, ev.Key); err != nil {
			return err
		}
	}
	return nil
}

// Package input reads popup requests from external sources.
package input

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jmylchreest/popsched/internal/model"
)

// Request is a popup to schedule, as read from a source.
type Request struct {
	ID       string `json:"id,omitempty"`
	Priority string `json:"priority,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Screen   string `json:"screen,omitempty"`
}

// ResolvePriority parses the request priority, using def when unset.
func (r Request) ResolvePriority(def model.Priority) (model.Priority, error) {
	if strings.TrimSpace(r.Priority) == "" {
		return def, nil
	}
	return model.ParsePriority(r.Priority)
}

// Adapter fetches popup requests from a source.
type Adapter interface {
	// Name returns the adapter identifier (e.g., "dunst", "stdin").
	Name() string

	// Import fetches requests from the source in source order.
	Import(ctx context.Context) ([]Request, error)
}

// DetectDaemon returns the name of the first available notification daemon.
// Returns empty string if none found.
func DetectDaemon() string {
	if _, err := exec.LookPath("dunstctl"); err == nil {
		return "dunst"
	}
	return ""
}

// Sources lists the adapter names accepted by NewAdapter.
func Sources() []string {
	return []string{"dunst", "stdin"}
}

// NewAdapter creates an Adapter for the specified source.
// If source is empty, a running notification daemon is detected.
func NewAdapter(source string) (Adapter, error) {
	if source == "" {
		source = DetectDaemon()
	}

	switch source {
	case "dunst":
		return NewDunstAdapter(), nil
	case "stdin":
		return NewStdinAdapter(), nil
	default:
		return nil, &AdapterError{
			Source:  source,
			Message: fmt.Sprintf("unknown or unavailable source (valid: %s)", strings.Join(Sources(), ", ")),
		}
	}
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Source + ": " + e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// sanitizeString removes control characters and trims whitespace.
func sanitizeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\t' {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/jmylchreest/popsched/internal/model"
)

// LineFormatter writes one event per line, suited to tailing and piping.
type LineFormatter struct {
	opts     FormatterOptions
	template *template.Template
	now      func() time.Time
}

// NewLineFormatter creates a new line formatter.
func NewLineFormatter(opts FormatterOptions) *LineFormatter {
	f := &LineFormatter{opts: opts, now: time.Now}

	if opts.Template != "" {
		tmpl, err := template.New("line").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes events one per line.
func (f *LineFormatter) Format(w io.Writer, events []model.Event) error {
	for i := range events {
		line := f.formatLine(i+1, &events[i])
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (f *LineFormatter) formatLine(index int, ev *model.Event) string {
	if f.template != nil {
		var buf strings.Builder
		data := templateData{
			Index:        index,
			Event:        ev,
			RelativeTime: compactAge(ev.At, f.now()),
		}
		if err := f.template.Execute(&buf, data); err == nil {
			return buf.String()
		}
	}

	// Default format: [index] [age] kind priority [key] title (reason)
	var parts []string
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}
	if f.opts.ShowTime {
		parts = append(parts, compactAge(ev.At, f.now()))
	}
	parts = append(parts, string(ev.Kind))
	if ev.HasItem() {
		parts = append(parts, ev.Priority.String())
		if f.opts.ShowKey {
			parts = append(parts, ev.Key)
		}
	}

	content := truncate(ev.Title, f.opts.TitleMax)
	if ev.Kind == model.EventCleared {
		content = fmt.Sprintf("%d removed", ev.Count)
	}
	if ev.Reason != "" {
		content = strings.TrimSpace(content + " (" + ev.Reason + ")")
	}
	if content != "" {
		parts = append(parts, content)
	}

	return strings.Join(parts, sep)
}

// templateData provides data for custom templates.
type templateData struct {
	Index        int
	Event        *model.Event
	RelativeTime string
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"age": func(t time.Time) string {
			return compactAge(t, time.Now())
		},
		"priorityIcon": func(p model.Priority) string {
			switch p {
			case model.PriorityEmergency:
				return "!!"
			case model.PriorityHigh:
				return "!"
			case model.PriorityLow:
				return "."
			default:
				return "-"
			}
		},
	}
}

// compactAge returns a short age such as "now", "5m" or "2d".
func compactAge(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw", int(d.Hours()/24/7))
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

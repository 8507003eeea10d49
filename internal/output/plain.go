package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/popsched/internal/model"
)

// PlainFormatter formats events as readable multi-line text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
	now      func() time.Time
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts, now: time.Now}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes events as plain text.
func (f *PlainFormatter) Format(w io.Writer, events []model.Event) error {
	for i := range events {
		if err := f.formatEvent(w, i+1, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatEvent(w io.Writer, index int, ev *model.Event) error {
	if f.template != nil {
		data := templateData{
			Index:        index,
			Event:        ev,
			RelativeTime: humanize.RelTime(ev.At, f.now(), "ago", "from now"),
		}
		return f.template.Execute(w, data)
	}

	var sb strings.Builder

	if f.opts.ShowIndex {
		fmt.Fprintf(&sb, "[%d] ", index)
	}

	fmt.Fprintf(&sb, "%-11s", ev.Kind)
	if ev.HasItem() {
		fmt.Fprintf(&sb, " <%s> %s", ev.Priority, truncate(ev.Title, f.opts.TitleMax))
	} else if ev.Kind == model.EventCleared {
		fmt.Fprintf(&sb, " %s %s", humanize.Comma(int64(ev.Count)), plural(ev.Count, "entry", "entries"))
	}

	if f.opts.ShowTime && !ev.At.IsZero() {
		fmt.Fprintf(&sb, " (%s)", humanize.RelTime(ev.At, f.now(), "ago", "from now"))
	}
	sb.WriteString("\n")

	var details []string
	if f.opts.ShowKey && ev.Key != "" {
		details = append(details, "key="+ev.Key)
	}
	if ev.ID != "" {
		details = append(details, "id="+ev.ID)
	}
	if ev.Reason != "" {
		details = append(details, "reason="+ev.Reason)
	}
	if len(details) > 0 {
		sb.WriteString("    " + strings.Join(details, " ") + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatField outputs a specific field from an event.
func FormatField(ev *model.Event, field string) string {
	switch strings.ToLower(field) {
	case "key":
		return ev.Key
	case "id":
		return ev.ID
	case "kind":
		return string(ev.Kind)
	case "priority":
		return ev.Priority.String()
	case "reason":
		return ev.Reason
	case "at", "time":
		return ev.At.Format(time.RFC3339)
	default:
		return ev.Title
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

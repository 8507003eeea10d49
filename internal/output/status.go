package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/popsched/internal/model"
)

// WriteStatus writes a scheduler snapshot in the given format. The line,
// plain and keys formats share the human-readable layout.
func WriteStatus(w io.Writer, snap model.Snapshot, format FormatType) error {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(FormatterOptions{}).FormatSingle(w, snap)
	case FormatYAML:
		return writeYAML(w, snap)
	default:
		_, err := io.WriteString(w, StatusText(snap, time.Now()))
		return err
	}
}

// StatusText renders a snapshot for humans.
func StatusText(snap model.Snapshot, now time.Time) string {
	var sb strings.Builder

	state := "running"
	if snap.Suspended {
		state = "suspended"
	}
	if snap.Animating {
		state += ", animating"
	}
	fmt.Fprintf(&sb, "State:   %s\n", state)
	if snap.ActiveScreen != "" {
		fmt.Fprintf(&sb, "Screen:  %s\n", snap.ActiveScreen)
	}

	if cur := snap.Current; cur != nil {
		fmt.Fprintf(&sb, "Current: <%s> %s", cur.Priority, cur.Title)
		if !cur.ShownAt.IsZero() {
			fmt.Fprintf(&sb, " (shown %s)", humanize.RelTime(cur.ShownAt, now, "ago", "from now"))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("Current: none\n")
	}

	fmt.Fprintf(&sb, "Queue:   %s %s\n", humanize.Comma(int64(snap.QueueLen())), plural(snap.QueueLen(), "entry", "entries"))
	for i, it := range snap.Queue {
		marker := ""
		if !it.Eligible {
			marker = " [waiting]"
		}
		fmt.Fprintf(&sb, "  %d. <%s> %s%s (queued %s)\n",
			i+1, it.Priority, it.Title, marker,
			humanize.RelTime(it.EnqueuedAt, now, "ago", "from now"))
	}
	return sb.String()
}

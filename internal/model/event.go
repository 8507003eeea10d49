package model

import "time"

// EventKind identifies a scheduler lifecycle transition.
type EventKind string

const (
	EventScheduled   EventKind = "scheduled"
	EventCoalesced   EventKind = "coalesced"
	EventReplaced    EventKind = "replaced"
	EventShown       EventKind = "shown"
	EventHidden      EventKind = "hidden"
	EventInterrupted EventKind = "interrupted"
	EventReclaimed   EventKind = "reclaimed"
	EventSuspended   EventKind = "suspended"
	EventResumed     EventKind = "resumed"
	EventCleared     EventKind = "cleared"
	EventRemoved     EventKind = "removed"
)

// EventKinds returns every known event kind.
func EventKinds() []EventKind {
	return []EventKind{
		EventScheduled, EventCoalesced, EventReplaced, EventShown, EventHidden,
		EventInterrupted, EventReclaimed, EventSuspended, EventResumed, EventCleared,
		EventRemoved,
	}
}

// Event is a single scheduler transition, as journaled by the daemon.
type Event struct {
	Kind     EventKind `json:"kind" yaml:"kind"`
	Key      string    `json:"key,omitempty" yaml:"key,omitempty"`
	ID       string    `json:"id,omitempty" yaml:"id,omitempty"`
	Priority Priority  `json:"priority" yaml:"priority"`
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Reason   string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Count    int       `json:"count,omitempty" yaml:"count,omitempty"` // items affected (cleared)
	At       time.Time `json:"at" yaml:"at"`
}

// HasItem reports whether the event refers to a single queue entry.
func (e Event) HasItem() bool {
	return e.Key != ""
}

// Snapshot is a point-in-time copy of scheduler state.
type Snapshot struct {
	Suspended    bool           `json:"suspended" yaml:"suspended"`
	Animating    bool           `json:"animating" yaml:"animating"`
	ActiveScreen string         `json:"active_screen,omitempty" yaml:"active_screen,omitempty"`
	Current      *ItemSnapshot  `json:"current,omitempty" yaml:"current,omitempty"`
	Queue        []ItemSnapshot `json:"queue" yaml:"queue"`
	TakenAt      time.Time      `json:"taken_at" yaml:"taken_at"`
}

// ItemSnapshot describes a queued or displayed item.
type ItemSnapshot struct {
	Key        string    `json:"key" yaml:"key"`
	ID         string    `json:"id,omitempty" yaml:"id,omitempty"`
	Priority   Priority  `json:"priority" yaml:"priority"`
	Title      string    `json:"title,omitempty" yaml:"title,omitempty"`
	Eligible   bool      `json:"eligible" yaml:"eligible"`
	EnqueuedAt time.Time `json:"enqueued_at" yaml:"enqueued_at"`
	ShownAt    time.Time `json:"shown_at,omitzero" yaml:"shown_at,omitempty"`
}

// QueueLen returns the number of pending items.
func (s Snapshot) QueueLen() int {
	return len(s.Queue)
}

package scheduler

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/popsched/internal/model"
)

// Popup is a displayable unit. Show and Hide must each eventually call done
// exactly once. A popup that never completes stalls the queue.
type Popup interface {
	Show(done func())
	Hide(done func())
}

// Updater is implemented by popups that can adopt the content of a newer
// popup scheduled with the same id while they are displayed.
type Updater interface {
	Update(newer Popup)
}

// Jumper is implemented by popups that can close themselves and navigate
// elsewhere. The scheduler replaces the callback after each display so that
// invoking it suspends the queue first.
type Jumper interface {
	OnCloseAndJump() func()
	SetOnCloseAndJump(fn func())
}

// Describer is implemented by popups that have a human-readable title.
type Describer interface {
	Title() string
}

// PositionKind selects how a popup is placed.
type PositionKind string

const (
	PositionCenter PositionKind = "center"
	PositionTop    PositionKind = "top"
	PositionBottom PositionKind = "bottom"
	PositionRect   PositionKind = "rect"
)

// Rect is an explicit frame in host coordinates.
type Rect struct {
	X      float64 `json:"x" toml:"x" yaml:"x"`
	Y      float64 `json:"y" toml:"y" yaml:"y"`
	Width  float64 `json:"width" toml:"width" yaml:"width"`
	Height float64 `json:"height" toml:"height" yaml:"height"`
}

// Position places a popup. Offset applies to top and bottom placement,
// Rect only to rect placement.
type Position struct {
	Kind   PositionKind `json:"kind" toml:"kind" yaml:"kind"`
	Offset float64      `json:"offset,omitempty" toml:"offset" yaml:"offset,omitempty"`
	Rect   Rect         `json:"rect,omitzero" toml:"rect" yaml:"rect,omitempty"`
}

// Presentation holds how a popup should be presented by the host.
type Presentation struct {
	BackgroundColor        string   `json:"background_color" toml:"background_color" yaml:"background_color"`
	ShowBackground         bool     `json:"show_background" toml:"show_background" yaml:"show_background"`
	DismissOnBackgroundTap bool     `json:"dismiss_on_background_tap" toml:"dismiss_on_background_tap" yaml:"dismiss_on_background_tap"`
	Position               Position `json:"position" toml:"position" yaml:"position"`
}

// DefaultPresentation returns the presentation used when none is supplied:
// a dimmed background, centered, dismissed by a background tap.
func DefaultPresentation() Presentation {
	return Presentation{
		BackgroundColor:        "#00000080",
		ShowBackground:         true,
		DismissOnBackgroundTap: true,
		Position:               Position{Kind: PositionCenter},
	}
}

// Item is a scheduled popup together with its scheduling metadata.
type Item struct {
	key          string
	id           string
	priority     model.Priority
	popup        Popup
	presentation Presentation
	condition    func() bool
	completion   func()
	enqueuedAt   time.Time
	shownAt      time.Time
}

// ItemOption configures an Item.
type ItemOption func(*Item)

// WithID sets the coalescing id. Items sharing an id never coexist in the
// scheduler.
func WithID(id string) ItemOption {
	return func(it *Item) { it.id = id }
}

// WithPriority sets the queue priority.
func WithPriority(p model.Priority) ItemOption {
	return func(it *Item) { it.priority = p }
}

// WithPresentation overrides the default presentation.
func WithPresentation(p Presentation) ItemOption {
	return func(it *Item) { it.presentation = p }
}

// WithCondition sets a predicate evaluated each time the queue advances.
// The item stays queued while it returns false.
func WithCondition(cond func() bool) ItemOption {
	return func(it *Item) { it.condition = cond }
}

// WithCompletion sets a callback fired once the popup finishes showing.
func WithCompletion(fn func()) ItemOption {
	return func(it *Item) { it.completion = fn }
}

// NewItem builds an item for p. Defaults: no id, low priority,
// DefaultPresentation, no condition, no completion.
func NewItem(p Popup, opts ...ItemOption) *Item {
	it := &Item{
		key:          newKey(),
		priority:     model.PriorityLow,
		popup:        p,
		presentation: DefaultPresentation(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// newKey returns a fresh ULID string.
func newKey() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Key returns the scheduler-assigned entry key.
func (it *Item) Key() string { return it.key }

// ID returns the coalescing id, or "" when none was set.
func (it *Item) ID() string { return it.id }

// Priority returns the item's queue priority.
func (it *Item) Priority() model.Priority { return it.priority }

// Popup returns the displayable unit.
func (it *Item) Popup() Popup { return it.popup }

// Presentation returns how the host should present the popup.
func (it *Item) Presentation() Presentation { return it.presentation }

// HasCondition reports whether the item carries a display condition.
func (it *Item) HasCondition() bool { return it.condition != nil }

// Eligible evaluates the display condition. No condition means eligible.
func (it *Item) Eligible() bool {
	return it.condition == nil || it.condition()
}

// Title returns the popup title when the popup provides one.
func (it *Item) Title() string {
	if d, ok := it.popup.(Describer); ok {
		return d.Title()
	}
	return ""
}

// ShownAt returns when the item was last displayed (zero if never).
func (it *Item) ShownAt() time.Time { return it.shownAt }

// snapshot copies the item into its model form.
func (it *Item) snapshot() model.ItemSnapshot {
	return model.ItemSnapshot{
		Key:        it.key,
		ID:         it.id,
		Priority:   it.priority,
		Title:      it.Title(),
		Eligible:   it.Eligible(),
		EnqueuedAt: it.enqueuedAt,
		ShownAt:    it.shownAt,
	}
}

// event builds an event referring to this item.
func (it *Item) event(kind model.EventKind, reason string) model.Event {
	return model.Event{
		Kind:     kind,
		Key:      it.key,
		ID:       it.id,
		Priority: it.priority,
		Title:    it.Title(),
		Reason:   reason,
		At:       time.Now(),
	}
}

package popup

import (
	"sync"
	"time"

	"github.com/jmylchreest/popsched/internal/scheduler"
)

// Timed is a popup whose show and hide animations take fixed durations.
// Completion callbacks are invoked from timer goroutines.
type Timed struct {
	jumpHook

	mu      sync.Mutex
	notice  Notice
	showDur time.Duration
	hideDur time.Duration
	visible bool

	onShown   func(Notice)
	onHidden  func(Notice)
	onUpdated func(Notice)
}

// TimedOption configures a Timed popup.
type TimedOption func(*Timed)

// OnShown sets a hook run after the show animation.
func OnShown(fn func(Notice)) TimedOption {
	return func(t *Timed) { t.onShown = fn }
}

// OnHidden sets a hook run after the hide animation.
func OnHidden(fn func(Notice)) TimedOption {
	return func(t *Timed) { t.onHidden = fn }
}

// OnUpdated sets a hook run when the popup adopts newer content.
func OnUpdated(fn func(Notice)) TimedOption {
	return func(t *Timed) { t.onUpdated = fn }
}

// WithJump sets the close-and-jump callback.
func WithJump(fn func()) TimedOption {
	return func(t *Timed) { t.fn = fn }
}

// NewTimed creates a timed popup. Non-positive durations complete
// immediately.
func NewTimed(n Notice, show, hide time.Duration, opts ...TimedOption) *Timed {
	t := &Timed{
		notice:  n,
		showDur: show,
		hideDur: hide,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Show runs the show animation.
func (t *Timed) Show(done func()) {
	after(t.showDur, func() {
		t.mu.Lock()
		t.visible = true
		n, hook := t.notice, t.onShown
		t.mu.Unlock()

		if hook != nil {
			hook(n)
		}
		done()
	})
}

// Hide runs the hide animation.
func (t *Timed) Hide(done func()) {
	after(t.hideDur, func() {
		t.mu.Lock()
		t.visible = false
		n, hook := t.notice, t.onHidden
		t.mu.Unlock()

		if hook != nil {
			hook(n)
		}
		done()
	})
}

// Update adopts the notice of newer.
func (t *Timed) Update(newer scheduler.Popup) {
	n, ok := noticeOf(newer)
	if !ok {
		return
	}
	t.mu.Lock()
	t.notice = n
	hook := t.onUpdated
	t.mu.Unlock()

	if hook != nil {
		hook(n)
	}
}

// Notice returns the current content.
func (t *Timed) Notice() Notice {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.notice
}

// Title returns the notice title.
func (t *Timed) Title() string {
	return t.Notice().Title
}

// Visible reports whether the popup is on screen.
func (t *Timed) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

func after(d time.Duration, fn func()) {
	if d <= 0 {
		fn()
		return
	}
	time.AfterFunc(d, fn)
}

package popup

import (
	"sync"

	"github.com/jmylchreest/popsched/internal/scheduler"
)

// Instant completes Show and Hide synchronously.
type Instant struct {
	jumpHook

	notice  Notice
	visible bool
}

// NewInstant creates an instant popup.
func NewInstant(n Notice) *Instant {
	return &Instant{notice: n}
}

func (p *Instant) Show(done func()) {
	p.visible = true
	done()
}

func (p *Instant) Hide(done func()) {
	p.visible = false
	done()
}

func (p *Instant) Update(newer scheduler.Popup) {
	if n, ok := noticeOf(newer); ok {
		p.notice = n
	}
}

func (p *Instant) Notice() Notice { return p.notice }
func (p *Instant) Title() string  { return p.notice.Title }
func (p *Instant) Visible() bool  { return p.visible }

// Manual leaves Show and Hide pending until Complete is called.
type Manual struct {
	jumpHook

	mu      sync.Mutex
	notice  Notice
	pending func()
	visible bool
	shows   int
	hides   int
}

// NewManual creates a manually completed popup.
func NewManual(n Notice) *Manual {
	return &Manual{notice: n}
}

func (p *Manual) Show(done func()) {
	p.mu.Lock()
	p.shows++
	p.pending = func() { p.finish(true, done) }
	p.mu.Unlock()
}

func (p *Manual) Hide(done func()) {
	p.mu.Lock()
	p.hides++
	p.pending = func() { p.finish(false, done) }
	p.mu.Unlock()
}

// Complete finishes the pending show or hide. It reports false when
// nothing was pending.
func (p *Manual) Complete() bool {
	p.mu.Lock()
	fn := p.pending
	p.pending = nil
	p.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

func (p *Manual) finish(visible bool, done func()) {
	p.mu.Lock()
	p.visible = visible
	p.mu.Unlock()
	done()
}

// Visible reports whether the last completed transition was a show.
func (p *Manual) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Pending reports whether a show or hide awaits completion.
func (p *Manual) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// Counts returns how many times Show and Hide were called.
func (p *Manual) Counts() (shows, hides int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shows, p.hides
}

func (p *Manual) Update(newer scheduler.Popup) {
	if n, ok := noticeOf(newer); ok {
		p.mu.Lock()
		p.notice = n
		p.mu.Unlock()
	}
}

func (p *Manual) Notice() Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notice
}

func (p *Manual) Title() string { return p.Notice().Title }

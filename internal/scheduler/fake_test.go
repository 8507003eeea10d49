package scheduler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jmylchreest/popsched/internal/model"
)

// fakePopup records calls and, unless auto is set, leaves Show and Hide
// pending until finishShow/finishHide.
type fakePopup struct {
	name     string
	auto     bool
	showDone func()
	hideDone func()
	shows    int
	hides    int
	updates  []Popup
	jump     func()
}

func held(name string) *fakePopup    { return &fakePopup{name: name} }
func instant(name string) *fakePopup { return &fakePopup{name: name, auto: true} }

func (p *fakePopup) Show(done func()) {
	p.shows++
	if p.auto {
		done()
		return
	}
	p.showDone = done
}

func (p *fakePopup) Hide(done func()) {
	p.hides++
	if p.auto {
		done()
		return
	}
	p.hideDone = done
}

func (p *fakePopup) finishShow() {
	done := p.showDone
	p.showDone = nil
	done()
}

func (p *fakePopup) finishHide() {
	done := p.hideDone
	p.hideDone = nil
	done()
}

func (p *fakePopup) Title() string              { return p.name }
func (p *fakePopup) Update(newer Popup)         { p.updates = append(p.updates, newer) }
func (p *fakePopup) OnCloseAndJump() func()     { return p.jump }
func (p *fakePopup) SetOnCloseAndJump(f func()) { p.jump = f }

// recorder collects observer events.
type recorder struct {
	events []model.Event
}

func (r *recorder) OnEvent(ev model.Event) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []model.EventKind {
	out := make([]model.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

// titles returns the titles of events of the given kind, in order.
func (r *recorder) titles(kind model.EventKind) []string {
	var out []string
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev.Title)
		}
	}
	return out
}

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *recorder) {
	t.Helper()
	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithLogger(logger), WithObserver(rec)}, opts...)
	return New(opts...), rec
}

func queueTitles(s *Scheduler) []string {
	out := make([]string, 0, s.QueueLen())
	for _, it := range s.Queued() {
		out = append(out, it.Title())
	}
	return out
}

func currentTitle(s *Scheduler) string {
	if cur := s.Current(); cur != nil {
		return cur.Title()
	}
	return ""
}

package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/popsched/internal/model"
)

// requeueMode selects what happens to the current item when it is hidden.
type requeueMode int

const (
	requeueNone            requeueMode = iota // drop the item
	requeueUnlessEmergency                    // interruption: keep non-emergency items
	requeueAlways                             // reclaim: always keep the item
)

// hideRequest describes a pending hide of the current item.
type hideRequest struct {
	requeue requeueMode
	reason  string
	done    func()
}

// jumpHook records the close-and-jump callback a popup exposed before the
// scheduler wrapped it.
type jumpHook struct {
	item     *Item
	original func()
}

// Scheduler displays queued popups one at a time in priority order.
type Scheduler struct {
	exec      Executor
	logger    *slog.Logger
	observers []Observer
	screens   *Screens

	queue     []*Item
	current   *Item
	suspended bool
	animating bool
	auto      AutoManagement

	jumps map[string]jumpHook
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithExecutor sets the execution context popup completions are posted to.
// Defaults to Inline.
func WithExecutor(exec Executor) Option {
	return func(s *Scheduler) { s.exec = exec }
}

// WithLogger sets the logger. A nil logger means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithObserver registers an observer for lifecycle events.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

// WithAutoManagement sets the host lifecycle auto-management configuration.
func WithAutoManagement(auto AutoManagement) Option {
	return func(s *Scheduler) { s.auto = auto }
}

// WithScreens attaches the host screen tracker reported in snapshots.
func WithScreens(screens *Screens) Option {
	return func(s *Scheduler) { s.screens = screens }
}

// StartSuspended creates the scheduler in the suspended state.
func StartSuspended() Option {
	return func(s *Scheduler) { s.suspended = true }
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		exec:  Inline{},
		jumps: make(map[string]jumpHook),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.exec == nil {
		s.exec = Inline{}
	}
	return s
}

// Observe registers an additional observer.
func (s *Scheduler) Observe(o Observer) {
	s.observers = append(s.observers, o)
}

// Schedule adds an item to the queue and returns the key of the entry that
// now represents it.
//
// An item whose id matches the displayed item updates that popup in place;
// one whose id matches a queued item replaces the queued entry. Otherwise
// the item is queued by priority. An emergency item interrupts a displayed
// non-emergency item; anything else just attempts to advance the queue.
func (s *Scheduler) Schedule(it *Item) string {
	if it == nil || it.popup == nil {
		s.logger.Warn("ignoring schedule of nil popup")
		return ""
	}

	if key, absorbed := s.absorb(it); absorbed {
		sortQueue(s.queue)
		return key
	}

	s.enqueue(it)
	sortQueue(s.queue)
	s.interruptOrAdvance(it.priority.IsEmergency())
	return it.key
}

// ScheduleBatch schedules several items with a single sort and at most one
// interrupt-or-advance pass. Keys are returned in input order; nil items
// yield "".
func (s *Scheduler) ScheduleBatch(items []*Item) []string {
	keys := make([]string, len(items))
	inserted := 0
	emergency := false

	for i, it := range items {
		if it == nil || it.popup == nil {
			s.logger.Warn("ignoring schedule of nil popup", "index", i)
			continue
		}
		if key, absorbed := s.absorb(it); absorbed {
			keys[i] = key
			continue
		}
		s.enqueue(it)
		keys[i] = it.key
		inserted++
		if it.priority.IsEmergency() {
			emergency = true
		}
	}

	sortQueue(s.queue)
	if inserted > 0 {
		s.interruptOrAdvance(emergency)
	}
	return keys
}

// Suspend stops the queue from advancing. When hideCurrent is true the
// displayed popup is hidden and dropped. Suspending twice is harmless.
func (s *Scheduler) Suspend(hideCurrent bool) {
	if !s.suspended {
		s.suspended = true
		s.logger.Debug("scheduler suspended", "hide_current", hideCurrent)
		s.emit(model.Event{Kind: model.EventSuspended, At: time.Now()})
	}
	if hideCurrent {
		s.hide(hideRequest{reason: "suspended"})
	}
}

// Resume lets the queue advance again and attempts to show the next item.
func (s *Scheduler) Resume() {
	if s.suspended {
		s.suspended = false
		s.logger.Debug("scheduler resumed", "queued", len(s.queue))
		s.emit(model.Event{Kind: model.EventResumed, At: time.Now()})
	}
	s.showNextIfNeeded()
}

// ReclaimCurrentAndSuspend suspends the scheduler, puts the displayed popup
// back at the front of the queue and hides it. done runs once the popup is
// hidden, or immediately if nothing is displayed.
func (s *Scheduler) ReclaimCurrentAndSuspend(done func()) {
	s.Suspend(false)
	s.hide(hideRequest{requeue: requeueAlways, reason: "reclaimed", done: done})
}

// DismissCurrent hides the displayed popup. The queue advances afterwards
// unless suspended. done runs once the popup is hidden, or immediately if
// nothing is displayed or a hide is already in flight.
func (s *Scheduler) DismissCurrent(done func()) {
	s.hide(hideRequest{reason: "dismissed", done: done})
}

// DismissKey dismisses the displayed popup only if its key matches.
// It reports whether a dismiss was started.
func (s *Scheduler) DismissKey(key string) bool {
	if s.current == nil || s.current.key != key {
		return false
	}
	s.hide(hideRequest{reason: "expired"})
	return true
}

// CloseKey withdraws the entry with the given key. A displayed popup is
// hidden with reason; a queued one is dropped without being shown. A popup
// already being interrupted or reclaimed is taken back out of the queue so
// it is not shown again. It reports whether an entry was found.
func (s *Scheduler) CloseKey(key, reason string) bool {
	if s.current != nil && s.current.key == key {
		if s.animating {
			s.dropQueued(key, reason)
			return true
		}
		s.hide(hideRequest{reason: reason})
		return true
	}
	return s.dropQueued(key, reason)
}

// dropQueued removes the queued entry with key. The jump hook of an item
// still hiding is released by hidden.
func (s *Scheduler) dropQueued(key, reason string) bool {
	i := indexOfKey(s.queue, key)
	if i < 0 {
		return false
	}
	it := s.queue[i]
	s.queue = removeAt(s.queue, i)
	if it != s.current {
		s.releaseJump(key)
	}
	s.logger.Debug("removed queued popup", "key", key, "reason", reason)
	s.emit(it.event(model.EventRemoved, reason))
	return true
}

// TapBackground dismisses the displayed popup when its presentation allows
// dismissal by a background tap.
func (s *Scheduler) TapBackground() {
	if s.current == nil {
		return
	}
	if !s.current.presentation.DismissOnBackgroundTap {
		s.logger.Debug("background tap ignored", "key", s.current.key)
		return
	}
	s.hide(hideRequest{reason: "background tap"})
}

// ClearQueue drops every pending item. The displayed popup is unaffected,
// though one that is being interrupted or reclaimed no longer returns.
func (s *Scheduler) ClearQueue() {
	n := len(s.queue)
	for _, it := range s.queue {
		s.releaseJump(it.key)
	}
	s.queue = nil
	s.logger.Debug("queue cleared", "count", n)
	s.emit(model.Event{Kind: model.EventCleared, Count: n, At: time.Now()})
}

// Advance attempts to show the next eligible item. Hosts call it after an
// input of a display condition changed.
func (s *Scheduler) Advance() {
	s.showNextIfNeeded()
}

// Current returns the displayed item, or nil.
func (s *Scheduler) Current() *Item {
	return s.current
}

// QueueLen returns the number of pending items.
func (s *Scheduler) QueueLen() int {
	return len(s.queue)
}

// Queued returns the pending items in display order.
func (s *Scheduler) Queued() []*Item {
	out := make([]*Item, len(s.queue))
	copy(out, s.queue)
	return out
}

// Suspended reports whether the scheduler is suspended.
func (s *Scheduler) Suspended() bool {
	return s.suspended
}

// Animating reports whether a hide is in flight.
func (s *Scheduler) Animating() bool {
	return s.animating
}

// Snapshot copies the scheduler state. An item that is hiding to be
// requeued is reported as current only.
func (s *Scheduler) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		Suspended: s.suspended,
		Animating: s.animating,
		Queue:     make([]model.ItemSnapshot, 0, len(s.queue)),
		TakenAt:   time.Now(),
	}
	if s.screens != nil {
		snap.ActiveScreen = s.screens.Active()
	}
	if s.current != nil {
		cur := s.current.snapshot()
		snap.Current = &cur
	}
	for _, it := range s.queue {
		if it == s.current {
			continue
		}
		snap.Queue = append(snap.Queue, it.snapshot())
	}
	return snap
}

// absorb coalesces it into an existing entry with the same id. The caller
// re-sorts the queue.
func (s *Scheduler) absorb(it *Item) (string, bool) {
	if it.id == "" {
		return "", false
	}

	if s.current != nil && s.current.id == it.id {
		if u, ok := s.current.popup.(Updater); ok {
			u.Update(it.popup)
		}
		s.logger.Debug("coalesced into displayed popup", "id", it.id, "key", s.current.key)
		s.emit(s.current.event(model.EventCoalesced, ""))
		return s.current.key, true
	}

	i := indexOfID(s.queue, it.id)
	if i < 0 {
		return "", false
	}
	old := s.queue[i]
	if it.condition == nil {
		it.condition = old.condition
	}
	if it.completion == nil {
		it.completion = old.completion
	}
	it.enqueuedAt = old.enqueuedAt
	s.releaseJump(old.key)
	s.queue[i] = it

	s.logger.Debug("replaced queued popup", "id", it.id, "old_key", old.key, "key", it.key, "priority", it.priority)
	s.emit(it.event(model.EventReplaced, old.key))
	return it.key, true
}

// enqueue appends it to the queue without sorting.
func (s *Scheduler) enqueue(it *Item) {
	if it.enqueuedAt.IsZero() {
		it.enqueuedAt = time.Now()
	}
	s.queue = append(s.queue, it)
	s.logger.Debug("scheduled popup", "key", it.key, "id", it.id, "priority", it.priority, "queue_size", len(s.queue))
	s.emit(it.event(model.EventScheduled, ""))
}

// interruptOrAdvance interrupts the displayed item for an emergency,
// otherwise tries to advance.
func (s *Scheduler) interruptOrAdvance(emergency bool) {
	if emergency && s.current != nil && !s.current.priority.IsEmergency() {
		s.logger.Debug("interrupting displayed popup", "key", s.current.key, "priority", s.current.priority)
		s.hide(hideRequest{requeue: requeueUnlessEmergency, reason: "interrupted"})
		return
	}
	s.showNextIfNeeded()
}

// showNextIfNeeded displays the first eligible queued item when nothing is
// displayed and the scheduler is not suspended.
func (s *Scheduler) showNextIfNeeded() {
	if s.suspended || s.current != nil {
		return
	}

	i := firstEligible(s.queue)
	if i < 0 {
		if len(s.queue) > 0 {
			s.logger.Debug("no eligible popup", "queued", len(s.queue))
		}
		return
	}

	it := s.queue[i]
	s.queue = removeAt(s.queue, i)
	s.current = it
	it.shownAt = time.Now()

	s.logger.Debug("showing popup", "key", it.key, "id", it.id, "priority", it.priority, "queued", len(s.queue))
	it.popup.Show(sync.OnceFunc(func() {
		s.exec.Post(func() { s.shown(it) })
	}))
}

// shown runs once an item's Show completed.
func (s *Scheduler) shown(it *Item) {
	if fn := it.completion; fn != nil {
		it.completion = nil
		fn()
	}
	if s.current == it {
		s.wireJump(it)
	}
	s.emit(it.event(model.EventShown, ""))
}

// hide starts hiding the displayed item.
func (s *Scheduler) hide(req hideRequest) {
	cur := s.current
	if cur == nil {
		if req.done != nil {
			req.done()
		}
		return
	}
	if s.animating {
		s.logger.Debug("hide already in flight", "key", cur.key, "reason", req.reason)
		if req.done != nil {
			req.done()
		}
		return
	}

	s.animating = true
	requeued := req.requeue == requeueAlways ||
		(req.requeue == requeueUnlessEmergency && !cur.priority.IsEmergency())
	if requeued {
		s.queue = pushFront(s.queue, cur)
		sortQueue(s.queue)
		kind := model.EventInterrupted
		if req.requeue == requeueAlways {
			kind = model.EventReclaimed
		}
		s.emit(cur.event(kind, req.reason))
	}

	s.logger.Debug("hiding popup", "key", cur.key, "reason", req.reason, "requeued", requeued)
	cur.popup.Hide(sync.OnceFunc(func() {
		s.exec.Post(func() { s.hidden(cur, requeued, req) })
	}))
}

// hidden runs once an item's Hide completed.
func (s *Scheduler) hidden(cur *Item, requeued bool, req hideRequest) {
	s.animating = false
	if s.current == cur {
		s.current = nil
	}
	if !requeued || indexOfKey(s.queue, cur.key) < 0 {
		s.releaseJump(cur.key)
	}
	s.emit(cur.event(model.EventHidden, req.reason))

	if req.done != nil {
		req.done()
	}
	if !s.suspended {
		s.showNextIfNeeded()
	}
}

// wireJump wraps the popup's close-and-jump callback the first time the
// item is displayed.
func (s *Scheduler) wireJump(it *Item) {
	j, ok := it.popup.(Jumper)
	if !ok {
		return
	}
	if _, wired := s.jumps[it.key]; wired {
		return
	}
	original := j.OnCloseAndJump()
	if original == nil {
		return
	}

	key := it.key
	s.jumps[key] = jumpHook{item: it, original: original}
	j.SetOnCloseAndJump(func() {
		s.exec.Post(func() { s.closeAndJump(key) })
	})
}

// closeAndJump suspends the queue (unless the host manages the lifecycle)
// and then runs the popup's own callback.
func (s *Scheduler) closeAndJump(key string) {
	hook, ok := s.jumps[key]
	if !ok {
		return
	}
	if !s.auto.Enabled {
		s.Suspend(true)
	}
	hook.original()
}

// releaseJump restores the popup's own callback and forgets it.
func (s *Scheduler) releaseJump(key string) {
	hook, ok := s.jumps[key]
	if !ok {
		return
	}
	delete(s.jumps, key)
	if j, ok := hook.item.popup.(Jumper); ok {
		j.SetOnCloseAndJump(hook.original)
	}
}

// emit delivers ev to every observer.
func (s *Scheduler) emit(ev model.Event) {
	for _, o := range s.observers {
		o.OnEvent(ev)
	}
}

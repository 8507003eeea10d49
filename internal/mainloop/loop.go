// Package mainloop provides the single execution context the scheduler and
// its popups run on. Every task posted to a Loop runs on one goroutine, in
// posting order, one at a time.
package mainloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStopped is returned by Call once the loop has stopped.
var ErrStopped = errors.New("mainloop: stopped")

// Loop is a serial task loop.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []func()
	started bool
	stopped bool

	wake     chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// New creates a loop. Tasks may be posted before Start; they run once the
// loop starts.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start runs the loop on a new goroutine until ctx is cancelled or Stop is
// called. Starting twice is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	go l.run(ctx)
}

// Stop stops the loop and waits for the running task to finish. Pending
// tasks are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		started := l.started
		l.tasks = nil
		l.mu.Unlock()

		close(l.stopCh)
		if started {
			<-l.doneCh
		}
	})
}

// Post queues fn to run on the loop. It never blocks. Tasks posted after
// Stop are dropped.
func (l *Loop) Post(fn func()) {
	if !l.post(fn) {
		l.logger.Debug("dropping task posted to stopped loop")
	}
}

// PostAfter posts fn once d has elapsed. Stopping the returned timer
// before it fires cancels the task.
func (l *Loop) PostAfter(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Call posts fn and waits for it to run. It must not be called from the
// loop itself.
func (l *Loop) Call(fn func()) error {
	done := make(chan struct{})
	if !l.post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-l.doneCh:
		return ErrStopped
	}
}

func (l *Loop) post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.doneCh)

	for {
		if !l.drain() {
			return
		}
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.tasks = nil
			l.mu.Unlock()
			return
		case <-l.stopCh:
			return
		case <-l.wake:
		}
	}
}

// drain runs queued tasks until none are left. It returns false when the
// loop was stopped meanwhile.
func (l *Loop) drain() bool {
	for {
		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			return false
		}
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return true
		}
		task := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		l.runTask(task)
	}
}

func (l *Loop) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "panic", r)
		}
	}()
	task()
}

// Package scheduler implements the popup display scheduler: a single-consumer,
// priority-ordered queue that shows one popup at a time.
//
// The scheduler supports identity-based coalescing and replacement of queued
// popups, suspend/resume control, and interruption of the displayed popup by
// an emergency-priority popup. Showing and hiding are opaque asynchronous
// operations supplied by the Popup implementation; their completions re-enter
// the scheduler through an Executor.
//
// A Scheduler holds no locks. All methods must be called from the execution
// context its Executor serializes onto (see internal/mainloop).
package scheduler

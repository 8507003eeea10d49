package scheduler

// Executor serializes tasks onto the scheduler's execution context.
// Post must not block and must run tasks in the order they were posted.
type Executor interface {
	Post(task func())
}

// Inline runs every task immediately on the calling goroutine.
// It suits tests and single-goroutine hosts whose popups complete on the
// same goroutine that drives the scheduler.
type Inline struct{}

// Post runs task synchronously.
func (Inline) Post(task func()) {
	task()
}

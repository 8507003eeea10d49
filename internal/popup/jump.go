package popup

import "sync"

// jumpHook stores a close-and-jump callback. Embedding it makes a popup a
// scheduler.Jumper.
type jumpHook struct {
	mu sync.Mutex
	fn func()
}

func (j *jumpHook) OnCloseAndJump() func() {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fn
}

func (j *jumpHook) SetOnCloseAndJump(fn func()) {
	j.mu.Lock()
	j.fn = fn
	j.mu.Unlock()
}

// CloseAndJump invokes the close-and-jump callback, if any.
func (j *jumpHook) CloseAndJump() bool {
	fn := j.OnCloseAndJump()
	if fn == nil {
		return false
	}
	fn()
	return true
}

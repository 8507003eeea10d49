package scheduler

import "github.com/jmylchreest/popsched/internal/model"

// Observer receives scheduler lifecycle events. Observers run on the
// scheduler's execution context and must not block.
type Observer interface {
	OnEvent(ev model.Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev model.Event)

// OnEvent calls f(ev).
func (f ObserverFunc) OnEvent(ev model.Event) {
	f(ev)
}

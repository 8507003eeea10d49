package scheduler

// Screens tracks which host screen is active, for use in display
// conditions. Like the Scheduler it is confined to one execution context.
type Screens struct {
	active string
}

// NewScreens returns a tracker with the given initial screen.
func NewScreens(initial string) *Screens {
	return &Screens{active: initial}
}

// Active returns the active screen name.
func (sc *Screens) Active() string {
	return sc.active
}

// SetActive records the active screen and reports whether it changed.
// Callers should Advance the scheduler after a change.
func (sc *Screens) SetActive(name string) bool {
	if sc.active == name {
		return false
	}
	sc.active = name
	return true
}

// Is returns a display condition that holds while name is active.
func (sc *Screens) Is(name string) func() bool {
	return func() bool { return sc.active == name }
}

// OnScreen restricts an item to the named screen.
func OnScreen(sc *Screens, name string) ItemOption {
	return WithCondition(sc.Is(name))
}

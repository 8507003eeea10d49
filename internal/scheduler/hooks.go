package scheduler

// AutoManagement configures how the scheduler reacts to the host's own
// visibility changes.
type AutoManagement struct {
	Enabled       bool `toml:"enabled" json:"enabled" yaml:"enabled"`
	SuspendOnHide bool `toml:"suspend_on_hide" json:"suspend_on_hide" yaml:"suspend_on_hide"`
	ResumeOnShow  bool `toml:"resume_on_show" json:"resume_on_show" yaml:"resume_on_show"`
}

// SetAutoManagement replaces the auto-management configuration.
func (s *Scheduler) SetAutoManagement(auto AutoManagement) {
	s.auto = auto
}

// AutoManagement returns the current auto-management configuration.
func (s *Scheduler) AutoManagement() AutoManagement {
	return s.auto
}

// HostWillHide is called when the host context is about to be hidden.
// With suspend-on-hide enabled the displayed popup is reclaimed and the
// scheduler suspended.
func (s *Scheduler) HostWillHide() {
	if !s.auto.Enabled || !s.auto.SuspendOnHide {
		return
	}
	s.logger.Debug("host hiding, reclaiming displayed popup")
	s.ReclaimCurrentAndSuspend(nil)
}

// HostDidShow is called when the host context became visible again.
func (s *Scheduler) HostDidShow() {
	if !s.auto.Enabled || !s.auto.ResumeOnShow {
		return
	}
	s.logger.Debug("host shown, resuming")
	s.Resume()
}

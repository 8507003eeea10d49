package daemon

import (
	"fmt"

	"github.com/jmylchreest/popsched/internal/dbus"
	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/popup"
	"github.com/jmylchreest/popsched/internal/store"
)

// Schedule queues a popup requested over the control service.
func (d *Daemon) Schedule(req dbus.ScheduleRequest) (string, error) {
	if !req.Priority.Valid() {
		return "", fmt.Errorf("invalid priority %d", int(req.Priority))
	}
	notice := popup.Notice{Title: req.Title, Body: req.Body, Screen: req.Screen, Source: "dbus"}
	it := d.newItem(req.ID, req.Priority, notice)

	var key string
	if err := d.loop.Call(func() { key = d.sched.Schedule(it) }); err != nil {
		return "", err
	}
	return key, nil
}

// Suspend stops the queue, optionally hiding the displayed popup.
func (d *Daemon) Suspend(hideCurrent bool) error {
	return d.withTrigger(store.TriggerUser, func() { d.sched.Suspend(hideCurrent) })
}

// Resume lets the queue advance again.
func (d *Daemon) Resume() error {
	return d.withTrigger(store.TriggerUser, d.sched.Resume)
}

// Reclaim puts the displayed popup back in the queue and suspends.
func (d *Daemon) Reclaim() error {
	return d.withTrigger(store.TriggerUser, func() { d.sched.ReclaimCurrentAndSuspend(nil) })
}

// Dismiss hides the displayed popup.
func (d *Daemon) Dismiss() error {
	return d.loop.Call(func() { d.sched.DismissCurrent(nil) })
}

// ClearQueue drops all pending popups.
func (d *Daemon) ClearQueue() error {
	return d.loop.Call(d.sched.ClearQueue)
}

// TapBackground forwards a background tap.
func (d *Daemon) TapBackground() error {
	return d.loop.Call(d.sched.TapBackground)
}

// SetActiveScreen switches the active screen and re-checks display conditions.
func (d *Daemon) SetActiveScreen(name string) error {
	return d.loop.Call(func() {
		if !d.screens.SetActive(name) {
			return
		}
		d.state.ActiveScreen = name
		d.saveState()
		d.sched.Advance()
	})
}

// HostWillHide forwards the host lifecycle hook.
func (d *Daemon) HostWillHide() error {
	return d.withTrigger(store.TriggerHost, d.sched.HostWillHide)
}

// HostDidShow forwards the host lifecycle hook.
func (d *Daemon) HostDidShow() error {
	return d.withTrigger(store.TriggerHost, d.sched.HostDidShow)
}

// Status returns a snapshot of the scheduler.
func (d *Daemon) Status() (model.Snapshot, error) {
	var snap model.Snapshot
	err := d.loop.Call(func() { snap = d.sched.Snapshot() })
	return snap, err
}

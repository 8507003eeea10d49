package dbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popsched/internal/model"
)

type fakeController struct {
	calls    []string
	requests []ScheduleRequest
	err      error
	snap     model.Snapshot
}

func (f *fakeController) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeController) Schedule(req ScheduleRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return "key-1", nil
}

func (f *fakeController) Suspend(hideCurrent bool) error {
	if hideCurrent {
		return f.record("suspend+hide")
	}
	return f.record("suspend")
}
func (f *fakeController) Resume() error        { return f.record("resume") }
func (f *fakeController) Reclaim() error       { return f.record("reclaim") }
func (f *fakeController) Dismiss() error       { return f.record("dismiss") }
func (f *fakeController) ClearQueue() error    { return f.record("clear") }
func (f *fakeController) TapBackground() error { return f.record("tap") }
func (f *fakeController) SetActiveScreen(name string) error {
	return f.record("screen:" + name)
}
func (f *fakeController) HostWillHide() error { return f.record("host-hide") }
func (f *fakeController) HostDidShow() error  { return f.record("host-show") }
func (f *fakeController) Status() (model.Snapshot, error) {
	return f.snap, f.err
}

func TestControlService_Schedule(t *testing.T) {
	ctrl := &fakeController{}
	svc := NewControlService(ctrl, quietLogger())

	key, derr := svc.Schedule("battery", "high", "Battery low", "5% left", "home")
	require.Nil(t, derr)
	assert.Equal(t, "key-1", key)
	require.Len(t, ctrl.requests, 1)
	assert.Equal(t, ScheduleRequest{
		ID:       "battery",
		Priority: model.PriorityHigh,
		Title:    "Battery low",
		Body:     "5% left",
		Screen:   "home",
	}, ctrl.requests[0])

	_, derr = svc.Schedule("", "", "defaults to low", "", "")
	require.Nil(t, derr)
	assert.Equal(t, model.PriorityLow, ctrl.requests[1].Priority)
}

func TestControlService_ScheduleErrors(t *testing.T) {
	ctrl := &fakeController{}
	svc := NewControlService(ctrl, quietLogger())

	_, derr := svc.Schedule("", "urgent", "title", "", "")
	require.NotNil(t, derr)
	assert.Equal(t, "org.freedesktop.DBus.Error.Failed", derr.Name)

	_, derr = svc.Schedule("", "low", "", "", "")
	require.NotNil(t, derr)
	assert.Empty(t, ctrl.requests)

	ctrl.err = errors.New("daemon stopping")
	_, derr = svc.Schedule("", "low", "title", "", "")
	require.NotNil(t, derr)
	assert.Contains(t, derr.Error(), "daemon stopping")
}

func TestControlService_Commands(t *testing.T) {
	ctrl := &fakeController{}
	svc := NewControlService(ctrl, quietLogger())

	assert.Nil(t, svc.Suspend(false))
	assert.Nil(t, svc.Suspend(true))
	assert.Nil(t, svc.Resume())
	assert.Nil(t, svc.Reclaim())
	assert.Nil(t, svc.Dismiss())
	assert.Nil(t, svc.ClearQueue())
	assert.Nil(t, svc.TapBackground())
	assert.Nil(t, svc.SetActiveScreen("settings"))
	assert.Nil(t, svc.HostWillHide())
	assert.Nil(t, svc.HostDidShow())

	assert.Equal(t, []string{
		"suspend", "suspend+hide", "resume", "reclaim", "dismiss",
		"clear", "tap", "screen:settings", "host-hide", "host-show",
	}, ctrl.calls)

	ctrl.err = errors.New("boom")
	derr := svc.Resume()
	require.NotNil(t, derr)
	assert.Contains(t, derr.Error(), "boom")
}

func TestControlService_Status(t *testing.T) {
	ctrl := &fakeController{snap: model.Snapshot{
		Suspended:    true,
		ActiveScreen: "home",
		Current:      &model.ItemSnapshot{Key: "a", Priority: model.PriorityHigh, Title: "A"},
		Queue:        []model.ItemSnapshot{{Key: "b", ID: "bid", Priority: model.PriorityLow}},
	}}
	svc := NewControlService(ctrl, quietLogger())

	raw, derr := svc.Status()
	require.Nil(t, derr)
	assert.Contains(t, raw, `"priority":"high"`)

	snap, err := DecodeStatus(raw)
	require.NoError(t, err)
	assert.True(t, snap.Suspended)
	assert.Equal(t, "home", snap.ActiveScreen)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "A", snap.Current.Title)
	assert.Equal(t, 1, snap.QueueLen())
	assert.Equal(t, "bid", snap.Queue[0].ID)

	_, err = DecodeStatus("not json")
	assert.Error(t, err)
}

func TestControlService_EmitWithoutConnection(t *testing.T) {
	svc := NewControlService(&fakeController{}, nil)
	assert.ErrorIs(t, svc.EmitPopupShown("k", model.PriorityLow, "t"), ErrNotConnected)
	assert.ErrorIs(t, svc.EmitPopupHidden("k", "dismissed"), ErrNotConnected)
	assert.NoError(t, svc.Stop())
}

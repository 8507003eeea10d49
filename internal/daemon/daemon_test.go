package daemon

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popsched/internal/config"
	"github.com/jmylchreest/popsched/internal/dbus"
	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.DaemonConfig {
	cfg := config.DefaultDaemonConfig()
	cfg.Animation.Show = 0
	cfg.Animation.Hide = 0
	cfg.Audio.Enabled = false
	return cfg
}

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		JournalPath: filepath.Join(dir, "events.jsonl"),
		StatePath:   filepath.Join(dir, "state.json"),
	}
}

func startDaemon(t *testing.T, cfg *config.DaemonConfig, opts Options) *Daemon {
	t.Helper()
	d, err := New(cfg, opts, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(ctx))
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})
	return d
}

func status(t *testing.T, d *Daemon) model.Snapshot {
	t.Helper()
	snap, err := d.Status()
	require.NoError(t, err)
	return snap
}

func currentTitle(t *testing.T, d *Daemon) string {
	t.Helper()
	if cur := status(t, d).Current; cur != nil {
		return cur.Title
	}
	return ""
}

func loadState(t *testing.T, opts Options) *store.SharedState {
	t.Helper()
	s, err := store.LoadSharedState(opts.StatePath)
	require.NoError(t, err)
	return s
}

func TestDaemon_ScheduleAndStatus(t *testing.T) {
	opts := testOptions(t)
	d := startDaemon(t, testConfig(), opts)

	keyA, err := d.Schedule(dbus.ScheduleRequest{Title: "a", Priority: model.PriorityLow})
	require.NoError(t, err)
	_, err = d.Schedule(dbus.ScheduleRequest{Title: "b", Priority: model.PriorityHigh})
	require.NoError(t, err)

	snap := status(t, d)
	require.NotNil(t, snap.Current)
	assert.Equal(t, keyA, snap.Current.Key)
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, "b", snap.Queue[0].Title)
	assert.Equal(t, model.PriorityHigh, snap.Queue[0].Priority)

	evs := d.Journal().Filter(store.FilterOptions{Order: "asc"})
	kinds := make([]model.EventKind, 0, len(evs))
	for _, ev := range evs {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []model.EventKind{model.EventScheduled, model.EventShown, model.EventScheduled}, kinds)
	assert.NotZero(t, loadState(t, opts).LastShownAt)

	_, err = d.Schedule(dbus.ScheduleRequest{Title: "bad", Priority: model.Priority(9)})
	assert.Error(t, err)
}

func TestDaemon_JournalPersists(t *testing.T) {
	opts := testOptions(t)
	d := startDaemon(t, testConfig(), opts)

	_, err := d.Schedule(dbus.ScheduleRequest{Title: "a"})
	require.NoError(t, err)
	require.NoError(t, d.Dismiss())
	status(t, d)

	evs, err := store.ReadJournal(opts.JournalPath)
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	assert.Equal(t, model.EventHidden, evs[len(evs)-1].Kind)
	assert.Equal(t, "dismissed", evs[len(evs)-1].Reason)
}

func TestDaemon_JournalPrunedAtStart(t *testing.T) {
	opts := testOptions(t)
	p, err := store.NewJSONLPersistence(opts.JournalPath)
	require.NoError(t, err)
	for range 10 {
		require.NoError(t, p.Append(model.Event{Kind: model.EventScheduled, Key: "k", At: time.Now()}))
	}
	require.NoError(t, p.Close())

	cfg := testConfig()
	cfg.Journal.MaxEntries = 3
	d := startDaemon(t, cfg, opts)
	assert.Equal(t, 3, d.Journal().Count())
}

func TestDaemon_JournalDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Journal.Enabled = false
	d := startDaemon(t, cfg, testOptions(t))

	assert.Nil(t, d.Journal())
	_, err := d.Schedule(dbus.ScheduleRequest{Title: "a"})
	assert.NoError(t, err)
}

func TestDaemon_TimeoutDismisses(t *testing.T) {
	cfg := testConfig()
	cfg.Timeouts.Low = config.Duration(30 * time.Millisecond)
	d := startDaemon(t, cfg, testOptions(t))

	_, err := d.Schedule(dbus.ScheduleRequest{Title: "a"})
	require.NoError(t, err)
	_, err = d.Schedule(dbus.ScheduleRequest{Title: "b"})
	require.NoError(t, err)
	assert.Equal(t, "a", currentTitle(t, d))

	assert.Eventually(t, func() bool { return currentTitle(t, d) == "b" }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return currentTitle(t, d) == "" }, time.Second, 10*time.Millisecond)

	hidden := d.Journal().Filter(store.FilterOptions{Kinds: []model.EventKind{model.EventHidden}})
	require.Len(t, hidden, 2)
	assert.Equal(t, "expired", hidden[0].Reason)
}

func TestDaemon_NoTimeoutForEmergency(t *testing.T) {
	cfg := testConfig()
	cfg.Timeouts.Low = config.Duration(10 * time.Millisecond)
	d := startDaemon(t, cfg, testOptions(t))

	_, err := d.Schedule(dbus.ScheduleRequest{Title: "e", Priority: model.PriorityEmergency})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "e", currentTitle(t, d))
}

func TestDaemon_SuspendPersistsState(t *testing.T) {
	opts := testOptions(t)
	d := startDaemon(t, testConfig(), opts)

	_, err := d.Schedule(dbus.ScheduleRequest{Title: "a"})
	require.NoError(t, err)

	require.NoError(t, d.Suspend(true))
	snap := status(t, d)
	assert.True(t, snap.Suspended)
	assert.Nil(t, snap.Current)

	state := loadState(t, opts)
	assert.True(t, state.Suspended)
	require.NotNil(t, state.LastTransition)
	assert.Equal(t, store.TriggerUser, state.LastTransition.Trigger)
	assert.Equal(t, "suspended", state.LastTransition.Reason)

	require.NoError(t, d.Resume())
	assert.False(t, loadState(t, opts).Suspended)
}

func TestDaemon_Reclaim(t *testing.T) {
	d := startDaemon(t, testConfig(), testOptions(t))

	_, err := d.Schedule(dbus.ScheduleRequest{Title: "a"})
	require.NoError(t, err)
	require.NoError(t, d.Reclaim())

	snap := status(t, d)
	assert.True(t, snap.Suspended)
	assert.Nil(t, snap.Current)
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, "a", snap.Queue[0].Title)

	require.NoError(t, d.Resume())
	assert.Equal(t, "a", currentTitle(t, d))
}

func TestDaemon_RestoresSuspendedState(t *testing.T) {
	opts := testOptions(t)
	state := store.DefaultSharedState()
	state.SetSuspended(true, store.TriggerUser, "suspended", "cli")
	state.ActiveScreen = "settings"
	require.NoError(t, store.SaveSharedState(opts.StatePath, state))

	d := startDaemon(t, testConfig(), opts)
	snap := status(t, d)
	assert.True(t, snap.Suspended)
	assert.Equal(t, "settings", snap.ActiveScreen)

	_, err := d.Schedule(dbus.ScheduleRequest{Title: "a"})
	require.NoError(t, err)
	assert.Empty(t, currentTitle(t, d))
}

func TestDaemon_IgnoresStateWhenRestoreDisabled(t *testing.T) {
	opts := testOptions(t)
	state := store.DefaultSharedState()
	state.SetSuspended(true, store.TriggerUser, "suspended", "cli")
	require.NoError(t, store.SaveSharedState(opts.StatePath, state))

	cfg := testConfig()
	cfg.Scheduler.RestoreState = false
	d := startDaemon(t, cfg, opts)
	assert.False(t, status(t, d).Suspended)
}

func TestDaemon_StartSuspended(t *testing.T) {
	opts := testOptions(t)
	cfg := testConfig()
	cfg.Scheduler.StartSuspended = true
	d := startDaemon(t, cfg, opts)

	assert.True(t, status(t, d).Suspended)
	state := loadState(t, opts)
	require.NotNil(t, state.LastTransition)
	assert.Equal(t, store.TriggerStartup, state.LastTransition.Trigger)
}

func TestDaemon_HostHooks(t *testing.T) {
	opts := testOptions(t)
	cfg := testConfig()
	cfg.Scheduler.Auto.Enabled = true
	d := startDaemon(t, cfg, opts)

	_, err := d.Schedule(dbus.ScheduleRequest{Title: "a"})
	require.NoError(t, err)

	require.NoError(t, d.HostWillHide())
	snap := status(t, d)
	assert.True(t, snap.Suspended)
	require.Len(t, snap.Queue, 1, "reclaimed popup stays queued")
	assert.Equal(t, store.TriggerHost, loadState(t, opts).LastTransition.Trigger)

	require.NoError(t, d.HostDidShow())
	assert.False(t, status(t, d).Suspended)
	assert.Equal(t, "a", currentTitle(t, d))
}

func TestDaemon_SetActiveScreen(t *testing.T) {
	opts := testOptions(t)
	d := startDaemon(t, testConfig(), opts)

	_, err := d.Schedule(dbus.ScheduleRequest{Title: "a", Screen: "settings"})
	require.NoError(t, err)
	assert.Empty(t, currentTitle(t, d))

	require.NoError(t, d.SetActiveScreen("settings"))
	assert.Equal(t, "a", currentTitle(t, d))
	assert.Equal(t, "settings", loadState(t, opts).ActiveScreen)
}

func TestDaemon_ClearAndTap(t *testing.T) {
	cfg := testConfig()
	cfg.Presentation.DismissOnBackgroundTap = true
	d := startDaemon(t, cfg, testOptions(t))

	for _, title := range []string{"a", "b", "c"} {
		_, err := d.Schedule(dbus.ScheduleRequest{Title: title})
		require.NoError(t, err)
	}
	require.NoError(t, d.ClearQueue())
	snap := status(t, d)
	assert.Equal(t, 0, snap.QueueLen())
	assert.Equal(t, "a", snap.Current.Title)

	require.NoError(t, d.TapBackground())
	assert.Empty(t, currentTitle(t, d))
}

func TestDaemon_HandleNotification(t *testing.T) {
	d := startDaemon(t, testConfig(), testOptions(t))

	critical := map[string]godbus.Variant{"urgency": godbus.MakeVariant(byte(2))}
	d.handleNotification((&dbus.DBusNotification{AppName: "app", Summary: "first", Hints: critical}).Incoming(5))

	snap := status(t, d)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "first", snap.Current.Title)
	assert.Equal(t, model.PriorityHigh, snap.Current.Priority)
	assert.Equal(t, dbus.NotificationID(5), snap.Current.ID)
	assert.Equal(t, 1, d.notifications.count())

	// replaces_id 5 coalesces with the displayed popup
	d.handleNotification((&dbus.DBusNotification{AppName: "app", ReplacesID: 5, Summary: "second"}).Incoming(5))
	snap = status(t, d)
	assert.Equal(t, "second", snap.Current.Title)
	assert.Equal(t, 0, snap.QueueLen())

	d.handleCloseNotification(5)
	assert.Empty(t, currentTitle(t, d))
	assert.Equal(t, 0, d.notifications.count())
}

func TestDaemon_HandleNotification_QueuedClose(t *testing.T) {
	d := startDaemon(t, testConfig(), testOptions(t))

	d.handleNotification((&dbus.DBusNotification{Summary: "shown"}).Incoming(1))
	d.handleNotification((&dbus.DBusNotification{Summary: "queued"}).Incoming(2))
	require.Equal(t, 1, status(t, d).QueueLen())

	d.handleCloseNotification(2)
	assert.Equal(t, 0, status(t, d).QueueLen())
	assert.Equal(t, "shown", currentTitle(t, d))

	removed := d.Journal().Filter(store.FilterOptions{Kinds: []model.EventKind{model.EventRemoved}})
	require.Len(t, removed, 1)
	assert.Equal(t, "closed", removed[0].Reason)
}

func TestDaemon_CloseNotificationDuringInterrupt(t *testing.T) {
	cfg := testConfig()
	cfg.Animation.Hide = config.Duration(time.Hour)
	d := startDaemon(t, cfg, testOptions(t))

	d.handleNotification((&dbus.DBusNotification{Summary: "download"}).Incoming(1))
	cur := status(t, d).Current
	require.NotNil(t, cur)
	key := cur.Key

	_, err := d.Schedule(dbus.ScheduleRequest{Title: "alarm", Priority: model.PriorityEmergency})
	require.NoError(t, err)
	require.True(t, status(t, d).Animating, "download is still hiding")

	d.handleCloseNotification(1)

	var queued bool
	require.NoError(t, d.loop.Call(func() { queued = d.queued(key) }))
	assert.False(t, queued, "a closed notification must not come back")
	assert.Equal(t, 0, d.notifications.count())

	removed := d.Journal().Filter(store.FilterOptions{Kinds: []model.EventKind{model.EventRemoved}})
	require.Len(t, removed, 1)
	assert.Equal(t, key, removed[0].Key)
}

func TestDaemon_ApplyConfig(t *testing.T) {
	level := new(slog.LevelVar)
	opts := testOptions(t)
	opts.LogLevel = level
	d := startDaemon(t, testConfig(), opts)

	newCfg := testConfig()
	newCfg.Scheduler.Auto.Enabled = true
	newCfg.Log.Level = "debug"
	require.NoError(t, d.loop.Call(func() { d.applyConfig(newCfg) }))

	assert.Equal(t, slog.LevelDebug, level.Level())
	var auto bool
	require.NoError(t, d.loop.Call(func() { auto = d.sched.AutoManagement().Enabled }))
	assert.True(t, auto)

	assert.Equal(t, "Configuration Reloaded", currentTitle(t, d))
	assert.Equal(t, source+":config-reload", status(t, d).Current.ID)
}

func TestDaemon_StoppedCallsFail(t *testing.T) {
	d, err := New(testConfig(), testOptions(t), quietLogger())
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	d.Stop()

	_, err = d.Status()
	assert.Error(t, err)
}

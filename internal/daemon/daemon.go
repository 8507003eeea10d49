package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jmylchreest/popsched/internal/audio"
	"github.com/jmylchreest/popsched/internal/config"
	"github.com/jmylchreest/popsched/internal/dbus"
	"github.com/jmylchreest/popsched/internal/mainloop"
	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/popup"
	"github.com/jmylchreest/popsched/internal/scheduler"
	"github.com/jmylchreest/popsched/internal/store"
)

const source = "popschedd"

// Options configures a Daemon beyond its DaemonConfig.
type Options struct {
	ConfigPath  string         // Watched for hot reload; "" = default location
	JournalPath string         // "" = config.JournalPath()
	StatePath   string         // "" = config.StatePath()
	Version     string         // Reported by GetServerInformation
	Bus         bool           // Export the D-Bus services
	HotReload   bool           // Watch ConfigPath
	LogLevel    *slog.LevelVar // Updated on reload when set
}

// Daemon owns the scheduler and everything wired around it. All scheduler
// access happens on the main loop.
type Daemon struct {
	logger *slog.Logger
	opts   Options

	mu  sync.RWMutex
	cfg *config.DaemonConfig

	loop    *mainloop.Loop
	sched   *scheduler.Scheduler
	screens *scheduler.Screens

	journal  *store.Store
	state    *store.SharedState
	audio    *audio.Manager
	notifier *InternalNotifier
	watcher  *ConfigWatcher

	// Loop-owned.
	timers  map[string]*time.Timer
	trigger store.Trigger

	notifications *notificationMap
	control       *dbus.ControlService
	server        *dbus.NotificationServer
	monitor       *dbus.Monitor
}

var _ dbus.Controller = (*Daemon)(nil)

// New creates a daemon. It opens the journal and restores the shared state
// but starts nothing.
func New(cfg *config.DaemonConfig, opts Options, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.JournalPath == "" {
		opts.JournalPath = config.JournalPath()
	}
	if opts.StatePath == "" {
		opts.StatePath = config.StatePath()
	}

	d := &Daemon{
		logger:        logger,
		opts:          opts,
		cfg:           cfg,
		loop:          mainloop.New(logger),
		timers:        make(map[string]*time.Timer),
		notifications: newNotificationMap(),
	}

	if cfg.Journal.Enabled {
		if err := d.openJournal(cfg.Journal.MaxEntries); err != nil {
			return nil, err
		}
	}

	state, err := store.LoadSharedState(opts.StatePath)
	if err != nil {
		logger.Warn("failed to load shared state", "path", opts.StatePath, "error", err)
		state = store.DefaultSharedState()
	}
	d.state = state

	suspended := false
	switch {
	case cfg.Scheduler.StartSuspended:
		suspended = true
		d.state.SetSuspended(true, store.TriggerStartup, "start_suspended", source)
		d.saveState()
	case cfg.Scheduler.RestoreState:
		suspended = state.Suspended
	}

	screen := cfg.Scheduler.InitialScreen
	if cfg.Scheduler.RestoreState && state.ActiveScreen != "" {
		screen = state.ActiveScreen
	}
	d.screens = scheduler.NewScreens(screen)

	schedOpts := []scheduler.Option{
		scheduler.WithExecutor(d.loop),
		scheduler.WithLogger(logger.With("component", "scheduler")),
		scheduler.WithScreens(d.screens),
		scheduler.WithAutoManagement(cfg.Scheduler.Auto),
		scheduler.WithObserver(scheduler.ObserverFunc(d.onEvent)),
	}
	if suspended {
		schedOpts = append(schedOpts, scheduler.StartSuspended())
	}
	d.sched = scheduler.New(schedOpts...)

	d.audio = audio.NewManager(cfg, logger.With("component", "audio"))

	d.notifier = NewInternalNotifier(logger)
	d.notifier.SetHandler(d.scheduleNotice)

	if opts.HotReload {
		d.watcher = NewConfigWatcher(opts.ConfigPath, logger)
		d.watcher.SetReloadCallback(func(newConfig *config.DaemonConfig) {
			d.loop.Post(func() { d.applyConfig(newConfig) })
		})
		d.watcher.SetErrorCallback(func(err error) {
			d.notifier.NotifyConfigError(err)
		})
	}

	if opts.Bus {
		d.control = dbus.NewControlService(d, logger.With("component", "dbus"))
		switch {
		case cfg.DBus.Notifications:
			d.server = dbus.NewNotificationServer(dbus.ServerInfo{
				Name:        source,
				Vendor:      "popsched",
				Version:     opts.Version,
				SpecVersion: "1.2",
			}, logger.With("component", "notifications"))
			d.server.OnIncoming(d.handleNotification)
			d.server.OnClose(d.handleCloseNotification)
		case cfg.DBus.Monitor:
			d.monitor = dbus.NewMonitor(logger.With("component", "monitor"))
			d.monitor.OnIncoming(d.handleNotification)
		}
	}

	logger.Info("daemon initialized",
		"suspended", suspended,
		"screen", screen,
		"journal", cfg.Journal.Enabled,
		"bus", opts.Bus)
	return d, nil
}

func (d *Daemon) openJournal(maxEntries int) error {
	persistence, err := store.NewJSONLPersistence(d.opts.JournalPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	d.journal = store.NewStore(persistence)
	if err := d.journal.Hydrate(); err != nil {
		d.logger.Warn("failed to hydrate journal", "error", err)
	}
	if removed, err := d.journal.Prune(maxEntries); err != nil {
		d.logger.Warn("failed to prune journal", "error", err)
	} else if removed > 0 {
		d.logger.Info("pruned journal", "removed", removed, "kept", d.journal.Count())
	}
	return nil
}

// Start runs the main loop and starts every configured component.
func (d *Daemon) Start(ctx context.Context) error {
	d.loop.Start(ctx)

	if err := d.audio.Start(ctx); err != nil {
		d.logger.Warn("failed to start audio manager", "error", err)
	}

	if d.watcher != nil {
		if err := d.watcher.Start(ctx, d.config()); err != nil {
			d.logger.Warn("failed to start config watcher", "error", err)
		}
	}

	if d.control != nil {
		if err := d.control.Start(); err != nil {
			d.stopComponents()
			return err
		}
	}
	if d.server != nil {
		if err := d.server.Start(); err != nil {
			d.stopComponents()
			return err
		}
	}
	if d.monitor != nil {
		if err := d.monitor.Start(); err != nil {
			d.logger.Warn("failed to start D-Bus monitor", "error", err)
		}
	}

	d.logger.Info("popschedd ready")
	return nil
}

// Stop shuts down all components and waits for the main loop to exit.
func (d *Daemon) Stop() {
	d.stopComponents()
	if d.journal != nil {
		if err := d.journal.Close(); err != nil {
			d.logger.Warn("error closing journal", "error", err)
		}
	}
	d.logger.Info("popschedd stopped")
}

func (d *Daemon) stopComponents() {
	if d.monitor != nil {
		_ = d.monitor.Stop()
	}
	if d.server != nil {
		_ = d.server.Stop()
	}
	if d.control != nil {
		_ = d.control.Stop()
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	d.audio.Stop()
	// Flush loop-owned timers before the loop goes away.
	_ = d.loop.Call(func() {
		for key, t := range d.timers {
			t.Stop()
			delete(d.timers, key)
		}
	})
	d.loop.Stop()
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}

// Journal returns the event journal, or nil when journaling is disabled.
func (d *Daemon) Journal() *store.Store {
	return d.journal
}

func (d *Daemon) config() *config.DaemonConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// newItem builds a scheduler item for content arriving from outside.
func (d *Daemon) newItem(id string, priority model.Priority, n popup.Notice) *scheduler.Item {
	cfg := d.config()
	p := popup.NewTimed(n, cfg.Animation.Show.Duration(), cfg.Animation.Hide.Duration())

	opts := []scheduler.ItemOption{
		scheduler.WithID(id),
		scheduler.WithPriority(priority),
		scheduler.WithPresentation(cfg.Presentation),
	}
	if n.Screen != "" {
		opts = append(opts, scheduler.OnScreen(d.screens, n.Screen))
	}
	return scheduler.NewItem(p, opts...)
}

// scheduleNotice is the InternalNotifier handler.
func (d *Daemon) scheduleNotice(key, title, body string, priority model.Priority) {
	it := d.newItem(source+":"+key, priority, popup.Notice{Title: title, Body: body, Source: source})
	d.loop.Post(func() { d.sched.Schedule(it) })
}

// applyConfig installs a hot-reloaded configuration. Runs on the loop.
func (d *Daemon) applyConfig(cfg *config.DaemonConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	d.sched.SetAutoManagement(cfg.Scheduler.Auto)
	d.audio.UpdateConfig(cfg)
	if d.opts.LogLevel != nil {
		d.opts.LogLevel.Set(cfg.Log.SlogLevel())
	}
	d.logger.Info("applied new configuration", "auto", cfg.Scheduler.Auto.Enabled)
	d.notifier.NotifyConfigReloaded()
}

// withTrigger runs fn on the loop, attributing any suspend transition it
// causes to trigger.
func (d *Daemon) withTrigger(trigger store.Trigger, fn func()) error {
	return d.loop.Call(func() {
		d.trigger = trigger
		fn()
		d.trigger = ""
	})
}

// onEvent observes every scheduler transition. Runs on the loop.
func (d *Daemon) onEvent(ev model.Event) {
	if d.journal != nil {
		if err := d.journal.Add(ev); err != nil {
			d.logger.Warn("failed to journal event", "kind", ev.Kind, "error", err)
		}
	}

	switch ev.Kind {
	case model.EventShown:
		d.notifications.setStatus(ev.Key, notificationActive)
		d.startTimeout(ev.Key, ev.Priority)
		d.playChime(ev.Priority)
		d.state.UpdateLastShown()
		d.saveState()
		if d.control != nil {
			if err := d.control.EmitPopupShown(ev.Key, ev.Priority, ev.Title); err != nil {
				d.logger.Debug("failed to emit PopupShown", "error", err)
			}
		}

	case model.EventCoalesced:
		// Fresh content gets a fresh timeout.
		if _, running := d.timers[ev.Key]; running {
			d.startTimeout(ev.Key, ev.Priority)
		}

	case model.EventInterrupted, model.EventReclaimed:
		d.stopTimeout(ev.Key)
		d.notifications.setStatus(ev.Key, notificationPending)

	case model.EventHidden:
		d.stopTimeout(ev.Key)
		if d.control != nil {
			if err := d.control.EmitPopupHidden(ev.Key, ev.Reason); err != nil {
				d.logger.Debug("failed to emit PopupHidden", "error", err)
			}
		}
		if !d.queued(ev.Key) {
			d.closeNotification(ev.Key, dbus.CloseReasonFor(ev.Reason))
		}

	case model.EventRemoved:
		d.closeNotification(ev.Key, dbus.CloseReasonFor(ev.Reason))

	case model.EventCleared:
		var current string
		if cur := d.sched.Current(); cur != nil {
			current = cur.Key()
		}
		for _, key := range d.notifications.pending() {
			if key != current {
				d.closeNotification(key, dbus.CloseReasonDismissed)
			}
		}

	case model.EventSuspended, model.EventResumed:
		trigger := d.trigger
		if trigger == "" {
			trigger = store.TriggerJump
		}
		suspended := ev.Kind == model.EventSuspended
		d.state.SetSuspended(suspended, trigger, string(ev.Kind), source)
		d.saveState()
	}
}

func (d *Daemon) queued(key string) bool {
	return slices.ContainsFunc(d.sched.Queued(), func(it *scheduler.Item) bool {
		return it.Key() == key
	})
}

// startTimeout arms the display timeout for a shown popup. Runs on the loop.
func (d *Daemon) startTimeout(key string, priority model.Priority) {
	d.stopTimeout(key)
	timeout := d.config().TimeoutFor(priority)
	if requested, ok := d.notifications.timeoutFor(key); ok {
		timeout = requested
	}
	if timeout <= 0 {
		return
	}
	var t *time.Timer
	t = d.loop.PostAfter(timeout, func() {
		if d.timers[key] != t {
			return // stopped after firing
		}
		delete(d.timers, key)
		if d.sched.DismissKey(key) {
			d.logger.Debug("popup timed out", "key", key, "after", timeout)
		}
	})
	d.timers[key] = t
}

func (d *Daemon) stopTimeout(key string) {
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

func (d *Daemon) playChime(priority model.Priority) {
	go func() {
		if err := d.audio.PlayFor(priority); err != nil {
			d.logger.Debug("failed to play chime", "priority", priority, "error", err)
			d.notifier.NotifyAudioError(err)
		}
	}()
}

func (d *Daemon) saveState() {
	if err := store.SaveSharedState(d.opts.StatePath, d.state); err != nil {
		d.logger.Warn("failed to save shared state", "path", d.opts.StatePath, "error", err)
	}
}

// handleNotification feeds a freedesktop notification into the scheduler.
// Called from D-Bus goroutines.
func (d *Daemon) handleNotification(in dbus.Incoming) {
	notice := popup.Notice{Title: in.Title, Body: in.Body, Source: in.Source, Screen: in.Screen}
	it := d.newItem(in.ID, in.Priority, notice)

	d.loop.Post(func() {
		key := d.sched.Schedule(it)
		if key == "" {
			return
		}
		if old, replaced := d.notifications.register(key, in.DBusID, in.Timeout); replaced {
			d.closeDBusID(old, dbus.CloseReasonClosed)
		}
	})
}

// handleCloseNotification withdraws the popup for a closed notification.
// The mapping is dropped, and NotificationClosed sent, by the removed or
// hidden event that follows.
func (d *Daemon) handleCloseNotification(id uint32) {
	d.loop.Post(func() {
		key, ok := d.notifications.keyFor(id)
		if !ok {
			return
		}
		if !d.sched.CloseKey(key, "closed") {
			d.closeNotification(key, dbus.CloseReasonClosed)
		}
	})
}

func (d *Daemon) closeNotification(key string, reason dbus.CloseReason) {
	id, ok := d.notifications.remove(key)
	if !ok {
		return
	}
	d.closeDBusID(id, reason)
}

func (d *Daemon) closeDBusID(id uint32, reason dbus.CloseReason) {
	if d.server == nil {
		return
	}
	if err := d.server.EmitClosed(id, reason); err != nil {
		d.logger.Debug("failed to emit NotificationClosed", "id", id, "error", err)
	}
}

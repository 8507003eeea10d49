package dbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/popsched/internal/model"
)

const (
	// ControlInterface is the popsched control interface name.
	ControlInterface = "io.github.jmylchreest.Popsched"
	// ControlPath is the control object path.
	ControlPath = "/io/github/jmylchreest/Popsched"
	// ControlBusName is the bus name claimed by popschedd.
	ControlBusName = "io.github.jmylchreest.Popsched"
)

// ErrNotConnected is returned when a signal is emitted before Start.
var ErrNotConnected = errors.New("not connected to D-Bus")

// ScheduleRequest carries the arguments of a Schedule call.
type ScheduleRequest struct {
	ID       string
	Priority model.Priority
	Title    string
	Body     string
	Screen   string
}

// Controller is the daemon surface driven by the control service.
// Implementations must be safe to call from D-Bus goroutines.
type Controller interface {
	Schedule(req ScheduleRequest) (string, error)
	Suspend(hideCurrent bool) error
	Resume() error
	Reclaim() error
	Dismiss() error
	ClearQueue() error
	TapBackground() error
	SetActiveScreen(name string) error
	HostWillHide() error
	HostDidShow() error
	Status() (model.Snapshot, error)
}

// ControlService exports a Controller on the session bus.
type ControlService struct {
	ctrl   Controller
	logger *slog.Logger

	mu      sync.Mutex
	conn    *dbus.Conn
	running bool
}

// NewControlService creates a control service backed by ctrl.
func NewControlService(ctrl Controller, logger *slog.Logger) *ControlService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlService{ctrl: ctrl, logger: logger}
}

// Start connects to the session bus, exports the service and claims its name.
func (c *ControlService) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("control service already running")
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if err := controlObject.export(conn, c); err != nil {
		return fmt.Errorf("%w (is popschedd already running?)", err)
	}

	c.conn = conn
	c.running = true
	c.logger.Info("D-Bus control service started", "interface", ControlInterface, "path", ControlPath)
	return nil
}

// Stop releases the bus name and unexports the object.
func (c *ControlService) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	controlObject.release(c.conn, c.logger)
	c.logger.Info("D-Bus control service stopped")
	return nil
}

// Schedule queues a popup.
// D-Bus method: Schedule(sssss) -> s
func (c *ControlService) Schedule(id, priority, title, body, screen string) (string, *dbus.Error) {
	p, err := model.ParsePriority(priority)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	if title == "" && body == "" {
		return "", dbus.MakeFailedError(errors.New("title or body is required"))
	}
	key, err := c.ctrl.Schedule(ScheduleRequest{
		ID:       id,
		Priority: p,
		Title:    title,
		Body:     body,
		Screen:   screen,
	})
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	c.logger.Debug("Schedule called", "id", id, "priority", p, "key", key)
	return key, nil
}

// Suspend stops displaying popups.
// D-Bus method: Suspend(b)
func (c *ControlService) Suspend(hideCurrent bool) *dbus.Error {
	return failed(c.ctrl.Suspend(hideCurrent))
}

// Resume resumes displaying popups.
// D-Bus method: Resume()
func (c *ControlService) Resume() *dbus.Error {
	return failed(c.ctrl.Resume())
}

// Reclaim hides the current popup, keeps it queued and suspends.
// D-Bus method: Reclaim()
func (c *ControlService) Reclaim() *dbus.Error {
	return failed(c.ctrl.Reclaim())
}

// Dismiss hides the current popup.
// D-Bus method: Dismiss()
func (c *ControlService) Dismiss() *dbus.Error {
	return failed(c.ctrl.Dismiss())
}

// ClearQueue drops every pending popup.
// D-Bus method: ClearQueue()
func (c *ControlService) ClearQueue() *dbus.Error {
	return failed(c.ctrl.ClearQueue())
}

// TapBackground reports a tap outside the current popup.
// D-Bus method: TapBackground()
func (c *ControlService) TapBackground() *dbus.Error {
	return failed(c.ctrl.TapBackground())
}

// SetActiveScreen changes the screen used by screen conditions.
// D-Bus method: SetActiveScreen(s)
func (c *ControlService) SetActiveScreen(name string) *dbus.Error {
	return failed(c.ctrl.SetActiveScreen(name))
}

// HostWillHide reports that the host surface is about to disappear.
// D-Bus method: HostWillHide()
func (c *ControlService) HostWillHide() *dbus.Error {
	return failed(c.ctrl.HostWillHide())
}

// HostDidShow reports that the host surface became visible.
// D-Bus method: HostDidShow()
func (c *ControlService) HostDidShow() *dbus.Error {
	return failed(c.ctrl.HostDidShow())
}

// Status returns the scheduler snapshot as JSON.
// D-Bus method: Status() -> s
func (c *ControlService) Status() (string, *dbus.Error) {
	snap, err := c.ctrl.Status()
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", dbus.MakeFailedError(fmt.Errorf("failed to encode status: %w", err))
	}
	return string(data), nil
}

// EmitPopupShown emits the PopupShown signal.
func (c *ControlService) EmitPopupShown(key string, priority model.Priority, title string) error {
	return c.emit("PopupShown", key, priority.String(), title)
}

// EmitPopupHidden emits the PopupHidden signal.
func (c *ControlService) EmitPopupHidden(key, reason string) error {
	return c.emit("PopupHidden", key, reason)
}

func (c *ControlService) emit(name string, args ...any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	return controlObject.emit(conn, name, args...)
}

var controlObject = objectSpec{
	path:    ControlPath,
	iface:   ControlInterface,
	busName: ControlBusName,
	methods: []introspect.Method{
		method("Schedule",
			in("id", "s"), in("priority", "s"), in("title", "s"),
			in("body", "s"), in("screen", "s"), out("key", "s")),
		method("Suspend", in("hide_current", "b")),
		method("Resume"),
		method("Reclaim"),
		method("Dismiss"),
		method("ClearQueue"),
		method("TapBackground"),
		method("SetActiveScreen", in("screen", "s")),
		method("HostWillHide"),
		method("HostDidShow"),
		method("Status", out("snapshot", "s")),
	},
	signals: []introspect.Signal{
		signal("PopupShown", arg("key", "s"), arg("priority", "s"), arg("title", "s")),
		signal("PopupHidden", arg("key", "s"), arg("reason", "s")),
	},
}

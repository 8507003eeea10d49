package dbus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	// NotificationsInterface is the notification interface name.
	NotificationsInterface = "org.freedesktop.Notifications"
	// NotificationsPath is the notification object path.
	NotificationsPath = "/org/freedesktop/Notifications"
	// NotificationsBusName is the bus name to claim.
	NotificationsBusName = "org.freedesktop.Notifications"
)

// IncomingHandler receives notifications translated into popups.
type IncomingHandler func(n Incoming)

// CloseHandler receives CloseNotification requests. Closing an id the
// daemon no longer tracks is the handler's no-op.
type CloseHandler func(id uint32)

var notificationsObject = objectSpec{
	path:    NotificationsPath,
	iface:   NotificationsInterface,
	busName: NotificationsBusName,
	flags:   dbus.NameFlagReplaceExisting,
	methods: []introspect.Method{
		method("GetCapabilities", out("capabilities", "as")),
		method("GetServerInformation",
			out("name", "s"), out("vendor", "s"), out("version", "s"), out("spec_version", "s")),
		method("Notify",
			in("app_name", "s"), in("replaces_id", "u"), in("app_icon", "s"),
			in("summary", "s"), in("body", "s"), in("actions", "as"),
			in("hints", "a{sv}"), in("expire_timeout", "i"), out("id", "u")),
		method("CloseNotification", in("id", "u")),
	},
	signals: []introspect.Signal{
		signal("NotificationClosed", arg("id", "u"), arg("reason", "u")),
	},
}

// NotificationServer owns org.freedesktop.Notifications and turns every
// Notify call into a popup for the scheduler. It keeps no notification
// state; the daemon tracks which ids are still queued or displayed and
// reports their end through EmitClosed.
type NotificationServer struct {
	logger *slog.Logger
	info   ServerInfo
	nextID atomic.Uint32

	onIncoming IncomingHandler
	onClose    CloseHandler

	mu   sync.Mutex
	conn *dbus.Conn
}

// NewNotificationServer creates a server reporting info.
func NewNotificationServer(info ServerInfo, logger *slog.Logger) *NotificationServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationServer{logger: logger, info: info}
}

// OnIncoming sets the handler for translated notifications.
func (s *NotificationServer) OnIncoming(h IncomingHandler) { s.onIncoming = h }

// OnClose sets the handler for CloseNotification.
func (s *NotificationServer) OnClose(h CloseHandler) { s.onClose = h }

// Start exports the server on the shared session bus connection.
func (s *NotificationServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return fmt.Errorf("notification server already running")
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if err := notificationsObject.export(conn, s); err != nil {
		return err
	}
	s.conn = conn
	s.logger.Info("D-Bus notification server started", "name", NotificationsBusName)
	return nil
}

// Stop releases the bus name. The shared connection stays open.
func (s *NotificationServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	notificationsObject.release(s.conn, s.logger)
	s.conn = nil
	s.logger.Info("D-Bus notification server stopped")
	return nil
}

// GetCapabilities is the D-Bus GetCapabilities method.
func (s *NotificationServer) GetCapabilities() ([]string, *dbus.Error) {
	return ServerCapabilities, nil
}

// GetServerInformation is the D-Bus GetServerInformation method.
func (s *NotificationServer) GetServerInformation() (string, string, string, string, *dbus.Error) {
	return s.info.Name, s.info.Vendor, s.info.Version, s.info.SpecVersion, nil
}

// Notify is the D-Bus Notify method. The returned id is replaces_id when
// the sender updates an earlier notification, otherwise a fresh one.
func (s *NotificationServer) Notify(
	appName string,
	replacesID uint32,
	appIcon string,
	summary string,
	body string,
	actions []string,
	hints map[string]dbus.Variant,
	expireTimeout int32,
) (uint32, *dbus.Error) {
	id := replacesID
	if id == 0 {
		id = s.nextID.Add(1)
	}

	n := &DBusNotification{
		AppName:       appName,
		ReplacesID:    replacesID,
		AppIcon:       appIcon,
		Summary:       summary,
		Body:          body,
		Actions:       actions,
		Hints:         hints,
		ExpireTimeout: expireTimeout,
	}
	incoming := n.Incoming(id)
	s.logger.Debug("notification received",
		"id", id,
		"popup_id", incoming.ID,
		"priority", incoming.Priority,
		"source", incoming.Source)

	if s.onIncoming != nil {
		s.onIncoming(incoming)
	}
	return id, nil
}

// CloseNotification is the D-Bus CloseNotification method. The
// NotificationClosed signal follows once the popup is gone.
func (s *NotificationServer) CloseNotification(id uint32) *dbus.Error {
	s.logger.Debug("close requested", "id", id)
	if s.onClose != nil {
		s.onClose(id)
	}
	return nil
}

// EmitClosed emits NotificationClosed for id.
func (s *NotificationServer) EmitClosed(id uint32, reason CloseReason) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if err := notificationsObject.emit(conn, "NotificationClosed", id, uint32(reason)); err != nil {
		return err
	}
	s.logger.Debug("emitted NotificationClosed", "id", id, "reason", reason)
	return nil
}

package dbus

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// Monitor passively observes D-Bus notification traffic without claiming ownership.
// This allows popsched to pace popups while another daemon (like dunst) owns
// org.freedesktop.Notifications.
type Monitor struct {
	conn   *dbus.Conn
	logger *slog.Logger

	onIncoming IncomingHandler
}

// NewMonitor creates a new notification monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger: logger,
	}
}

// OnIncoming sets the handler for observed notifications.
func (m *Monitor) OnIncoming(h IncomingHandler) {
	m.onIncoming = h
}

// Start begins monitoring D-Bus for notification traffic.
func (m *Monitor) Start() error {
	// A monitor connection cannot be used for anything else, so it is private.
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m.conn = conn

	rules := []string{
		"type='method_call',interface='org.freedesktop.Notifications',member='Notify'",
	}
	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		rules,
		uint32(0),
	).Err
	if err != nil {
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		return m.startWithAddMatch()
	}

	m.logger.Info("started D-Bus monitor using BecomeMonitor")
	go m.processMessages()
	return nil
}

// startWithAddMatch uses the older AddMatch API for eavesdropping.
func (m *Monitor) startWithAddMatch() error {
	matchRule := "type='method_call',interface='org.freedesktop.Notifications',member='Notify',eavesdrop='true'"

	if err := m.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
	}

	m.logger.Info("started D-Bus monitor using AddMatch with eavesdrop")
	go m.processMessages()
	return nil
}

func (m *Monitor) processMessages() {
	ch := make(chan *dbus.Message, 100)
	m.conn.Eavesdrop(ch)

	for msg := range ch {
		if msg.Type != dbus.TypeMethodCall {
			continue
		}
		if msg.Headers[dbus.FieldInterface].Value() != NotificationsInterface {
			continue
		}
		if msg.Headers[dbus.FieldMember].Value() != "Notify" {
			continue
		}
		m.handleNotify(msg.Body)
	}
}

func (m *Monitor) handleNotify(body []any) {
	notification, err := parseNotify(body)
	if err != nil {
		m.logger.Warn("malformed Notify call", "error", err)
		return
	}

	incoming := notification.Incoming(monitorID(notification))
	m.logger.Debug("observed notification",
		"app", notification.AppName,
		"popup_id", incoming.ID,
		"priority", incoming.Priority)

	if m.onIncoming != nil {
		m.onIncoming(incoming)
	}
}

var errMalformedNotify = errors.New("malformed Notify body")

// parseNotify decodes Notify(app_name, replaces_id, app_icon, summary, body,
// actions, hints, expire_timeout).
func parseNotify(body []any) (*DBusNotification, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("%w: %d arguments", errMalformedNotify, len(body))
	}

	n := &DBusNotification{}
	var ok bool
	if n.AppName, ok = body[0].(string); !ok {
		return nil, fmt.Errorf("%w: app_name", errMalformedNotify)
	}
	if n.ReplacesID, ok = body[1].(uint32); !ok {
		return nil, fmt.Errorf("%w: replaces_id", errMalformedNotify)
	}
	if n.AppIcon, ok = body[2].(string); !ok {
		return nil, fmt.Errorf("%w: app_icon", errMalformedNotify)
	}
	if n.Summary, ok = body[3].(string); !ok {
		return nil, fmt.Errorf("%w: summary", errMalformedNotify)
	}
	if n.Body, ok = body[4].(string); !ok {
		return nil, fmt.Errorf("%w: body", errMalformedNotify)
	}
	if actions, ok := body[5].([]string); ok {
		n.Actions = actions
	}
	if hints, ok := body[6].(map[string]dbus.Variant); ok {
		n.Hints = hints
	}
	if timeout, ok := body[7].(int32); ok {
		n.ExpireTimeout = timeout
	}
	return n, nil
}

// monitorID derives an id for an observed notification. The owning daemon's
// reply is not visible, so replaces_id is used when set and otherwise the
// app and summary are hashed, which coalesces repeats of the same message.
func monitorID(n *DBusNotification) uint32 {
	if n.ReplacesID > 0 {
		return n.ReplacesID
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(n.AppName))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(n.Summary))
	if id := h.Sum32(); id != 0 {
		return id
	}
	return 1
}

// Stop closes the monitor connection.
func (m *Monitor) Stop() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

package dbus

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/popsched/internal/model"
)

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved by the notification protocol.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// CloseReasonFor maps a scheduler hide reason to a freedesktop close reason.
func CloseReasonFor(hideReason string) CloseReason {
	switch hideReason {
	case "expired":
		return CloseReasonExpired
	case "dismissed", "background tap":
		return CloseReasonDismissed
	case "":
		return CloseReasonUndefined
	default:
		return CloseReasonClosed
	}
}

// Urgency levels carried in the urgency hint.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// Hints understood beyond the freedesktop set.
const (
	// PriorityHint selects a scheduler priority directly.
	PriorityHint = "x-popsched-priority"
	// ScreenHint restricts the popup to a host screen.
	ScreenHint = "x-popsched-screen"
)

// DBusNotification represents an incoming D-Bus Notify call.
// It contains the raw parameters from the org.freedesktop.Notifications.Notify method.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Urgency extracts the urgency hint from the notification.
// Returns UrgencyNormal if not specified.
func (n *DBusNotification) Urgency() byte {
	if v, ok := n.Hints["urgency"]; ok {
		switch u := v.Value().(type) {
		case byte:
			return u
		case int32:
			return byte(u)
		case uint32:
			return byte(u)
		}
	}
	return UrgencyNormal
}

// Priority returns the scheduler priority for the notification.
// The x-popsched-priority hint wins over the urgency hint; an unparsable
// hint falls back to urgency.
func (n *DBusNotification) Priority() model.Priority {
	if s := n.stringHint(PriorityHint); s != "" {
		if p, err := model.ParsePriority(s); err == nil {
			return p
		}
	}
	switch n.Urgency() {
	case UrgencyLow:
		return model.PriorityLow
	case UrgencyCritical:
		return model.PriorityHigh
	default:
		return model.PriorityMiddle
	}
}

// Category extracts the category hint from the notification.
func (n *DBusNotification) Category() string {
	return n.stringHint("category")
}

// DesktopEntry extracts the desktop-entry hint.
func (n *DBusNotification) DesktopEntry() string {
	return n.stringHint("desktop-entry")
}

// StackTag extracts the stack-tag hint for notification grouping.
// Notifications with the same stack-tag should replace each other.
// This is used by dunstify with the -h string:x-dunst-stack-tag:TAG option.
func (n *DBusNotification) StackTag() string {
	if s := n.stringHint("x-dunst-stack-tag"); s != "" {
		return s
	}
	return n.stringHint("stack-tag")
}

// Title returns the text shown as the popup title.
func (n *DBusNotification) Title() string {
	if n.Summary != "" {
		return n.Summary
	}
	return n.AppName
}

// Source names the sender for journal and log output.
func (n *DBusNotification) Source() string {
	if e := n.DesktopEntry(); e != "" {
		return e
	}
	return n.AppName
}

func (n *DBusNotification) stringHint(key string) string {
	if v, ok := n.Hints[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// CoalescingID returns the scheduler id for a notification assigned the
// given D-Bus id. A stack tag groups across ids; otherwise a later Notify
// with replaces_id set to this id coalesces with it.
func CoalescingID(n *DBusNotification, id uint32) string {
	if tag := n.StackTag(); tag != "" {
		return "stack:" + tag
	}
	return NotificationID(id)
}

// NotificationID is the scheduler id used for a freedesktop notification id.
func NotificationID(id uint32) string {
	return fmt.Sprintf("notify:%d", id)
}

// Incoming is a notification translated into a popup request.
type Incoming struct {
	DBusID   uint32 // id handed back to the sender
	ID       string // coalescing id
	Priority model.Priority
	Title    string
	Body     string
	Source   string
	Screen   string
	Timeout  time.Duration // sender's expire_timeout; 0 = daemon default
}

// Incoming translates n, assigned the D-Bus id, into a popup request.
func (n *DBusNotification) Incoming(id uint32) Incoming {
	var timeout time.Duration
	if n.ExpireTimeout > 0 {
		timeout = time.Duration(n.ExpireTimeout) * time.Millisecond
	}
	return Incoming{
		DBusID:   id,
		ID:       CoalescingID(n, id),
		Priority: n.Priority(),
		Title:    n.Title(),
		Body:     n.Body,
		Source:   n.Source(),
		Screen:   n.stringHint(ScreenHint),
		Timeout:  timeout,
	}
}

// ServerCapabilities lists the capabilities advertised by popschedd.
var ServerCapabilities = []string{
	"body",
	"persistence",
	"sound",
	PriorityHint,
	ScreenHint,
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string // "popschedd"
	Vendor      string // "popsched"
	Version     string // Build version
	SpecVersion string // "1.2"
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "popschedd",
		Vendor:      "popsched",
		Version:     "0.0.1",
		SpecVersion: "1.2",
	}
}

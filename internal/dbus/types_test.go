package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/popsched/internal/model"
)

func TestCloseReasonString(t *testing.T) {
	tests := []struct {
		reason   CloseReason
		expected string
	}{
		{CloseReasonExpired, "expired"},
		{CloseReasonDismissed, "dismissed"},
		{CloseReasonClosed, "closed"},
		{CloseReasonUndefined, "undefined"},
		{CloseReason(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.reason.String())
		})
	}
}

func TestCloseReasonFor(t *testing.T) {
	assert.Equal(t, CloseReasonExpired, CloseReasonFor("expired"))
	assert.Equal(t, CloseReasonDismissed, CloseReasonFor("dismissed"))
	assert.Equal(t, CloseReasonDismissed, CloseReasonFor("background tap"))
	assert.Equal(t, CloseReasonClosed, CloseReasonFor("suspended"))
	assert.Equal(t, CloseReasonClosed, CloseReasonFor("interrupted"))
	assert.Equal(t, CloseReasonUndefined, CloseReasonFor(""))
}

func TestNotificationPriority(t *testing.T) {
	tests := []struct {
		name     string
		hints    map[string]dbus.Variant
		expected model.Priority
	}{
		{"no hints", nil, model.PriorityMiddle},
		{"low urgency", map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(0))}, model.PriorityLow},
		{"normal urgency", map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(1))}, model.PriorityMiddle},
		{"critical urgency", map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))}, model.PriorityHigh},
		{"int32 urgency", map[string]dbus.Variant{"urgency": dbus.MakeVariant(int32(2))}, model.PriorityHigh},
		{
			name: "hint overrides urgency",
			hints: map[string]dbus.Variant{
				"urgency":    dbus.MakeVariant(byte(0)),
				PriorityHint: dbus.MakeVariant("emergency"),
			},
			expected: model.PriorityEmergency,
		},
		{
			name: "invalid hint falls back",
			hints: map[string]dbus.Variant{
				"urgency":    dbus.MakeVariant(byte(2)),
				PriorityHint: dbus.MakeVariant("urgent"),
			},
			expected: model.PriorityHigh,
		},
		{"wrong hint type", map[string]dbus.Variant{PriorityHint: dbus.MakeVariant(3)}, model.PriorityMiddle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &DBusNotification{Hints: tt.hints}
			assert.Equal(t, tt.expected, n.Priority())
		})
	}
}

func TestStackTag(t *testing.T) {
	n := &DBusNotification{Hints: map[string]dbus.Variant{"x-dunst-stack-tag": dbus.MakeVariant("volume")}}
	assert.Equal(t, "volume", n.StackTag())

	n = &DBusNotification{Hints: map[string]dbus.Variant{"stack-tag": dbus.MakeVariant("brightness")}}
	assert.Equal(t, "brightness", n.StackTag())

	assert.Empty(t, (&DBusNotification{}).StackTag())
}

func TestCoalescingID(t *testing.T) {
	plain := &DBusNotification{Summary: "hello"}
	assert.Equal(t, "notify:7", CoalescingID(plain, 7))
	assert.Equal(t, NotificationID(7), CoalescingID(plain, 7))

	tagged := &DBusNotification{Hints: map[string]dbus.Variant{"x-dunst-stack-tag": dbus.MakeVariant("volume")}}
	assert.Equal(t, "stack:volume", CoalescingID(tagged, 7))
	assert.Equal(t, CoalescingID(tagged, 7), CoalescingID(tagged, 8))
}

func TestTitleAndSource(t *testing.T) {
	n := &DBusNotification{AppName: "firefox", Summary: "Download complete"}
	assert.Equal(t, "Download complete", n.Title())
	assert.Equal(t, "firefox", n.Source())

	n = &DBusNotification{
		AppName: "firefox",
		Hints:   map[string]dbus.Variant{"desktop-entry": dbus.MakeVariant("org.mozilla.firefox")},
	}
	assert.Equal(t, "firefox", n.Title())
	assert.Equal(t, "org.mozilla.firefox", n.Source())
}

func TestDefaultServerInfo(t *testing.T) {
	info := DefaultServerInfo()
	assert.Equal(t, "popschedd", info.Name)
	assert.Equal(t, "1.2", info.SpecVersion)
	assert.Contains(t, ServerCapabilities, PriorityHint)
}

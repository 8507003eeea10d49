package daemon

import (
	"sync"
	"time"
)

// notificationStatus is the scheduler-side state of a freedesktop notification.
type notificationStatus int

const (
	notificationPending notificationStatus = iota
	notificationActive
)

func (s notificationStatus) String() string {
	switch s {
	case notificationPending:
		return "pending"
	case notificationActive:
		return "active"
	default:
		return "unknown"
	}
}

// trackedNotification ties a scheduler key to the D-Bus id handed to the sender.
type trackedNotification struct {
	Key       string
	DBusID    uint32
	Status    notificationStatus
	Timeout   time.Duration // sender's expire_timeout; 0 = configured
	CreatedAt time.Time
}

// notificationMap maps between scheduler keys and D-Bus notification ids.
type notificationMap struct {
	mu sync.RWMutex

	byKey    map[string]*trackedNotification
	byDBusID map[uint32]string
}

func newNotificationMap() *notificationMap {
	return &notificationMap{
		byKey:    make(map[string]*trackedNotification),
		byDBusID: make(map[uint32]string),
	}
}

// register records that key now represents dbusID. When the key already
// stood for a different id (the notification was coalesced into an entry
// from another sender id) that id is returned so it can be closed.
func (m *notificationMap) register(key string, dbusID uint32, timeout time.Duration) (replaced uint32, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := notificationPending
	if old, exists := m.byKey[key]; exists {
		status = old.Status
		if old.DBusID != dbusID {
			delete(m.byDBusID, old.DBusID)
			replaced, ok = old.DBusID, true
		}
	}
	if prevKey, exists := m.byDBusID[dbusID]; exists && prevKey != key {
		delete(m.byKey, prevKey)
	}

	m.byKey[key] = &trackedNotification{
		Key:       key,
		DBusID:    dbusID,
		Status:    status,
		Timeout:   timeout,
		CreatedAt: time.Now(),
	}
	m.byDBusID[dbusID] = key
	return replaced, ok
}

func (m *notificationMap) keyFor(dbusID uint32) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.byDBusID[dbusID]
	return key, ok
}

func (m *notificationMap) idFor(key string) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.byKey[key]
	if !ok {
		return 0, false
	}
	return n.DBusID, true
}

// timeoutFor returns the display timeout the sender asked for, if any.
func (m *notificationMap) timeoutFor(key string) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.byKey[key]
	if !ok || n.Timeout <= 0 {
		return 0, false
	}
	return n.Timeout, true
}

func (m *notificationMap) setStatus(key string, status notificationStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.byKey[key]; ok {
		n.Status = status
	}
}

// remove forgets key and returns its D-Bus id.
func (m *notificationMap) remove(key string) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byKey[key]
	if !ok {
		return 0, false
	}
	delete(m.byKey, key)
	delete(m.byDBusID, n.DBusID)
	return n.DBusID, true
}

// pending returns the keys of notifications not yet shown.
func (m *notificationMap) pending() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key, n := range m.byKey {
		if n.Status == notificationPending {
			keys = append(keys, key)
		}
	}
	return keys
}

func (m *notificationMap) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byKey)
}

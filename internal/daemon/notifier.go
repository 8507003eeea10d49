package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/popsched/internal/model"
)

// NoticeHandler schedules an internal popup. key identifies the kind of
// notice so repeats coalesce in the queue.
type NoticeHandler func(key, title, body string, priority model.Priority)

// InternalNotifier handles popups about popschedd's own events.
// Repeats of the same notice are rate limited to prevent floods.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	handler NoticeHandler

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
	now            func() time.Time

	enabled bool
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		now:            time.Now,
		enabled:        true,
	}
}

// SetHandler sets the function that schedules notices.
func (n *InternalNotifier) SetHandler(handler NoticeHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handler = handler
}

// SetEnabled enables or disables internal notices.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notices with the same key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify schedules a notice unless one with the same key was sent within
// the minimum interval. It reports whether the notice was sent.
func (n *InternalNotifier) Notify(key, title, body string, priority model.Priority) bool {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return false
	}
	handler := n.handler
	if handler == nil {
		n.mu.Unlock()
		n.logger.Debug("internal notice skipped: no handler", "title", title)
		return false
	}

	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notice rate-limited", "key", key, "title", title)
		return false
	}
	n.lastNotifyTime[key] = now
	n.mu.Unlock()

	n.logger.Debug("sending internal notice", "key", key, "title", title, "priority", priority)
	handler(key, title, body, priority)
	return true
}

// NotifyConfigReloaded reports a successful configuration reload.
func (n *InternalNotifier) NotifyConfigReloaded() bool {
	return n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"popschedd configuration has been reloaded.",
		model.PriorityLow,
	)
}

// NotifyConfigError reports a configuration file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) bool {
	return n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		model.PriorityHigh,
	)
}

// NotifyAudioError reports a chime that failed to play.
func (n *InternalNotifier) NotifyAudioError(err error) bool {
	return n.Notify(
		"audio-error",
		"Audio Error",
		"Failed to play popup sound: "+err.Error(),
		model.PriorityMiddle,
	)
}

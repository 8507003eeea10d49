package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popsched/internal/model"
)

type sentNotice struct {
	key, title, body string
	priority         model.Priority
}

func newTestNotifier() (*InternalNotifier, *[]sentNotice, *time.Time) {
	n := NewInternalNotifier(quietLogger())
	var sent []sentNotice
	n.SetHandler(func(key, title, body string, p model.Priority) {
		sent = append(sent, sentNotice{key, title, body, p})
	})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }
	return n, &sent, &now
}

func TestInternalNotifier_RateLimits(t *testing.T) {
	n, sent, now := newTestNotifier()

	assert.True(t, n.NotifyConfigError(errors.New("bad toml")))
	assert.False(t, n.NotifyConfigError(errors.New("still bad")))
	assert.True(t, n.NotifyConfigReloaded(), "different keys are limited separately")

	*now = now.Add(6 * time.Second)
	assert.True(t, n.NotifyConfigError(errors.New("bad again")))

	require.Len(t, *sent, 3)
	assert.Equal(t, "config-error", (*sent)[0].key)
	assert.Equal(t, model.PriorityHigh, (*sent)[0].priority)
	assert.Contains(t, (*sent)[0].body, "bad toml")
	assert.Equal(t, model.PriorityLow, (*sent)[1].priority)
	assert.Contains(t, (*sent)[2].body, "bad again")
}

func TestInternalNotifier_MinInterval(t *testing.T) {
	n, sent, _ := newTestNotifier()
	n.SetMinInterval(0)

	n.NotifyAudioError(errors.New("no device"))
	n.NotifyAudioError(errors.New("no device"))
	require.Len(t, *sent, 2)
	assert.Equal(t, model.PriorityMiddle, (*sent)[0].priority)
}

func TestInternalNotifier_DisabledOrUnwired(t *testing.T) {
	n, sent, _ := newTestNotifier()
	n.SetEnabled(false)
	assert.False(t, n.NotifyConfigReloaded())
	assert.Empty(t, *sent)

	bare := NewInternalNotifier(nil)
	assert.False(t, bare.NotifyConfigReloaded())
}

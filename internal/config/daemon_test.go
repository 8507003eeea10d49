package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/scheduler"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"250ms", 250 * time.Millisecond},
		{"5s", 5 * time.Second},
		{"1m30s", 90 * time.Second},
		{"1500", 1500 * time.Millisecond},
		{"0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			require.NoError(t, d.UnmarshalText([]byte(tt.in)))
			assert.Equal(t, tt.want, d.Duration())
		})
	}

	var d Duration
	assert.Error(t, d.UnmarshalText([]byte("later")))
}

func TestDefaultDaemonConfig(t *testing.T) {
	cfg := DefaultDaemonConfig()

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Scheduler.RestoreState)
	assert.False(t, cfg.Scheduler.Auto.Enabled)
	assert.Equal(t, scheduler.DefaultPresentation(), cfg.Presentation)
	assert.Equal(t, 5000, cfg.Journal.MaxEntries)
	assert.Equal(t, time.Duration(0), cfg.TimeoutFor(model.PriorityEmergency))
	assert.Equal(t, 5*time.Second, cfg.TimeoutFor(model.PriorityLow))
}

func TestLoadDaemonConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popschedd.toml")
	content := `
[scheduler]
start_suspended = true
initial_screen = "home"

[scheduler.auto]
enabled = true
suspend_on_hide = false

[animation]
show = "100ms"
hide = "50"

[timeouts]
middle = "3s"
emergency = "1m"

[presentation]
background_color = "#112233"
dismiss_on_background_tap = false

[presentation.position]
kind = "top"
offset = 24

[audio.sounds]
high = "~/sounds/high.wav"

[dbus]
notifications = true

[journal]
max_entries = 10

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadDaemonConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Scheduler.StartSuspended)
	assert.True(t, cfg.Scheduler.RestoreState)
	assert.Equal(t, "home", cfg.Scheduler.InitialScreen)
	assert.True(t, cfg.Scheduler.Auto.Enabled)
	assert.False(t, cfg.Scheduler.Auto.SuspendOnHide)
	assert.True(t, cfg.Scheduler.Auto.ResumeOnShow)
	assert.Equal(t, 100*time.Millisecond, cfg.Animation.Show.Duration())
	assert.Equal(t, 50*time.Millisecond, cfg.Animation.Hide.Duration())
	assert.Equal(t, 3*time.Second, cfg.TimeoutFor(model.PriorityMiddle))
	assert.Equal(t, time.Minute, cfg.TimeoutFor(model.PriorityEmergency))
	assert.Equal(t, 15*time.Second, cfg.TimeoutFor(model.PriorityHigh))
	assert.Equal(t, "#112233", cfg.Presentation.BackgroundColor)
	assert.True(t, cfg.Presentation.ShowBackground)
	assert.False(t, cfg.Presentation.DismissOnBackgroundTap)
	assert.Equal(t, scheduler.PositionTop, cfg.Presentation.Position.Kind)
	assert.Equal(t, 24.0, cfg.Presentation.Position.Offset)
	assert.True(t, cfg.DBus.Notifications)
	assert.Equal(t, 10, cfg.Journal.MaxEntries)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "sounds/high.wav"), cfg.SoundFor(model.PriorityHigh))
	assert.Empty(t, cfg.SoundFor(model.PriorityLow))
}

func TestLoadDaemonConfig_Missing(t *testing.T) {
	cfg, err := LoadDaemonConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDaemonConfig(), cfg)
}

func TestDaemonConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DaemonConfig)
	}{
		{"bad position", func(c *DaemonConfig) { c.Presentation.Position.Kind = "left" }},
		{"empty rect", func(c *DaemonConfig) { c.Presentation.Position.Kind = scheduler.PositionRect }},
		{"bad color", func(c *DaemonConfig) { c.Presentation.BackgroundColor = "black" }},
		{"negative animation", func(c *DaemonConfig) { c.Animation.Show = Duration(-time.Second) }},
		{"negative timeout", func(c *DaemonConfig) { c.Timeouts.High = Duration(-time.Second) }},
		{"volume", func(c *DaemonConfig) { c.Audio.Volume = 101 }},
		{"max entries", func(c *DaemonConfig) { c.Journal.MaxEntries = -1 }},
		{"server and monitor", func(c *DaemonConfig) { c.DBus.Notifications, c.DBus.Monitor = true, true }},
		{"log level", func(c *DaemonConfig) { c.Log.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDaemonConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultDaemonConfig()
	cfg.Presentation.Position = scheduler.Position{
		Kind: scheduler.PositionRect,
		Rect: scheduler.Rect{X: 10, Y: 10, Width: 200, Height: 80},
	}
	assert.NoError(t, cfg.Validate())
}

func TestSaveDaemonConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "popschedd.toml")
	cfg := DefaultDaemonConfig()
	cfg.Timeouts.Low = Duration(2 * time.Second)
	cfg.DBus.Notifications = true

	require.NoError(t, SaveDaemonConfig(path, cfg))

	loaded, err := LoadDaemonConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, loaded.TimeoutFor(model.PriorityLow))
	assert.True(t, loaded.DBus.Notifications)
}

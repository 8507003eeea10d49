package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "24h", cfg.History.Since)
	assert.Equal(t, 0, cfg.History.Limit)
	assert.Equal(t, "plain", cfg.History.Format)
	assert.Equal(t, "low", cfg.Push.Priority)
	assert.Equal(t, 500*time.Millisecond, cfg.TUI.RefreshInterval.Duration())
	assert.True(t, cfg.TUI.ShowHelp)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().History.Since, cfg.History.Since)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[history]
since = "1h"
limit = 20
format = "yaml"

[push]
priority = "high"
screen = "home"

[tui]
refresh_interval = "2s"
show_help = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "1h", cfg.History.Since)
	assert.Equal(t, 20, cfg.History.Limit)
	assert.Equal(t, "yaml", cfg.History.Format)
	assert.Equal(t, "high", cfg.Push.Priority)
	assert.Equal(t, "home", cfg.Push.Screen)
	assert.Equal(t, 2*time.Second, cfg.TUI.RefreshInterval.Duration())
	assert.False(t, cfg.TUI.ShowHelp)
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[history]
since = "1h"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "1h", cfg.History.Since)
	assert.Equal(t, "plain", cfg.History.Format)
	assert.True(t, cfg.TUI.ShowHelp)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", `this is not valid toml [`},
		{"bad format", "[history]\nformat = \"xml\"\n"},
		{"negative limit", "[history]\nlimit = -1\n"},
		{"refresh too fast", "[tui]\nrefresh_interval = \"1ms\"\n"},
		{"bad duration", "[tui]\nrefresh_interval = \"soon\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestConfig_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.toml")

	cfg := DefaultConfig()
	cfg.History.Since = "1h"
	cfg.TUI.RefreshInterval = Duration(time.Second)

	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "1h", loaded.History.Since)
	assert.Equal(t, time.Second, loaded.TUI.RefreshInterval.Duration())
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/popsched/config.toml", ConfigPath())
	assert.Equal(t, "/custom/config/popsched/popschedd.toml", DaemonConfigPath())
}

func TestConfigPathDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Contains(t, ConfigPath(), "popsched/config.toml")
}

func TestDataPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data/popsched", DataPath())
	assert.Equal(t, "/custom/data/popsched/events.jsonl", JournalPath())
	assert.Equal(t, "/custom/data/popsched/state.json", StatePath())
}

func TestEnsureDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	require.NoError(t, EnsureDataDir())

	info, err := os.Stat(filepath.Join(dir, "popsched"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultSince           = "24h"
	DefaultHistoryFormat   = "plain"
	DefaultRefreshInterval = 500 * time.Millisecond
)

// Config represents the popsched CLI configuration.
type Config struct {
	History HistoryConfig `toml:"history"`
	Push    PushConfig    `toml:"push"`
	TUI     TUIConfig     `toml:"tui"`
}

// HistoryConfig holds default options for the history command.
type HistoryConfig struct {
	Since  string `toml:"since"`  // Default time filter ("" or "0" = all time)
	Limit  int    `toml:"limit"`  // Max events (0 = unlimited)
	Format string `toml:"format"` // plain, json, yaml
}

// PushConfig holds defaults for the push command.
type PushConfig struct {
	Priority string `toml:"priority"`
	Screen   string `toml:"screen"`
}

// TUIConfig holds watch UI settings.
type TUIConfig struct {
	RefreshInterval Duration `toml:"refresh_interval"`
	ShowHelp        bool     `toml:"show_help"`
	ClipboardCmd    string   `toml:"clipboard_cmd"` // Empty = auto-detect wl-copy, xclip or xsel
}

// HistoryFormats returns the supported history output formats.
func HistoryFormats() []string {
	return []string{"line", "plain", "json", "yaml", "keys"}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		History: HistoryConfig{
			Since:  DefaultSince,
			Limit:  0,
			Format: DefaultHistoryFormat,
		},
		Push: PushConfig{
			Priority: "low",
		},
		TUI: TUIConfig{
			RefreshInterval: Duration(DefaultRefreshInterval),
			ShowHelp:        true,
		},
	}
}

// ConfigDir returns the popsched configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "popsched")
}

// ConfigPath returns the path to the CLI config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "popsched")
}

// JournalPath returns the path to the event journal.
func JournalPath() string {
	return filepath.Join(DataPath(), "events.jsonl")
}

// StatePath returns the path to the shared state file.
func StatePath() string {
	return filepath.Join(DataPath(), "state.json")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	valid := false
	for _, f := range HistoryFormats() {
		if c.History.Format == f {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid history format %q, must be one of: %v", c.History.Format, HistoryFormats())
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history limit must not be negative, got %d", c.History.Limit)
	}
	if c.TUI.RefreshInterval.Duration() < 50*time.Millisecond {
		return fmt.Errorf("refresh_interval must be at least 50ms, got %s", c.TUI.RefreshInterval.Duration())
	}
	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}

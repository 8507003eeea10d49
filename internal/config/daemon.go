package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/popsched/internal/model"
	"github.com/jmylchreest/popsched/internal/scheduler"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "250ms", "1m" or integer milliseconds.
// A value of "0" or 0 means never.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '250ms', '5s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for popschedd.
// Loaded from ~/.config/popsched/popschedd.toml
type DaemonConfig struct {
	Scheduler    SchedulerConfig        `toml:"scheduler"`
	Animation    AnimationConfig        `toml:"animation"`
	Timeouts     TimeoutConfig          `toml:"timeouts"`
	Presentation scheduler.Presentation `toml:"presentation"`
	Audio        AudioConfig            `toml:"audio"`
	DBus         DBusConfig             `toml:"dbus"`
	Journal      JournalConfig          `toml:"journal"`
	Log          LogConfig              `toml:"log"`
}

// SchedulerConfig contains scheduler start-up and lifecycle settings.
type SchedulerConfig struct {
	StartSuspended bool                     `toml:"start_suspended"` // Ignore persisted state and start suspended
	RestoreState   bool                     `toml:"restore_state"`   // Restore the suspend state from state.json
	InitialScreen  string                   `toml:"initial_screen"`  // Active screen at start-up
	Auto           scheduler.AutoManagement `toml:"auto"`
}

// AnimationConfig contains popup show/hide animation durations.
type AnimationConfig struct {
	Show Duration `toml:"show"`
	Hide Duration `toml:"hide"`
}

// TimeoutConfig contains display timeouts per priority.
// A value of "0" or 0 means the popup stays until dismissed.
type TimeoutConfig struct {
	Low       Duration `toml:"low"`
	Middle    Duration `toml:"middle"`
	High      Duration `toml:"high"`
	Emergency Duration `toml:"emergency"`
}

// AudioConfig contains chime settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-priority sound file paths.
type SoundConfig struct {
	Low       string `toml:"low"`
	Middle    string `toml:"middle"`
	High      string `toml:"high"`
	Emergency string `toml:"emergency"`
}

// DBusConfig contains bus settings.
type DBusConfig struct {
	Notifications bool `toml:"notifications"` // Also own org.freedesktop.Notifications
	Monitor       bool `toml:"monitor"`       // Observe Notify calls meant for another daemon
}

// JournalConfig contains event journal settings.
type JournalConfig struct {
	Enabled    bool `toml:"enabled"`
	MaxEntries int  `toml:"max_entries"` // 0 = unlimited
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// LogLevels returns all valid log level names.
func LogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// SlogLevel converts the configured level to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidPositionKinds returns all valid presentation position kinds.
func ValidPositionKinds() []scheduler.PositionKind {
	return []scheduler.PositionKind{
		scheduler.PositionCenter,
		scheduler.PositionTop,
		scheduler.PositionBottom,
		scheduler.PositionRect,
	}
}

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Scheduler: SchedulerConfig{
			StartSuspended: false,
			RestoreState:   true,
			Auto: scheduler.AutoManagement{
				Enabled:       false,
				SuspendOnHide: true,
				ResumeOnShow:  true,
			},
		},
		Animation: AnimationConfig{
			Show: Duration(250 * time.Millisecond),
			Hide: Duration(200 * time.Millisecond),
		},
		Timeouts: TimeoutConfig{
			Low:       Duration(5 * time.Second),
			Middle:    Duration(8 * time.Second),
			High:      Duration(15 * time.Second),
			Emergency: Duration(0), // Never expires
		},
		Presentation: scheduler.DefaultPresentation(),
		Audio: AudioConfig{
			Enabled: true,
			Volume:  80,
			Sounds:  SoundConfig{},
		},
		DBus: DBusConfig{
			Notifications: false,
		},
		Journal: JournalConfig{
			Enabled:    true,
			MaxEntries: 5000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() string {
	return filepath.Join(ConfigDir(), "popschedd.toml")
}

// LoadDaemonConfig loads the daemon configuration from path.
// If path is empty the default location is used. A missing file yields
// the default configuration.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		path = DaemonConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig writes the daemon configuration to path.
func SaveDaemonConfig(path string, config *DaemonConfig) error {
	if path == "" {
		path = DaemonConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	validPos := false
	for _, k := range ValidPositionKinds() {
		if c.Presentation.Position.Kind == k {
			validPos = true
			break
		}
	}
	if !validPos {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Presentation.Position.Kind, ValidPositionKinds())
	}
	if c.Presentation.Position.Kind == scheduler.PositionRect {
		r := c.Presentation.Position.Rect
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("rect position needs a positive width and height, got %vx%v", r.Width, r.Height)
		}
	}

	if c.Presentation.BackgroundColor != "" && !colorPattern.MatchString(c.Presentation.BackgroundColor) {
		return fmt.Errorf("invalid background_color %q, must be #RRGGBB or #RRGGBBAA", c.Presentation.BackgroundColor)
	}

	if c.Animation.Show < 0 || c.Animation.Hide < 0 {
		return fmt.Errorf("animation durations must not be negative")
	}

	for _, p := range model.Priorities() {
		if c.TimeoutFor(p) < 0 {
			return fmt.Errorf("timeout for %s must not be negative", p)
		}
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	if c.DBus.Notifications && c.DBus.Monitor {
		return fmt.Errorf("dbus.notifications and dbus.monitor are mutually exclusive")
	}

	if c.Journal.MaxEntries < 0 {
		return fmt.Errorf("max_entries must not be negative, got %d", c.Journal.MaxEntries)
	}

	validLevel := false
	for _, l := range LogLevels() {
		if strings.EqualFold(c.Log.Level, l) {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level %q, must be one of: %v", c.Log.Level, LogLevels())
	}

	return nil
}

// TimeoutFor returns the display timeout for the given priority.
// Zero means the popup is never dismissed automatically.
func (c *DaemonConfig) TimeoutFor(p model.Priority) time.Duration {
	switch p {
	case model.PriorityMiddle:
		return c.Timeouts.Middle.Duration()
	case model.PriorityHigh:
		return c.Timeouts.High.Duration()
	case model.PriorityEmergency:
		return c.Timeouts.Emergency.Duration()
	default:
		return c.Timeouts.Low.Duration()
	}
}

// SoundFor returns the sound file path for the given priority.
// Expands ~ to home directory.
func (c *DaemonConfig) SoundFor(p model.Priority) string {
	var path string
	switch p {
	case model.PriorityMiddle:
		path = c.Audio.Sounds.Middle
	case model.PriorityHigh:
		path = c.Audio.Sounds.High
	case model.PriorityEmergency:
		path = c.Audio.Sounds.Emergency
	default:
		path = c.Audio.Sounds.Low
	}
	return expandPath(path)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

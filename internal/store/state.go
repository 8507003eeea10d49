package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Trigger represents what caused a suspend state change.
type Trigger string

const (
	// TriggerUser indicates a user-initiated change (CLI, TUI, D-Bus call).
	TriggerUser Trigger = "user"
	// TriggerHost indicates a host lifecycle hook caused the change.
	TriggerHost Trigger = "host"
	// TriggerJump indicates a popup's close-and-jump action suspended the queue.
	TriggerJump Trigger = "jump"
	// TriggerStartup indicates the daemon's start-up configuration.
	TriggerStartup Trigger = "startup"
)

// Transition records details about a suspend state change.
type Transition struct {
	Trigger   Trigger `json:"trigger"`
	Reason    string  `json:"reason"`           // e.g. "suspend", "host hidden"
	Source    string  `json:"source,omitempty"` // e.g. "cli", "tui", "popschedd"
	Timestamp int64   `json:"timestamp"`
}

// SharedState contains state that is shared between popsched and popschedd.
// This is persisted to ~/.local/share/popsched/state.json
type SharedState struct {
	Suspended      bool        `json:"suspended"`
	LastTransition *Transition `json:"last_transition,omitempty"`
	ActiveScreen   string      `json:"active_screen,omitempty"`
	LastShownAt    int64       `json:"last_shown_at,omitempty"`

	SchemaVersion int `json:"schema_version"`
}

const (
	// CurrentSchemaVersion is the current version of the state schema.
	CurrentSchemaVersion = 1
)

// stateFileMutex protects concurrent access to the state file.
var stateFileMutex sync.RWMutex

// DefaultSharedState returns a new SharedState with default values.
func DefaultSharedState() *SharedState {
	return &SharedState{
		SchemaVersion: CurrentSchemaVersion,
	}
}

// LoadSharedState loads the shared state from path.
// If the file doesn't exist or is corrupted, returns a default state.
func LoadSharedState(path string) (*SharedState, error) {
	stateFileMutex.RLock()
	defer stateFileMutex.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSharedState(), nil
		}
		return nil, err
	}

	var state SharedState
	if err := json.Unmarshal(data, &state); err != nil {
		return DefaultSharedState(), nil
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	return &state, nil
}

// SaveSharedState saves the shared state to path.
func SaveSharedState(path string, state *SharedState) error {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// SetSuspended updates the suspend state with transition tracking.
func (s *SharedState) SetSuspended(suspended bool, trigger Trigger, reason, source string) {
	s.Suspended = suspended
	s.LastTransition = &Transition{
		Trigger:   trigger,
		Reason:    reason,
		Source:    source,
		Timestamp: time.Now().Unix(),
	}
}

// UpdateLastShown updates the last shown timestamp.
func (s *SharedState) UpdateLastShown() {
	s.LastShownAt = time.Now().Unix()
}

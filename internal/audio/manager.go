package audio

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"sync"

	"github.com/jmylchreest/popsched/internal/config"
	"github.com/jmylchreest/popsched/internal/model"
)

// Manager plays the chime configured for a popup's priority.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  *Player
	watcher *Watcher
	config  *config.DaemonConfig

	sounds map[model.Priority]string
}

// NewManager creates a new audio manager.
func NewManager(cfg *config.DaemonConfig, logger *slog.Logger) *Manager {
	return newManager(cfg, logger, NewPlayer(logger))
}

func newManager(cfg *config.DaemonConfig, logger *slog.Logger, player *Player) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		logger:  logger,
		player:  player,
		watcher: NewWatcher(player, logger),
		config:  cfg,
		sounds:  make(map[model.Priority]string),
	}
	m.loadSoundConfig()
	return m
}

// loadSoundConfig resolves the configured sound for each priority.
func (m *Manager) loadSoundConfig() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sounds = make(map[model.Priority]string)
	if m.config == nil {
		return
	}

	// config uses 0-100, player uses 0.0-1.0
	m.player.SetVolume(float64(m.config.Audio.Volume) / 100.0)

	for _, p := range model.Priorities() {
		path := m.config.SoundFor(p)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			m.logger.Warn("sound file not found", "priority", p, "path", path)
			continue
		}
		m.sounds[p] = path
		m.logger.Debug("loaded sound", "priority", p, "path", path)
	}
}

func (m *Manager) soundPaths() map[model.Priority]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sounds := make(map[model.Priority]string, len(m.sounds))
	maps.Copy(sounds, m.sounds)
	return sounds
}

// Start preloads the sounds and starts the file watcher.
func (m *Manager) Start(ctx context.Context) error {
	sounds := m.soundPaths()
	for _, path := range sounds {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound", "path", path, "error", err)
		}
		m.watcher.Watch(path)
	}

	if err := m.watcher.Start(ctx); err != nil {
		return err
	}

	m.logger.Info("audio manager started", "sounds", len(sounds))
	return nil
}

// Stop shuts down the audio manager.
func (m *Manager) Stop() {
	m.watcher.Stop()
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}

// Enabled reports whether chimes are enabled.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config != nil && m.config.Audio.Enabled
}

// SoundFor returns the resolved sound path for p, or "".
func (m *Manager) SoundFor(p model.Priority) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sounds[p]
}

// PlayFor plays the chime configured for the given priority.
func (m *Manager) PlayFor(p model.Priority) error {
	if !m.Enabled() {
		return nil
	}

	path := m.SoundFor(p)
	if path == "" {
		m.logger.Debug("no sound configured for priority", "priority", p)
		return nil
	}
	return m.player.Play(path)
}

// UpdateConfig applies a hot-reloaded configuration.
func (m *Manager) UpdateConfig(cfg *config.DaemonConfig) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	m.player.ClearCache()
	m.watcher.Reset()
	m.loadSoundConfig()

	for _, path := range m.soundPaths() {
		if err := m.player.Preload(path); err != nil {
			m.logger.Warn("failed to preload sound on reload", "path", path, "error", err)
		}
		m.watcher.Watch(path)
	}
	m.logger.Debug("audio manager config updated")
}

package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/popsched/internal/config"
)

// ConfigWatcher watches the daemon config file for changes and validates new configs.
// The parent directory is watched so editors that replace the file are seen.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	configPath string
	debounce   time.Duration

	currentConfig *config.DaemonConfig

	onReloadCallback func(newConfig *config.DaemonConfig)
	onErrorCallback  func(err error)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewConfigWatcher creates a new ConfigWatcher for the daemon config file.
// An empty path selects the default location.
func NewConfigWatcher(configPath string, logger *slog.Logger) *ConfigWatcher {
	if configPath == "" {
		configPath = config.DaemonConfigPath()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigWatcher{
		logger:     logger,
		configPath: filepath.Clean(configPath),
		debounce:   200 * time.Millisecond,
	}
}

// SetReloadCallback sets the callback to invoke when config is successfully reloaded.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching the config file for changes.
func (w *ConfigWatcher) Start(ctx context.Context, initialConfig *config.DaemonConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	dir := filepath.Dir(w.configPath)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.watcher = fw
	w.currentConfig = initialConfig
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.watchLoop(ctx, fw, w.stopCh, w.doneCh)

	w.logger.Debug("config watcher started", "path", w.configPath)
	return nil
}

// Stop stops watching the config file.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	fw, done := w.watcher, w.doneCh
	w.watcher = nil
	w.mu.Unlock()

	<-done
	_ = fw.Close()
	w.logger.Debug("config watcher stopped")
}

// GetCurrentConfig returns the current valid configuration.
func (w *ConfigWatcher) GetCurrentConfig() *config.DaemonConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentConfig
}

func (w *ConfigWatcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.configPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

// reload loads and validates the config file and dispatches the result.
func (w *ConfigWatcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	w.logger.Debug("config file changed", "path", w.configPath)

	newConfig, err := config.LoadDaemonConfig(w.configPath)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.currentConfig = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully")
	if reloadCallback != nil {
		reloadCallback(newConfig)
	}
}

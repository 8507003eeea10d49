package audio

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates cached sounds when their files change on disk.
type Watcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	player  *Player
	watcher *fsnotify.Watcher

	paths map[string]bool // watched sound files
	dirs  map[string]bool // directories registered with fsnotify

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a sound file watcher.
func NewWatcher(player *Player, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		logger: logger,
		player: player,
		paths:  make(map[string]bool),
		dirs:   make(map[string]bool),
	}
}

// Watch adds a sound file. Its directory is watched so replaced files are
// noticed too.
func (w *Watcher) Watch(path string) {
	if path == "" {
		return
	}

	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.paths[path] = true
	dir := filepath.Dir(path)
	if w.watcher == nil || w.dirs[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("failed to watch sound directory", "dir", dir, "error", err)
		return
	}
	w.dirs[dir] = true
}

// Reset forgets all watched files.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.paths = make(map[string]bool)
	if w.watcher != nil {
		for dir := range w.dirs {
			_ = w.watcher.Remove(dir)
		}
	}
	w.dirs = make(map[string]bool)
}

// Start begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	paths := make([]string, 0, len(w.paths))
	for path := range w.paths {
		paths = append(paths, path)
	}
	w.dirs = make(map[string]bool)
	w.mu.Unlock()

	for _, path := range paths {
		w.Watch(path)
	}

	go w.watchLoop(ctx, fw)
	w.logger.Debug("audio watcher started", "files", len(paths))
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.watcher = nil
	w.mu.Unlock()
	w.logger.Debug("audio watcher stopped")
}

func (w *Watcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.doneCh)
	defer fw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.invalidate(event.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("audio watcher error", "error", err)
		}
	}
}

func (w *Watcher) invalidate(path string) {
	path = filepath.Clean(path)

	w.mu.Lock()
	watched := w.paths[path]
	w.mu.Unlock()

	if watched && w.player != nil {
		w.logger.Debug("sound file changed, invalidating cache", "path", path)
		w.player.Invalidate(path)
	}
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

package store

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// journalDebounce coalesces bursts of writes into one reload.
const journalDebounce = 100 * time.Millisecond

// FileWatcher reloads a Store when its journal file changes on disk.
// It lets a reader follow a journal written by another process.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	store    *Store
	filePath string
	logger   *slog.Logger
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewFileWatcher creates a watcher for the journal at filePath.
func NewFileWatcher(store *Store, filePath string, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:  watcher,
		store:    store,
		filePath: filePath,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the file for changes.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	// Watch the directory: the journal is replaced on prune
	dir := filepath.Dir(fw.filePath)
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}

	go fw.watch()
	return nil
}

func (fw *FileWatcher) watch() {
	filename := filepath.Base(fw.filePath)
	var debounce *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(journalDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			fw.logger.Debug("journal changed, reloading", "file", fw.filePath)
			if err := fw.store.Hydrate(); err != nil {
				fw.logger.Warn("failed to reload journal", "error", err)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("journal watcher error", "error", err)

		case <-fw.done:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return fw.watcher.Close()
	}

	fw.running = false
	close(fw.done)
	return fw.watcher.Close()
}

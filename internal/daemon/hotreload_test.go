package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popsched/internal/config"
)

func TestConfigWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popschedd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[audio]\nvolume = 10\n"), 0600))

	w := NewConfigWatcher(path, quietLogger())
	w.debounce = 10 * time.Millisecond

	var mu sync.Mutex
	var reloaded []*config.DaemonConfig
	var failures []error
	w.SetReloadCallback(func(cfg *config.DaemonConfig) {
		mu.Lock()
		defer mu.Unlock()
		reloaded = append(reloaded, cfg)
	})
	w.SetErrorCallback(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, err)
	})

	initial := config.DefaultDaemonConfig()
	require.NoError(t, w.Start(context.Background(), initial))
	defer w.Stop()
	assert.Same(t, initial, w.GetCurrentConfig())

	require.NoError(t, os.WriteFile(path, []byte("[audio]\nvolume = 42\n"), 0600))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reloaded) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, 42, reloaded[len(reloaded)-1].Audio.Volume)
	mu.Unlock()
	assert.Equal(t, 42, w.GetCurrentConfig().Audio.Volume)

	require.NoError(t, os.WriteFile(path, []byte("[audio]\nvolume = 400\n"), 0600))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failures) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 42, w.GetCurrentConfig().Audio.Volume, "invalid config is not adopted")
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "popschedd.toml")

	w := NewConfigWatcher(path, quietLogger())
	w.debounce = 10 * time.Millisecond
	var mu sync.Mutex
	calls := 0
	w.SetReloadCallback(func(*config.DaemonConfig) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, w.Start(context.Background(), config.DefaultDaemonConfig()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "popsched.toml"), []byte("x"), 0600))
	time.Sleep(100 * time.Millisecond)
	w.Stop()
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestConfigWatcher_MissingDirectory(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "absent", "popschedd.toml"), quietLogger())
	assert.Error(t, w.Start(context.Background(), nil))
	w.Stop()
}

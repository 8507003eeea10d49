package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSharedState_Missing(t *testing.T) {
	state, err := LoadSharedState(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	assert.False(t, state.Suspended)
	assert.Equal(t, CurrentSchemaVersion, state.SchemaVersion)
}

func TestLoadSharedState_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	state, err := LoadSharedState(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSharedState(), state)
}

func TestSharedState_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	state := DefaultSharedState()
	state.SetSuspended(true, TriggerHost, "host hidden", "popschedd")
	state.ActiveScreen = "settings"
	state.UpdateLastShown()
	require.NoError(t, SaveSharedState(path, state))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadSharedState(path)
	require.NoError(t, err)
	assert.True(t, loaded.Suspended)
	assert.Equal(t, "settings", loaded.ActiveScreen)
	require.NotNil(t, loaded.LastTransition)
	assert.Equal(t, TriggerHost, loaded.LastTransition.Trigger)
	assert.Equal(t, "host hidden", loaded.LastTransition.Reason)
	assert.NotZero(t, loaded.LastShownAt)
}

func TestSaveSharedState_SetsSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, SaveSharedState(path, &SharedState{Suspended: true}))

	loaded, err := LoadSharedState(path)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, loaded.SchemaVersion)
}

// modset_watcher_test.go: Test suite for mod set reconciliation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeModSet writes a mod set file plus the manifests it references.
func writeModSet(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	set := "mods:\n"
	for name, manifest := range entries {
		modDir := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(modDir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(modDir, "mod.yaml"), []byte(manifest), 0o600))
		set += "  - manifest: " + filepath.Join(name, "mod.yaml") + "\n"
	}
	path := filepath.Join(dir, "modset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(set), 0o600))
	return path
}

func TestModSetWatcher_ApplyLoadsDesiredSet(t *testing.T) {
	dir := t.TempDir()
	setPath := writeModSet(t, dir, map[string]string{
		"alpha": "id: alpha\n",
		"beta":  "id: beta\n",
	})

	manager, _ := newTestManager(t)
	watcher := NewModSetWatcher(manager, setPath, DefaultModSetWatcherOptions(), nil)

	require.NoError(t, watcher.Apply())
	assert.True(t, manager.IsLoaded("alpha"))
	assert.True(t, manager.IsLoaded("beta"))

	// Reapplying an unchanged set is a no-op.
	require.NoError(t, watcher.Apply())
	assert.Len(t, manager.Summary(), 2)
}

func TestModSetWatcher_ApplyUnloadsDelisted(t *testing.T) {
	dir := t.TempDir()
	setPath := writeModSet(t, dir, map[string]string{
		"keeper": "id: keeper\n",
		"goner":  "id: goner\n",
	})

	manager, loader := newTestManager(t)
	// goner is code-backed and unloadable; keeper is metadata-only.
	gonerArtifact := filepath.Join(dir, "goner", "goner.so")
	require.NoError(t, os.WriteFile(gonerArtifact, []byte("artifact"), 0o600))
	loader.Register(gonerArtifact, func() ModEntryPoint { return &fullEntryPoint{} })
	require.NoError(t, os.WriteFile(filepath.Join(dir, "goner", "mod.yaml"),
		[]byte("id: goner\nartifact: goner.so\n"), 0o600))

	watcher := NewModSetWatcher(manager, setPath, DefaultModSetWatcherOptions(), NewTestLogger())
	require.NoError(t, watcher.Apply())
	require.True(t, manager.IsLoaded("goner"))

	// Delist goner, keep keeper.
	setPath2 := writeModSet(t, dir, map[string]string{"keeper": "id: keeper\n"})
	require.Equal(t, setPath, setPath2)

	require.NoError(t, watcher.Apply())
	assert.False(t, manager.IsLoaded("goner"))
	assert.True(t, manager.IsLoaded("keeper"))
}

func TestModSetWatcher_DelistedWithoutUnloadStaysLoaded(t *testing.T) {
	dir := t.TempDir()
	setPath := writeModSet(t, dir, map[string]string{
		"pinned": "id: pinned\n",
	})

	manager, _ := newTestManager(t)
	logger := NewTestLogger()
	watcher := NewModSetWatcher(manager, setPath, DefaultModSetWatcherOptions(), logger)
	require.NoError(t, watcher.Apply())

	// Empty the set; pinned is metadata-only so it cannot be unloaded.
	require.NoError(t, os.WriteFile(setPath, []byte("mods: []\n"), 0o600))
	require.NoError(t, watcher.Apply())

	assert.True(t, manager.IsLoaded("pinned"))
	assert.True(t, logger.HasMessage("WARN", "Delisted mod does not support unload; leaving it loaded"))
}

func TestModSetWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()
	setPath := writeModSet(t, dir, map[string]string{"alpha": "id: alpha\n"})

	manager, _ := newTestManager(t)
	watcher := NewModSetWatcher(manager, setPath, DefaultModSetWatcherOptions(), nil)

	require.NoError(t, watcher.Start())
	assert.True(t, manager.IsLoaded("alpha"), "Start must apply the initial set")

	// Double start is rejected while running.
	err := watcher.Start()
	assert.True(t, HasCode(err, ErrCodeWatcherFailed))

	require.NoError(t, watcher.Stop())

	// A stopped watcher cannot be restarted.
	err = watcher.Start()
	assert.True(t, HasCode(err, ErrCodeWatcherFailed))

	// Stop is idempotent.
	assert.NoError(t, watcher.Stop())
}

func TestModSetWatcher_BadSetFile(t *testing.T) {
	dir := t.TempDir()
	manager, _ := newTestManager(t)

	missing := NewModSetWatcher(manager, filepath.Join(dir, "missing.yaml"), DefaultModSetWatcherOptions(), nil)
	assert.True(t, HasCode(missing.Apply(), ErrCodeWatcherFailed))

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("mods: [unterminated"), 0o600))
	bad := NewModSetWatcher(manager, badPath, DefaultModSetWatcherOptions(), nil)
	assert.True(t, HasCode(bad.Apply(), ErrCodeWatcherFailed))
}

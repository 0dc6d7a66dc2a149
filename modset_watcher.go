// modset_watcher.go: Argus-backed watcher for the desired mod set
//
// The mod set file is a small YAML document listing the manifests the
// host wants loaded. Editing the file while the host runs hot-swaps the
// set: newly listed mods are loaded, delisted mods are unloaded. Mods
// without the unloadable capability stay loaded and are reported, since
// delisting cannot override a capability the entry point never granted.
//
// Example mod set file:
//
//	mods:
//	  - manifest: alpha/mod.yaml
//	  - manifest: beta/mod.yaml
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// ModSetConfig is the parsed desired-mod-set file.
type ModSetConfig struct {
	Mods []ModSetEntry `yaml:"mods"`
}

// ModSetEntry names one manifest in the desired set. Relative paths are
// resolved against the mod set file's directory.
type ModSetEntry struct {
	Manifest string `yaml:"manifest"`
}

// ModSetWatcherOptions configures the watcher.
type ModSetWatcherOptions struct {
	// PollInterval is how often the file is checked for changes.
	PollInterval time.Duration

	// CacheTTL bounds stat caching inside the watcher. Zero uses the
	// watcher's default.
	CacheTTL time.Duration

	// ErrorHandler receives watch errors; nil logs them instead.
	ErrorHandler func(err error, filepath string)
}

// DefaultModSetWatcherOptions returns options suited to a mod set file
// edited by humans: low frequency, low latency requirements.
func DefaultModSetWatcherOptions() ModSetWatcherOptions {
	return ModSetWatcherOptions{
		PollInterval: 2 * time.Second,
	}
}

// ModSetWatcher reconciles the manager's registry against a watched
// mod set file.
//
// Reconciliation runs once on Start and again on every file change.
// Like batch loading, it is best-effort per mod: one failing entry does
// not stop the rest of the set from being applied.
type ModSetWatcher struct {
	manager *Manager
	logger  Logger
	watcher *argus.Watcher
	path    string
	options ModSetWatcherOptions

	mutex   sync.Mutex
	enabled atomic.Bool
	stopped atomic.Bool
}

// NewModSetWatcher creates a watcher for the mod set file at path.
func NewModSetWatcher(manager *Manager, path string, options ModSetWatcherOptions, logger any) *ModSetWatcher {
	internalLogger := NewLogger(logger)

	argusConfig := argus.Config{
		PollInterval:         options.PollInterval,
		CacheTTL:             options.CacheTTL,
		MaxWatchedFiles:      5,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, filepath string) {
			if options.ErrorHandler != nil {
				options.ErrorHandler(err, filepath)
			} else {
				internalLogger.Error("Mod set file watching error", "error", err, "file", filepath)
			}
		},
	}

	return &ModSetWatcher{
		manager: manager,
		logger:  internalLogger,
		watcher: argus.New(argusConfig),
		path:    path,
		options: options,
	}
}

// Start applies the current mod set and begins watching for changes.
func (w *ModSetWatcher) Start() error {
	if w.stopped.Load() {
		return NewWatcherFailedError("watcher has been stopped and cannot be restarted", nil)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.enabled.CompareAndSwap(false, true) {
		return NewWatcherFailedError("watcher is already running", nil)
	}

	if err := w.Apply(); err != nil {
		w.enabled.Store(false)
		return err
	}

	if err := w.watcher.Watch(w.path, w.handleChange); err != nil {
		w.enabled.Store(false)
		return NewWatcherFailedError("failed to watch mod set file", err)
	}
	if err := w.watcher.Start(); err != nil {
		w.enabled.Store(false)
		return NewWatcherFailedError("failed to start watcher", err)
	}

	w.logger.Info("Mod set watcher started", "path", w.path)
	return nil
}

// Stop stops watching. The watcher cannot be restarted afterwards.
func (w *ModSetWatcher) Stop() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.enabled.CompareAndSwap(true, false) {
		return nil
	}
	w.stopped.Store(true)

	if err := w.watcher.Stop(); err != nil {
		return NewWatcherFailedError("failed to stop watcher", err)
	}
	w.logger.Info("Mod set watcher stopped", "path", w.path)
	return nil
}

// handleChange reacts to a mod set file change event.
func (w *ModSetWatcher) handleChange(event argus.ChangeEvent) {
	w.logger.Debug("Mod set file changed", "path", event.Path)
	if err := w.Apply(); err != nil {
		w.logger.Error("Failed to apply mod set", "path", w.path, "error", err)
	}
}

// Apply reads the mod set file and reconciles the registry against it:
// listed mods that are not loaded get loaded, loaded mods that are no
// longer listed get unloaded.
func (w *ModSetWatcher) Apply() error {
	desired, err := w.readDesiredSet()
	if err != nil {
		return err
	}

	loaded := make(map[string]bool)
	for _, summary := range w.manager.Summary() {
		loaded[summary.ID] = true
	}

	for id, request := range desired {
		if loaded[id] {
			continue
		}
		if err := w.manager.Load(request.Path, request.Metadata); err != nil {
			w.logger.Warn("Mod set entry failed to load", "mod_id", id, "error", err)
		}
	}

	for id := range loaded {
		if _, wanted := desired[id]; wanted {
			continue
		}
		if err := w.manager.Unload(id); err != nil {
			if HasCode(err, ErrCodeUnloadNotSupported) {
				w.logger.Warn("Delisted mod does not support unload; leaving it loaded", "mod_id", id)
			} else {
				w.logger.Warn("Delisted mod failed to unload", "mod_id", id, "error", err)
			}
		}
	}

	return nil
}

// readDesiredSet parses the mod set file into per-id load requests.
// Invalid or incompatible manifests are skipped with a warning.
func (w *ModSetWatcher) readDesiredSet() (map[string]LoadRequest, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, NewWatcherFailedError("failed to read mod set file", err)
	}

	var config ModSetConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, NewWatcherFailedError("failed to parse mod set file", err)
	}

	baseDir := filepath.Dir(w.path)
	hostVersion := w.manager.Host().Version()

	desired := make(map[string]LoadRequest, len(config.Mods))
	for _, entry := range config.Mods {
		manifestPath := entry.Manifest
		if !filepath.IsAbs(manifestPath) {
			manifestPath = filepath.Join(baseDir, manifestPath)
		}
		manifest, err := LoadManifestFile(manifestPath)
		if err != nil {
			w.logger.Warn("Skipping invalid manifest in mod set", "path", manifestPath, "error", err)
			continue
		}
		if err := manifest.CheckHostCompat(hostVersion); err != nil {
			w.logger.Warn("Skipping incompatible mod in mod set",
				"mod_id", manifest.ID, "constraint", manifest.API, "host_version", hostVersion)
			continue
		}
		desired[manifest.ID] = manifest.Request(filepath.Dir(manifestPath))
	}

	return desired, nil
}

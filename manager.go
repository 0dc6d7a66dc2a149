// manager.go: Mod registry and lifecycle authority
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
)

// Manager owns the registry of loaded mods and is the single authority
// mutating it. It loads, starts, suspends, resumes and unloads mod
// instances, firing lifecycle notifications around each transition.
//
// Threading contract: lifecycle operations (Load, LoadAll, Unload,
// Suspend, Resume, Close) are synchronous and intended to be driven
// from a single logical thread of control, e.g. the host's coordination
// loop. The manager does not serialize concurrent lifecycle calls
// against each other; hosts with concurrent callers must apply a
// single-writer discipline externally. Queries (IsLoaded, List,
// Summary) are safe to call concurrently with lifecycle operations,
// and a mod being unloaded disappears from query results before its
// teardown begins.
//
// Example usage:
//
//	manager := gomodhost.NewManager(logger)
//	manager.Host().RegisterService("event-bus", bus)
//
//	results := manager.LoadAll(requests)
//	for _, r := range results {
//	    if r.Err != nil {
//	        logger.Warn("mod failed to load", "id", r.Request.Metadata.ID, "error", r.Err)
//	    }
//	}
//
//	defer manager.Close()
type Manager struct {
	logger    Logger
	loader    ArtifactLoader
	host      *HostAPI
	notifiers []LifecycleNotifier

	// Guards the registry map so queries stay safe while an unload is
	// in flight. Lifecycle serialization is the caller's concern.
	mu       sync.RWMutex
	registry map[string]*ModInstance

	shutdown atomic.Bool
}

// ManagerOption customizes manager construction.
type ManagerOption func(*Manager)

// WithLoader replaces the default dlopen-based artifact loader.
func WithLoader(loader ArtifactLoader) ManagerOption {
	return func(m *Manager) {
		m.loader = loader
	}
}

// WithHostVersion sets the host API version advertised to mods.
func WithHostVersion(version string) ManagerOption {
	return func(m *Manager) {
		m.host = NewHostAPI(version, m.logger)
	}
}

// WithNotifier appends a lifecycle notifier. Notifiers fire in the
// order they were added.
func WithNotifier(notifier LifecycleNotifier) ManagerOption {
	return func(m *Manager) {
		m.notifiers = append(m.notifiers, notifier)
	}
}

// DefaultHostVersion is the host API version used when the host does
// not set one explicitly.
const DefaultHostVersion = "1.0.0"

// NewManager creates a mod manager with an empty registry.
//
// The host API surface is created here, once per manager, and shared by
// every mod loaded through it; it is torn down by Close after the last
// mod is gone.
//
// Parameters:
//   - logger: a Logger implementation or nil for silent operation
//   - opts: optional loader, host version, and notifier overrides
func NewManager(logger any, opts ...ManagerOption) *Manager {
	internalLogger := NewLogger(logger)

	m := &Manager{
		logger:   internalLogger,
		loader:   NewDlopenLoader(internalLogger),
		host:     NewHostAPI(DefaultHostVersion, internalLogger),
		registry: make(map[string]*ModInstance),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Host returns the process-wide host API surface.
func (m *Manager) Host() *HostAPI {
	return m.host
}

// AddNotifier appends a lifecycle notifier after construction.
func (m *Manager) AddNotifier(notifier LifecycleNotifier) {
	m.notifiers = append(m.notifiers, notifier)
}

// Load registers and starts a new mod instance.
//
// If path names an existing regular file at call time the code-backed
// load path is used; otherwise the mod is loaded as metadata-only. The
// branch is a property of the filesystem state, not of the metadata.
//
// Fails with AlreadyLoaded if a mod with metadata.ID is registered,
// LoadFailure if the artifact cannot be mapped, EntryPointNotFound if
// it registers zero or more than one entry point, and StartupFailed if
// the startup hook errors. On any failure the registry does not
// contain the mod.
func (m *Manager) Load(path string, metadata ModMetadata) error {
	if m.shutdown.Load() {
		return errors.New("manager is shut down")
	}
	if metadata.ID == "" {
		return errors.New("mod id cannot be empty")
	}

	if m.IsLoaded(metadata.ID) {
		return NewAlreadyLoadedError(metadata.ID)
	}

	if err := m.notifyLoading(metadata); err != nil {
		return err
	}

	module, err := m.buildModule(path)
	if err != nil {
		return err
	}

	inst := newModInstance(metadata, module)

	m.mu.Lock()
	if _, exists := m.registry[metadata.ID]; exists {
		m.mu.Unlock()
		closeQuietly(module, m.logger, metadata.ID)
		return NewAlreadyLoadedError(metadata.ID)
	}
	m.registry[metadata.ID] = inst
	m.mu.Unlock()

	if err := inst.start(m.host); err != nil {
		m.deregister(metadata.ID)
		closeQuietly(module, m.logger, metadata.ID)
		return err
	}

	if err := m.notifyLoaded(metadata); err != nil {
		// No partial registration: roll the mod back out before
		// reporting the failure.
		m.deregister(metadata.ID)
		if unloadErr := inst.unload(); unloadErr != nil {
			m.logger.Warn("Error unloading mod during rollback",
				"mod_id", metadata.ID, "error", unloadErr)
		}
		return err
	}

	m.logger.Info("Mod loaded",
		"mod_id", metadata.ID,
		"version", metadata.Version,
		"can_suspend", inst.CanSuspend(),
		"can_unload", inst.CanUnload())

	return nil
}

// LoadAll applies Load to each request in order. The batch is
// best-effort per item, not atomic: a failing entry does not prevent
// the remaining entries from being attempted, since partial success is
// the expected steady state when loading many mods at startup.
func (m *Manager) LoadAll(requests []LoadRequest) []LoadResult {
	results := make([]LoadResult, 0, len(requests))
	for _, req := range requests {
		err := m.Load(req.Path, req.Metadata)
		if err != nil {
			m.logger.Warn("Mod failed to load in batch",
				"mod_id", req.Metadata.ID, "path", req.Path, "error", err)
		}
		results = append(results, LoadResult{Request: req, Err: err})
	}
	return results
}

// Unload removes a mod from the registry and tears down its plugin
// module.
//
// Fails with NotFound if id is not registered and UnloadNotSupported if
// the instance lacks the unloadable capability. The registry entry is
// removed before teardown begins, so concurrent queries report the mod
// as not loaded for the whole teardown window.
func (m *Manager) Unload(id string) error {
	inst, err := m.lookup(id)
	if err != nil {
		return err
	}
	if !inst.CanUnload() {
		return NewUnloadNotSupportedError(id)
	}

	if err := m.notifyUnloading(inst.Metadata()); err != nil {
		return err
	}

	m.deregister(id)

	if err := inst.unload(); err != nil {
		m.logger.Warn("Mod teardown reported an error", "mod_id", id, "error", err)
		return err
	}

	m.logger.Info("Mod unloaded", "mod_id", id)
	return nil
}

// Suspend pauses a running mod.
//
// Fails with NotFound or SuspendNotSupported; suspending an already
// suspended mod is a no-op success.
func (m *Manager) Suspend(id string) error {
	inst, err := m.lookup(id)
	if err != nil {
		return err
	}
	if !inst.CanSuspend() {
		return NewSuspendNotSupportedError(id)
	}
	if err := inst.suspend(); err != nil {
		return err
	}
	m.logger.Debug("Mod suspended", "mod_id", id)
	return nil
}

// Resume returns a suspended mod to Running.
//
// Fails with NotFound or SuspendNotSupported; resuming an already
// running mod is a no-op success.
func (m *Manager) Resume(id string) error {
	inst, err := m.lookup(id)
	if err != nil {
		return err
	}
	if !inst.CanSuspend() {
		return NewSuspendNotSupportedError(id)
	}
	if err := inst.resume(); err != nil {
		return err
	}
	m.logger.Debug("Mod resumed", "mod_id", id)
	return nil
}

// IsLoaded reports whether a mod with the given identifier is
// currently registered.
func (m *Manager) IsLoaded(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.registry[id]
	return ok
}

// List returns the currently registered mod instances in unspecified
// order.
func (m *Manager) List() []*ModInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	instances := make([]*ModInstance, 0, len(m.registry))
	for _, inst := range m.registry {
		instances = append(instances, inst)
	}
	return instances
}

// Summary returns a point-in-time view of every registered mod.
func (m *Manager) Summary() []ModSummary {
	instances := m.List()
	summaries := make([]ModSummary, 0, len(instances))
	for _, inst := range instances {
		summaries = append(summaries, inst.Summary())
	}
	return summaries
}

// Close disposes every registered mod and tears down the host API
// surface.
//
// Disposal is best-effort: a failure tearing down one mod does not
// prevent the rest from being attempted, and the capability gate does
// not apply — at disposal every mod goes away regardless of
// can_unload. Returns the joined teardown errors, if any.
func (m *Manager) Close() error {
	if !m.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	for _, inst := range m.List() {
		meta := inst.Metadata()
		if err := m.notifyUnloading(meta); err != nil {
			m.logger.Warn("Notifier error during disposal", "mod_id", meta.ID, "error", err)
		}
		m.deregister(meta.ID)
		if err := inst.unload(); err != nil {
			m.logger.Warn("Error disposing mod", "mod_id", meta.ID, "error", err)
			errs = append(errs, err)
		}
	}

	m.host.close()
	m.logger.Info("Mod manager closed")

	return errors.Join(errs...)
}

// buildModule decides between the code-backed and metadata-only load
// paths and constructs the plugin module.
func (m *Manager) buildModule(path string) (pluginModule, error) {
	if !isLoadableArtifact(path) {
		return newDataModule(), nil
	}
	artifact, err := m.loader.Load(path)
	if err != nil {
		return nil, err
	}
	return newCodeModule(artifact), nil
}

// lookup fetches a registered instance or reports NotFound.
func (m *Manager) lookup(id string) (*ModInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.registry[id]
	if !ok {
		return nil, NewNotFoundError(id)
	}
	return inst, nil
}

// deregister removes id from the registry.
func (m *Manager) deregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.registry, id)
}

func (m *Manager) notifyLoading(metadata ModMetadata) error {
	for _, n := range m.notifiers {
		if err := n.OnModLoading(metadata.ID, metadata); err != nil {
			return NewNotifierFailedError(metadata.ID, "loading", err)
		}
	}
	return nil
}

func (m *Manager) notifyLoaded(metadata ModMetadata) error {
	for _, n := range m.notifiers {
		if err := n.OnModLoaded(metadata.ID, metadata); err != nil {
			return NewNotifierFailedError(metadata.ID, "loaded", err)
		}
	}
	return nil
}

func (m *Manager) notifyUnloading(metadata ModMetadata) error {
	for _, n := range m.notifiers {
		if err := n.OnModUnloading(metadata.ID, metadata); err != nil {
			return NewNotifierFailedError(metadata.ID, "unloading", err)
		}
	}
	return nil
}

// isLoadableArtifact reports whether path names an existing regular
// file at call time.
func isLoadableArtifact(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// closeQuietly closes a module during load rollback, logging instead of
// masking the primary error.
func closeQuietly(module pluginModule, logger Logger, id string) {
	if err := module.Close(); err != nil {
		logger.Warn("Error closing module during rollback", "mod_id", id, "error", err)
	}
}

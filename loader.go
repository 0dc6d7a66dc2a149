// loader.go: Isolated artifact loading with reference-counted handles
//
// A LoadedArtifact is the unit of reclamation for a code-backed mod: it
// owns the entry-point instance created for one load and is closed
// exactly once, when the owning mod instance is unloaded. The default
// DlopenLoader maps artifacts into the process with the OS dynamic
// loader; because mapped code cannot be unmapped again from Go, handles
// are reference counted and reclamation means dropping every object
// derived from the load, not the code pages themselves. A reloaded
// artifact gets a fresh entry-point instance from the cached factory,
// so no state survives an unload/reload cycle.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"path/filepath"
	"plugin"
	"sync"
)

// ArtifactLoader resolves a code artifact and produces the isolated
// context for one load of it.
type ArtifactLoader interface {
	// Load resolves the artifact at path and returns a LoadedArtifact
	// holding a fresh entry-point instance. Fails with LoadFailure if
	// the artifact cannot be resolved or mapped, and with
	// EntryPointNotFound if it registers zero or more than one entry
	// point.
	Load(path string) (LoadedArtifact, error)
}

// LoadedArtifact is one load of a code artifact: the entry-point object
// plus the context it was created in.
//
// Ownership is exclusive: the plugin module that received the artifact
// is the only holder, and Close invalidates every reference derived
// from it. Close is idempotent.
type LoadedArtifact interface {
	// EntryPoint returns the entry-point instance for this load.
	// Returns nil after Close.
	EntryPoint() ModEntryPoint

	// Close releases the load context. The entry-point instance and
	// anything it allocated become eligible for reclamation.
	Close() error
}

// DlopenLoader loads artifacts with the OS dynamic loader (Go plugin
// mechanism) and keeps a process-wide reference-counted handle per
// artifact path.
//
// The dynamic loader shares type identity with the host by construction:
// a plugin built against the same toolchain reuses the host's packages
// instead of loading duplicate copies, so interface assertions against
// the entry point behave the same as for compiled-in code.
type DlopenLoader struct {
	logger Logger

	mu      sync.Mutex
	handles map[string]*artifactHandle
}

// artifactHandle is the per-path shared state behind DlopenLoader.
//
// plug pins the OS mapping; it is never released because the Go runtime
// has no unload primitive. factory is discovered once, on first open,
// and reused for every subsequent load of the same path.
type artifactHandle struct {
	path    string
	plug    *plugin.Plugin
	factory EntryPointFactory
	refs    int
}

// NewDlopenLoader creates the default artifact loader.
func NewDlopenLoader(logger any) *DlopenLoader {
	return &DlopenLoader{
		logger:  NewLogger(logger),
		handles: make(map[string]*artifactHandle),
	}
}

// Load implements ArtifactLoader.
func (l *DlopenLoader) Load(path string) (LoadedArtifact, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, NewLoadFailureError(path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	handle, ok := l.handles[abs]
	if !ok {
		handle, err = l.openLocked(abs)
		if err != nil {
			return nil, err
		}
		l.handles[abs] = handle
	}

	handle.refs++
	l.logger.Debug("Artifact handle acquired", "path", abs, "refs", handle.refs)

	return &dlopenArtifact{
		loader: l,
		handle: handle,
		entry:  handle.factory(),
	}, nil
}

// openLocked maps the artifact and discovers its single entry-point
// registration. Caller holds l.mu.
func (l *DlopenLoader) openLocked(abs string) (*artifactHandle, error) {
	// Registrations left over from an earlier failed open would be
	// misattributed to this artifact; drop them first.
	if stale := drainPendingEntryPoints(); len(stale) > 0 {
		l.logger.Warn("Discarding stale entry-point registrations", "count", len(stale))
	}

	plug, err := plugin.Open(abs)
	if err != nil {
		return nil, NewLoadFailureError(abs, err)
	}

	registered := drainPendingEntryPoints()
	if len(registered) != 1 {
		return nil, NewEntryPointNotFoundError(abs, len(registered))
	}

	l.logger.Info("Artifact mapped", "path", abs)
	return &artifactHandle{
		path:    abs,
		plug:    plug,
		factory: registered[0],
	}, nil
}

// release drops one reference to the handle. The OS mapping stays in
// place; a refcount of zero only means the next Load hands out a fresh
// entry point with no live predecessor.
func (l *DlopenLoader) release(handle *artifactHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	handle.refs--
	l.logger.Debug("Artifact handle released", "path", handle.path, "refs", handle.refs)
}

// dlopenArtifact is one load of a dlopen-backed artifact.
type dlopenArtifact struct {
	loader *DlopenLoader
	handle *artifactHandle

	mu     sync.Mutex
	entry  ModEntryPoint
	closed bool
}

// EntryPoint implements LoadedArtifact.
func (a *dlopenArtifact) EntryPoint() ModEntryPoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entry
}

// Close implements LoadedArtifact.
func (a *dlopenArtifact) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.entry = nil
	a.loader.release(a.handle)
	return nil
}

// StaticLoader serves artifacts from an in-memory registry instead of
// the filesystem.
//
// Hosts that compile their mods into the binary register each mod's
// factory under the path the manager will be asked to load; tests use
// it to exercise the full load path without building shared objects.
type StaticLoader struct {
	mu        sync.RWMutex
	factories map[string]EntryPointFactory
}

// NewStaticLoader creates an empty static artifact loader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{
		factories: make(map[string]EntryPointFactory),
	}
}

// Register binds an entry-point factory to an artifact path.
// Registering a path twice replaces the previous factory.
func (l *StaticLoader) Register(path string, factory EntryPointFactory) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[abs] = factory
}

// Load implements ArtifactLoader.
func (l *StaticLoader) Load(path string) (LoadedArtifact, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, NewLoadFailureError(path, err)
	}

	l.mu.RLock()
	factory, ok := l.factories[abs]
	l.mu.RUnlock()

	if !ok {
		// The artifact resolved on disk but carries no registration.
		return nil, NewEntryPointNotFoundError(abs, 0)
	}

	return &staticArtifact{entry: factory()}, nil
}

// staticArtifact is one load served by a StaticLoader.
type staticArtifact struct {
	mu    sync.Mutex
	entry ModEntryPoint
}

// EntryPoint implements LoadedArtifact.
func (a *staticArtifact) EntryPoint() ModEntryPoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entry
}

// Close implements LoadedArtifact.
func (a *staticArtifact) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entry = nil
	return nil
}

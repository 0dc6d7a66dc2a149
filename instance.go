// instance.go: Lifecycle state machine for one loaded mod
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"errors"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// ModInstance wraps one plugin module together with its static metadata
// and current lifecycle state.
//
// Capability flags are derived exactly once, at construction, from the
// interfaces the entry-point object implements; they never change
// afterwards. All state transitions are driven by the Manager — an
// instance never mutates the registry it lives in.
type ModInstance struct {
	id       string
	metadata ModMetadata
	loadedAt time.Time

	canSuspend bool
	canUnload  bool

	// Guards state and the references invalidated by unload.
	// Transition serialization is the caller's concern (see Manager);
	// this only keeps concurrent queries memory-safe.
	mu        sync.RWMutex
	state     ModState
	module    pluginModule
	entry     ModEntryPoint
	suspender Suspendable
	unloader  Unloadable
}

// newModInstance constructs an instance around a freshly loaded module.
func newModInstance(metadata ModMetadata, module pluginModule) *ModInstance {
	entry := module.EntryPoint()
	inst := &ModInstance{
		id:       metadata.ID,
		metadata: metadata,
		loadedAt: timecache.CachedTime(),
		state:    StateConstructed,
		module:   module,
		entry:    entry,
	}
	if s, ok := entry.(Suspendable); ok {
		inst.canSuspend = true
		inst.suspender = s
	}
	if u, ok := entry.(Unloadable); ok {
		inst.canUnload = true
		inst.unloader = u
	}
	return inst
}

// ID returns the mod identifier.
func (i *ModInstance) ID() string {
	return i.id
}

// Metadata returns the mod's static metadata.
func (i *ModInstance) Metadata() ModMetadata {
	return i.metadata
}

// State returns the current lifecycle state.
func (i *ModInstance) State() ModState {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// CanSuspend reports whether the mod implements the suspendable capability.
func (i *ModInstance) CanSuspend() bool {
	return i.canSuspend
}

// CanUnload reports whether the mod implements the unloadable capability.
func (i *ModInstance) CanUnload() bool {
	return i.canUnload
}

// Summary returns the external view of this instance.
func (i *ModInstance) Summary() ModSummary {
	return ModSummary{
		ID:         i.id,
		State:      i.State(),
		CanSuspend: i.canSuspend,
		CanUnload:  i.canUnload,
		LoadedAt:   i.loadedAt,
	}
}

// start runs the entry-point startup hook against the host API surface.
func (i *ModInstance) start(host *HostAPI) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateConstructed {
		return errors.New("mod instance already started")
	}
	if err := i.entry.Startup(host); err != nil {
		return NewStartupFailedError(i.id, err)
	}
	i.state = StateRunning
	return nil
}

// suspend moves a running instance to Suspended. Suspending an already
// suspended instance is a no-op success; the capability-denied path is
// handled by the Manager before this is reached.
func (i *ModInstance) suspend() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch i.state {
	case StateSuspended:
		return nil
	case StateRunning:
		if err := i.suspender.Suspend(); err != nil {
			return err
		}
		i.state = StateSuspended
		return nil
	default:
		return errors.New("mod instance is not running")
	}
}

// resume moves a suspended instance back to Running; no-op if already
// running.
func (i *ModInstance) resume() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch i.state {
	case StateRunning:
		return nil
	case StateSuspended:
		if err := i.suspender.Resume(); err != nil {
			return err
		}
		i.state = StateRunning
		return nil
	default:
		return errors.New("mod instance is not suspended")
	}
}

// unload runs the teardown hook (when present) and releases the plugin
// module. After unload the instance is terminal: every reference into
// the loaded unit is dropped here, so nothing derived from its load
// context can be dereferenced later.
func (i *ModInstance) unload() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == StateUnloaded {
		return nil
	}
	if i.state != StateRunning && i.state != StateSuspended {
		return errors.New("mod instance is not running or suspended")
	}

	var teardownErr error
	if i.unloader != nil {
		teardownErr = i.unloader.Teardown()
	}

	closeErr := i.module.Close()

	i.state = StateUnloaded
	i.entry = nil
	i.suspender = nil
	i.unloader = nil
	i.module = nil

	if teardownErr != nil {
		return teardownErr
	}
	return closeErr
}

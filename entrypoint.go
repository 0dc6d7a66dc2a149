// entrypoint.go: Mod entry-point contract and registration surface
//
// This file defines what a loaded mod must implement and how a code
// artifact hands its entry point to the host. Discovery is an explicit
// registration contract: during initialization the artifact calls
// RegisterEntryPoint exactly once, and the loader verifies that exactly
// one registration appeared while the artifact was being loaded.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"sync"
)

// ModEntryPoint is the contract every loaded mod must implement.
//
// Startup is invoked once, after the instance has been registered, with
// the process-wide host API surface. The HostAPI outlives every mod that
// holds it, so entry points may retain it for their whole lifetime.
type ModEntryPoint interface {
	Startup(host *HostAPI) error
}

// Suspendable is the optional capability interface for mods that can be
// paused and resumed without being unloaded.
//
// Implementing it fixes the instance's can_suspend flag to true at
// construction time; the flag is never re-derived afterwards.
type Suspendable interface {
	Suspend() error
	Resume() error
}

// Unloadable is the optional capability interface for mods that support
// being torn down while the host keeps running.
//
// Teardown is the mod's last callback: after it returns, the owning
// module's load context is released and no reference into the mod may
// be used again.
type Unloadable interface {
	Teardown() error
}

// EntryPointFactory produces a fresh entry-point instance.
//
// A factory must return a new object on every call so that a reloaded
// mod never observes state left behind by a previous incarnation.
type EntryPointFactory func() ModEntryPoint

// NoOpEntryPoint satisfies ModEntryPoint and nothing else.
//
// It backs metadata-only mods (declarative bundles with no executable
// payload). Because it implements neither Suspendable nor Unloadable,
// such mods report can_suspend=false and can_unload=false.
type NoOpEntryPoint struct{}

// Startup implements ModEntryPoint (no-op)
func (NoOpEntryPoint) Startup(host *HostAPI) error { return nil }

// pendingEntryPoints collects factories registered while an artifact's
// init code runs. The loader snapshots and drains it around each open.
var (
	pendingMu          sync.Mutex
	pendingEntryPoints []EntryPointFactory
)

// RegisterEntryPoint hands a mod's entry-point factory to the host.
//
// Code artifacts call this from an init function (or from a compiled-in
// mod's setup path via StaticLoader). The loader requires exactly one
// registration per artifact; zero or multiple registrations fail the
// load with EntryPointNotFound.
func RegisterEntryPoint(factory EntryPointFactory) {
	if factory == nil {
		panic("gomodhost: RegisterEntryPoint called with nil factory")
	}
	pendingMu.Lock()
	defer pendingMu.Unlock()
	pendingEntryPoints = append(pendingEntryPoints, factory)
}

// drainPendingEntryPoints removes and returns every factory registered
// since the previous drain.
func drainPendingEntryPoints() []EntryPointFactory {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	drained := pendingEntryPoints
	pendingEntryPoints = nil
	return drained
}

// notifier.go: Lifecycle notification hooks fired around mod transitions
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

// LifecycleNotifier receives synchronous callbacks around the lifecycle
// transitions the Manager drives.
//
// Ordering guarantees relative to the triggering operation:
//   - OnModLoading fires strictly before the instance is registered and
//     started.
//   - OnModLoaded fires strictly after startup completed successfully.
//   - OnModUnloading fires strictly before the instance is deregistered
//     and torn down.
//
// Notifiers run on the caller's control flow; there is no deferred or
// asynchronous delivery. An error returned from OnModLoading or
// OnModLoaded fails the load and leaves the registry without the mod;
// an error from OnModUnloading aborts the unload with the mod still
// registered.
type LifecycleNotifier interface {
	OnModLoading(id string, metadata ModMetadata) error
	OnModLoaded(id string, metadata ModMetadata) error
	OnModUnloading(id string, metadata ModMetadata) error
}

// NotifierFuncs adapts plain functions to LifecycleNotifier. Nil fields
// are treated as successful no-ops.
type NotifierFuncs struct {
	Loading   func(id string, metadata ModMetadata) error
	Loaded    func(id string, metadata ModMetadata) error
	Unloading func(id string, metadata ModMetadata) error
}

// OnModLoading implements LifecycleNotifier.
func (n NotifierFuncs) OnModLoading(id string, metadata ModMetadata) error {
	if n.Loading == nil {
		return nil
	}
	return n.Loading(id, metadata)
}

// OnModLoaded implements LifecycleNotifier.
func (n NotifierFuncs) OnModLoaded(id string, metadata ModMetadata) error {
	if n.Loaded == nil {
		return nil
	}
	return n.Loaded(id, metadata)
}

// OnModUnloading implements LifecycleNotifier.
func (n NotifierFuncs) OnModUnloading(id string, metadata ModMetadata) error {
	if n.Unloading == nil {
		return nil
	}
	return n.Unloading(id, metadata)
}

// types.go: Common data types for the mod lifecycle system
//
// This file contains the shared data models used throughout the mod host:
// lifecycle states, static metadata, load requests, and registry summaries.
// Keeping these separate from the interface definitions mirrors the layout
// used across the rest of the library.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"time"
)

// ModState represents the lifecycle state of a loaded mod instance.
//
// The state machine is strictly:
//
//	Constructed -> Running <-> Suspended
//
// with both Running and Suspended being valid sources for the terminal
// Unloaded state. An unloaded instance is discarded, never reused.
type ModState int

const (
	StateConstructed ModState = iota
	StateRunning
	StateSuspended
	StateUnloaded
)

// String returns a human-readable representation of the mod state.
func (s ModState) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateUnloaded:
		return "unloaded"
	default:
		return "unknown"
	}
}

// ModMetadata is the author-supplied static description of a mod.
//
// Metadata is produced by an external collaborator (typically a parsed
// manifest, see manifest.go) and is read-only from the host's perspective.
// The ID must be globally unique among currently-loaded mods and is
// immutable once the mod has been loaded.
//
// The Capabilities field carries the capabilities the author declares for
// discovery and display purposes only. The capability flags that actually
// gate suspend/unload are derived from the entry-point object at load
// time, never from metadata.
type ModMetadata struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name,omitempty" yaml:"name,omitempty"`
	Version      string            `json:"version,omitempty" yaml:"version,omitempty"`
	Author       string            `json:"author,omitempty" yaml:"author,omitempty"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Capabilities []string          `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Extra        map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// LoadRequest pairs an artifact path with the metadata describing it.
//
// Path may be empty or point at a non-existent file, in which case the
// mod is loaded as metadata-only (no executable payload). Whether the
// code-backed path is taken depends on the filesystem state at load
// time, not on the metadata.
type LoadRequest struct {
	Path     string      `json:"path" yaml:"path"`
	Metadata ModMetadata `json:"metadata" yaml:"metadata"`
}

// LoadResult reports the outcome of a single entry in a batch load.
type LoadResult struct {
	Request LoadRequest
	Err     error
}

// ModSummary is a point-in-time view of one registered mod instance.
//
// It is intentionally independent of the underlying plugin module's
// representation: only identity, lifecycle state, and the fixed
// capability flags are exposed.
type ModSummary struct {
	ID         string    `json:"id"`
	State      ModState  `json:"state"`
	CanSuspend bool      `json:"can_suspend"`
	CanUnload  bool      `json:"can_unload"`
	LoadedAt   time.Time `json:"loaded_at"`
}

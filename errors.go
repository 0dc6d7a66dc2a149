// errors.go: structured error definitions for the go-modhost system
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"github.com/agilira/go-errors"
)

// Error codes for the go-modhost system
const (
	// Registry errors (1000-1099)
	ErrCodeAlreadyLoaded = "MOD_1001"
	ErrCodeNotFound      = "MOD_1002"

	// Capability errors (1100-1199)
	ErrCodeUnloadNotSupported  = "MOD_1101"
	ErrCodeSuspendNotSupported = "MOD_1102"

	// Loading errors (1200-1299)
	ErrCodeLoadFailure        = "MOD_1201"
	ErrCodeEntryPointNotFound = "MOD_1202"
	ErrCodeStartupFailed      = "MOD_1203"

	// Notifier errors (1300-1399)
	ErrCodeNotifierFailed = "MOD_1301"

	// Manifest and discovery errors (1400-1499)
	ErrCodeManifestInvalid = "MOD_1401"
	ErrCodeAPIIncompatible = "MOD_1402"
	ErrCodeDiscoveryFailed = "MOD_1403"
	ErrCodeWatcherFailed   = "MOD_1404"
)

// Registry error constructors

func NewAlreadyLoadedError(id string) *errors.Error {
	return errors.New(ErrCodeAlreadyLoaded, "Mod already loaded").
		WithUserMessage("A mod with this identifier is already loaded").
		WithContext("mod_id", id).
		WithSeverity("error")
}

func NewNotFoundError(id string) *errors.Error {
	return errors.New(ErrCodeNotFound, "Mod not found").
		WithUserMessage("No mod with this identifier is currently loaded").
		WithContext("mod_id", id).
		WithSeverity("error")
}

// Capability error constructors

func NewUnloadNotSupportedError(id string) *errors.Error {
	return errors.New(ErrCodeUnloadNotSupported, "Unload not supported").
		WithUserMessage("The mod does not implement the unloadable capability").
		WithContext("mod_id", id).
		WithSeverity("warning")
}

func NewSuspendNotSupportedError(id string) *errors.Error {
	return errors.New(ErrCodeSuspendNotSupported, "Suspend not supported").
		WithUserMessage("The mod does not implement the suspendable capability").
		WithContext("mod_id", id).
		WithSeverity("warning")
}

// Loading error constructors

func NewLoadFailureError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeLoadFailure, "Artifact load failed").
		WithUserMessage("The code artifact could not be resolved or loaded").
		WithContext("artifact_path", path).
		WithSeverity("error")
}

func NewEntryPointNotFoundError(path string, found int) *errors.Error {
	return errors.New(ErrCodeEntryPointNotFound, "Entry point not found").
		WithUserMessage("The artifact must register exactly one mod entry point").
		WithContext("artifact_path", path).
		WithContext("entry_points_found", found).
		WithSeverity("error")
}

func NewStartupFailedError(id string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeStartupFailed, "Mod startup failed").
		WithUserMessage("The mod entry point returned an error from its startup hook").
		WithContext("mod_id", id).
		WithSeverity("error")
}

// Notifier error constructors

func NewNotifierFailedError(id string, event string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeNotifierFailed, "Lifecycle notifier failed").
		WithUserMessage("A lifecycle notifier rejected the transition").
		WithContext("mod_id", id).
		WithContext("event", event).
		WithSeverity("error")
}

// Manifest and discovery error constructors

func NewManifestInvalidError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeManifestInvalid, "Invalid mod manifest").
		WithUserMessage("The mod manifest could not be parsed or failed validation").
		WithContext("manifest_path", path).
		WithSeverity("error")
}

func NewAPIIncompatibleError(id string, constraint string, hostVersion string) *errors.Error {
	return errors.New(ErrCodeAPIIncompatible, "Host API version incompatible").
		WithUserMessage("The mod requires a host API version this host does not provide").
		WithContext("mod_id", id).
		WithContext("constraint", constraint).
		WithContext("host_version", hostVersion).
		WithSeverity("error")
}

func NewDiscoveryFailedError(dir string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeDiscoveryFailed, "Mod discovery failed").
		WithUserMessage("Scanning the mod directory failed").
		WithContext("directory", dir).
		WithSeverity("error")
}

func NewWatcherFailedError(message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeWatcherFailed, "Mod set watcher error: "+message).
		WithUserMessage("Watching the mod set file failed").
		WithSeverity("error")
}

// HasCode reports whether err is a structured error carrying the given code.
//
// Callers use this to branch on the error taxonomy without depending on
// message text.
func HasCode(err error, code string) bool {
	if structured, ok := err.(*errors.Error); ok {
		return structured.Code == errors.ErrorCode(code)
	}
	return false
}

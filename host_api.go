// host_api.go: Process-wide host API surface handed to mods
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"sync"
	"sync/atomic"
)

// HostAPI is the service surface every mod receives at startup.
//
// A single instance is created when the manager is constructed and the
// same instance is shared by all mods in the process. Its lifetime is
// tied to the manager: it is torn down at manager disposal, after every
// mod has been unloaded, so it is guaranteed to outlive any mod that
// holds it.
//
// Host services are exposed through a small named registry. The host
// registers services before loading mods; mods look them up by name
// from their startup hook:
//
//	func (m *MyMod) Startup(host *gomodhost.HostAPI) error {
//	    svc, ok := host.Service("event-bus")
//	    ...
//	}
type HostAPI struct {
	version string
	logger  Logger

	servicesMu sync.RWMutex
	services   map[string]any

	closed atomic.Bool
}

// NewHostAPI creates the host API surface for a manager.
//
// version is the host API version advertised to mods and checked against
// manifest constraints (see Manifest.CheckHostCompat).
func NewHostAPI(version string, logger Logger) *HostAPI {
	return &HostAPI{
		version:  version,
		logger:   NewLogger(logger),
		services: make(map[string]any),
	}
}

// Version returns the host API version string.
func (h *HostAPI) Version() string {
	return h.version
}

// Logger returns the host logger mods should use for structured output.
func (h *HostAPI) Logger() Logger {
	return h.logger
}

// RegisterService publishes a named host service to mods.
//
// Registering a name twice replaces the previous service. Registration
// after the surface has been closed is ignored.
func (h *HostAPI) RegisterService(name string, service any) {
	if h.closed.Load() {
		return
	}
	h.servicesMu.Lock()
	defer h.servicesMu.Unlock()
	h.services[name] = service
}

// Service looks up a host service by name.
func (h *HostAPI) Service(name string) (any, bool) {
	h.servicesMu.RLock()
	defer h.servicesMu.RUnlock()
	service, ok := h.services[name]
	return service, ok
}

// close tears the surface down. Called by the manager during disposal,
// strictly after all mods are gone; idempotent.
func (h *HostAPI) close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.servicesMu.Lock()
	defer h.servicesMu.Unlock()
	h.services = make(map[string]any)
}

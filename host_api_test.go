// host_api_test.go: Test suite for the shared host API surface
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"testing"
)

func TestHostAPI_ServiceRegistry(t *testing.T) {
	host := NewHostAPI("1.0.0", nil)

	if _, ok := host.Service("event-bus"); ok {
		t.Error("Unregistered service lookup should miss")
	}

	bus := &struct{ name string }{name: "bus"}
	host.RegisterService("event-bus", bus)

	got, ok := host.Service("event-bus")
	if !ok || got != bus {
		t.Error("Registered service should be returned as-is")
	}

	// Re-registration replaces.
	other := &struct{ name string }{name: "other"}
	host.RegisterService("event-bus", other)
	got, _ = host.Service("event-bus")
	if got != other {
		t.Error("Re-registering a name must replace the service")
	}
}

func TestHostAPI_SharedAcrossMods(t *testing.T) {
	manager, loader := newTestManager(t)
	first := &fullEntryPoint{}
	second := &fullEntryPoint{}
	p1 := registerArtifact(t, loader, func() ModEntryPoint { return first })
	p2 := registerArtifact(t, loader, func() ModEntryPoint { return second })

	if err := manager.Load(p1, ModMetadata{ID: "one"}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := manager.Load(p2, ModMetadata{ID: "two"}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if first.host == nil || first.host != second.host {
		t.Error("All mods must receive the same logical host API instance")
	}
}

func TestHostAPI_CloseClearsServices(t *testing.T) {
	host := NewHostAPI("1.0.0", nil)
	host.RegisterService("svc", 42)

	host.close()

	if _, ok := host.Service("svc"); ok {
		t.Error("Services must be gone after close")
	}

	// Registration after close is ignored.
	host.RegisterService("late", 1)
	if _, ok := host.Service("late"); ok {
		t.Error("Registration after close must be ignored")
	}

	// close is idempotent.
	host.close()
}

func TestHostAPI_Version(t *testing.T) {
	manager, _ := newTestManager(t, WithHostVersion("2.3.0"))
	if got := manager.Host().Version(); got != "2.3.0" {
		t.Errorf("Version = %q, want 2.3.0", got)
	}

	plain := NewManager(nil)
	if got := plain.Host().Version(); got != DefaultHostVersion {
		t.Errorf("Default version = %q, want %q", got, DefaultHostVersion)
	}
}

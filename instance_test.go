// instance_test.go: Test suite for the mod instance state machine
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"errors"
	"testing"
)

// pausableEntryPoint supports suspend/resume but not unload.
type pausableEntryPoint struct {
	started    bool
	suspendErr error
	resumeErr  error
}

func (e *pausableEntryPoint) Startup(host *HostAPI) error {
	e.started = true
	return nil
}

func (e *pausableEntryPoint) Suspend() error { return e.suspendErr }
func (e *pausableEntryPoint) Resume() error  { return e.resumeErr }

// staticModule adapts a bare entry point to the pluginModule contract.
type staticModule struct {
	entry  ModEntryPoint
	closed bool
}

func (m *staticModule) EntryPoint() ModEntryPoint { return m.entry }
func (m *staticModule) Close() error {
	m.closed = true
	return nil
}

func newTestHost() *HostAPI {
	return NewHostAPI("1.0.0", nil)
}

func TestModInstance_CapabilityDerivation(t *testing.T) {
	tests := []struct {
		name        string
		entry       ModEntryPoint
		wantSuspend bool
		wantUnload  bool
	}{
		{"full capability", &fullEntryPoint{}, true, true},
		{"suspend only", &pausableEntryPoint{}, true, false},
		{"no capability", &rigidEntryPoint{}, false, false},
		{"no-op entry point", NoOpEntryPoint{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := newModInstance(ModMetadata{ID: "m"}, &staticModule{entry: tt.entry})
			if inst.CanSuspend() != tt.wantSuspend {
				t.Errorf("CanSuspend = %v, want %v", inst.CanSuspend(), tt.wantSuspend)
			}
			if inst.CanUnload() != tt.wantUnload {
				t.Errorf("CanUnload = %v, want %v", inst.CanUnload(), tt.wantUnload)
			}
			if inst.State() != StateConstructed {
				t.Errorf("Initial state = %v, want constructed", inst.State())
			}
		})
	}
}

func TestModInstance_StartTransition(t *testing.T) {
	entry := &fullEntryPoint{}
	inst := newModInstance(ModMetadata{ID: "m"}, &staticModule{entry: entry})

	if err := inst.start(newTestHost()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if inst.State() != StateRunning {
		t.Errorf("State = %v, want running", inst.State())
	}

	// start is valid only from Constructed.
	if err := inst.start(newTestHost()); err == nil {
		t.Error("Second start must fail")
	}
	if entry.startCalls != 1 {
		t.Errorf("Startup called %d times, want 1", entry.startCalls)
	}
}

func TestModInstance_SuspendHookFailureKeepsState(t *testing.T) {
	entry := &pausableEntryPoint{suspendErr: errors.New("busy")}
	inst := newModInstance(ModMetadata{ID: "m"}, &staticModule{entry: entry})
	if err := inst.start(newTestHost()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := inst.suspend(); err == nil {
		t.Fatal("suspend should propagate the hook failure")
	}
	if inst.State() != StateRunning {
		t.Errorf("State = %v, want running after failed suspend", inst.State())
	}
}

func TestModInstance_UnloadFromSuspended(t *testing.T) {
	entry := &fullEntryPoint{}
	module := &staticModule{entry: entry}
	inst := newModInstance(ModMetadata{ID: "m"}, module)

	if err := inst.start(newTestHost()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := inst.suspend(); err != nil {
		t.Fatalf("suspend failed: %v", err)
	}

	// Suspended is a valid source for the terminal transition.
	if err := inst.unload(); err != nil {
		t.Fatalf("unload failed: %v", err)
	}
	if inst.State() != StateUnloaded {
		t.Errorf("State = %v, want unloaded", inst.State())
	}
	if entry.teardownCalls != 1 {
		t.Errorf("Teardown called %d times, want 1", entry.teardownCalls)
	}
	if !module.closed {
		t.Error("Plugin module must be released on unload")
	}
}

func TestModInstance_UnloadDropsReferences(t *testing.T) {
	module := &staticModule{entry: &fullEntryPoint{}}
	inst := newModInstance(ModMetadata{ID: "m"}, module)

	if err := inst.start(newTestHost()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := inst.unload(); err != nil {
		t.Fatalf("unload failed: %v", err)
	}

	inst.mu.RLock()
	defer inst.mu.RUnlock()
	if inst.entry != nil || inst.module != nil || inst.suspender != nil || inst.unloader != nil {
		t.Error("Unload must drop every reference into the loaded unit")
	}
}

func TestModInstance_UnloadFromConstructedFails(t *testing.T) {
	inst := newModInstance(ModMetadata{ID: "m"}, &staticModule{entry: &fullEntryPoint{}})
	if err := inst.unload(); err == nil {
		t.Error("unload from Constructed must fail")
	}
}

func TestModInstance_SummarySnapshot(t *testing.T) {
	inst := newModInstance(ModMetadata{ID: "m"}, &staticModule{entry: &pausableEntryPoint{}})
	if err := inst.start(newTestHost()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	s := inst.Summary()
	if s.ID != "m" || s.State != StateRunning || !s.CanSuspend || s.CanUnload {
		t.Errorf("Unexpected summary: %+v", s)
	}
	if s.LoadedAt.IsZero() {
		t.Error("Summary must carry the load timestamp")
	}
}

func TestModState_String(t *testing.T) {
	cases := map[ModState]string{
		StateConstructed: "constructed",
		StateRunning:     "running",
		StateSuspended:   "suspended",
		StateUnloaded:    "unloaded",
		ModState(42):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("ModState(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

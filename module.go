// module.go: Plugin module variants owned by a mod instance
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

// pluginModule is the loaded unit behind one mod instance: either a
// code-backed artifact or a metadata-only placeholder. It is owned
// exclusively by its instance and closed exactly once, on unload.
type pluginModule interface {
	EntryPoint() ModEntryPoint
	Close() error
}

// codeModule wraps a LoadedArtifact. Closing it releases the artifact's
// load context, after which no reference derived from the load is valid.
type codeModule struct {
	artifact LoadedArtifact
}

func newCodeModule(artifact LoadedArtifact) *codeModule {
	return &codeModule{artifact: artifact}
}

func (m *codeModule) EntryPoint() ModEntryPoint {
	return m.artifact.EntryPoint()
}

func (m *codeModule) Close() error {
	return m.artifact.Close()
}

// dataModule backs a metadata-only mod: no executable payload, no load
// context, a no-op entry point satisfying the same contract.
type dataModule struct{}

func newDataModule() *dataModule {
	return &dataModule{}
}

func (m *dataModule) EntryPoint() ModEntryPoint {
	return NoOpEntryPoint{}
}

func (m *dataModule) Close() error {
	return nil
}

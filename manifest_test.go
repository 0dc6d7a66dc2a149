// manifest_test.go: Test suite for mod manifest parsing and compatibility
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest_Valid(t *testing.T) {
	data := []byte(`
id: beta
name: Beta Expansion
version: 1.2.0
author: mods@example.com
description: Adds the beta content pack
api: ">= 1.0.0"
artifact: beta.so
capabilities:
  - suspend
  - unload
extra:
  channel: stable
`)

	m, err := ParseManifest(data)
	require.NoError(t, err)

	assert.Equal(t, "beta", m.ID)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, "beta.so", m.Artifact)
	assert.Equal(t, []string{"suspend", "unload"}, m.Capabilities)
	assert.Equal(t, "stable", m.Extra["channel"])
}

func TestParseManifest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty data", ""},
		{"bad yaml", "id: [unterminated"},
		{"missing id", "name: No ID"},
		{"uppercase id", "id: BigMod"},
		{"trailing hyphen", "id: bad-"},
		{"bad version", "id: ok\nversion: not-a-version"},
		{"bad api constraint", "id: ok\napi: \"##\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseManifest_LongID(t *testing.T) {
	id := "a"
	for len(id) <= maxIDLength {
		id += "x"
	}
	_, err := ParseManifest([]byte("id: " + id))
	assert.Error(t, err)
}

func TestManifestCheckHostCompat(t *testing.T) {
	tests := []struct {
		name        string
		constraint  string
		hostVersion string
		wantErr     bool
	}{
		{"no constraint accepts any host", "", "0.0.1", false},
		{"satisfied range", ">= 1.0.0, < 2.0.0", "1.4.2", false},
		{"host too old", ">= 2.0.0", "1.4.2", true},
		{"host too new", "< 1.0.0", "1.0.0", true},
		{"garbage host version", ">= 1.0.0", "not-semver", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manifest{ID: "m", API: tt.constraint}
			err := m.CheckHostCompat(tt.hostVersion)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManifestRequest_PathResolution(t *testing.T) {
	base := t.TempDir()

	withArtifact := &Manifest{ID: "code", Artifact: "code.so"}
	req := withArtifact.Request(base)
	assert.Equal(t, filepath.Join(base, "code.so"), req.Path)
	assert.Equal(t, "code", req.Metadata.ID)

	metadataOnly := &Manifest{ID: "data"}
	req = metadataOnly.Request(base)
	assert.Empty(t, req.Path)

	abs := filepath.Join(base, "elsewhere.so")
	absolute := &Manifest{ID: "abs", Artifact: abs}
	assert.Equal(t, abs, absolute.Request(base).Path)
}

func TestLoadManifestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: ondisk\nversion: 0.1.0"), 0o600))

	m, err := LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ondisk", m.ID)

	_, err = LoadManifestFile(filepath.Join(dir, "missing.yaml"))
	assert.True(t, HasCode(err, ErrCodeManifestInvalid))
}

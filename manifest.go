// manifest.go: Mod manifest parsing and host API compatibility checks
//
// The manifest is the metadata source collaborator: an author-supplied
// mod.yaml describing the mod's identity, declared capabilities, and an
// optional code artifact. The lifecycle core consumes the parsed
// ModMetadata only; nothing downstream of Load ever re-reads the file.
//
// Example manifest:
//
//	id: beta
//	name: Beta Expansion
//	version: 1.2.0
//	author: mods@example.com
//	description: Adds the beta content pack
//	api: ">= 1.0.0"
//	artifact: beta.so
//	capabilities:
//	  - suspend
//	  - unload
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Manifest represents a mod.yaml file.
type Manifest struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name,omitempty"`
	Version     string `yaml:"version,omitempty"`
	Author      string `yaml:"author,omitempty"`
	Description string `yaml:"description,omitempty"`

	// API is an optional semver constraint on the host API version,
	// e.g. ">= 1.0.0, < 2.0.0". An empty constraint accepts any host.
	API string `yaml:"api,omitempty"`

	// Artifact is the code artifact path, relative to the manifest
	// directory. Empty for metadata-only mods.
	Artifact string `yaml:"artifact,omitempty"`

	Capabilities []string          `yaml:"capabilities,omitempty"`
	Extra        map[string]string `yaml:"extra,omitempty"`
}

// maxIDLength is the maximum allowed length for mod identifiers.
const maxIDLength = 64

// idPattern validates mod identifiers: lowercase letter first, then
// lowercase letters, digits, or hyphens, not ending with a hyphen.
var idPattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates manifest data.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, errors.New("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// LoadManifestFile reads, parses and validates a manifest file.
func LoadManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewManifestInvalidError(path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, NewManifestInvalidError(path, err)
	}
	return m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.ID == "" || !idPattern.MatchString(m.ID) {
		return fmt.Errorf("id %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.ID)
	}
	if len(m.ID) > maxIDLength {
		return fmt.Errorf("id must be %d characters or less, got %d", maxIDLength, len(m.ID))
	}
	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			return fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
		}
	}
	if m.API != "" {
		if _, err := semver.NewConstraint(m.API); err != nil {
			return fmt.Errorf("api constraint %q is invalid: %w", m.API, err)
		}
	}
	return nil
}

// CheckHostCompat verifies the manifest's API constraint against the
// host API version. A manifest without a constraint accepts any host.
func (m *Manifest) CheckHostCompat(hostVersion string) error {
	if m.API == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(m.API)
	if err != nil {
		return NewManifestInvalidError(m.ID, err)
	}
	version, err := semver.NewVersion(hostVersion)
	if err != nil {
		return NewAPIIncompatibleError(m.ID, m.API, hostVersion)
	}
	if !constraint.Check(version) {
		return NewAPIIncompatibleError(m.ID, m.API, hostVersion)
	}
	return nil
}

// Metadata converts the manifest to the core's metadata model.
func (m *Manifest) Metadata() ModMetadata {
	return ModMetadata{
		ID:           m.ID,
		Name:         m.Name,
		Version:      m.Version,
		Author:       m.Author,
		Description:  m.Description,
		Capabilities: m.Capabilities,
		Extra:        m.Extra,
	}
}

// Request builds the load request for this manifest. baseDir is the
// directory the manifest was read from; a relative artifact path is
// resolved against it. Metadata-only manifests produce a request with
// an empty path.
func (m *Manifest) Request(baseDir string) LoadRequest {
	path := ""
	if m.Artifact != "" {
		path = m.Artifact
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
	}
	return LoadRequest{Path: path, Metadata: m.Metadata()}
}

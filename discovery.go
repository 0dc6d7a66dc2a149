// discovery.go: Filesystem discovery of mod manifests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gomodhost

import (
	"os"
	"path/filepath"
	"sort"
)

// DiscoveryConfig configures filesystem mod discovery.
type DiscoveryConfig struct {
	// Directories to scan. Each directory is expected to contain one
	// subdirectory per mod with a manifest file inside; a manifest
	// directly in the directory root is accepted too.
	Directories []string `json:"directories" yaml:"directories"`

	// ManifestName is the manifest filename to look for.
	// Defaults to "mod.yaml".
	ManifestName string `json:"manifest_name,omitempty" yaml:"manifest_name,omitempty"`
}

// DiscoveryEngine scans mod directories and turns manifests into load
// requests for Manager.LoadAll.
//
// Manifests that fail to parse or that declare an incompatible host API
// constraint are skipped with a warning; discovery is best-effort the
// same way batch loading is.
type DiscoveryEngine struct {
	config      DiscoveryConfig
	hostVersion string
	logger      Logger
}

// NewDiscoveryEngine creates a discovery engine.
//
// hostVersion is checked against each manifest's API constraint;
// typically manager.Host().Version().
func NewDiscoveryEngine(config DiscoveryConfig, hostVersion string, logger any) *DiscoveryEngine {
	if config.ManifestName == "" {
		config.ManifestName = "mod.yaml"
	}
	return &DiscoveryEngine{
		config:      config,
		hostVersion: hostVersion,
		logger:      NewLogger(logger),
	}
}

// Discover scans the configured directories and returns load requests
// in deterministic (path-sorted) order.
func (e *DiscoveryEngine) Discover() ([]LoadRequest, error) {
	manifestPaths := make([]string, 0)

	for _, dir := range e.config.Directories {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, NewDiscoveryFailedError(dir, err)
		}

		if root := filepath.Join(dir, e.config.ManifestName); fileExists(root) {
			manifestPaths = append(manifestPaths, root)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			candidate := filepath.Join(dir, entry.Name(), e.config.ManifestName)
			if fileExists(candidate) {
				manifestPaths = append(manifestPaths, candidate)
			}
		}
	}

	sort.Strings(manifestPaths)

	requests := make([]LoadRequest, 0, len(manifestPaths))
	for _, path := range manifestPaths {
		manifest, err := LoadManifestFile(path)
		if err != nil {
			e.logger.Warn("Skipping invalid mod manifest", "path", path, "error", err)
			continue
		}
		if err := manifest.CheckHostCompat(e.hostVersion); err != nil {
			e.logger.Warn("Skipping incompatible mod",
				"mod_id", manifest.ID,
				"constraint", manifest.API,
				"host_version", e.hostVersion)
			continue
		}
		requests = append(requests, manifest.Request(filepath.Dir(path)))
	}

	e.logger.Info("Mod discovery completed",
		"manifests", len(manifestPaths), "loadable", len(requests))

	return requests, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

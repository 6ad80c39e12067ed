// discovery.go: Deployable unit sources backed by memory or unit manifests on disk
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DeployableUnit is an independently loaded bundle that ships code units.
type DeployableUnit struct {
	PackageID  string   `json:"package_id" yaml:"package_id"`
	Name       string   `json:"name" yaml:"name"`
	Version    string   `json:"version,omitempty" yaml:"version,omitempty"`
	LoadOrder  int      `json:"-" yaml:"-"`
	CodeUnits  []string `json:"code_units" yaml:"code_units"`
	LoadAfter  []string `json:"load_after,omitempty" yaml:"load_after,omitempty"`
	LoadBefore []string `json:"load_before,omitempty" yaml:"load_before,omitempty"`
	Path       string   `json:"-" yaml:"-"`
}

// UnitSource reports the deployable units that are currently loaded.
type UnitSource interface {
	LoadedUnits() ([]DeployableUnit, error)
}

// StaticUnitSource is an in-memory UnitSource. It is safe for concurrent use.
type StaticUnitSource struct {
	mu    sync.RWMutex
	units []DeployableUnit
}

// NewStaticUnitSource creates a source holding units.
func NewStaticUnitSource(units ...DeployableUnit) *StaticUnitSource {
	s := &StaticUnitSource{}
	s.Set(units...)
	return s
}

// LoadedUnits implements UnitSource.
func (s *StaticUnitSource) LoadedUnits() ([]DeployableUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DeployableUnit, len(s.units))
	copy(out, s.units)
	return out, nil
}

// Set replaces the loaded units.
func (s *StaticUnitSource) Set(units ...DeployableUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = append(s.units[:0:0], units...)
}

// Add appends a unit to the loaded set.
func (s *StaticUnitSource) Add(unit DeployableUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = append(s.units, unit)
}

// Remove unloads the unit with the given package id and reports whether it
// was present.
func (s *StaticUnitSource) Remove(packageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.units {
		if u.PackageID == packageID {
			s.units = append(s.units[:i], s.units[i+1:]...)
			return true
		}
	}
	return false
}

// Manifest file names recognised by DirectoryUnitSource.
var unitManifestNames = []string{"unit.yaml", "unit.yml", "unit.json"}

// DirectoryUnitSource discovers unit manifests below Root and loads the
// units listed in the load-order file, in that order. Units not listed are
// installed but not loaded.
type DirectoryUnitSource struct {
	Root          string
	LoadOrderFile string
	MaxDepth      int

	logger Logger
}

// loadOrderDocument is the on-disk shape of the load-order file.
type loadOrderDocument struct {
	Active []string `json:"active" yaml:"active"`
}

// NewDirectoryUnitSource creates a source scanning root.
func NewDirectoryUnitSource(root, loadOrderFile string, logger Logger) *DirectoryUnitSource {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &DirectoryUnitSource{
		Root:          root,
		LoadOrderFile: loadOrderFile,
		MaxDepth:      3,
		logger:        logger,
	}
}

// LoadedUnits implements UnitSource.
func (d *DirectoryUnitSource) LoadedUnits() ([]DeployableUnit, error) {
	active, err := ReadLoadOrderFile(d.LoadOrderFile)
	if err != nil {
		return nil, err
	}

	installed, err := d.InstalledUnits()
	if err != nil {
		return nil, err
	}

	units := make([]DeployableUnit, 0, len(active))
	for order, packageID := range active {
		unit, ok := installed[packageID]
		if !ok {
			d.logger.Warn("Active unit is not installed", "package_id", packageID)
			continue
		}
		unit.LoadOrder = order
		units = append(units, unit)
	}
	return units, nil
}

// InstalledUnits returns every unit manifest found below Root keyed by
// package id. The first manifest wins when two declare the same package id.
func (d *DirectoryUnitSource) InstalledUnits() (map[string]DeployableUnit, error) {
	units := make(map[string]DeployableUnit)
	if err := d.scanDirectory(filepath.Clean(d.Root), 0, units); err != nil {
		return nil, err
	}
	return units, nil
}

func (d *DirectoryUnitSource) scanDirectory(path string, depth int, units map[string]DeployableUnit) error {
	if depth > d.MaxDepth {
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return NewManifestParseError(path, err)
	}

	// Directories are visited in name order so the first-wins rule is stable.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		fullPath := filepath.Join(path, entry.Name())
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if err := d.scanDirectory(fullPath, depth+1, units); err != nil {
				d.logger.Error("Failed to scan unit directory", "path", fullPath, "error", err)
			}
			continue
		}
		if !isUnitManifest(entry.Name()) {
			continue
		}

		unit, err := ParseUnitManifest(fullPath)
		if err != nil {
			d.logger.Error("Failed to parse unit manifest", "path", fullPath, "error", err)
			continue
		}
		if existing, dup := units[unit.PackageID]; dup {
			d.logger.Warn("Duplicate unit package id, keeping first",
				"package_id", unit.PackageID,
				"kept", existing.Path,
				"ignored", unit.Path)
			continue
		}
		units[unit.PackageID] = unit
		d.logger.Debug("Discovered unit",
			"package_id", unit.PackageID,
			"version", unit.Version,
			"path", unit.Path)
	}
	return nil
}

func isUnitManifest(name string) bool {
	for _, candidate := range unitManifestNames {
		if name == candidate {
			return true
		}
	}
	return false
}

// ParseUnitManifest reads a unit manifest (JSON or YAML).
func ParseUnitManifest(path string) (DeployableUnit, error) {
	var unit DeployableUnit

	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - manifest paths come from the scanned unit root
	if err != nil {
		return unit, NewManifestParseError(path, err)
	}

	// Try JSON first, then YAML
	if err := json.Unmarshal(data, &unit); err != nil {
		if err := yaml.Unmarshal(data, &unit); err != nil {
			return unit, NewManifestParseError(path, err)
		}
	}

	if strings.TrimSpace(unit.PackageID) == "" {
		return unit, NewManifestParseError(path, fmt.Errorf("package_id is required"))
	}
	if unit.Name == "" {
		unit.Name = unit.PackageID
	}
	unit.Path = filepath.Dir(path)
	return unit, nil
}

// ReadLoadOrderFile returns the active package ids listed in path, in order.
// Duplicate entries after the first are ignored.
func ReadLoadOrderFile(path string) ([]string, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - configured load-order file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewConfigNotFoundError(path)
		}
		return nil, NewConfigParseError(path, err)
	}

	var doc loadOrderDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewConfigParseError(path, err)
	}

	seen := make(map[string]bool, len(doc.Active))
	active := make([]string, 0, len(doc.Active))
	for _, id := range doc.Active {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		active = append(active, id)
	}
	return active, nil
}

// WriteLoadOrderFile writes active as a load-order file.
func WriteLoadOrderFile(path string, active []string) error {
	data, err := yaml.Marshal(loadOrderDocument{Active: active})
	if err != nil {
		return NewConfigParseError(path, err)
	}
	return os.WriteFile(path, data, 0600)
}

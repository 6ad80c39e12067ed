// discovery_test.go: Tests for unit sources, manifests and load-order files
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestStaticUnitSource(t *testing.T) {
	s := NewStaticUnitSource(unit("a", 0, "cu.a"))
	s.Add(unit("b", 1, "cu.b"))

	units, err := s.LoadedUnits()
	require.NoError(t, err)
	assert.Len(t, units, 2)

	units[0].PackageID = "mutated"
	again, _ := s.LoadedUnits()
	assert.Equal(t, "a", again[0].PackageID)

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	s.Set()
	units, _ = s.LoadedUnits()
	assert.Empty(t, units)
}

func TestParseUnitManifest(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "clock", "unit.yaml")
	writeFile(t, yamlPath, "package_id: demo.clock\nversion: 1.2.0\ncode_units: [demo.clock]\nload_after: [agilira.pluginhost]\n")
	u, err := ParseUnitManifest(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "demo.clock", u.PackageID)
	assert.Equal(t, "demo.clock", u.Name, "name defaults to the package id")
	assert.Equal(t, []string{"demo.clock"}, u.CodeUnits)
	assert.Equal(t, []string{"agilira.pluginhost"}, u.LoadAfter)
	assert.Equal(t, filepath.Dir(yamlPath), u.Path)

	jsonPath := filepath.Join(dir, "weather", "unit.json")
	writeFile(t, jsonPath, `{"package_id": "demo.weather", "name": "Weather", "code_units": ["demo.weather"]}`)
	u, err = ParseUnitManifest(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "Weather", u.Name)

	missingID := filepath.Join(dir, "bad", "unit.yaml")
	writeFile(t, missingID, "name: nameless\n")
	_, err = ParseUnitManifest(missingID)
	assert.True(t, HasErrorCode(err, ErrCodeManifestParse))

	_, err = ParseUnitManifest(filepath.Join(dir, "absent", "unit.yaml"))
	assert.True(t, HasErrorCode(err, ErrCodeManifestParse))
}

func TestLoadOrderFile_RoundTripAndDedup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "load_order.yaml")

	_, err := ReadLoadOrderFile(path)
	assert.True(t, HasErrorCode(err, ErrCodeConfigNotFound))

	writeFile(t, path, "active:\n  - core\n  - ' demo.clock '\n  - core\n  - ''\n  - demo.weather\n")
	active, err := ReadLoadOrderFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "demo.clock", "demo.weather"}, active)

	require.NoError(t, WriteLoadOrderFile(path, []string{"demo.weather", "core"}))
	active, err = ReadLoadOrderFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo.weather", "core"}, active)

	writeFile(t, path, "active: {not: a list}\n")
	_, err = ReadLoadOrderFile(path)
	assert.True(t, HasErrorCode(err, ErrCodeConfigParse))
}

func TestDirectoryUnitSource_LoadsActiveUnitsInOrder(t *testing.T) {
	root := t.TempDir()
	units := filepath.Join(root, "units")
	writeFile(t, filepath.Join(units, "core", "unit.yaml"), "package_id: core\ncode_units: [core]\n")
	writeFile(t, filepath.Join(units, "clock", "unit.yml"), "package_id: demo.clock\ncode_units: [demo.clock]\n")
	writeFile(t, filepath.Join(units, "nested", "deep", "weather", "unit.json"), `{"package_id": "demo.weather", "code_units": ["demo.weather"]}`)
	writeFile(t, filepath.Join(units, "zz-copy", "unit.yaml"), "package_id: core\ncode_units: [other]\n")
	writeFile(t, filepath.Join(units, ".hidden", "unit.yaml"), "package_id: hidden\n")
	writeFile(t, filepath.Join(units, "broken", "unit.yaml"), "package_id: [oops\n")
	writeFile(t, filepath.Join(units, "clock", "README.md"), "not a manifest")

	loadOrder := filepath.Join(root, "load_order.yaml")
	require.NoError(t, WriteLoadOrderFile(loadOrder, []string{"demo.weather", "missing", "core"}))

	logger := NewTestLogger()
	source := NewDirectoryUnitSource(units, loadOrder, logger)

	installed, err := source.InstalledUnits()
	require.NoError(t, err)
	assert.Len(t, installed, 3)
	assert.Equal(t, []string{"core"}, installed["core"].CodeUnits, "the first manifest in name order wins")
	assert.NotContains(t, installed, "hidden")

	loaded, err := source.LoadedUnits()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "demo.weather", loaded[0].PackageID)
	assert.Equal(t, 0, loaded[0].LoadOrder)
	assert.Equal(t, "core", loaded[1].PackageID)
	assert.Equal(t, 2, loaded[1].LoadOrder)

	assert.True(t, logger.HasMessage("WARN", "Active unit is not installed"))
	assert.True(t, logger.HasMessage("WARN", "Duplicate unit package id, keeping first"))
	assert.True(t, logger.HasMessage("ERROR", "Failed to parse unit manifest"))
}

func TestDirectoryUnitSource_RespectsMaxDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b", "unit.yaml"), "package_id: shallow\n")
	writeFile(t, filepath.Join(root, "a", "b", "c", "d", "unit.yaml"), "package_id: deep\n")

	source := NewDirectoryUnitSource(root, "", nil)
	source.MaxDepth = 2

	installed, err := source.InstalledUnits()
	require.NoError(t, err)
	assert.Contains(t, installed, "shallow")
	assert.NotContains(t, installed, "deep")
}

func TestDirectoryUnitSource_Errors(t *testing.T) {
	root := t.TempDir()

	_, err := NewDirectoryUnitSource(root, filepath.Join(root, "none.yaml"), nil).LoadedUnits()
	assert.True(t, HasErrorCode(err, ErrCodeConfigNotFound))

	loadOrder := filepath.Join(root, "load_order.yaml")
	require.NoError(t, WriteLoadOrderFile(loadOrder, []string{"x"}))
	_, err = NewDirectoryUnitSource(filepath.Join(root, "no-such-dir"), loadOrder, nil).LoadedUnits()
	assert.True(t, HasErrorCode(err, ErrCodeManifestParse))
}

func TestDependencyLoadOrderChecker(t *testing.T) {
	withDeps := func(u DeployableUnit, after, before []string) DeployableUnit {
		u.LoadAfter = after
		u.LoadBefore = before
		return u
	}

	tests := []struct {
		name    string
		require bool
		units   []DeployableUnit
		want    []LoadOrderViolation
	}{
		{
			name: "Satisfied",
			units: []DeployableUnit{
				unit("core", 0),
				withDeps(unit("ext", 1), []string{"core"}, nil),
				withDeps(unit("patch", 2), nil, []string{"later"}),
				unit("later", 3),
			},
		},
		{
			name: "LoadAfterViolated",
			units: []DeployableUnit{
				withDeps(unit("ext", 0), []string{"core"}, nil),
				unit("core", 1),
			},
			want: []LoadOrderViolation{{Unit: "ext", Related: "core", Message: "must load after core but loads before it"}},
		},
		{
			name: "LoadBeforeViolated",
			units: []DeployableUnit{
				unit("core", 0),
				withDeps(unit("ext", 1), nil, []string{"core"}),
			},
			want: []LoadOrderViolation{{Unit: "ext", Related: "core", Message: "must load before core but loads after it"}},
		},
		{
			name:  "MissingOptionalDependency",
			units: []DeployableUnit{withDeps(unit("ext", 0), []string{"absent"}, nil)},
		},
		{
			name:    "MissingRequiredDependency",
			require: true,
			units:   []DeployableUnit{withDeps(unit("ext", 0), []string{"absent"}, nil)},
			want:    []LoadOrderViolation{{Unit: "ext", Related: "absent", Message: "required unit absent is not loaded"}},
		},
		{
			name: "Cycle",
			units: []DeployableUnit{
				withDeps(unit("a", 0), []string{"b"}, nil),
				withDeps(unit("b", 1), []string{"a"}, nil),
			},
			want: []LoadOrderViolation{
				{Unit: "a", Related: "b", Message: "must load after b but loads before it"},
				{Unit: "a", Message: "load order declarations form a cycle"},
				{Unit: "b", Message: "load order declarations form a cycle"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DependencyLoadOrderChecker{RequireDependencies: tt.require}.Validate(tt.units)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadOrderViolation_String(t *testing.T) {
	assert.Equal(t, "a -> b: x", LoadOrderViolation{Unit: "a", Related: "b", Message: "x"}.String())
	assert.Equal(t, "a: cycle", LoadOrderViolation{Unit: "a", Message: "cycle"}.String())
}

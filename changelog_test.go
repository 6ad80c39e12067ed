// changelog_test.go: Tests for the bolt-backed update manager
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noticeRecorder struct {
	batches [][]UpdateNotice
}

func (r *noticeRecorder) notify(notices []UpdateNotice) {
	r.batches = append(r.batches, notices)
}

func openTestUpdates(t *testing.T, path string, rec *noticeRecorder) *BoltUpdateManager {
	t.Helper()
	m, err := OpenBoltUpdateManager(path, rec.notify, NewTestLogger())
	require.NoError(t, err)
	return m
}

func TestBoltUpdateManager_FirstSightingIsSilent(t *testing.T) {
	rec := &noticeRecorder{}
	m := openTestUpdates(t, filepath.Join(t.TempDir(), "nested", "changelog.db"), rec)
	defer m.Close()

	require.NoError(t, m.InspectActiveExtension("demo.clock", "1.0.0"))

	assert.False(t, m.TryShowNotice(false))
	assert.Empty(t, rec.batches)
	seen, ok, err := m.SeenVersion("demo.clock")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1.0.0", seen)
}

func TestBoltUpdateManager_UpgradeProducesNoticeOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.db")
	rec := &noticeRecorder{}

	first := openTestUpdates(t, path, rec)
	require.NoError(t, first.InspectActiveExtension("demo.clock", "1.0.0"))
	require.NoError(t, first.InspectActiveExtension("demo.weather", "2.0.0"))
	require.NoError(t, first.Close())

	second := openTestUpdates(t, path, rec)
	defer second.Close()
	require.NoError(t, second.InspectActiveExtension("demo.clock", "1.1.0"))
	require.NoError(t, second.InspectActiveExtension("demo.weather", "1.9.0"))

	assert.Equal(t, []UpdateNotice{{Identifier: "demo.clock", FromVersion: "1.0.0", ToVersion: "1.1.0"}}, second.Pending())
	assert.True(t, second.TryShowNotice(false))
	require.Len(t, rec.batches, 1)
	assert.Equal(t, "demo.clock", rec.batches[0][0].Identifier)

	seen, _, err := second.SeenVersion("demo.clock")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", seen)
	assert.False(t, second.TryShowNotice(false))
	assert.Empty(t, second.Pending())
}

func TestBoltUpdateManager_NumericPrereleaseUpgrade(t *testing.T) {
	rec := &noticeRecorder{}
	m := openTestUpdates(t, filepath.Join(t.TempDir(), "changelog.db"), rec)
	defer m.Close()

	require.NoError(t, m.InspectActiveExtension("demo.weather", "1.0.0-beta.9"))
	require.NoError(t, m.InspectActiveExtension("demo.weather", "1.0.0-beta.10"))

	assert.Equal(t, []UpdateNotice{{
		Identifier:  "demo.weather",
		FromVersion: "1.0.0-beta.9",
		ToVersion:   "1.0.0-beta.10",
	}}, m.Pending())
}

func TestBoltUpdateManager_ForceShowsEveryInspectedExtension(t *testing.T) {
	rec := &noticeRecorder{}
	m := openTestUpdates(t, filepath.Join(t.TempDir(), "changelog.db"), rec)
	defer m.Close()

	require.NoError(t, m.InspectActiveExtension("b.ext", "1.0"))
	require.NoError(t, m.InspectActiveExtension("a.ext", "3.2"))

	assert.True(t, m.TryShowNotice(true))
	require.Len(t, rec.batches, 1)
	assert.Equal(t, []UpdateNotice{
		{Identifier: "a.ext", ToVersion: "3.2"},
		{Identifier: "b.ext", ToVersion: "1.0"},
	}, rec.batches[0])
}

func TestBoltUpdateManager_RejectsInvalidVersion(t *testing.T) {
	m := openTestUpdates(t, filepath.Join(t.TempDir(), "changelog.db"), &noticeRecorder{})
	defer m.Close()

	err := m.InspectActiveExtension("demo.clock", "not-a-version")
	assert.True(t, HasErrorCode(err, ErrCodeVersionResolution))
	_, ok, err := m.SeenVersion("demo.clock")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoltUpdateManager_DefaultNotifierLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.db")
	logger := NewTestLogger()
	m, err := OpenBoltUpdateManager(path, nil, logger)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.InspectActiveExtension("x", "1.0"))
	assert.True(t, m.TryShowNotice(true))
	assert.True(t, logger.HasMessage("INFO", "Extension updated"))
}

func TestMemoryUpdateManager(t *testing.T) {
	m := NewMemoryUpdateManager()
	require.NoError(t, m.InspectActiveExtension("x", "1.0"))

	assert.Equal(t, map[string]string{"x": "1.0"}, m.Inspected)
	assert.False(t, m.TryShowNotice(false))
	assert.True(t, m.TryShowNotice(true))
	assert.Equal(t, 1, m.Notices)
	assert.NoError(t, m.Close())
}

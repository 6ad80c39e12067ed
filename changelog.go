// changelog.go: Bolt-backed update manager deciding "what's new" notices
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/boltdb/bolt"
)

var bucketSeenVersions = []byte("seen_versions")

// UpdateNotice tells the user that an extension changed version.
type UpdateNotice struct {
	Identifier  string `json:"identifier"`
	FromVersion string `json:"from_version,omitempty"`
	ToVersion   string `json:"to_version"`
}

// NoticeFunc presents notices to the user.
type NoticeFunc func(notices []UpdateNotice)

// BoltUpdateManager remembers the last version of each extension the user
// has been told about. An extension whose version grew since then gets a
// notice on the next TryShowNotice. First sightings are recorded silently.
type BoltUpdateManager struct {
	db     *bolt.DB
	notify NoticeFunc
	logger Logger

	current map[string]string
	pending map[string]UpdateNotice
}

// OpenBoltUpdateManager opens (or creates) the database at path.
func OpenBoltUpdateManager(path string, notify NoticeFunc, logger Logger) (*BoltUpdateManager, error) {
	if logger == nil {
		logger = DefaultLogger()
	}
	if notify == nil {
		notify = func(notices []UpdateNotice) {
			for _, n := range notices {
				logger.Info("Extension updated",
					"identifier", n.Identifier,
					"from_version", n.FromVersion,
					"to_version", n.ToVersion)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, NewChangelogStoreError("failed to create directory", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, NewChangelogStoreError("failed to open database", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSeenVersions)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, NewChangelogStoreError("failed to create bucket", err)
	}

	return &BoltUpdateManager{
		db:      db,
		notify:  notify,
		logger:  logger,
		current: make(map[string]string),
		pending: make(map[string]UpdateNotice),
	}, nil
}

// InspectActiveExtension implements UpdateManager.
func (m *BoltUpdateManager) InspectActiveExtension(identifier, version string) error {
	current, err := ParseVersion(version)
	if err != nil {
		return err
	}
	m.current[identifier] = version

	seen, ok, err := m.SeenVersion(identifier)
	if err != nil {
		return err
	}
	if !ok {
		return m.markSeen(map[string]string{identifier: version})
	}

	previous, err := ParseVersion(seen)
	if err != nil {
		// An unreadable record is replaced by the current version.
		m.logger.Warn("Discarding unreadable seen version", "identifier", identifier, "seen", seen)
		return m.markSeen(map[string]string{identifier: version})
	}
	if current.Compare(previous) > 0 {
		m.pending[identifier] = UpdateNotice{
			Identifier:  identifier,
			FromVersion: seen,
			ToVersion:   version,
		}
	}
	return nil
}

// TryShowNotice implements UpdateManager. Without force it shows only the
// pending notices; with force it shows an entry for every inspected
// extension. Shown versions are recorded as seen.
func (m *BoltUpdateManager) TryShowNotice(force bool) bool {
	var notices []UpdateNotice
	if force {
		for id, version := range m.current {
			n, ok := m.pending[id]
			if !ok {
				n = UpdateNotice{Identifier: id, ToVersion: version}
			}
			notices = append(notices, n)
		}
	} else {
		for _, n := range m.pending {
			notices = append(notices, n)
		}
	}
	if len(notices) == 0 {
		return false
	}
	sort.Slice(notices, func(i, j int) bool { return notices[i].Identifier < notices[j].Identifier })

	m.notify(notices)

	seen := make(map[string]string, len(notices))
	for _, n := range notices {
		seen[n.Identifier] = n.ToVersion
	}
	if err := m.markSeen(seen); err != nil {
		m.logger.Error("Failed to record seen versions", "error", err)
	}
	m.pending = make(map[string]UpdateNotice)
	return true
}

// Pending returns the notices that TryShowNotice(false) would show.
func (m *BoltUpdateManager) Pending() []UpdateNotice {
	out := make([]UpdateNotice, 0, len(m.pending))
	for _, n := range m.pending {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// SeenVersion returns the last version recorded for identifier.
func (m *BoltUpdateManager) SeenVersion(identifier string) (string, bool, error) {
	var version []byte
	err := m.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSeenVersions).Get([]byte(identifier)); v != nil {
			version = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", false, NewChangelogStoreError("failed to read seen version", err)
	}
	if version == nil {
		return "", false, nil
	}
	return string(version), true, nil
}

func (m *BoltUpdateManager) markSeen(versions map[string]string) error {
	err := m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSeenVersions)
		for id, version := range versions {
			if err := b.Put([]byte(id), []byte(version)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return NewChangelogStoreError("failed to record seen version", err)
	}
	return nil
}

// Close implements UpdateManager.
func (m *BoltUpdateManager) Close() error {
	if err := m.db.Close(); err != nil {
		return NewChangelogStoreError("failed to close database", err)
	}
	return nil
}

// MemoryUpdateManager records inspections without persisting them. It is
// the default when no changelog database is configured.
type MemoryUpdateManager struct {
	Inspected map[string]string
	Notices   int
}

// NewMemoryUpdateManager creates an empty manager.
func NewMemoryUpdateManager() *MemoryUpdateManager {
	return &MemoryUpdateManager{Inspected: make(map[string]string)}
}

// InspectActiveExtension implements UpdateManager.
func (m *MemoryUpdateManager) InspectActiveExtension(identifier, version string) error {
	m.Inspected[identifier] = version
	return nil
}

// TryShowNotice implements UpdateManager; only forced notices are shown.
func (m *MemoryUpdateManager) TryShowNotice(force bool) bool {
	if !force {
		return false
	}
	m.Notices++
	return true
}

// Close implements UpdateManager.
func (m *MemoryUpdateManager) Close() error { return nil }

var (
	_ UpdateManager = (*BoltUpdateManager)(nil)
	_ UpdateManager = (*MemoryUpdateManager)(nil)
)

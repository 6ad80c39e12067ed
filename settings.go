// settings.go: In-memory and YAML file-backed settings managers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// MemorySettingsManager keeps settings pages in memory.
type MemorySettingsManager struct {
	mu        sync.RWMutex
	pages     map[string]*SettingsPage
	callbacks []func()
}

// NewMemorySettingsManager creates an empty manager.
func NewMemorySettingsManager() *MemorySettingsManager {
	return &MemorySettingsManager{pages: make(map[string]*SettingsPage)}
}

// GetOrCreatePage implements SettingsManager.
func (m *MemorySettingsManager) GetOrCreatePage(id string) *SettingsPage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page, ok := m.pages[id]; ok {
		return page
	}
	page := NewSettingsPage(id)
	m.pages[id] = page
	return page
}

// Page returns the page registered under id.
func (m *MemorySettingsManager) Page(id string) (*SettingsPage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	page, ok := m.pages[id]
	return page, ok
}

// PageIDs returns the registered page ids in sorted order.
func (m *MemorySettingsManager) PageIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.pages))
	for id := range m.pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OnChanged implements SettingsManager.
func (m *MemorySettingsManager) OnChanged(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// NotifyChanged fires the OnChanged callbacks.
func (m *MemorySettingsManager) NotifyChanged() {
	m.mu.RLock()
	callbacks := make([]func(), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.RUnlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Close implements SettingsManager.
func (m *MemorySettingsManager) Close() error { return nil }

// settingsDocument is the on-disk shape of the settings file.
type settingsDocument struct {
	Pages map[string]map[string]string `yaml:"pages"`
}

// FileSettingsOptions configures a FileSettingsManager.
type FileSettingsOptions struct {
	// Path of the YAML settings file.
	Path string

	// Watch reloads the file when it changes on disk.
	Watch        bool
	PollInterval time.Duration

	// Post delivers watcher reloads to the host thread. When nil, reloads
	// run on the watcher goroutine.
	Post func(func())

	// Audit records reloads and saves when set.
	Audit *argus.AuditLogger
}

// FileSettingsManager persists pages to a YAML file and reloads them when
// the file changes. Reloads that change a page fire OnChanged.
type FileSettingsManager struct {
	*MemorySettingsManager

	options FileSettingsOptions
	logger  Logger
	watcher *argus.Watcher
}

// NewFileSettingsManager creates a manager and loads the file if it exists.
func NewFileSettingsManager(options FileSettingsOptions, logger Logger) (*FileSettingsManager, error) {
	if options.Path == "" {
		return nil, NewSettingsError("settings path is required", nil)
	}
	if options.PollInterval <= 0 {
		options.PollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = DefaultLogger()
	}

	m := &FileSettingsManager{
		MemorySettingsManager: NewMemorySettingsManager(),
		options:               options,
		logger:                logger,
	}
	if _, err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads the settings file and reports whether any page changed. A
// missing file leaves the pages untouched.
func (m *FileSettingsManager) Load() (bool, error) {
	data, err := os.ReadFile(filepath.Clean(m.options.Path)) // #nosec G304 - configured settings path
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, NewSettingsError("failed to read settings file", err)
	}

	var doc settingsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false, NewSettingsError("failed to parse settings file", err)
	}

	changed := false
	for id, values := range doc.Pages {
		if m.GetOrCreatePage(id).replace(values) {
			changed = true
		}
	}
	return changed, nil
}

// Save writes every page to the settings file.
func (m *FileSettingsManager) Save() error {
	doc := settingsDocument{Pages: make(map[string]map[string]string)}
	for _, id := range m.PageIDs() {
		page, _ := m.Page(id)
		doc.Pages[id] = page.Values()
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return NewSettingsError("failed to encode settings", err)
	}
	if err := os.WriteFile(m.options.Path, data, 0600); err != nil {
		return NewSettingsError("failed to write settings file", err)
	}
	m.audit("settings_saved", map[string]interface{}{"pages": len(doc.Pages)})
	return nil
}

// Start begins watching the settings file when Watch is set.
func (m *FileSettingsManager) Start() error {
	if !m.options.Watch || m.watcher != nil {
		return nil
	}

	watcher := argus.New(argus.Config{
		PollInterval:         m.options.PollInterval,
		CacheTTL:             m.options.PollInterval / 2,
		MaxWatchedFiles:      1,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, path string) {
			m.logger.Error("Settings file watching error", "error", err, "file", path)
		},
	})
	if err := watcher.Watch(m.options.Path, m.handleChange); err != nil {
		return NewWatcherError("failed to watch settings file", err)
	}
	if err := watcher.Start(); err != nil {
		return NewWatcherError("failed to start settings watcher", err)
	}
	m.watcher = watcher
	return nil
}

func (m *FileSettingsManager) handleChange(event argus.ChangeEvent) {
	defer withStackRecover(m.logger)()

	if event.IsDelete {
		m.logger.Warn("Settings file was deleted, keeping current values", "path", event.Path)
		return
	}

	reload := func() {
		changed, err := m.Load()
		if err != nil {
			m.logger.Error("Failed to reload settings", "path", event.Path, "error", err)
			return
		}
		m.audit("settings_reloaded", map[string]interface{}{"path": event.Path, "changed": changed})
		if changed {
			m.NotifyChanged()
		}
	}

	if m.options.Post != nil {
		m.options.Post(reload)
		return
	}
	reload()
}

func (m *FileSettingsManager) audit(event string, context map[string]interface{}) {
	if m.options.Audit != nil {
		m.options.Audit.LogSecurityEvent(event, "Settings manager event", context)
	}
}

// Close stops the watcher.
func (m *FileSettingsManager) Close() error {
	if m.watcher == nil {
		return nil
	}
	err := m.watcher.Stop()
	m.watcher = nil
	if err != nil {
		return NewWatcherError("failed to stop settings watcher", err)
	}
	return nil
}

var (
	_ SettingsManager = (*MemorySettingsManager)(nil)
	_ SettingsManager = (*FileSettingsManager)(nil)
)

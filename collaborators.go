// collaborators.go: Narrow interfaces for the services the controller consumes
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"sort"
	"sync"
)

// SettingsManager owns the persisted settings pages of the host.
type SettingsManager interface {
	// GetOrCreatePage returns the page registered under id, creating it
	// when it does not exist yet.
	GetOrCreatePage(id string) *SettingsPage

	// OnChanged registers a callback fired after any page's values change.
	OnChanged(fn func())

	Close() error
}

// UpdateManager decides whether a "what's new" notice is warranted.
type UpdateManager interface {
	InspectActiveExtension(identifier, version string) error

	// TryShowNotice shows pending notices; force shows them even when
	// nothing changed since the last run. It reports whether a notice was shown.
	TryShowNotice(force bool) bool

	Close() error
}

// TickScheduler runs work on simulation ticks.
type TickScheduler interface {
	Initialize(currentTick int)
	Tick(currentTick int)
}

// FrameScheduler additionally runs work on frame, GUI and map-loaded events.
type FrameScheduler interface {
	TickScheduler
	OnUpdate()
	OnGUI()
	OnMapLoaded(m Map)
}

// LogPublisher uploads logs on request; it only needs to register its own settings.
type LogPublisher interface {
	RegisterSettings(settings SettingsManager)
}

// VersionResolver resolves the version string of a code unit.
type VersionResolver interface {
	ResolveVersion(codeUnit string) (string, error)
}

// LoadOrderChecker reports load-order problems in the loaded units.
type LoadOrderChecker interface {
	Validate(units []DeployableUnit) []LoadOrderViolation
}

// AttributeProcessor handles declarative registrations that became visible
// since the previous load pass.
type AttributeProcessor interface {
	ProcessNewlyVisibleTypes() error
}

// WorldObjectManager receives the world and definition events.
type WorldObjectManager interface {
	OnWorldLoaded() error
	OnDefsLoaded() error
}

// RuntimePatcher installs the runtime patch for one code unit.
type RuntimePatcher interface {
	Apply(codeUnit string) error
}

// Quickstarter prepares fast-launch support during LateInit.
type Quickstarter interface {
	Prepare() error
}

// Host is the embedding environment's deferred-continuation queue.
type Host interface {
	// AfterLongEvent runs fn once the current long operation has finished.
	AfterLongEvent(fn func())
	// AfterMapRendered runs fn once the current map finished rendering.
	AfterMapRendered(fn func())
	CurrentTick() int
}

// SettingsPage is a named set of string values.
type SettingsPage struct {
	ID string

	mu     sync.RWMutex
	values map[string]string
}

// NewSettingsPage creates an empty page.
func NewSettingsPage(id string) *SettingsPage {
	return &SettingsPage{ID: id, values: make(map[string]string)}
}

// Get returns the value stored under key.
func (p *SettingsPage) Get(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// GetOr returns the value stored under key or def when it is unset.
func (p *SettingsPage) GetOr(key, def string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return def
}

// Set stores value under key and reports whether it changed.
func (p *SettingsPage) Set(key, value string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	old, ok := p.values[key]
	p.values[key] = value
	return !ok || old != value
}

// Keys returns the page's keys in sorted order.
func (p *SettingsPage) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns a copy of the page's values.
func (p *SettingsPage) Values() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// replace swaps the page contents and reports whether anything changed.
func (p *SettingsPage) replace(values map[string]string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := len(values) != len(p.values)
	if !changed {
		for k, v := range values {
			if old, ok := p.values[k]; !ok || old != v {
				changed = true
				break
			}
		}
	}
	p.values = make(map[string]string, len(values))
	for k, v := range values {
		p.values[k] = v
	}
	return changed
}

// Default collaborators used when Options leaves a slot empty.

type nopLogPublisher struct{}

func (nopLogPublisher) RegisterSettings(SettingsManager) {}

type nopAttributeProcessor struct{}

func (nopAttributeProcessor) ProcessNewlyVisibleTypes() error { return nil }

type nopWorldObjectManager struct{}

func (nopWorldObjectManager) OnWorldLoaded() error { return nil }
func (nopWorldObjectManager) OnDefsLoaded() error { return nil }

type nopRuntimePatcher struct{}

func (nopRuntimePatcher) Apply(string) error { return nil }

// CatalogVersionResolver resolves versions from the Version field of the
// code units registered in a Catalog.
type CatalogVersionResolver struct {
	catalog *Catalog
}

// NewCatalogVersionResolver creates a resolver backed by catalog.
func NewCatalogVersionResolver(catalog *Catalog) *CatalogVersionResolver {
	return &CatalogVersionResolver{catalog: catalog}
}

// ResolveVersion implements VersionResolver.
func (r *CatalogVersionResolver) ResolveVersion(codeUnit string) (string, error) {
	unit, ok := r.catalog.CodeUnit(codeUnit)
	if !ok {
		return "", NewInvalidCodeUnitError(codeUnit, "not registered")
	}
	if unit.Version == "" {
		return "", NewInvalidCodeUnitError(codeUnit, "no version declared")
	}
	return unit.Version, nil
}

// plugin_registry.go: Extension discovery, ordering, dedup and instantiation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"errors"
	"sort"
)

var errNilExtension = errors.New("factory returned a nil extension")

// PluginRegistry turns the catalog's factories into live extension instances.
//
// Key responsibilities:
//   - Resolve each factory's owning deployable unit through the ModuleMap
//   - Order candidates by the owner's load order
//   - Instantiate every type at most once, isolating constructor failures
//   - Reject identifier collisions
//   - Track the active flag of every descriptor
//
// The registry is not safe for concurrent use; the controller calls it from
// the host thread only.
type PluginRegistry struct {
	config RegistryConfig
	logger Logger

	modules     *ModuleMap
	descriptors []*PluginDescriptor
	byType      map[string]*PluginDescriptor
	byID        map[string]*PluginDescriptor

	// attempted holds every type key whose factory has been called, so a
	// rejected type is never constructed again.
	attempted     map[string]bool
	unitPatchSeen map[string]bool
	errs          []error
}

// RegistryConfig wires the registry to its collaborators.
type RegistryConfig struct {
	Catalog  *Catalog
	Patches  *PatchCoordinator
	Patcher  RuntimePatcher
	Resolver VersionResolver
	Logger   Logger
	Metrics  MetricsCollector
}

// NewPluginRegistry creates a registry with an empty ModuleMap.
func NewPluginRegistry(config RegistryConfig) *PluginRegistry {
	setRegistryDefaults(&config)
	return &PluginRegistry{
		config:        config,
		logger:        config.Logger,
		modules:       BuildModuleMap(nil, config.Logger),
		byType:        make(map[string]*PluginDescriptor),
		byID:          make(map[string]*PluginDescriptor),
		attempted:     make(map[string]bool),
		unitPatchSeen: make(map[string]bool),
	}
}

func setRegistryDefaults(config *RegistryConfig) {
	if config.Logger == nil {
		config.Logger = DefaultLogger()
	}
	if config.Catalog == nil {
		config.Catalog = NewCatalog()
	}
	if config.Patches == nil {
		config.Patches = NewPatchCoordinator(config.Logger)
	}
	if config.Patcher == nil {
		config.Patcher = nopRuntimePatcher{}
	}
	if config.Resolver == nil {
		config.Resolver = NewCatalogVersionResolver(config.Catalog)
	}
	if config.Metrics == nil {
		config.Metrics = noopMetricsCollector{}
	}
}

// SetModuleMap replaces the ModuleMap used by the next enumeration.
func (r *PluginRegistry) SetModuleMap(modules *ModuleMap) {
	r.modules = modules
}

// ModuleMap returns the current ModuleMap.
func (r *PluginRegistry) ModuleMap() *ModuleMap {
	return r.modules
}

type enumerationCandidate struct {
	codeUnit string
	factory  ExtensionFactory
	owner    DeployableUnit
}

// Enumerate instantiates every loaded factory of the given phase that has not
// been attempted yet and returns the newly live descriptors in load order.
func (r *PluginRegistry) Enumerate(phase Phase) []*PluginDescriptor {
	candidates := r.collectCandidates()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].owner.LoadOrder < candidates[j].owner.LoadOrder
	})

	var added []*PluginDescriptor
	for _, c := range candidates {
		if c.factory.EarlyInit != (phase == PhaseEarly) {
			continue
		}
		key := typeKey(c.codeUnit, c.factory.TypeName)
		if _, live := r.byType[key]; live || r.attempted[key] {
			continue
		}
		r.attempted[key] = true

		descriptor, err := r.instantiate(c)
		if err != nil {
			r.reject(RejectInstantiation, err)
			r.logger.Error("Extension instantiation failed",
				"type", key,
				"code_unit", c.codeUnit,
				"phase", phase.String(),
				"error", err)
			continue
		}

		if existing, taken := r.byID[descriptor.Identifier()]; taken {
			err := NewDuplicateIdentifierError(descriptor.Identifier(), existing.TypeKey(), key)
			r.reject(RejectDuplicateID, err)
			r.logger.Error("Duplicate extension identifier, instance discarded",
				"identifier", descriptor.Identifier(),
				"existing_type", existing.TypeKey(),
				"rejected_type", key,
				"error", err)
			continue
		}

		if _, err := descriptor.Version(); err != nil {
			r.logger.Warn("Extension version unresolved, will retry on demand",
				"identifier", descriptor.Identifier(),
				"code_unit", c.codeUnit,
				"error", err)
		}

		r.descriptors = append(r.descriptors, descriptor)
		r.byType[key] = descriptor
		r.byID[descriptor.Identifier()] = descriptor
		added = append(added, descriptor)

		r.logger.Debug("Extension instantiated",
			"identifier", descriptor.Identifier(),
			"type", key,
			"package_id", c.owner.PackageID,
			"phase", phase.String())
	}

	if len(added) > 0 {
		r.config.Metrics.IncrementCounter(MetricInstantiations,
			map[string]string{"phase": phase.String()}, int64(len(added)))
	}
	r.config.Metrics.SetGauge(MetricLiveExtensions, nil, float64(len(r.descriptors)))
	return added
}

// collectCandidates walks the catalog in registration order and keeps the
// factories whose code unit is loaded. Code units flagged Patches request
// their runtime patch the first time they are seen loaded.
func (r *PluginRegistry) collectCandidates() []enumerationCandidate {
	var candidates []enumerationCandidate
	for _, unit := range r.config.Catalog.CodeUnits() {
		owner, loaded := r.modules.Owner(unit.Name)
		if !loaded {
			continue
		}
		if unit.Patches && !r.unitPatchSeen[unit.Name] {
			r.unitPatchSeen[unit.Name] = true
			if _, err := r.ApplyPatch(unit.Name, unit.Name); err != nil {
				r.reject(RejectPatch, err)
				r.logger.Error("Runtime patch failed", "code_unit", unit.Name, "error", err)
			}
		}
		for _, factory := range unit.Factories {
			candidates = append(candidates, enumerationCandidate{
				codeUnit: unit.Name,
				factory:  factory,
				owner:    owner,
			})
		}
	}
	return candidates
}

// instantiate constructs one candidate and builds its descriptor. Panics in
// the constructor, the patch or the identifier lookup become errors.
func (r *PluginRegistry) instantiate(c enumerationCandidate) (*PluginDescriptor, error) {
	key := typeKey(c.codeUnit, c.factory.TypeName)

	var instance Extension
	err := safeCall(func() error {
		created, err := c.factory.New()
		if err != nil {
			return err
		}
		if created == nil {
			return errNilExtension
		}
		instance = created
		return nil
	})
	if err != nil {
		return nil, NewInstantiationError(key, err)
	}

	if c.factory.RequestsPatch {
		if _, err := r.ApplyPatch(c.codeUnit, c.factory.TypeName); err != nil {
			return nil, NewInstantiationError(key, err)
		}
	}

	var descriptor *PluginDescriptor
	err = safeCall(func() error {
		descriptor = newPluginDescriptor(c.codeUnit, c.factory, c.owner, instance, r.config.Resolver)
		return nil
	})
	if err != nil {
		return nil, NewInstantiationError(key, err)
	}
	return descriptor, nil
}

// ApplyPatch asks the coordinator for codeUnit's patch and, when granted,
// runs the RuntimePatcher. A denied request is not an error.
func (r *PluginRegistry) ApplyPatch(codeUnit, requester string) (bool, error) {
	if !r.config.Patches.RequestPatch(codeUnit, requester) {
		return false, nil
	}
	if err := safeCall(func() error { return r.config.Patcher.Apply(codeUnit) }); err != nil {
		return true, NewPatchFailedError(codeUnit, err)
	}
	r.logger.Debug("Runtime patch applied", "code_unit", codeUnit, "requester", requester)
	return true, nil
}

func (r *PluginRegistry) reject(reason string, err error) {
	r.errs = append(r.errs, err)
	r.config.Metrics.IncrementCounter(MetricRejections, map[string]string{"reason": reason}, 1)
}

// Refresh installs modules and recomputes the active flag of every descriptor.
func (r *PluginRegistry) Refresh(modules *ModuleMap) {
	r.modules = modules
	for _, d := range r.descriptors {
		wasActive := d.IsActive()
		d.refresh(modules)
		if wasActive != d.IsActive() {
			r.logger.Info("Extension active state changed",
				"identifier", d.Identifier(),
				"code_unit", d.CodeUnit(),
				"active", d.IsActive())
		}
	}
}

// Descriptors returns every live descriptor in instantiation order.
func (r *PluginRegistry) Descriptors() []*PluginDescriptor {
	out := make([]*PluginDescriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Lookup returns the live descriptor with the given identifier.
func (r *PluginRegistry) Lookup(identifier string) (*PluginDescriptor, bool) {
	d, ok := r.byID[identifier]
	return d, ok
}

// Errors returns the rejection errors recorded so far.
func (r *PluginRegistry) Errors() []error {
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// Len returns the number of live descriptors.
func (r *PluginRegistry) Len() int {
	return len(r.descriptors)
}

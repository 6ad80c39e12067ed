// descriptor.go: Per-instance record of a discovered extension
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"errors"
	"time"

	"github.com/agilira/go-timecache"
)

var errNoResolver = errors.New("no version resolver configured")

// PluginDescriptor describes one live extension instance. Descriptors are
// created once per extension type and kept for the life of the process.
type PluginDescriptor struct {
	identifier string
	typeKey    string
	typeName   string
	codeUnit   string
	unit       DeployableUnit
	wantsEarly bool
	active     bool

	version         string
	versionResolved bool
	resolver        VersionResolver

	instance     Extension
	discoveredAt time.Time
}

func newPluginDescriptor(codeUnit string, factory ExtensionFactory, unit DeployableUnit, instance Extension, resolver VersionResolver) *PluginDescriptor {
	d := &PluginDescriptor{
		typeKey:      typeKey(codeUnit, factory.TypeName),
		typeName:     factory.TypeName,
		codeUnit:     codeUnit,
		unit:         unit,
		wantsEarly:   factory.EarlyInit,
		active:       true,
		resolver:     resolver,
		instance:     instance,
		discoveredAt: timecache.CachedTime(),
	}
	d.identifier = factory.TypeName
	if named, ok := instance.(Identified); ok {
		if id := named.Identifier(); id != "" {
			d.identifier = id
		}
	}
	return d
}

// Identifier returns the identifier, unique among live descriptors.
func (d *PluginDescriptor) Identifier() string { return d.identifier }

// TypeKey returns the opaque type handle. Compare it only for equality.
func (d *PluginDescriptor) TypeKey() string { return d.typeKey }

// TypeName returns the factory type name.
func (d *PluginDescriptor) TypeName() string { return d.typeName }

// CodeUnit returns the name of the code unit that registered the type.
func (d *PluginDescriptor) CodeUnit() string { return d.codeUnit }

// Unit returns the deployable unit that owned the code unit when the
// descriptor was last refreshed while active.
func (d *PluginDescriptor) Unit() DeployableUnit { return d.unit }

// IsActive reports whether the owning code unit is currently loaded.
func (d *PluginDescriptor) IsActive() bool { return d.active }

// WantsEarlyInit reports the static early-init trait of the type.
func (d *PluginDescriptor) WantsEarlyInit() bool { return d.wantsEarly }

// Instance returns the extension instance.
func (d *PluginDescriptor) Instance() Extension { return d.instance }

// DiscoveredAt returns the time the instance was created.
func (d *PluginDescriptor) DiscoveredAt() time.Time { return d.discoveredAt }

// Version resolves the version of the owning code unit. A successful result
// is cached; a failure is returned and retried on the next call.
func (d *PluginDescriptor) Version() (string, error) {
	if d.versionResolved {
		return d.version, nil
	}
	if d.resolver == nil {
		return "", NewVersionResolutionError(d.codeUnit, errNoResolver)
	}

	var version string
	err := safeCall(func() error {
		var resolveErr error
		version, resolveErr = d.resolver.ResolveVersion(d.codeUnit)
		return resolveErr
	})
	if err != nil {
		return "", NewVersionResolutionError(d.codeUnit, err)
	}
	d.version = version
	d.versionResolved = true
	return version, nil
}

// refresh updates the active flag (and the owning unit while active).
func (d *PluginDescriptor) refresh(modules *ModuleMap) {
	owner, ok := modules.Owner(d.codeUnit)
	d.active = ok
	if ok {
		d.unit = owner
	}
}

// DescriptorInfo is a value snapshot of a descriptor for diagnostics.
type DescriptorInfo struct {
	Identifier     string    `json:"identifier" yaml:"identifier"`
	TypeKey        string    `json:"type_key" yaml:"type_key"`
	CodeUnit       string    `json:"code_unit" yaml:"code_unit"`
	PackageID      string    `json:"package_id" yaml:"package_id"`
	Version        string    `json:"version,omitempty" yaml:"version,omitempty"`
	Active         bool      `json:"active" yaml:"active"`
	WantsEarlyInit bool      `json:"wants_early_init" yaml:"wants_early_init"`
	EarlyInitRun   bool      `json:"early_init_run" yaml:"early_init_run"`
	Initialized    bool      `json:"initialized" yaml:"initialized"`
	DiscoveredAt   time.Time `json:"discovered_at" yaml:"discovered_at"`
}

// module_map.go: Code unit to deployable unit ownership map
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import "sort"

// ModuleMap maps each loaded code unit to the deployable unit that supplies
// it. It is rebuilt in full on every enumeration and never mutated after
// construction.
type ModuleMap struct {
	owners map[string]DeployableUnit
	units  []DeployableUnit
	// shippers lists every unit that ships a code unit, in load order.
	shippers map[string][]DeployableUnit
}

// BuildModuleMap indexes units. When more than one unit ships the same code
// unit, the one with the lowest load order owns it.
func BuildModuleMap(units []DeployableUnit, logger Logger) *ModuleMap {
	if logger == nil {
		logger = DefaultLogger()
	}

	ordered := make([]DeployableUnit, len(units))
	copy(ordered, units)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].LoadOrder < ordered[j].LoadOrder })

	m := &ModuleMap{
		owners:   make(map[string]DeployableUnit),
		units:    ordered,
		shippers: make(map[string][]DeployableUnit),
	}
	for _, unit := range ordered {
		for _, codeUnit := range unit.CodeUnits {
			m.shippers[codeUnit] = append(m.shippers[codeUnit], unit)
			if owner, taken := m.owners[codeUnit]; taken {
				logger.Debug("Code unit shipped by more than one unit",
					"code_unit", codeUnit,
					"owner", owner.PackageID,
					"duplicate", unit.PackageID)
				continue
			}
			m.owners[codeUnit] = unit
		}
	}
	return m
}

// Owner returns the unit that supplies codeUnit.
func (m *ModuleMap) Owner(codeUnit string) (DeployableUnit, bool) {
	if m == nil {
		return DeployableUnit{}, false
	}
	u, ok := m.owners[codeUnit]
	return u, ok
}

// Contains reports whether codeUnit is loaded.
func (m *ModuleMap) Contains(codeUnit string) bool {
	_, ok := m.Owner(codeUnit)
	return ok
}

// Shippers returns every loaded unit that ships codeUnit, owner first.
func (m *ModuleMap) Shippers(codeUnit string) []DeployableUnit {
	if m == nil {
		return nil
	}
	out := make([]DeployableUnit, len(m.shippers[codeUnit]))
	copy(out, m.shippers[codeUnit])
	return out
}

// Units returns the loaded units in load order.
func (m *ModuleMap) Units() []DeployableUnit {
	if m == nil {
		return nil
	}
	out := make([]DeployableUnit, len(m.units))
	copy(out, m.units)
	return out
}

// Len returns the number of mapped code units.
func (m *ModuleMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.owners)
}

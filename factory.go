// factory.go: Code unit catalog and extension factory registration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"strings"
)

// ExtensionFactory registers one extension type.
type ExtensionFactory struct {
	// TypeName names the concrete type. It is the default identifier and,
	// qualified with the code unit name, the dedup key.
	TypeName string

	// EarlyInit selects the early phase for this type.
	EarlyInit bool

	// RequestsPatch asks for the code unit's runtime patch when the type is
	// instantiated.
	RequestsPatch bool

	// New constructs the instance. It is called at most once per process.
	New func() (Extension, error)
}

// CodeUnit is one independently built component library and the extension
// types it contributes.
type CodeUnit struct {
	Name      string
	Version   string
	Factories []ExtensionFactory

	// Patches requests the runtime patch on the unit's own behalf when the
	// catalog entry is first enumerated.
	Patches bool
}

// Catalog holds every registered code unit in registration order. Hosts
// populate it from generated manifests or explicit Register calls before
// the controller's first enumeration.
type Catalog struct {
	units []CodeUnit
	index map[string]int
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Register adds a code unit. Units that reach the registry after the first
// enumeration are picked up by the next load pass.
func (c *Catalog) Register(unit CodeUnit) error {
	if err := validateCodeUnit(unit); err != nil {
		return err
	}
	if _, exists := c.index[unit.Name]; exists {
		return NewDuplicateCodeUnitError(unit.Name)
	}

	factories := make([]ExtensionFactory, len(unit.Factories))
	copy(factories, unit.Factories)
	unit.Factories = factories

	c.index[unit.Name] = len(c.units)
	c.units = append(c.units, unit)
	return nil
}

// MustRegister is Register for static manifests; it panics on error.
func (c *Catalog) MustRegister(unit CodeUnit) {
	if err := c.Register(unit); err != nil {
		panic(err)
	}
}

// CodeUnit returns the code unit registered under name.
func (c *Catalog) CodeUnit(name string) (CodeUnit, bool) {
	i, ok := c.index[name]
	if !ok {
		return CodeUnit{}, false
	}
	return c.units[i], true
}

// CodeUnits returns the registered code units in registration order.
func (c *Catalog) CodeUnits() []CodeUnit {
	out := make([]CodeUnit, len(c.units))
	copy(out, c.units)
	return out
}

// Len returns the number of registered code units.
func (c *Catalog) Len() int {
	return len(c.units)
}

func validateCodeUnit(unit CodeUnit) error {
	if strings.TrimSpace(unit.Name) == "" {
		return NewInvalidCodeUnitError(unit.Name, "name is required")
	}
	if strings.Contains(unit.Name, "/") {
		return NewInvalidCodeUnitError(unit.Name, "name must not contain '/'")
	}

	seen := make(map[string]bool, len(unit.Factories))
	for _, f := range unit.Factories {
		if strings.TrimSpace(f.TypeName) == "" {
			return NewInvalidCodeUnitError(unit.Name, "factory type name is required")
		}
		if f.New == nil {
			return NewInvalidCodeUnitError(unit.Name, "factory "+f.TypeName+" has no constructor")
		}
		if seen[f.TypeName] {
			return NewInvalidCodeUnitError(unit.Name, "factory "+f.TypeName+" registered twice")
		}
		seen[f.TypeName] = true
	}
	return nil
}

// typeKey is the dedup key of a factory: "codeUnit/TypeName".
func typeKey(codeUnit, typeName string) string {
	return codeUnit + "/" + typeName
}

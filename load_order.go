// load_order.go: Load order validation against declared unit dependencies
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"fmt"
	"sort"
)

// DependencyLoadOrderChecker compares each unit's LoadAfter and LoadBefore
// declarations with the actual load order.
//
// It reports:
//   - a LoadAfter dependency that is loaded later than the unit
//   - a LoadBefore dependency that is loaded earlier than the unit
//   - a LoadAfter dependency that is not loaded at all, when RequireDependencies is set
//   - cycles among the declarations
type DependencyLoadOrderChecker struct {
	// RequireDependencies treats LoadAfter entries as hard dependencies.
	RequireDependencies bool
}

// Validate implements LoadOrderChecker.
func (c DependencyLoadOrderChecker) Validate(units []DeployableUnit) []LoadOrderViolation {
	position := make(map[string]int, len(units))
	for _, u := range units {
		position[u.PackageID] = u.LoadOrder
	}

	var violations []LoadOrderViolation
	for _, u := range units {
		for _, dep := range u.LoadAfter {
			depOrder, loaded := position[dep]
			switch {
			case !loaded:
				if c.RequireDependencies {
					violations = append(violations, LoadOrderViolation{
						Unit:    u.PackageID,
						Related: dep,
						Message: fmt.Sprintf("required unit %s is not loaded", dep),
					})
				}
			case depOrder > u.LoadOrder:
				violations = append(violations, LoadOrderViolation{
					Unit:    u.PackageID,
					Related: dep,
					Message: fmt.Sprintf("must load after %s but loads before it", dep),
				})
			}
		}
		for _, dep := range u.LoadBefore {
			if depOrder, loaded := position[dep]; loaded && depOrder < u.LoadOrder {
				violations = append(violations, LoadOrderViolation{
					Unit:    u.PackageID,
					Related: dep,
					Message: fmt.Sprintf("must load before %s but loads after it", dep),
				})
			}
		}
	}

	for _, unit := range c.cycleMembers(units) {
		violations = append(violations, LoadOrderViolation{
			Unit:    unit,
			Message: "load order declarations form a cycle",
		})
	}
	return violations
}

// cycleMembers runs Kahn's algorithm over the "loads after" edges of the
// loaded units and returns the units left unsorted, which lie on or behind a cycle.
func (c DependencyLoadOrderChecker) cycleMembers(units []DeployableUnit) []string {
	loaded := make(map[string]bool, len(units))
	for _, u := range units {
		loaded[u.PackageID] = true
	}

	// edges[a] lists the units that must load before a.
	edges := make(map[string]map[string]bool, len(units))
	add := func(after, before string) {
		if !loaded[after] || !loaded[before] || after == before {
			return
		}
		if edges[after] == nil {
			edges[after] = make(map[string]bool)
		}
		edges[after][before] = true
	}
	for _, u := range units {
		for _, dep := range u.LoadAfter {
			add(u.PackageID, dep)
		}
		for _, dep := range u.LoadBefore {
			add(dep, u.PackageID)
		}
	}

	inDegree := make(map[string]int, len(units))
	var queue []string
	for id := range loaded {
		inDegree[id] = len(edges[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted++
		for node, deps := range edges {
			if deps[current] {
				inDegree[node]--
				if inDegree[node] == 0 {
					queue = append(queue, node)
				}
			}
		}
	}
	if sorted == len(loaded) {
		return nil
	}

	var remaining []string
	for id, degree := range inDegree {
		if degree > 0 {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return remaining
}

var _ LoadOrderChecker = DependencyLoadOrderChecker{}

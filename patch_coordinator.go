// patch_coordinator.go: One-shot runtime patch grant per code unit
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

// PatchCoordinator grants the runtime patch at most once per code unit for
// the life of the process. A denied request is final.
type PatchCoordinator struct {
	claimed map[string]string // code unit -> first requester
	logger  Logger
}

// NewPatchCoordinator creates an empty coordinator.
func NewPatchCoordinator(logger Logger) *PatchCoordinator {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &PatchCoordinator{
		claimed: make(map[string]string),
		logger:  logger,
	}
}

// RequestPatch claims the patch for codeUnit on behalf of requester. Only
// the first request per code unit is granted.
func (p *PatchCoordinator) RequestPatch(codeUnit, requester string) bool {
	if first, taken := p.claimed[codeUnit]; taken {
		err := NewDuplicatePatchError(codeUnit, requester)
		p.logger.Warn("Duplicate runtime patch request denied",
			"code_unit", codeUnit,
			"requester", requester,
			"granted_to", first,
			"error", err)
		return false
	}
	p.claimed[codeUnit] = requester
	return true
}

// Claimed reports whether the patch for codeUnit has been granted.
func (p *PatchCoordinator) Claimed(codeUnit string) bool {
	_, ok := p.claimed[codeUnit]
	return ok
}

// ClaimedCount returns the number of code units granted so far.
func (p *PatchCoordinator) ClaimedCount() int {
	return len(p.claimed)
}

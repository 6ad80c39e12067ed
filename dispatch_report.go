// dispatch_report.go: Per-pass results of hook dispatch, inspection and reload
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"errors"
	"time"
)

// HookFailure is one extension's failure during a pass.
type HookFailure struct {
	Identifier string
	Event      HookEvent
	Err        error
}

// DispatchReport summarises one dispatch pass.
type DispatchReport struct {
	Event HookEvent

	// Suppressed is set when the pass was skipped because a load pass was running.
	Suppressed bool

	// Invoked counts hook calls; Skipped counts inactive instances.
	Invoked int
	Skipped int

	Failures []HookFailure

	// CollaboratorErrors holds failures of schedulers and managers driven
	// by the same event.
	CollaboratorErrors []error

	StartedAt time.Time
	Duration  time.Duration
}

// Failed reports whether any hook or collaborator failed.
func (r DispatchReport) Failed() bool {
	return len(r.Failures) > 0 || len(r.CollaboratorErrors) > 0
}

// Err joins every failure of the pass, or returns nil.
func (r DispatchReport) Err() error {
	if !r.Failed() {
		return nil
	}
	errs := make([]error, 0, len(r.Failures)+len(r.CollaboratorErrors))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	errs = append(errs, r.CollaboratorErrors...)
	return errors.Join(errs...)
}

// FailedIdentifiers returns the identifiers of the failed extensions in order.
func (r DispatchReport) FailedIdentifiers() []string {
	ids := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.Identifier
	}
	return ids
}

// InspectionReport summarises one VersionInspector pass.
type InspectionReport struct {
	// Inspected maps identifier to the version handed to the update manager.
	Inspected map[string]string
	Failures  []HookFailure
}

// ReloadReport summarises one LoadReloadInitialize pass.
type ReloadReport struct {
	PassID    string
	StartedAt time.Time
	Duration  time.Duration

	// ForeignUnits lists units other than the canonical one that ship the
	// host's own code unit.
	ForeignUnits []string

	EarlyInitialized []string
	Initialized      []string
	Failures         []HookFailure

	Inspection  InspectionReport
	NoticeShown bool
	DefsLoaded  DispatchReport

	// Err is set when the pass was abandoned.
	Err error
}

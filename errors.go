// errors.go: structured error definitions for the plugin host
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	stderrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for the plugin host
const (
	// Lifecycle errors (2100-2199)
	ErrCodeRepeatedInit  = "LIFECYCLE_2101"
	ErrCodePhaseFailed   = "LIFECYCLE_2102"
	ErrCodeInvalidState  = "LIFECYCLE_2103"
	ErrCodeReentrantPass = "LIFECYCLE_2104"

	// Registry errors (2200-2299)
	ErrCodeDuplicateIdentifier = "REGISTRY_2201"
	ErrCodeInstantiation       = "REGISTRY_2202"
	ErrCodeDuplicateCodeUnit   = "REGISTRY_2203"
	ErrCodeInvalidCodeUnit     = "REGISTRY_2204"
	ErrCodeVersionResolution   = "REGISTRY_2205"

	// Runtime patch errors (2300-2399)
	ErrCodeDuplicatePatch = "PATCH_2301"
	ErrCodePatchFailed    = "PATCH_2302"

	// Integrity errors (2400-2499)
	ErrCodeForeignInclusion = "INTEGRITY_2401"
	ErrCodeLoadOrder        = "INTEGRITY_2402"

	// Hook errors (2500-2599)
	ErrCodeHookFailed = "HOOK_2501"
	ErrCodeHookPanic  = "HOOK_2502"

	// Configuration and discovery errors (2600-2699)
	ErrCodeConfigNotFound   = "CONFIG_2601"
	ErrCodeConfigParse      = "CONFIG_2602"
	ErrCodeConfigValidation = "CONFIG_2603"
	ErrCodeManifestParse    = "CONFIG_2604"
	ErrCodeWatcher          = "CONFIG_2605"

	// Collaborator errors (2700-2799)
	ErrCodeChangelogStore = "COLLAB_2701"
	ErrCodeSettings       = "COLLAB_2702"
	ErrCodeCollaborator   = "COLLAB_2703"
)

// Lifecycle error constructors

func NewRepeatedInitError(phase string, state LifecycleState) *errors.Error {
	return errors.New(ErrCodeRepeatedInit, "Initialization phase already run").
		WithUserMessage("A one-shot initialization phase was invoked more than once").
		WithContext("phase", phase).
		WithContext("state", state.String()).
		WithSeverity("warning")
}

func NewInvalidStateError(phase string, state LifecycleState) *errors.Error {
	return errors.New(ErrCodeInvalidState, "Initialization phase invoked out of order").
		WithUserMessage("The requested phase cannot run from the current lifecycle state").
		WithContext("phase", phase).
		WithContext("state", state.String()).
		WithSeverity("warning")
}

func NewReentrantPassError(phase string) *errors.Error {
	return errors.New(ErrCodeReentrantPass, "Load pass already in progress").
		WithUserMessage("A reload pass was requested while another one was running").
		WithContext("phase", phase).
		WithSeverity("warning")
}

func NewPhaseFailedError(phase string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodePhaseFailed, "Lifecycle phase failed").
		WithUserMessage("The lifecycle phase was abandoned for this attempt").
		WithContext("phase", phase).
		WithSeverity("error")
}

// Registry error constructors

func NewDuplicateIdentifierError(identifier, existingType, rejectedType string) *errors.Error {
	return errors.New(ErrCodeDuplicateIdentifier, "Duplicate extension identifier").
		WithUserMessage("Two extensions resolved to the same identifier; the later one was discarded").
		WithContext("identifier", identifier).
		WithContext("existing_type", existingType).
		WithContext("rejected_type", rejectedType).
		WithSeverity("error")
}

func NewInstantiationError(typeKey string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeInstantiation, "Extension instantiation failed").
		WithUserMessage("The extension could not be constructed and was skipped").
		WithContext("type", typeKey).
		WithSeverity("error")
}

func NewDuplicateCodeUnitError(name string) *errors.Error {
	return errors.New(ErrCodeDuplicateCodeUnit, "Duplicate code unit").
		WithUserMessage("A code unit with this name is already registered").
		WithContext("code_unit", name).
		WithSeverity("error")
}

func NewInvalidCodeUnitError(name, reason string) *errors.Error {
	return errors.New(ErrCodeInvalidCodeUnit, "Invalid code unit: "+reason).
		WithUserMessage("The code unit registration is malformed").
		WithContext("code_unit", name).
		WithSeverity("error")
}

func NewVersionResolutionError(codeUnit string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeVersionResolution, "Version resolution failed").
		WithUserMessage("The version of the code unit could not be resolved").
		WithContext("code_unit", codeUnit).
		WithSeverity("warning")
}

// Runtime patch error constructors

func NewDuplicatePatchError(codeUnit, requester string) *errors.Error {
	return errors.New(ErrCodeDuplicatePatch, "Runtime patch already requested").
		WithUserMessage("The code unit has already applied its runtime patch").
		WithContext("code_unit", codeUnit).
		WithContext("requester", requester).
		WithSeverity("warning")
}

func NewPatchFailedError(codeUnit string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodePatchFailed, "Runtime patch failed").
		WithUserMessage("Installing the runtime patch for the code unit failed").
		WithContext("code_unit", codeUnit).
		WithSeverity("error")
}

// Integrity error constructors

func NewForeignInclusionError(codeUnit, canonical, foreign string) *errors.Error {
	return errors.New(ErrCodeForeignInclusion, "Host code unit shipped by a foreign unit").
		WithUserMessage("Another deployable unit bundles a copy of the plugin host").
		WithContext("code_unit", codeUnit).
		WithContext("canonical_unit", canonical).
		WithContext("foreign_unit", foreign).
		WithSeverity("error")
}

func NewLoadOrderError(violation LoadOrderViolation) *errors.Error {
	return errors.New(ErrCodeLoadOrder, "Load order violation").
		WithUserMessage(violation.Message).
		WithContext("unit", violation.Unit).
		WithContext("related_unit", violation.Related).
		WithSeverity("warning")
}

// Hook error constructors

func NewHookFailedError(identifier string, event HookEvent, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeHookFailed, "Extension hook failed").
		WithUserMessage("An extension hook returned an error").
		WithContext("identifier", identifier).
		WithContext("event", string(event)).
		WithSeverity("error")
}

func NewHookPanicError(recovered interface{}, stack string) *errors.Error {
	return errors.New(ErrCodeHookPanic, "Extension hook panicked").
		WithUserMessage("An extension hook panicked and was recovered").
		WithContext("panic", recovered).
		WithContext("stack", stack).
		WithSeverity("error")
}

// Configuration error constructors

func NewConfigNotFoundError(path string) *errors.Error {
	return errors.New(ErrCodeConfigNotFound, "Configuration file not found").
		WithUserMessage("The configuration file could not be found").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParse, "Configuration parse error").
		WithUserMessage("Failed to parse configuration file").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigValidationError(message string) *errors.Error {
	return errors.New(ErrCodeConfigValidation, "Configuration validation error: "+message).
		WithUserMessage("Configuration validation failed").
		WithSeverity("error")
}

func NewManifestParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeManifestParse, "Unit manifest parse error").
		WithUserMessage("Failed to parse deployable unit manifest").
		WithContext("manifest_path", path).
		WithSeverity("error")
}

func NewWatcherError(message string, cause error) *errors.Error {
	if cause == nil {
		return errors.New(ErrCodeWatcher, "File watcher error: "+message).
			WithUserMessage("File monitoring failed").
			WithSeverity("error")
	}
	return errors.Wrap(cause, ErrCodeWatcher, "File watcher error: "+message).
		WithUserMessage("File monitoring failed").
		WithSeverity("error")
}

// Collaborator error constructors

func NewChangelogStoreError(message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeChangelogStore, "Changelog store error: "+message).
		WithUserMessage("Version history storage failed").
		WithSeverity("error")
}

func NewSettingsError(message string, cause error) *errors.Error {
	if cause == nil {
		return errors.New(ErrCodeSettings, "Settings error: "+message).
			WithUserMessage("Settings operation failed").
			WithSeverity("error")
	}
	return errors.Wrap(cause, ErrCodeSettings, "Settings error: "+message).
		WithUserMessage("Settings operation failed").
		WithSeverity("error")
}

func NewCollaboratorError(collaborator string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeCollaborator, "Collaborator call failed").
		WithUserMessage("An external collaborator reported an error").
		WithContext("collaborator", collaborator).
		WithSeverity("error")
}

// HasErrorCode reports whether err, or any error it wraps, is a structured
// error carrying the given code.
func HasErrorCode(err error, code string) bool {
	var structured *errors.Error
	for err != nil {
		if stderrors.As(err, &structured) {
			if structured.ErrorCode() == errors.ErrorCode(code) {
				return true
			}
			err = structured.Cause
			continue
		}
		return false
	}
	return false
}

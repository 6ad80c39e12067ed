// errors_test.go: Tests for error codes, panic recovery and pass reports
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasErrorCode(t *testing.T) {
	plain := errors.New("plain")
	hook := NewHookFailedError("demo.clock", EventTick, plain)
	phase := NewPhaseFailedError("late_init", hook)

	assert.True(t, HasErrorCode(hook, ErrCodeHookFailed))
	assert.True(t, HasErrorCode(phase, ErrCodePhaseFailed))
	assert.True(t, HasErrorCode(phase, ErrCodeHookFailed), "causes are searched")
	assert.False(t, HasErrorCode(phase, ErrCodeHookPanic))
	assert.False(t, HasErrorCode(plain, ErrCodeHookFailed))
	assert.False(t, HasErrorCode(nil, ErrCodeHookFailed))
	assert.True(t, HasErrorCode(fmt.Errorf("context: %w", hook), ErrCodeHookFailed))
	assert.Equal(t, plain, causeOf(phase))
}

func TestErrorConstructors_Codes(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		err  error
		code string
	}{
		{NewRepeatedInitError("early_init", StateEarlyInitDone), ErrCodeRepeatedInit},
		{NewInvalidStateError("late_init", StateUninitialized), ErrCodeInvalidState},
		{NewReentrantPassError("reload"), ErrCodeReentrantPass},
		{NewDuplicateIdentifierError("id", "a/A", "b/B"), ErrCodeDuplicateIdentifier},
		{NewInstantiationError("a/A", cause), ErrCodeInstantiation},
		{NewDuplicateCodeUnitError("a"), ErrCodeDuplicateCodeUnit},
		{NewInvalidCodeUnitError("a", "bad"), ErrCodeInvalidCodeUnit},
		{NewVersionResolutionError("a", cause), ErrCodeVersionResolution},
		{NewDuplicatePatchError("a", "B"), ErrCodeDuplicatePatch},
		{NewPatchFailedError("a", cause), ErrCodePatchFailed},
		{NewForeignInclusionError("self", "canonical", "foreign"), ErrCodeForeignInclusion},
		{NewLoadOrderError(LoadOrderViolation{Unit: "a", Message: "cycle"}), ErrCodeLoadOrder},
		{NewHookPanicError("boom", "stack"), ErrCodeHookPanic},
		{NewConfigNotFoundError("x.yaml"), ErrCodeConfigNotFound},
		{NewConfigParseError("x.yaml", cause), ErrCodeConfigParse},
		{NewConfigValidationError("bad"), ErrCodeConfigValidation},
		{NewManifestParseError("unit.yaml", cause), ErrCodeManifestParse},
		{NewWatcherError("bad", nil), ErrCodeWatcher},
		{NewChangelogStoreError("bad", cause), ErrCodeChangelogStore},
		{NewSettingsError("bad", nil), ErrCodeSettings},
		{NewCollaboratorError("world", cause), ErrCodeCollaborator},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, HasErrorCode(tt.err, tt.code))
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestSafeInvoke(t *testing.T) {
	assert.NoError(t, safeInvoke("ok", EventUpdate, func() error { return nil }))

	err := safeInvoke("failing", EventUpdate, func() error { return errors.New("nope") })
	assert.True(t, HasErrorCode(err, ErrCodeHookFailed))
	assert.False(t, HasErrorCode(err, ErrCodeHookPanic))
	assert.EqualError(t, causeOf(err), "nope")

	err = safeInvoke("panicking", EventOnGUI, func() error { panic("gui exploded") })
	assert.True(t, HasErrorCode(err, ErrCodeHookFailed))
	assert.True(t, HasErrorCode(err, ErrCodeHookPanic))
}

func TestSafeCall(t *testing.T) {
	cause := errors.New("direct")
	assert.Equal(t, cause, safeCall(func() error { return cause }))

	err := safeCall(func() error {
		var m map[string]int
		m["nil map"] = 1
		return nil
	})
	assert.True(t, HasErrorCode(err, ErrCodeHookPanic))
}

func TestWithStackRecover(t *testing.T) {
	logger := NewTestLogger()
	func() {
		defer withStackRecover(logger)()
		panic("watcher callback")
	}()

	messages := logger.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "Panic recovered in goroutine", messages[0].Message)
	stack, ok := messages[0].Arg("stack")
	require.True(t, ok)
	assert.Contains(t, stack, "goroutine")
}

func TestDispatchReport(t *testing.T) {
	var clean DispatchReport
	assert.False(t, clean.Failed())
	assert.NoError(t, clean.Err())
	assert.Empty(t, clean.FailedIdentifiers())

	hookErr := errors.New("hook")
	collabErr := errors.New("collaborator")
	report := DispatchReport{
		Failures:           []HookFailure{{Identifier: "a", Event: EventTick, Err: hookErr}},
		CollaboratorErrors: []error{collabErr},
	}
	assert.True(t, report.Failed())
	assert.ErrorIs(t, report.Err(), hookErr)
	assert.ErrorIs(t, report.Err(), collabErr)
	assert.Equal(t, []string{"a"}, report.FailedIdentifiers())

	onlyCollaborator := DispatchReport{CollaboratorErrors: []error{collabErr}}
	assert.True(t, onlyCollaborator.Failed())
}

func TestVersionInspector_IsolatesFailures(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"good", "rejected", "unversioned"} {
		f.codeUnit(id, f.factory(id, id, false))
	}
	resolver := &mapResolver{versions: map[string]string{"good": "1.0", "rejected": "2.0"}}
	r := newTestRegistry(f, resolver)
	r.Refresh(BuildModuleMap([]DeployableUnit{unit("pkg", 0, "good", "rejected", "unversioned")}, f.logger))
	descriptors := r.Enumerate(PhaseMain)
	require.Len(t, descriptors, 3)

	updates := &failingUpdates{
		MemoryUpdateManager: *NewMemoryUpdateManager(),
		failFor:             map[string]bool{"rejected": true},
	}
	logger := NewTestLogger()
	report := NewVersionInspector(updates, logger).Inspect(descriptors)

	assert.Equal(t, map[string]string{"good": "1.0"}, report.Inspected)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "rejected", report.Failures[0].Identifier)
	assert.True(t, HasErrorCode(report.Failures[0].Err, ErrCodeCollaborator))
	assert.Equal(t, "unversioned", report.Failures[1].Identifier)
	assert.True(t, HasErrorCode(report.Failures[1].Err, ErrCodeVersionResolution))
	assert.Equal(t, 2, logger.CountMessages("ERROR", "Version inspection failed"))
	assert.Equal(t, map[string]string{"good": "1.0"}, updates.Inspected)
}

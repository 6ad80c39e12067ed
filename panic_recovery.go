// panic_recovery.go: Panic recovery helpers for extension hooks and watcher callbacks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"runtime"
)

// RecoveryHandler defines the signature for panic recovery handlers.
type RecoveryHandler func(recovered interface{}, stack []byte)

func captureStack() []byte {
	buf := make([]byte, 64<<10)
	n := runtime.Stack(buf, false)
	return buf[:n]
}

// withStackRecover returns a panic recovery function that logs panic details
// including the stack trace. Use it with defer in callbacks that run on
// goroutines the host does not own.
func withStackRecover(logger Logger) func() {
	return func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered in goroutine",
				"panic", r,
				"stack", string(captureStack()))
		}
	}
}

// withCustomRecoveryHandler returns a panic recovery function that calls
// a custom handler when a panic occurs.
func withCustomRecoveryHandler(handler RecoveryHandler) func() {
	return func() {
		if r := recover(); r != nil {
			handler(r, captureStack())
		}
	}
}

// safeInvoke runs fn and converts a panic into a HOOK_2502 error. A returned
// error or a recovered panic is wrapped as HOOK_2501 with the identifier and
// event attached.
func safeInvoke(identifier string, event HookEvent, fn func() error) (err error) {
	defer withCustomRecoveryHandler(func(recovered interface{}, stack []byte) {
		err = NewHookFailedError(identifier, event, NewHookPanicError(recovered, string(stack)))
	})()

	if hookErr := fn(); hookErr != nil {
		return NewHookFailedError(identifier, event, hookErr)
	}
	return nil
}

// safeCall runs fn and returns a recovered panic as an error. It is used
// around collaborator calls, which are not attributed to one extension.
func safeCall(fn func() error) (err error) {
	defer withCustomRecoveryHandler(func(recovered interface{}, stack []byte) {
		err = NewHookPanicError(recovered, string(stack))
	})()
	return fn()
}

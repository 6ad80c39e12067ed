// logging.go: Pluggable logging interface with silent and capturing loggers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"context"
	"sync"
)

// loggerContextKey is a custom type for context keys to avoid collisions
type loggerContextKey string

const (
	loggerKey loggerContextKey = "logger"
)

// Logger defines the pluggable logging interface used by the plugin host.
//
// The controller, registry and dispatcher all log through this interface with
// key-value pairs. Every message about a specific extension carries the
// "identifier" key, and every hook failure carries the "event" key, so a host
// can filter the output of a single extension.
//
// Implementations shipped with the package:
//   - NoOpLogger: discards everything
//   - TestLogger: captures messages for assertions
//   - LogrusAdapter: forwards to a *logrus.Logger
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, args ...any)

	// Info logs an info message with optional key-value pairs
	Info(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs
	Warn(msg string, args ...any)

	// Error logs an error message with optional key-value pairs
	Error(msg string, args ...any)

	// With returns a new logger with persistent context key-value pairs
	With(args ...any) Logger
}

// NewLogger creates a Logger from supported logger types.
//
// Supported types:
//   - Logger interface: Used directly
//   - *logrus.Logger: Wrapped in a LogrusAdapter
//   - nil: Returns NoOpLogger for silent operation
//   - Unsupported types: Panic with descriptive message
func NewLogger(logger any) Logger {
	switch l := logger.(type) {
	case Logger:
		return l
	case nil:
		return NewNoOpLogger()
	default:
		if adapted, ok := adaptLogrus(logger); ok {
			return adapted
		}
		panic("unsupported logger type: expected Logger interface, *logrus.Logger or nil")
	}
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a new no-operation logger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Debug implements Logger interface (no-op)
func (n *NoOpLogger) Debug(msg string, args ...any) {}

// Info implements Logger interface (no-op)
func (n *NoOpLogger) Info(msg string, args ...any) {}

// Warn implements Logger interface (no-op)
func (n *NoOpLogger) Warn(msg string, args ...any) {}

// Error implements Logger interface (no-op)
func (n *NoOpLogger) Error(msg string, args ...any) {}

// With implements Logger interface (no-op)
func (n *NoOpLogger) With(args ...any) Logger {
	return n
}

// TestLogger captures log messages. Loggers derived through With share the
// parent's message buffer and prepend their persistent arguments.
type TestLogger struct {
	store *testLogStore
	base  []any
}

type testLogStore struct {
	mu       sync.RWMutex
	messages []TestLogMessage
}

// TestLogMessage represents a captured log message for testing.
type TestLogMessage struct {
	Level   string
	Message string
	Args    []any
}

// Arg returns the value logged under key, if any.
func (m TestLogMessage) Arg(key string) (any, bool) {
	for i := 0; i+1 < len(m.Args); i += 2 {
		if k, ok := m.Args[i].(string); ok && k == key {
			return m.Args[i+1], true
		}
	}
	return nil, false
}

// NewTestLogger creates a new test logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{store: &testLogStore{}}
}

func (t *TestLogger) record(level, msg string, args []any) {
	all := make([]any, 0, len(t.base)+len(args))
	all = append(all, t.base...)
	all = append(all, args...)

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.messages = append(t.store.messages, TestLogMessage{
		Level:   level,
		Message: msg,
		Args:    all,
	})
}

// Debug implements Logger interface (captures message)
func (t *TestLogger) Debug(msg string, args ...any) { t.record("DEBUG", msg, args) }

// Info implements Logger interface (captures message)
func (t *TestLogger) Info(msg string, args ...any) { t.record("INFO", msg, args) }

// Warn implements Logger interface (captures message)
func (t *TestLogger) Warn(msg string, args ...any) { t.record("WARN", msg, args) }

// Error implements Logger interface (captures message)
func (t *TestLogger) Error(msg string, args ...any) { t.record("ERROR", msg, args) }

// With implements Logger interface
func (t *TestLogger) With(args ...any) Logger {
	base := make([]any, 0, len(t.base)+len(args))
	base = append(base, t.base...)
	base = append(base, args...)
	return &TestLogger{store: t.store, base: base}
}

// Messages returns a copy of the captured messages.
func (t *TestLogger) Messages() []TestLogMessage {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	out := make([]TestLogMessage, len(t.store.messages))
	copy(out, t.store.messages)
	return out
}

// HasMessage checks if the logger captured a message with the given level and text.
func (t *TestLogger) HasMessage(level, message string) bool {
	return t.CountMessages(level, message) > 0
}

// CountMessages counts captured messages with the given level and text.
func (t *TestLogger) CountMessages(level, message string) int {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	count := 0
	for _, msg := range t.store.messages {
		if msg.Level == level && msg.Message == message {
			count++
		}
	}
	return count
}

// Clear removes all captured messages.
func (t *TestLogger) Clear() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.messages = t.store.messages[:0]
}

// DefaultLogger returns the logger used when none is configured.
func DefaultLogger() Logger {
	return NewNoOpLogger()
}

// LoggerFromContext extracts a logger from context if available,
// falling back to DefaultLogger.
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}

	return DefaultLogger()
}

// ContextWithLogger adds a logger to the context.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// logging_logrus.go: Logger adapter for sirupsen/logrus
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogrusAdapter forwards Logger calls to a logrus entry, turning key-value
// pairs into logrus fields.
type LogrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter wraps a *logrus.Logger. A nil logger uses logrus.StandardLogger().
func NewLogrusAdapter(logger *logrus.Logger) *LogrusAdapter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusAdapter{entry: logrus.NewEntry(logger)}
}

func adaptLogrus(logger any) (Logger, bool) {
	switch l := logger.(type) {
	case *logrus.Logger:
		return NewLogrusAdapter(l), true
	case *logrus.Entry:
		return &LogrusAdapter{entry: l}, true
	default:
		return nil, false
	}
}

// Debug implements Logger interface
func (a *LogrusAdapter) Debug(msg string, args ...any) {
	a.entry.WithFields(toLogrusFields(args)).Debug(msg)
}

// Info implements Logger interface
func (a *LogrusAdapter) Info(msg string, args ...any) {
	a.entry.WithFields(toLogrusFields(args)).Info(msg)
}

// Warn implements Logger interface
func (a *LogrusAdapter) Warn(msg string, args ...any) {
	a.entry.WithFields(toLogrusFields(args)).Warn(msg)
}

// Error implements Logger interface
func (a *LogrusAdapter) Error(msg string, args ...any) {
	a.entry.WithFields(toLogrusFields(args)).Error(msg)
}

// With implements Logger interface
func (a *LogrusAdapter) With(args ...any) Logger {
	return &LogrusAdapter{entry: a.entry.WithFields(toLogrusFields(args))}
}

// toLogrusFields pairs up args; a dangling key is logged under "!BADKEY".
func toLogrusFields(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			fields["!BADKEY"] = key
			break
		}
		fields[key] = args[i+1]
	}
	return fields
}

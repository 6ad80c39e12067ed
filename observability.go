// observability.go: Metrics collection interface and metric names
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

// MetricsCollector defines the interface for collecting host metrics across
// different providers.
//
// Example usage:
//
//	collector.IncrementCounter(MetricHookInvocations,
//	    map[string]string{"event": "tick"}, 3)
//	collector.SetGauge(MetricLiveExtensions, nil, 12)
//	collector.RecordHistogram(MetricDispatchDuration,
//	    map[string]string{"event": "update"}, 0.0004)
type MetricsCollector interface {
	// Counter metrics
	IncrementCounter(name string, labels map[string]string, value int64)

	// Gauge metrics
	SetGauge(name string, labels map[string]string, value float64)

	// Histogram metrics
	RecordHistogram(name string, labels map[string]string, value float64)

	// Get current metrics snapshot
	GetMetrics() map[string]interface{}
}

// Metric names recorded by the registry, controller and dispatcher.
const (
	MetricHookInvocations  = "hook_invocations_total"
	MetricHookFailures     = "hook_failures_total"
	MetricDispatchDuration = "dispatch_duration_seconds"
	MetricSuppressed       = "dispatch_suppressed_total"
	MetricInstantiations   = "extensions_instantiated_total"
	MetricRejections       = "extensions_rejected_total"
	MetricLiveExtensions   = "extensions_live"
	MetricLoadPasses       = "load_passes_total"
)

// Rejection reasons used with MetricRejections.
const (
	RejectInstantiation = "instantiation"
	RejectDuplicateID   = "duplicate_identifier"
	RejectPatch         = "patch"
)

// metricHelp describes the known metrics for providers that need it.
var metricHelp = map[string]string{
	MetricHookInvocations:  "Extension hook invocations by event.",
	MetricHookFailures:     "Extension hook failures by event and identifier.",
	MetricDispatchDuration: "Duration of one dispatch pass in seconds.",
	MetricSuppressed:       "Dispatch passes suppressed while a load pass was running.",
	MetricInstantiations:   "Extension instances created by phase.",
	MetricRejections:       "Extension candidates rejected during enumeration.",
	MetricLiveExtensions:   "Extension instances currently known to the registry.",
	MetricLoadPasses:       "Completed load and reload passes.",
}

// noopMetricsCollector discards everything.
type noopMetricsCollector struct{}

func (noopMetricsCollector) IncrementCounter(string, map[string]string, int64) {}
func (noopMetricsCollector) SetGauge(string, map[string]string, float64) {}
func (noopMetricsCollector) RecordHistogram(string, map[string]string, float64) {}
func (noopMetricsCollector) GetMetrics() map[string]interface{} { return map[string]interface{}{} }

// observability_impl.go: In-memory and Prometheus implementations of MetricsCollector
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMetricsCollector provides a basic in-memory implementation of MetricsCollector
type DefaultMetricsCollector struct {
	metrics map[string]interface{}
	mu      sync.RWMutex
}

// NewDefaultMetricsCollector creates a new default metrics collector
func NewDefaultMetricsCollector() *DefaultMetricsCollector {
	return &DefaultMetricsCollector{
		metrics: make(map[string]interface{}),
	}
}

func (dmc *DefaultMetricsCollector) IncrementCounter(name string, labels map[string]string, value int64) {
	dmc.mu.Lock()
	defer dmc.mu.Unlock()
	key := MetricKey(name, labels)
	if current, exists := dmc.metrics[key]; exists {
		if counter, ok := current.(int64); ok {
			dmc.metrics[key] = counter + value
		}
	} else {
		dmc.metrics[key] = value
	}
}

func (dmc *DefaultMetricsCollector) SetGauge(name string, labels map[string]string, value float64) {
	dmc.mu.Lock()
	defer dmc.mu.Unlock()
	dmc.metrics[MetricKey(name, labels)] = value
}

// HistogramSummary aggregates histogram observations in constant space.
type HistogramSummary struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

// Mean returns Sum/Count, or 0 when nothing was observed.
func (h HistogramSummary) Mean() float64 {
	if h.Count == 0 {
		return 0
	}
	return h.Sum / float64(h.Count)
}

func (h HistogramSummary) observe(value float64) HistogramSummary {
	if h.Count == 0 || value < h.Min {
		h.Min = value
	}
	if h.Count == 0 || value > h.Max {
		h.Max = value
	}
	h.Count++
	h.Sum += value
	return h
}

func (dmc *DefaultMetricsCollector) RecordHistogram(name string, labels map[string]string, value float64) {
	dmc.mu.Lock()
	defer dmc.mu.Unlock()
	key := MetricKey(name, labels)
	if current, exists := dmc.metrics[key]; exists {
		if histogram, ok := current.(HistogramSummary); ok {
			dmc.metrics[key] = histogram.observe(value)
		}
	} else {
		dmc.metrics[key] = HistogramSummary{}.observe(value)
	}
}

func (dmc *DefaultMetricsCollector) GetMetrics() map[string]interface{} {
	dmc.mu.RLock()
	defer dmc.mu.RUnlock()
	result := make(map[string]interface{}, len(dmc.metrics))
	for k, v := range dmc.metrics {
		result[k] = v
	}
	return result
}

// Counter returns the current value of a counter, or 0.
func (dmc *DefaultMetricsCollector) Counter(name string, labels map[string]string) int64 {
	dmc.mu.RLock()
	defer dmc.mu.RUnlock()
	v, _ := dmc.metrics[MetricKey(name, labels)].(int64)
	return v
}

// Histogram returns the summary of a histogram, or a zero summary.
func (dmc *DefaultMetricsCollector) Histogram(name string, labels map[string]string) HistogramSummary {
	dmc.mu.RLock()
	defer dmc.mu.RUnlock()
	h, _ := dmc.metrics[MetricKey(name, labels)].(HistogramSummary)
	return h
}

// MetricKey renders name and labels as name{k=v,...} with sorted labels.
func MetricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s{%s}", name, strings.Join(parts, ","))
}

// PrometheusMetricsCollector registers one vector per metric name on a
// prometheus.Registerer. The label names of a metric are fixed by its first
// observation; later observations with a different label set are dropped.
type PrometheusMetricsCollector struct {
	namespace  string
	registerer prometheus.Registerer
	logger     Logger

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	snapshot   *DefaultMetricsCollector
}

// NewPrometheusMetricsCollector creates a collector registering on reg. A nil
// reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetricsCollector(namespace string, reg prometheus.Registerer, logger Logger) *PrometheusMetricsCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = DefaultLogger()
	}
	return &PrometheusMetricsCollector{
		namespace:  namespace,
		registerer: reg,
		logger:     logger,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		snapshot:   NewDefaultMetricsCollector(),
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func help(name string) string {
	if h, ok := metricHelp[name]; ok {
		return h
	}
	return name
}

func (p *PrometheusMetricsCollector) register(c prometheus.Collector) prometheus.Collector {
	if err := p.registerer.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector
		}
		p.logger.Warn("Failed to register metric", "error", err)
	}
	return c
}

// IncrementCounter implements MetricsCollector.
func (p *PrometheusMetricsCollector) IncrementCounter(name string, labels map[string]string, value int64) {
	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		created := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      help(name),
		}, labelNames(labels))
		vec, ok = p.register(created).(*prometheus.CounterVec)
		if !ok {
			vec = created
		}
		p.counters[name] = vec
	}
	p.mu.Unlock()

	counter, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		p.logger.Debug("Dropped counter observation", "metric", name, "error", err)
		return
	}
	counter.Add(float64(value))
	p.snapshot.IncrementCounter(name, labels, value)
}

// SetGauge implements MetricsCollector.
func (p *PrometheusMetricsCollector) SetGauge(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	vec, ok := p.gauges[name]
	if !ok {
		created := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      help(name),
		}, labelNames(labels))
		vec, ok = p.register(created).(*prometheus.GaugeVec)
		if !ok {
			vec = created
		}
		p.gauges[name] = vec
	}
	p.mu.Unlock()

	gauge, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		p.logger.Debug("Dropped gauge observation", "metric", name, "error", err)
		return
	}
	gauge.Set(value)
	p.snapshot.SetGauge(name, labels, value)
}

// RecordHistogram implements MetricsCollector.
func (p *PrometheusMetricsCollector) RecordHistogram(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	vec, ok := p.histograms[name]
	if !ok {
		created := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      help(name),
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, labelNames(labels))
		vec, ok = p.register(created).(*prometheus.HistogramVec)
		if !ok {
			vec = created
		}
		p.histograms[name] = vec
	}
	p.mu.Unlock()

	observer, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		p.logger.Debug("Dropped histogram observation", "metric", name, "error", err)
		return
	}
	observer.Observe(value)
	p.snapshot.RecordHistogram(name, labels, value)
}

// GetMetrics implements MetricsCollector with the values recorded so far.
func (p *PrometheusMetricsCollector) GetMetrics() map[string]interface{} {
	return p.snapshot.GetMetrics()
}

var (
	_ MetricsCollector = (*DefaultMetricsCollector)(nil)
	_ MetricsCollector = (*PrometheusMetricsCollector)(nil)
)

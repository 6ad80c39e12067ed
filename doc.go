// Package pluginhost is a plugin lifecycle host for long-running Go
// applications such as game loops and simulation servers. It discovers
// extension types registered by independently built code units, creates one
// instance per type in load order, runs a two-phase initialization and
// delivers the host's recurring events to every instance, keeping one
// extension's failure away from the others.
//
// Key Features:
//   - Explicit factory registration through a Catalog of code units
//   - Deployable units loaded from memory or from unit manifests on disk
//   - Early and main initialization phases, each run at most once per instance
//   - Reload passes that only add newly visible extensions
//   - One runtime patch per code unit for the life of the process
//   - Per-instance error and panic isolation with dispatch reports
//   - Tick and frame schedulers, YAML settings with hot reload, bolt-backed
//     "what's new" notices, Prometheus metrics and logrus logging
//
// Basic Usage:
//
//	catalog := pluginhost.NewCatalog()
//	catalog.MustRegister(pluginhost.CodeUnit{
//		Name:    "weather",
//		Version: "1.2.0",
//		Factories: []pluginhost.ExtensionFactory{{
//			TypeName: "Weather",
//			New:      func() (pluginhost.Extension, error) { return &Weather{}, nil },
//		}},
//	})
//
//	queue := pluginhost.NewContinuationQueue(logger)
//	host := pluginhost.NewController(pluginhost.Options{
//		Catalog: catalog,
//		Units:   pluginhost.NewStaticUnitSource(units...),
//		Host:    queue,
//		Logger:  logger,
//	})
//
//	host.EarlyInit()
//	host.LateInit()
//	queue.FinishLongEvent() // runs the first load pass
//
//	for tick := 1; running; tick++ {
//		host.Dispatcher().Tick(tick)
//		queue.RunPending()
//	}
//
// Threading:
// The Controller is driven from a single host thread. File watchers post
// their work to the ContinuationQueue, which the host drains on its thread.
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0
package pluginhost

// ModuleVersion is the version of this module, reported as the host's own
// code unit version.
const ModuleVersion = "1.0.0"

// host.go: Wiring of the file-backed plugin host
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/agilira/argus"
	pluginhost "github.com/agilira/go-pluginhost"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// hostRuntime bundles a controller with the resources the binary owns.
type hostRuntime struct {
	config     pluginhost.HostConfig
	controller *pluginhost.Controller
	queue      *pluginhost.ContinuationQueue
	units      *pluginhost.DirectoryUnitSource
	registry   *prometheus.Registry
	logger     pluginhost.Logger
	audit      *argus.AuditLogger

	// start begins watching the load-order file once the host is up.
	start func() error
}

// loadConfig reads path when given, otherwise uses defaults plus
// environment overrides.
func loadConfig(path string) (pluginhost.HostConfig, error) {
	if path != "" {
		return pluginhost.LoadHostConfig(path)
	}
	config := pluginhost.DefaultHostConfig()
	pluginhost.ApplyEnvOverrides(&config, pluginhost.DefaultEnvPrefix)
	return config, config.Validate()
}

func newLogrus(level string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)
	return log, nil
}

// newHostRuntime builds the controller and its file-backed collaborators.
// Nothing is started; the caller drives the lifecycle.
func newHostRuntime(config pluginhost.HostConfig) (*hostRuntime, error) {
	log, err := newLogrus(config.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := pluginhost.NewLogrusAdapter(log)

	var audit *argus.AuditLogger
	if config.Audit.Enabled {
		audit, err = argus.NewAuditLogger(config.AuditConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	poll, err := config.PollDuration()
	if err != nil {
		poll = 0
	}

	rt := &hostRuntime{
		config:   config,
		queue:    pluginhost.NewContinuationQueue(logger),
		units:    pluginhost.NewDirectoryUnitSource(config.UnitsDir, config.LoadOrderFile, logger),
		registry: prometheus.NewRegistry(),
		logger:   logger,
		audit:    audit,
	}

	env := &demoEnv{logger: logger.With("component", "demo")}
	rt.controller = pluginhost.NewController(pluginhost.Options{
		SelfCodeUnit:       config.SelfCodeUnit,
		CanonicalPackageID: config.CanonicalPackageID,
		SettingsPageID:     config.SettingsPageID,
		Catalog:            demoCatalog(env),
		Units:              rt.units,
		Host:               rt.queue,
		Logger:             log,
		Metrics:            pluginhost.NewPrometheusMetricsCollector("pluginhost", rt.registry, logger),
		LoadOrderChecker:   pluginhost.DependencyLoadOrderChecker{RequireDependencies: true},
		NewSettingsManager: func() (pluginhost.SettingsManager, error) {
			settings, err := pluginhost.NewFileSettingsManager(pluginhost.FileSettingsOptions{
				Path:         config.SettingsFile,
				Watch:        config.Watch,
				PollInterval: poll,
				Post:         rt.queue.Post,
				Audit:        audit,
			}, logger)
			if err != nil {
				return nil, err
			}
			return settings, settings.Start()
		},
		NewUpdateManager: func() (pluginhost.UpdateManager, error) {
			return pluginhost.OpenBoltUpdateManager(config.ChangelogDB, nil, logger)
		},
	})
	env.controller = rt.controller

	if config.Watch {
		watcher, err := pluginhost.NewUnitWatcher(rt.controller, pluginhost.UnitWatcherOptions{
			LoadOrderFile: config.LoadOrderFile,
			PollInterval:  poll,
			Post:          rt.queue.Post,
			Audit:         audit,
		}, logger)
		if err != nil {
			return nil, err
		}
		rt.controller.OnClose(watcher)
		rt.start = watcher.Start
	}
	return rt, nil
}

// boot runs EarlyInit, LateInit and the first load pass.
func (rt *hostRuntime) boot() error {
	rt.controller.EarlyInit()
	rt.controller.LateInit()
	rt.queue.FinishLongEvent()

	if rt.controller.State() != pluginhost.StateLateInitDone {
		return fmt.Errorf("host did not finish initialization: %w", rt.controller.LastError())
	}
	if report := rt.controller.LastReload(); report != nil && report.Err != nil {
		return report.Err
	}
	if rt.start != nil {
		if err := rt.start(); err != nil {
			return err
		}
	}
	return nil
}

func (rt *hostRuntime) close() error {
	err := rt.controller.Close()
	if rt.audit != nil {
		err = errors.Join(err, rt.audit.Close())
	}
	return err
}

// manager_lifecycle.go: EarlyInit, LateInit and load pass state machine
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"errors"
	"time"

	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// Phase names used in logs and errors.
const (
	phaseEarlyInit  = "early_init"
	phaseLateInit   = "late_init"
	phaseLoadReload = "load_reload_initialize"
	phaseReload     = "reload"
)

// EarlyInit runs the synchronous bootstrap phase: patch the host's own code
// unit, construct the owned collaborators, validate the load order and run
// EarlyInit on every early extension type that is loaded. It runs once;
// later calls log a warning and do nothing.
func (c *Controller) EarlyInit() {
	if c.state != StateUninitialized {
		c.misuse(NewRepeatedInitError(phaseEarlyInit, c.state))
		return
	}
	c.state = StateEarlyInitDone
	defer c.recoverPhase(phaseEarlyInit, nil)

	c.logger.Info("Early initialization started", "phase", phaseEarlyInit)

	c.resolveOwnVersion()

	if _, err := c.registry.ApplyPatch(c.options.SelfCodeUnit, c.options.SelfCodeUnit); err != nil {
		c.logger.Error("Runtime patch for host code unit failed",
			"code_unit", c.options.SelfCodeUnit,
			"error", err)
	}

	c.constructCollaborators()

	units, err := c.units.LoadedUnits()
	if err != nil {
		c.phaseFailed(phaseEarlyInit, err)
		return
	}
	c.validateLoadOrder(units)
	c.registry.Refresh(BuildModuleMap(units, c.logger))

	var failures []HookFailure
	for _, d := range c.registry.Enumerate(PhaseEarly) {
		if f := c.runEarlyInit(d); f != nil {
			failures = append(failures, *f)
		}
	}

	c.logger.Info("Early initialization completed",
		"phase", phaseEarlyInit,
		"version", c.ownVersion,
		"early_extensions", len(c.earlyInitialized),
		"failures", len(failures))
}

// LateInit registers the host's settings page, prepares quickstart support
// and queues the first load pass on the host's long-event queue. It must
// follow EarlyInit and runs once.
func (c *Controller) LateInit() {
	switch {
	case c.state == StateUninitialized:
		c.misuse(NewInvalidStateError(phaseLateInit, c.state))
		return
	case c.state != StateEarlyInitDone:
		c.misuse(NewRepeatedInitError(phaseLateInit, c.state))
		return
	}
	c.state = StateLateInitQueued
	defer c.recoverPhase(phaseLateInit, nil)

	c.settingsPage = c.settings.GetOrCreatePage(c.options.SettingsPageID)

	if c.options.Quickstarter != nil {
		if err := safeCall(c.options.Quickstarter.Prepare); err != nil {
			c.logger.Error("Quickstart preparation failed",
				"phase", phaseLateInit,
				"error", NewCollaboratorError("quickstarter", err))
		}
	}

	c.host.AfterLongEvent(c.LoadReloadInitialize)
	c.logger.Info("Load pass queued", "phase", phaseLateInit)
}

// LoadReloadInitialize runs one load pass. The first pass is queued by
// LateInit; Reload runs the later ones. While it runs, frame and tick
// dispatch is suppressed and nested calls are refused.
func (c *Controller) LoadReloadInitialize() {
	if c.state < StateLateInitQueued {
		c.misuse(NewInvalidStateError(phaseLoadReload, c.state))
		return
	}
	if c.reloading {
		c.misuse(NewReentrantPassError(phaseLoadReload))
		return
	}

	c.reloading = true
	report := &ReloadReport{
		PassID:    uuid.NewString(),
		StartedAt: timecache.CachedTime(),
	}
	start := time.Now()
	defer func() {
		c.reloading = false
		report.Duration = time.Since(start)
		c.lastReload = report
		if c.state == StateLateInitQueued {
			c.state = StateLateInitDone
		}
		c.metrics.IncrementCounter(MetricLoadPasses, nil, 1)
	}()
	defer c.recoverPhase(phaseLoadReload, report)

	logger := c.logger.With("pass_id", report.PassID)
	logger.Info("Load pass started", "phase", phaseLoadReload)

	units, err := c.units.LoadedUnits()
	if err != nil {
		report.Err = c.phaseFailed(phaseLoadReload, err)
		return
	}

	report.ForeignUnits = c.checkIntegrity(units)

	if err := safeCall(c.options.AttributeProcessor.ProcessNewlyVisibleTypes); err != nil {
		logger.Error("Declarative registration processing failed",
			"error", NewCollaboratorError("attribute_processor", err))
	}

	modules := BuildModuleMap(units, c.logger)
	c.registry.Refresh(modules)

	for _, d := range c.registry.Enumerate(PhaseEarly) {
		report.EarlyInitialized = append(report.EarlyInitialized, d.Identifier())
		if f := c.runEarlyInit(d); f != nil {
			report.Failures = append(report.Failures, *f)
		}
	}
	discovered := c.registry.Enumerate(PhaseMain)
	c.registry.Refresh(modules)

	for _, d := range c.pendingInit(discovered) {
		report.Initialized = append(report.Initialized, d.Identifier())
		if f := c.runInit(d); f != nil {
			report.Failures = append(report.Failures, *f)
		}
	}

	report.Inspection = c.inspector.Inspect(c.Initialized())
	report.NoticeShown = c.updates.TryShowNotice(false)

	report.DefsLoaded = c.dispatcher.DefsLoaded()

	logger.Info("Load pass completed",
		"phase", phaseLoadReload,
		"new_early", len(report.EarlyInitialized),
		"new_initialized", len(report.Initialized),
		"failures", len(report.Failures),
		"live", c.registry.Len())
}

// Reload re-runs the load pass after the host's loaded units changed.
// Instances created earlier are kept; only newly visible types are
// instantiated and initialized.
func (c *Controller) Reload() {
	if c.state != StateLateInitDone {
		c.misuse(NewInvalidStateError(phaseReload, c.state))
		return
	}
	c.LoadReloadInitialize()
}

// ShowChangelog shows the update notices even when nothing changed.
func (c *Controller) ShowChangelog() bool {
	if !c.collaboratorsReady {
		c.misuse(NewInvalidStateError("show_changelog", c.state))
		return false
	}
	return c.updates.TryShowNotice(true)
}

// Close releases the owned collaborators and registered closers.
func (c *Controller) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil

	if c.collaboratorsReady {
		if err := c.settings.Close(); err != nil {
			errs = append(errs, NewCollaboratorError("settings_manager", err))
		}
		if err := c.updates.Close(); err != nil {
			errs = append(errs, NewCollaboratorError("update_manager", err))
		}
	}

	for _, err := range errs {
		c.logger.Warn("Failed to close collaborator", "error", err)
	}
	return errors.Join(errs...)
}

// pendingInit returns the instances that are due for Init: early-initialized
// ones not yet initialized, then the newly discovered main ones. Inactive
// instances wait for a pass in which their unit is loaded.
func (c *Controller) pendingInit(discovered []*PluginDescriptor) []*PluginDescriptor {
	var due []*PluginDescriptor
	for _, d := range c.earlyInitialized {
		if !c.initSet[d] && d.IsActive() {
			due = append(due, d)
		}
	}
	for _, d := range discovered {
		if !c.initSet[d] && d.IsActive() {
			due = append(due, d)
		}
	}
	return due
}

func (c *Controller) runEarlyInit(d *PluginDescriptor) *HookFailure {
	if c.earlySet[d] {
		return nil
	}
	c.earlySet[d] = true
	c.earlyInitialized = append(c.earlyInitialized, d)
	return c.invoke(d, EventEarlyInit, d.Instance().EarlyInit)
}

func (c *Controller) runInit(d *PluginDescriptor) *HookFailure {
	if c.initSet[d] {
		return nil
	}
	c.initSet[d] = true
	c.initialized = append(c.initialized, d)
	return c.invoke(d, EventInit, d.Instance().Init)
}

// invoke runs one lifecycle hook and logs its failure.
func (c *Controller) invoke(d *PluginDescriptor, event HookEvent, hook func() error) *HookFailure {
	err := safeInvoke(d.Identifier(), event, hook)
	c.metrics.IncrementCounter(MetricHookInvocations, map[string]string{"event": string(event)}, 1)
	if err == nil {
		return nil
	}
	c.metrics.IncrementCounter(MetricHookFailures,
		map[string]string{"event": string(event), "identifier": d.Identifier()}, 1)
	c.logger.Error("Extension hook failed",
		"identifier", d.Identifier(),
		"event", string(event),
		"error", err)
	return &HookFailure{Identifier: d.Identifier(), Event: event, Err: err}
}

func (c *Controller) resolveOwnVersion() {
	var version string
	err := safeCall(func() error {
		var resolveErr error
		version, resolveErr = c.options.VersionResolver.ResolveVersion(c.options.SelfCodeUnit)
		return resolveErr
	})
	if err != nil {
		c.logger.Warn("Host version unresolved",
			"code_unit", c.options.SelfCodeUnit,
			"error", NewVersionResolutionError(c.options.SelfCodeUnit, err))
		return
	}
	c.ownVersion = version
}

// constructCollaborators builds the owned collaborators exactly once. A
// factory that fails, panics or returns nil falls back to the in-process
// default.
func (c *Controller) constructCollaborators() {
	if c.collaboratorsReady {
		return
	}

	var settings SettingsManager
	err := safeCall(func() (err error) {
		settings, err = c.options.NewSettingsManager()
		return err
	})
	if err != nil || settings == nil {
		c.logger.Error("Settings manager unavailable, using in-memory settings",
			"error", NewCollaboratorError("settings_manager", err))
		settings = NewMemorySettingsManager()
	}
	c.settings = settings

	var updates UpdateManager
	err = safeCall(func() (err error) {
		updates, err = c.options.NewUpdateManager()
		return err
	})
	if err != nil || updates == nil {
		c.logger.Error("Update manager unavailable, notices disabled",
			"error", NewCollaboratorError("update_manager", err))
		updates = NewMemoryUpdateManager()
	}
	c.updates = updates

	c.tickDelays = c.buildTickScheduler("tick_delay")
	c.distributedTicks = c.buildTickScheduler("distributed_tick")

	var doLater FrameScheduler
	err = safeCall(func() error {
		doLater = c.options.NewFrameScheduler()
		return nil
	})
	if err != nil || doLater == nil {
		c.logger.Error("Frame scheduler unavailable, using default",
			"error", NewCollaboratorError("do_later", err))
		doLater = NewDelayScheduler("do_later", c.logger)
	}
	c.doLater = doLater

	var publisher LogPublisher
	err = safeCall(func() error {
		publisher = c.options.NewLogPublisher()
		return nil
	})
	if err != nil || publisher == nil {
		c.logger.Error("Log publisher unavailable, log publishing disabled",
			"error", NewCollaboratorError("log_publisher", err))
		publisher = nopLogPublisher{}
	}
	c.logPublisher = publisher

	c.inspector = NewVersionInspector(c.updates, c.logger)

	if err := safeCall(func() error {
		c.logPublisher.RegisterSettings(c.settings)
		return nil
	}); err != nil {
		c.logger.Error("Log publisher rejected settings", "error", NewCollaboratorError("log_publisher", err))
	}
	if err := safeCall(func() error {
		c.settings.OnChanged(func() { c.dispatcher.SettingsChanged() })
		return nil
	}); err != nil {
		c.logger.Error("Settings change hook not registered", "error", NewCollaboratorError("settings_manager", err))
	}

	c.collaboratorsReady = true
}

func (c *Controller) buildTickScheduler(name string) TickScheduler {
	var scheduler TickScheduler
	err := safeCall(func() error {
		scheduler = c.options.NewTickScheduler(name)
		return nil
	})
	if err != nil || scheduler == nil {
		c.logger.Error("Tick scheduler unavailable, using default",
			"scheduler", name, "error", NewCollaboratorError(name, err))
		scheduler = NewDelayScheduler(name, c.logger)
	}
	return scheduler
}

func (c *Controller) validateLoadOrder(units []DeployableUnit) {
	var violations []LoadOrderViolation
	if err := safeCall(func() error {
		violations = c.options.LoadOrderChecker.Validate(units)
		return nil
	}); err != nil {
		c.logger.Error("Load order check failed", "error", NewCollaboratorError("load_order_checker", err))
		return
	}
	for _, v := range violations {
		c.logger.Warn("Load order violation",
			"unit", v.Unit,
			"related_unit", v.Related,
			"error", NewLoadOrderError(v))
	}
}

// checkIntegrity reports units other than the canonical one that ship the
// host's own code unit. Detection only.
func (c *Controller) checkIntegrity(units []DeployableUnit) []string {
	var foreign []string
	for _, u := range units {
		if u.PackageID == c.options.CanonicalPackageID {
			continue
		}
		for _, codeUnit := range u.CodeUnits {
			if codeUnit != c.options.SelfCodeUnit {
				continue
			}
			foreign = append(foreign, u.PackageID)
			c.logger.Error("Host code unit included by a foreign unit",
				"code_unit", codeUnit,
				"foreign_unit", u.PackageID,
				"error", NewForeignInclusionError(codeUnit, c.options.CanonicalPackageID, u.PackageID))
		}
	}
	return foreign
}

func (c *Controller) misuse(err error) {
	c.lastErr = err
	c.logger.Warn("Lifecycle entry point ignored", "state", c.state.String(), "error", err)
}

func (c *Controller) phaseFailed(phase string, cause error) error {
	err := NewPhaseFailedError(phase, cause)
	c.lastErr = err
	c.logger.Error("Lifecycle phase abandoned", "phase", phase, "error", err)
	return err
}

// recoverPhase converts a panic escaping a phase into a logged phase
// failure. Flags set before the panic stay set.
func (c *Controller) recoverPhase(phase string, report *ReloadReport) {
	if r := recover(); r != nil {
		err := c.phaseFailed(phase, NewHookPanicError(r, string(captureStack())))
		if report != nil {
			report.Err = err
		}
	}
}

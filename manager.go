// manager.go: Controller construction, options and read accessors
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"io"
)

// Default identity of the host's own code unit.
const (
	DefaultSelfCodeUnit       = "pluginhost"
	DefaultCanonicalPackageID = "agilira.pluginhost"
)

// Options configures a Controller. Every collaborator slot may be left
// empty; NewController fills it with an in-process default.
type Options struct {
	// SelfCodeUnit names the host's own code unit; CanonicalPackageID is the
	// only deployable unit allowed to ship it.
	SelfCodeUnit       string
	SelfVersion        string
	CanonicalPackageID string
	SettingsPageID     string

	Catalog *Catalog
	Units   UnitSource
	Host    Host

	// Logger accepts a Logger, a *logrus.Logger or nil.
	Logger  any
	Metrics MetricsCollector

	VersionResolver    VersionResolver
	LoadOrderChecker   LoadOrderChecker
	AttributeProcessor AttributeProcessor
	WorldObjects       WorldObjectManager
	Patcher            RuntimePatcher
	Quickstarter       Quickstarter

	// Owned collaborators, constructed once during EarlyInit.
	NewSettingsManager func() (SettingsManager, error)
	NewUpdateManager   func() (UpdateManager, error)
	NewTickScheduler   func(name string) TickScheduler
	NewFrameScheduler  func() FrameScheduler
	NewLogPublisher    func() LogPublisher
}

// Controller is the plugin host: it owns the registry, drives the
// EarlyInit and LateInit phases, re-runs discovery on reload and exposes
// the EventDispatcher for recurring host events.
//
// A Controller is created once per process and passed by reference to the
// code that needs it. It is not safe for concurrent use: every method must
// be called from the host thread. Work from other goroutines goes through
// ContinuationQueue.Post.
//
// Entry points never panic and never return errors to the host. Misuse and
// phase failures are logged; State and LastError expose the outcome.
type Controller struct {
	options Options
	logger  Logger
	metrics MetricsCollector

	catalog    *Catalog
	units      UnitSource
	host       Host
	registry   *PluginRegistry
	patches    *PatchCoordinator
	inspector  *VersionInspector
	dispatcher *EventDispatcher

	state      LifecycleState
	reloading  bool
	ownVersion string
	lastErr    error
	lastReload *ReloadReport

	earlyInitialized []*PluginDescriptor
	earlySet         map[*PluginDescriptor]bool
	initialized      []*PluginDescriptor
	initSet          map[*PluginDescriptor]bool

	collaboratorsReady bool
	settings           SettingsManager
	updates            UpdateManager
	tickDelays         TickScheduler
	distributedTicks   TickScheduler
	doLater            FrameScheduler
	logPublisher       LogPublisher
	settingsPage       *SettingsPage

	closers []io.Closer
}

// NewController creates a controller in the Uninitialized state.
func NewController(options Options) *Controller {
	logger := NewLogger(options.Logger)
	setControllerDefaults(&options, logger)

	if _, ok := options.Catalog.CodeUnit(options.SelfCodeUnit); !ok {
		if err := options.Catalog.Register(CodeUnit{Name: options.SelfCodeUnit, Version: options.SelfVersion}); err != nil {
			logger.Warn("Failed to register host code unit", "code_unit", options.SelfCodeUnit, "error", err)
		}
	}

	patches := NewPatchCoordinator(logger)
	c := &Controller{
		options:  options,
		logger:   logger,
		metrics:  options.Metrics,
		catalog:  options.Catalog,
		units:    options.Units,
		host:     options.Host,
		patches:  patches,
		earlySet: make(map[*PluginDescriptor]bool),
		initSet:  make(map[*PluginDescriptor]bool),
	}
	c.registry = NewPluginRegistry(RegistryConfig{
		Catalog:  options.Catalog,
		Patches:  patches,
		Patcher:  options.Patcher,
		Resolver: options.VersionResolver,
		Logger:   logger,
		Metrics:  options.Metrics,
	})
	c.dispatcher = &EventDispatcher{c: c}
	return c
}

func setControllerDefaults(options *Options, logger Logger) {
	if options.SelfCodeUnit == "" {
		options.SelfCodeUnit = DefaultSelfCodeUnit
	}
	if options.SelfVersion == "" {
		options.SelfVersion = ModuleVersion
	}
	if options.CanonicalPackageID == "" {
		options.CanonicalPackageID = DefaultCanonicalPackageID
	}
	if options.SettingsPageID == "" {
		options.SettingsPageID = options.SelfCodeUnit
	}
	if options.Catalog == nil {
		options.Catalog = NewCatalog()
	}
	if options.Units == nil {
		options.Units = NewStaticUnitSource()
	}
	if options.Host == nil {
		options.Host = NewContinuationQueue(logger)
	}
	if options.Metrics == nil {
		options.Metrics = noopMetricsCollector{}
	}
	if options.VersionResolver == nil {
		options.VersionResolver = NewCatalogVersionResolver(options.Catalog)
	}
	if options.LoadOrderChecker == nil {
		options.LoadOrderChecker = DependencyLoadOrderChecker{}
	}
	if options.AttributeProcessor == nil {
		options.AttributeProcessor = nopAttributeProcessor{}
	}
	if options.WorldObjects == nil {
		options.WorldObjects = nopWorldObjectManager{}
	}
	if options.Patcher == nil {
		options.Patcher = nopRuntimePatcher{}
	}
	if options.NewSettingsManager == nil {
		options.NewSettingsManager = func() (SettingsManager, error) { return NewMemorySettingsManager(), nil }
	}
	if options.NewUpdateManager == nil {
		options.NewUpdateManager = func() (UpdateManager, error) { return NewMemoryUpdateManager(), nil }
	}
	if options.NewTickScheduler == nil {
		options.NewTickScheduler = func(name string) TickScheduler { return NewDelayScheduler(name, logger) }
	}
	if options.NewFrameScheduler == nil {
		options.NewFrameScheduler = func() FrameScheduler { return NewDelayScheduler("do_later", logger) }
	}
	if options.NewLogPublisher == nil {
		options.NewLogPublisher = func() LogPublisher { return nopLogPublisher{} }
	}
}

// State returns the lifecycle state.
func (c *Controller) State() LifecycleState { return c.state }

// LastError returns the most recent misuse or phase failure, or nil.
func (c *Controller) LastError() error { return c.lastErr }

// Reloading reports whether a load pass is running.
func (c *Controller) Reloading() bool { return c.reloading }

// OwnVersion returns the host's own resolved version.
func (c *Controller) OwnVersion() string { return c.ownVersion }

// LastReload returns the report of the most recent load pass.
func (c *Controller) LastReload() *ReloadReport { return c.lastReload }

// Registry returns the plugin registry.
func (c *Controller) Registry() *PluginRegistry { return c.registry }

// Patches returns the patch coordinator.
func (c *Controller) Patches() *PatchCoordinator { return c.patches }

// Dispatcher returns the event dispatcher.
func (c *Controller) Dispatcher() *EventDispatcher { return c.dispatcher }

// Host returns the continuation queue in use.
func (c *Controller) Host() Host { return c.host }

// Catalog returns the code unit catalog.
func (c *Controller) Catalog() *Catalog { return c.catalog }

// Logger returns the controller's logger.
func (c *Controller) Logger() Logger { return c.logger }

// Owned collaborators. They are nil until EarlyInit has run.

// Settings returns the settings manager built during EarlyInit.
func (c *Controller) Settings() SettingsManager { return c.settings }

// Updates returns the update manager that receives inspected versions.
func (c *Controller) Updates() UpdateManager { return c.updates }

// TickDelayScheduler returns the scheduler for callbacks delayed by ticks.
func (c *Controller) TickDelayScheduler() TickScheduler { return c.tickDelays }

// DistributedTickScheduler returns the scheduler that spreads work across ticks.
func (c *Controller) DistributedTickScheduler() TickScheduler { return c.distributedTicks }

// DoLaterScheduler returns the frame scheduler driven by Update, OnGUI and MapLoaded.
func (c *Controller) DoLaterScheduler() FrameScheduler { return c.doLater }

// LogPublisher returns the log publisher registered with the settings manager.
func (c *Controller) LogPublisher() LogPublisher { return c.logPublisher }

// SettingsPage returns the host's own settings page once LateInit has run.
func (c *Controller) SettingsPage() *SettingsPage { return c.settingsPage }

// EarlyInitialized returns the instances whose EarlyInit was attempted.
func (c *Controller) EarlyInitialized() []*PluginDescriptor {
	return append([]*PluginDescriptor(nil), c.earlyInitialized...)
}

// Initialized returns the instances whose Init was attempted.
func (c *Controller) Initialized() []*PluginDescriptor {
	return append([]*PluginDescriptor(nil), c.initialized...)
}

// Snapshot describes every live extension.
func (c *Controller) Snapshot() []DescriptorInfo {
	descriptors := c.registry.Descriptors()
	out := make([]DescriptorInfo, 0, len(descriptors))
	for _, d := range descriptors {
		version, _ := d.Version()
		out = append(out, DescriptorInfo{
			Identifier:     d.Identifier(),
			TypeKey:        d.TypeKey(),
			CodeUnit:       d.CodeUnit(),
			PackageID:      d.Unit().PackageID,
			Version:        version,
			Active:         d.IsActive(),
			WantsEarlyInit: d.WantsEarlyInit(),
			EarlyInitRun:   c.earlySet[d],
			Initialized:    c.initSet[d],
			DiscoveredAt:   d.DiscoveredAt(),
		})
	}
	return out
}

// OnClose registers a resource closed by Close, such as a UnitWatcher.
func (c *Controller) OnClose(closer io.Closer) {
	c.closers = append(c.closers, closer)
}

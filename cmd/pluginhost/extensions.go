// extensions.go: Demo extensions shipped with the pluginhost binary
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"strconv"

	pluginhost "github.com/agilira/go-pluginhost"
)

// demoEnv gives the demo extensions access to the controller once it exists.
type demoEnv struct {
	controller *pluginhost.Controller
	logger     pluginhost.Logger
}

// demoCatalog registers the demo code units.
func demoCatalog(env *demoEnv) *pluginhost.Catalog {
	catalog := pluginhost.NewCatalog()
	catalog.MustRegister(pluginhost.CodeUnit{
		Name:    "clock",
		Version: "1.0.0",
		Factories: []pluginhost.ExtensionFactory{{
			TypeName: "Clock",
			New:      func() (pluginhost.Extension, error) { return &clockExtension{env: env}, nil },
		}},
	})
	catalog.MustRegister(pluginhost.CodeUnit{
		Name:    "weather",
		Version: "0.3.0",
		Patches: true,
		Factories: []pluginhost.ExtensionFactory{{
			TypeName:  "Weather",
			EarlyInit: true,
			New:       func() (pluginhost.Extension, error) { return &weatherExtension{env: env}, nil },
		}},
	})
	catalog.MustRegister(pluginhost.CodeUnit{
		Name:    "greeter",
		Version: "2.1.0",
		Factories: []pluginhost.ExtensionFactory{{
			TypeName: "Greeter",
			New:      func() (pluginhost.Extension, error) { return &greeterExtension{env: env}, nil },
		}},
	})
	return catalog
}

// demoUnits are the manifests written by the init command.
func demoUnits() []pluginhost.DeployableUnit {
	return []pluginhost.DeployableUnit{
		{PackageID: pluginhost.DefaultCanonicalPackageID, Name: "Plugin Host", Version: pluginhost.ModuleVersion, CodeUnits: []string{pluginhost.DefaultSelfCodeUnit}},
		{PackageID: "demo.clock", Name: "Clock", Version: "1.0.0", CodeUnits: []string{"clock"}, LoadAfter: []string{pluginhost.DefaultCanonicalPackageID}},
		{PackageID: "demo.weather", Name: "Weather", Version: "0.3.0", CodeUnits: []string{"weather"}, LoadAfter: []string{"demo.clock"}},
		{PackageID: "demo.greeter", Name: "Greeter", Version: "2.1.0", CodeUnits: []string{"greeter"}},
	}
}

// clockExtension announces the tick count every announce_every ticks.
type clockExtension struct {
	pluginhost.BaseExtension
	env   *demoEnv
	every int
}

func (c *clockExtension) Identifier() string { return "demo.clock" }

func (c *clockExtension) Init() error {
	c.every = 60
	c.SettingsChanged()
	return nil
}

func (c *clockExtension) SettingsChanged() error {
	page := c.env.controller.Settings().GetOrCreatePage("clock")
	if n, err := strconv.Atoi(page.GetOr("announce_every", "60")); err == nil && n > 0 {
		c.every = n
	}
	return nil
}

func (c *clockExtension) Tick(currentTick int) error {
	if c.every > 0 && currentTick%c.every == 0 {
		c.env.logger.Info("Clock", "tick", currentTick)
	}
	return nil
}

// weatherExtension changes the weather on a tick delay it reschedules itself.
type weatherExtension struct {
	pluginhost.BaseExtension
	env     *demoEnv
	current int
}

var weatherKinds = []string{"clear", "rain", "fog", "storm"}

func (w *weatherExtension) Identifier() string { return "demo.weather" }

func (w *weatherExtension) EarlyInit() error {
	w.env.logger.Debug("Weather tables prepared", "kinds", len(weatherKinds))
	return nil
}

func (w *weatherExtension) WorldLoaded() error {
	w.schedule()
	return nil
}

func (w *weatherExtension) schedule() {
	scheduler, ok := w.env.controller.TickDelayScheduler().(*pluginhost.DelayScheduler)
	if !ok {
		return
	}
	scheduler.Schedule(90, w.Identifier(), func() {
		w.current = (w.current + 1) % len(weatherKinds)
		w.env.logger.Info("Weather changed", "weather", weatherKinds[w.current])
		w.schedule()
	})
}

// greeterExtension greets every loaded map.
type greeterExtension struct {
	pluginhost.BaseExtension
	env *demoEnv
}

func (g *greeterExtension) Identifier() string { return "demo.greeter" }

func (g *greeterExtension) MapLoaded(m pluginhost.Map) error {
	g.env.logger.Info("Welcome", "map", m.Name, "map_id", m.ID)
	return nil
}

func (g *greeterExtension) MapDiscarded(m pluginhost.Map) error {
	g.env.logger.Info("Goodbye", "map", m.Name)
	return nil
}

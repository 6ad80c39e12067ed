// plugin.go: Extension capability set and no-op base implementation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

// Extension is the capability set every extension instance implements.
//
// The controller and dispatcher call these hooks from the host thread only.
// A returned error is wrapped with the extension's identifier and the hook
// name, logged, and recorded in the dispatch report; it never stops the hook
// from running on the other extensions. Panics are recovered the same way.
//
// Embed BaseExtension to implement only the hooks you need:
//
//	type Greeter struct {
//	    pluginhost.BaseExtension
//	}
//
//	func (g *Greeter) Init() error {
//	    fmt.Println("hello")
//	    return nil
//	}
type Extension interface {
	// EarlyInit runs once, during Controller.EarlyInit, for factories
	// registered with EarlyInit set.
	EarlyInit() error

	// Init runs once per instance, during the first load pass that sees it.
	Init() error

	Update() error
	FixedUpdate() error
	Tick(currentTick int) error
	OnGUI() error
	SettingsChanged() error
	DefsLoaded() error

	SceneLoaded(scene Scene) error
	WorldLoaded() error
	MapGenerated(m Map) error
	MapComponentsInitializing(m Map) error
	MapLoaded(m Map) error
	MapDiscarded(m Map) error
}

// Identified is implemented by extensions that choose their own identifier.
// Extensions that do not implement it, or return "", are identified by their
// factory type name.
type Identified interface {
	Identifier() string
}

// BaseExtension implements every Extension hook as a no-op.
type BaseExtension struct{}

func (BaseExtension) EarlyInit() error { return nil }
func (BaseExtension) Init() error { return nil }
func (BaseExtension) Update() error { return nil }
func (BaseExtension) FixedUpdate() error { return nil }
func (BaseExtension) Tick(int) error { return nil }
func (BaseExtension) OnGUI() error { return nil }
func (BaseExtension) SettingsChanged() error { return nil }
func (BaseExtension) DefsLoaded() error { return nil }
func (BaseExtension) SceneLoaded(Scene) error { return nil }
func (BaseExtension) WorldLoaded() error { return nil }
func (BaseExtension) MapGenerated(Map) error { return nil }
func (BaseExtension) MapComponentsInitializing(Map) error { return nil }
func (BaseExtension) MapLoaded(Map) error { return nil }
func (BaseExtension) MapDiscarded(Map) error { return nil }

var _ Extension = BaseExtension{}

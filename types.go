// types.go: Core value types shared by the registry, controller and dispatcher
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import "fmt"

// Phase selects which extension types an enumeration pass instantiates.
type Phase int

const (
	// PhaseEarly enumerates factories marked EarlyInit.
	PhaseEarly Phase = iota
	// PhaseMain enumerates every other factory.
	PhaseMain
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseEarly:
		return "early"
	case PhaseMain:
		return "main"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// LifecycleState is the controller's position in the startup sequence.
type LifecycleState int

const (
	StateUninitialized LifecycleState = iota
	StateEarlyInitDone
	StateLateInitQueued
	StateLateInitDone
)

// String returns the string representation of the lifecycle state.
func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateEarlyInitDone:
		return "early_init_done"
	case StateLateInitQueued:
		return "late_init_queued"
	case StateLateInitDone:
		return "late_init_done"
	default:
		return "unknown"
	}
}

// HookEvent names an extension hook. It is attached to every hook failure.
type HookEvent string

const (
	EventEarlyInit                 HookEvent = "early_init"
	EventInit                      HookEvent = "init"
	EventUpdate                    HookEvent = "update"
	EventFixedUpdate               HookEvent = "fixed_update"
	EventTick                      HookEvent = "tick"
	EventOnGUI                     HookEvent = "on_gui"
	EventSettingsChanged           HookEvent = "settings_changed"
	EventDefsLoaded                HookEvent = "defs_loaded"
	EventSceneLoaded               HookEvent = "scene_loaded"
	EventWorldLoaded               HookEvent = "world_loaded"
	EventMapGenerated              HookEvent = "map_generated"
	EventMapComponentsInitializing HookEvent = "map_components_initializing"
	EventMapLoaded                 HookEvent = "map_loaded"
	EventMapDiscarded              HookEvent = "map_discarded"
)

// frameEvents are suppressed while a load pass is running.
var frameEvents = map[HookEvent]bool{
	EventUpdate:      true,
	EventTick:        true,
	EventFixedUpdate: true,
	EventOnGUI:       true,
}

// Scene identifies a host scene passed to SceneLoaded.
type Scene struct {
	Name  string `json:"name" yaml:"name"`
	Index int    `json:"index" yaml:"index"`
}

// Map identifies a host map passed to the map hooks.
type Map struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// LoadOrderViolation is one problem reported by a LoadOrderChecker.
type LoadOrderViolation struct {
	Unit    string `json:"unit"`
	Related string `json:"related"`
	Message string `json:"message"`
}

// String returns a one-line description of the violation.
func (v LoadOrderViolation) String() string {
	if v.Related == "" {
		return fmt.Sprintf("%s: %s", v.Unit, v.Message)
	}
	return fmt.Sprintf("%s -> %s: %s", v.Unit, v.Related, v.Message)
}

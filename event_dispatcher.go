// event_dispatcher.go: Fault-isolated fan-out of recurring host events
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"errors"
	"time"

	"github.com/agilira/go-timecache"
)

// EventMapFinalizing labels the report of MapFinalizing, which only queues
// the MapLoaded pass.
const EventMapFinalizing HookEvent = "map_finalizing"

// EventDispatcher delivers host events to the extensions of its Controller.
//
// Per-frame, tick and GUI events go to the initialized instances and are
// suppressed while a load pass runs. Scene, world and map events go to every
// live instance. Inactive instances are skipped everywhere and counted in
// DispatchReport.Skipped. A failing hook never stops the pass.
type EventDispatcher struct {
	c *Controller
}

type hookCall func(Extension) error

// Update delivers the per-frame update and runs the frame scheduler.
func (e *EventDispatcher) Update() DispatchReport {
	return e.dispatch(EventUpdate, e.c.Initialized(),
		func(x Extension) error { return x.Update() },
		nil,
		func() error { e.frames(func(s FrameScheduler) { s.OnUpdate() }); return nil })
}

// Tick delivers simulation tick currentTick, then advances the two tick
// schedulers to it.
func (e *EventDispatcher) Tick(currentTick int) DispatchReport {
	return e.dispatch(EventTick, e.c.Initialized(),
		func(x Extension) error { return x.Tick(currentTick) },
		nil,
		func() error {
			return errors.Join(
				advance(e.c.tickDelays, currentTick),
				advance(e.c.distributedTicks, currentTick))
		})
}

// FixedUpdate delivers the fixed-interval update.
func (e *EventDispatcher) FixedUpdate() DispatchReport {
	return e.dispatch(EventFixedUpdate, e.c.Initialized(),
		func(x Extension) error { return x.FixedUpdate() }, nil, nil)
}

// OnGUI delivers the GUI pass and runs the frame scheduler's GUI callbacks.
func (e *EventDispatcher) OnGUI() DispatchReport {
	return e.dispatch(EventOnGUI, e.c.Initialized(),
		func(x Extension) error { return x.OnGUI() },
		nil,
		func() error { e.frames(func(s FrameScheduler) { s.OnGUI() }); return nil })
}

// SettingsChanged delivers a settings change.
func (e *EventDispatcher) SettingsChanged() DispatchReport {
	return e.dispatch(EventSettingsChanged, e.c.Initialized(),
		func(x Extension) error { return x.SettingsChanged() }, nil, nil)
}

// DefsLoaded delivers the definitions-loaded event, then notifies the
// world-object manager.
func (e *EventDispatcher) DefsLoaded() DispatchReport {
	return e.dispatch(EventDefsLoaded, e.c.Initialized(),
		func(x Extension) error { return x.DefsLoaded() },
		nil,
		func() error { return wrapCollaborator("world_object_manager", e.c.options.WorldObjects.OnDefsLoaded) })
}

// SceneLoaded delivers a scene change.
func (e *EventDispatcher) SceneLoaded(scene Scene) DispatchReport {
	return e.dispatch(EventSceneLoaded, e.c.registry.Descriptors(),
		func(x Extension) error { return x.SceneLoaded(scene) }, nil, nil)
}

// WorldLoaded restarts the three schedulers at the host's current tick,
// delivers the event and notifies the world-object manager.
func (e *EventDispatcher) WorldLoaded() DispatchReport {
	return e.dispatch(EventWorldLoaded, e.c.registry.Descriptors(),
		func(x Extension) error { return x.WorldLoaded() },
		func() error {
			tick := e.c.host.CurrentTick()
			for _, s := range []TickScheduler{e.c.tickDelays, e.c.distributedTicks} {
				if s != nil {
					s.Initialize(tick)
				}
			}
			e.frames(func(s FrameScheduler) { s.Initialize(tick) })
			return nil
		},
		func() error { return wrapCollaborator("world_object_manager", e.c.options.WorldObjects.OnWorldLoaded) })
}

// MapGenerated delivers a newly generated map.
func (e *EventDispatcher) MapGenerated(m Map) DispatchReport {
	return e.dispatch(EventMapGenerated, e.c.registry.Descriptors(),
		func(x Extension) error { return x.MapGenerated(m) }, nil, nil)
}

// MapComponentsInitializing delivers the map-components-constructed event.
func (e *EventDispatcher) MapComponentsInitializing(m Map) DispatchReport {
	return e.dispatch(EventMapComponentsInitializing, e.c.registry.Descriptors(),
		func(x Extension) error { return x.MapComponentsInitializing(m) }, nil, nil)
}

// MapFinalizing queues MapLoaded for m on the host's map-rendered queue.
// The returned report carries no invocations.
func (e *EventDispatcher) MapFinalizing(m Map) DispatchReport {
	e.c.host.AfterMapRendered(func() { e.MapLoaded(m) })
	return DispatchReport{Event: EventMapFinalizing, StartedAt: timecache.CachedTime()}
}

// MapLoaded delivers the map-fully-loaded event and runs the frame
// scheduler's map callbacks. MapFinalizing queues it; hosts without a
// render signal may call it directly.
func (e *EventDispatcher) MapLoaded(m Map) DispatchReport {
	return e.dispatch(EventMapLoaded, e.c.registry.Descriptors(),
		func(x Extension) error { return x.MapLoaded(m) },
		nil,
		func() error { e.frames(func(s FrameScheduler) { s.OnMapLoaded(m) }); return nil })
}

// MapDiscarded delivers a discarded map.
func (e *EventDispatcher) MapDiscarded(m Map) DispatchReport {
	return e.dispatch(EventMapDiscarded, e.c.registry.Descriptors(),
		func(x Extension) error { return x.MapDiscarded(m) }, nil, nil)
}

// dispatch runs before, then hook on every active descriptor, then after.
func (e *EventDispatcher) dispatch(event HookEvent, set []*PluginDescriptor, hook hookCall, before, after func() error) DispatchReport {
	report := DispatchReport{Event: event, StartedAt: timecache.CachedTime()}
	labels := map[string]string{"event": string(event)}

	if frameEvents[event] && e.c.reloading {
		report.Suppressed = true
		e.c.metrics.IncrementCounter(MetricSuppressed, labels, 1)
		return report
	}

	start := time.Now()
	e.runCollaborator(&report, before)

	for _, d := range set {
		if !d.IsActive() {
			report.Skipped++
			continue
		}
		instance := d.Instance()
		report.Invoked++
		err := safeInvoke(d.Identifier(), event, func() error { return hook(instance) })
		if err == nil {
			continue
		}
		report.Failures = append(report.Failures, HookFailure{
			Identifier: d.Identifier(),
			Event:      event,
			Err:        err,
		})
		e.c.metrics.IncrementCounter(MetricHookFailures,
			map[string]string{"event": string(event), "identifier": d.Identifier()}, 1)
		e.c.logger.Error("Extension hook failed",
			"identifier", d.Identifier(),
			"event", string(event),
			"error", err)
	}

	e.runCollaborator(&report, after)

	report.Duration = time.Since(start)
	if report.Invoked > 0 {
		e.c.metrics.IncrementCounter(MetricHookInvocations, labels, int64(report.Invoked))
	}
	e.c.metrics.RecordHistogram(MetricDispatchDuration, labels, report.Duration.Seconds())
	return report
}

func (e *EventDispatcher) runCollaborator(report *DispatchReport, fn func() error) {
	if fn == nil {
		return
	}
	if err := safeCall(fn); err != nil {
		report.CollaboratorErrors = append(report.CollaboratorErrors, err)
		e.c.logger.Error("Collaborator failed during dispatch",
			"event", string(report.Event),
			"error", err)
	}
}

func (e *EventDispatcher) frames(fn func(FrameScheduler)) {
	if e.c.doLater != nil {
		fn(e.c.doLater)
	}
}

// advance ticks one scheduler; a panic is returned so the other scheduler
// still advances.
func advance(s TickScheduler, tick int) error {
	if s == nil {
		return nil
	}
	return safeCall(func() error { s.Tick(tick); return nil })
}

func wrapCollaborator(name string, fn func() error) error {
	if err := fn(); err != nil {
		return NewCollaboratorError(name, err)
	}
	return nil
}

// tick_scheduler.go: Tick-delayed and frame-deferred callback scheduling
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"github.com/Workiva/go-datastructures/queue"
)

// delayedCallback is one scheduled callback, ordered by due tick then by
// scheduling sequence.
type delayedCallback struct {
	dueTick int
	seq     uint64
	owner   string
	fn      func()
}

// Compare implements queue.Item.
func (c *delayedCallback) Compare(other queue.Item) int {
	o := other.(*delayedCallback)
	switch {
	case c.dueTick != o.dueTick:
		if c.dueTick > o.dueTick {
			return 1
		}
		return -1
	case c.seq > o.seq:
		return 1
	case c.seq < o.seq:
		return -1
	default:
		return 0
	}
}

// DelayScheduler runs callbacks a number of ticks in the future and, as a
// FrameScheduler, on the next frame, GUI pass or map load.
//
// Callbacks run on the host thread inside the Tick, OnUpdate, OnGUI and
// OnMapLoaded calls. A panicking callback is logged with its owner and the
// remaining callbacks still run.
type DelayScheduler struct {
	name    string
	logger  Logger
	pending *queue.PriorityQueue
	seq     uint64

	currentTick int
	initialized bool

	nextUpdate []func()
	nextGUI    []func()
	nextMap    []func(Map)
}

// NewDelayScheduler creates a scheduler. name appears in log lines.
func NewDelayScheduler(name string, logger Logger) *DelayScheduler {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &DelayScheduler{
		name:    name,
		logger:  logger,
		pending: queue.NewPriorityQueue(16, true),
	}
}

// Initialize implements TickScheduler. It drops every callback scheduled
// for the previous world and restarts the clock at currentTick.
func (s *DelayScheduler) Initialize(currentTick int) {
	if dropped := s.pending.Len(); dropped > 0 {
		s.logger.Debug("Dropping scheduled callbacks", "scheduler", s.name, "count", dropped)
	}
	s.pending.Dispose()
	s.pending = queue.NewPriorityQueue(16, true)
	s.currentTick = currentTick
	s.initialized = true
}

// Schedule runs fn once delayTicks ticks have passed. Delays below one tick
// are rounded up to one.
func (s *DelayScheduler) Schedule(delayTicks int, owner string, fn func()) {
	if delayTicks < 1 {
		delayTicks = 1
	}
	s.seq++
	if err := s.pending.Put(&delayedCallback{
		dueTick: s.currentTick + delayTicks,
		seq:     s.seq,
		owner:   owner,
		fn:      fn,
	}); err != nil {
		s.logger.Error("Failed to schedule callback", "scheduler", s.name, "owner", owner, "error", err)
	}
}

// Tick implements TickScheduler. It runs every callback due at or before
// currentTick, in due order.
func (s *DelayScheduler) Tick(currentTick int) {
	s.currentTick = currentTick
	for {
		head := s.pending.Peek()
		if head == nil || head.(*delayedCallback).dueTick > currentTick {
			return
		}
		items, err := s.pending.Get(1)
		if err != nil || len(items) == 0 {
			return
		}
		cb := items[0].(*delayedCallback)
		s.run(cb.owner, cb.fn)
	}
}

// CurrentTick returns the last tick seen by Initialize or Tick.
func (s *DelayScheduler) CurrentTick() int {
	return s.currentTick
}

// Initialized reports whether Initialize has been called.
func (s *DelayScheduler) Initialized() bool {
	return s.initialized
}

// Len returns the number of tick-delayed callbacks still pending.
func (s *DelayScheduler) Len() int {
	return s.pending.Len()
}

// DoNextUpdate runs fn on the next OnUpdate.
func (s *DelayScheduler) DoNextUpdate(fn func()) {
	s.nextUpdate = append(s.nextUpdate, fn)
}

// DoNextOnGUI runs fn on the next OnGUI.
func (s *DelayScheduler) DoNextOnGUI(fn func()) {
	s.nextGUI = append(s.nextGUI, fn)
}

// DoNextMapLoaded runs fn on the next OnMapLoaded.
func (s *DelayScheduler) DoNextMapLoaded(fn func(Map)) {
	s.nextMap = append(s.nextMap, fn)
}

// OnUpdate implements FrameScheduler.
func (s *DelayScheduler) OnUpdate() {
	batch := s.nextUpdate
	s.nextUpdate = nil
	for _, fn := range batch {
		s.run("update", fn)
	}
}

// OnGUI implements FrameScheduler.
func (s *DelayScheduler) OnGUI() {
	batch := s.nextGUI
	s.nextGUI = nil
	for _, fn := range batch {
		s.run("gui", fn)
	}
}

// OnMapLoaded implements FrameScheduler.
func (s *DelayScheduler) OnMapLoaded(m Map) {
	batch := s.nextMap
	s.nextMap = nil
	for _, fn := range batch {
		fn := fn
		s.run("map_loaded", func() { fn(m) })
	}
}

func (s *DelayScheduler) run(owner string, fn func()) {
	if err := safeCall(func() error { fn(); return nil }); err != nil {
		s.logger.Error("Scheduled callback failed",
			"scheduler", s.name,
			"owner", owner,
			"error", err)
	}
}

var (
	_ TickScheduler  = (*DelayScheduler)(nil)
	_ FrameScheduler = (*DelayScheduler)(nil)
)

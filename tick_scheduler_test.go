// tick_scheduler_test.go: Tests for DelayScheduler and ContinuationQueue
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDelayScheduler_RunsInDueOrder(t *testing.T) {
	s := NewDelayScheduler("test", NewTestLogger())
	s.Initialize(10)

	var order []string
	s.Schedule(5, "c", func() { order = append(order, "c") })
	s.Schedule(2, "a", func() { order = append(order, "a") })
	s.Schedule(5, "d", func() { order = append(order, "d") })
	s.Schedule(3, "b", func() { order = append(order, "b") })

	s.Tick(11)
	assert.Empty(t, order)
	s.Tick(13)
	assert.Equal(t, []string{"a", "b"}, order)
	s.Tick(20)
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
	assert.Zero(t, s.Len())
	assert.Equal(t, 20, s.CurrentTick())
}

func TestDelayScheduler_DelayBelowOneRunsNextTick(t *testing.T) {
	s := NewDelayScheduler("test", nil)
	s.Initialize(0)

	ran := 0
	s.Schedule(0, "zero", func() { ran++ })
	s.Schedule(-4, "negative", func() { ran++ })

	s.Tick(0)
	assert.Zero(t, ran)
	s.Tick(1)
	assert.Equal(t, 2, ran)
}

func TestDelayScheduler_InitializeDropsPending(t *testing.T) {
	logger := NewTestLogger()
	s := NewDelayScheduler("world", logger)
	assert.False(t, s.Initialized())

	s.Schedule(1, "stale", func() { t.Error("dropped callback ran") })
	s.Initialize(100)

	assert.True(t, s.Initialized())
	assert.Zero(t, s.Len())
	assert.True(t, logger.HasMessage("DEBUG", "Dropping scheduled callbacks"))
	s.Tick(200)
}

func TestDelayScheduler_CallbacksMayReschedule(t *testing.T) {
	s := NewDelayScheduler("test", nil)
	s.Initialize(0)

	var fired []int
	var again func()
	again = func() {
		fired = append(fired, s.CurrentTick())
		if len(fired) < 3 {
			s.Schedule(2, "again", again)
		}
	}
	s.Schedule(2, "again", again)

	for tick := 1; tick <= 10; tick++ {
		s.Tick(tick)
	}
	assert.Equal(t, []int{2, 4, 6}, fired)
}

func TestDelayScheduler_PropertyNothingRunsEarly(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewDelayScheduler("prop", nil)
		start := rapid.IntRange(0, 1000).Draw(rt, "start")
		s.Initialize(start)

		delays := rapid.SliceOfN(rapid.IntRange(1, 50), 1, 30).Draw(rt, "delays")
		ranAt := make([]int, len(delays))
		for i, d := range delays {
			i := i
			s.Schedule(d, "cb", func() { ranAt[i] = s.CurrentTick() })
		}

		for tick := start + 1; tick <= start+50; tick++ {
			s.Tick(tick)
		}
		for i, d := range delays {
			if ranAt[i] != start+d {
				rt.Fatalf("callback %d with delay %d ran at %d, want %d", i, d, ranAt[i], start+d)
			}
		}
	})
}

func TestDelayScheduler_FrameQueuesRunOnce(t *testing.T) {
	logger := NewTestLogger()
	s := NewDelayScheduler("frames", logger)

	var seen []Map
	s.DoNextMapLoaded(func(m Map) { seen = append(seen, m) })
	s.DoNextMapLoaded(func(Map) { panic("map callback") })
	s.DoNextMapLoaded(func(m Map) { seen = append(seen, m) })

	s.OnMapLoaded(Map{ID: 1})
	s.OnMapLoaded(Map{ID: 2})

	assert.Equal(t, []Map{{ID: 1}, {ID: 1}}, seen)
	assert.Equal(t, 1, logger.CountMessages("ERROR", "Scheduled callback failed"))
}

func TestContinuationQueue_DrainsNestedContinuations(t *testing.T) {
	q := NewContinuationQueue(NewTestLogger())
	var order []string
	q.AfterLongEvent(func() {
		order = append(order, "first")
		q.AfterLongEvent(func() { order = append(order, "nested") })
	})
	q.AfterLongEvent(func() { order = append(order, "second") })

	assert.Equal(t, 3, q.FinishLongEvent())
	assert.Equal(t, []string{"first", "second", "nested"}, order)
	assert.Zero(t, q.FinishLongEvent())
}

func TestContinuationQueue_QueuesAreIndependent(t *testing.T) {
	logger := NewTestLogger()
	q := NewContinuationQueue(logger)
	q.AfterLongEvent(func() {})
	q.AfterMapRendered(func() { panic("render continuation") })
	q.Post(func() {})
	q.Post(func() {})

	long, rendered, posted := q.Pending()
	assert.Equal(t, [3]int{1, 1, 2}, [3]int{long, rendered, posted})

	assert.Equal(t, 2, q.RunPending())
	assert.Equal(t, 1, q.FinishMapRender())
	assert.True(t, logger.HasMessage("ERROR", "Continuation panicked"))

	long, rendered, posted = q.Pending()
	assert.Equal(t, [3]int{1, 0, 0}, [3]int{long, rendered, posted})
}

func TestContinuationQueue_PostFromOtherGoroutines(t *testing.T) {
	q := NewContinuationQueue(nil)
	q.SetTick(7)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Post(func() {
				mu.Lock()
				ran++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, q.RunPending())
	assert.Equal(t, 20, ran)
	assert.Equal(t, 7, q.CurrentTick())
}

// continuation.go: Default Host implementation with deferred continuation queues
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import "sync"

// ContinuationQueue is a Host whose continuations run when the embedding
// loop drains them. It is the only type in the package that is safe to call
// from other goroutines: file watchers Post work here and the host thread
// runs it.
type ContinuationQueue struct {
	mu          sync.Mutex
	longEvent   []func()
	mapRendered []func()
	posted      []func()
	tick        int

	logger Logger
}

// NewContinuationQueue creates an empty queue.
func NewContinuationQueue(logger Logger) *ContinuationQueue {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &ContinuationQueue{logger: logger}
}

// AfterLongEvent implements Host.
func (q *ContinuationQueue) AfterLongEvent(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.longEvent = append(q.longEvent, fn)
}

// AfterMapRendered implements Host.
func (q *ContinuationQueue) AfterMapRendered(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.mapRendered = append(q.mapRendered, fn)
}

// Post queues fn to run on the next RunPending.
func (q *ContinuationQueue) Post(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.posted = append(q.posted, fn)
}

// CurrentTick implements Host.
func (q *ContinuationQueue) CurrentTick() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tick
}

// SetTick records the host's simulation tick.
func (q *ContinuationQueue) SetTick(tick int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tick = tick
}

// FinishLongEvent signals the end of the current long operation and runs
// the continuations queued with AfterLongEvent. It returns how many ran.
func (q *ContinuationQueue) FinishLongEvent() int {
	return q.drain(&q.longEvent)
}

// FinishMapRender signals that map rendering completed and runs the
// continuations queued with AfterMapRendered.
func (q *ContinuationQueue) FinishMapRender() int {
	return q.drain(&q.mapRendered)
}

// RunPending runs the continuations queued with Post.
func (q *ContinuationQueue) RunPending() int {
	return q.drain(&q.posted)
}

// Pending returns the number of queued continuations per queue.
func (q *ContinuationQueue) Pending() (longEvent, mapRendered, posted int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.longEvent), len(q.mapRendered), len(q.posted)
}

// drain runs the queue until it is empty; continuations queued while
// draining run in the same call.
func (q *ContinuationQueue) drain(queue *[]func()) int {
	ran := 0
	for {
		q.mu.Lock()
		batch := *queue
		*queue = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			if err := safeCall(func() error { fn(); return nil }); err != nil {
				q.logger.Error("Continuation panicked", "error", err)
			}
			ran++
		}
	}
}

var _ Host = (*ContinuationQueue)(nil)

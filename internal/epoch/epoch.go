// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package epoch implements epoch-based deferred reclamation.
//
// Lock-free readers bracket their accesses with Pin and Unpin. Writers unlink
// an object so that no new reader can find it and then Retire it. A retired
// object is handed to the reclaim function only once every reader that could
// have observed it before it was unlinked has unpinned.
//
// The collector keeps a global epoch and a count of readers pinned in each of
// the last three epochs. The epoch advances from g to g+1 only when no reader
// is pinned at g-1, so pinned readers are always at g or g-1. A reader pinned
// at p can only have observed objects retired at an epoch >= p; such an object
// retired at epoch r is therefore safe once the global epoch reaches r+2.
package epoch

import (
	"runtime"
	"sync"
	"sync/atomic"
)

const numBuckets = 3

// Collector tracks pinned readers and objects awaiting reclamation. The zero
// value is not usable; call Init or New.
type Collector[T any] struct {
	epoch  atomic.Uint64
	pinned [numBuckets]struct {
		n atomic.Int64
		// Pad to separate counters into cache lines.
		_ [7]uint64
	}
	reclaim   func(*T)
	reclaimed atomic.Uint64
	// inflight counts objects removed from the pending list whose reclaim
	// func has not yet returned.
	inflight atomic.Int64

	mu struct {
		sync.Mutex
		pending []retired[T]
	}
}

type retired[T any] struct {
	epoch uint64
	v     *T
}

// New returns a collector which passes retired objects to reclaim once they
// are safe to free.
func New[T any](reclaim func(*T)) *Collector[T] {
	c := &Collector[T]{}
	c.Init(reclaim)
	return c
}

// Init can be used instead of New when the collector is embedded in another
// struct.
func (c *Collector[T]) Init(reclaim func(*T)) {
	c.reclaim = reclaim
	// Start at an epoch where e-1 does not underflow.
	c.epoch.Store(numBuckets)
}

// Guard is returned by Pin and must be released with Unpin.
type Guard struct {
	n *atomic.Int64
}

// Pin marks the calling goroutine as a reader. Any object it observes after
// Pin returns will not be reclaimed until the returned Guard is unpinned.
func (c *Collector[T]) Pin() Guard {
	for {
		e := c.epoch.Load()
		n := &c.pinned[e%numBuckets].n
		n.Add(1)
		if c.epoch.Load() == e {
			return Guard{n: n}
		}
		// The epoch moved while we were registering; we may have counted
		// ourselves in a bucket the collector no longer examines.
		n.Add(-1)
	}
}

// Unpin ends the read-side critical section.
func (g Guard) Unpin() {
	g.n.Add(-1)
}

// Retire schedules v for reclamation. The caller must have already made v
// unreachable for new readers. Objects that are immediately safe are
// reclaimed before Retire returns, on the calling goroutine.
func (c *Collector[T]) Retire(v *T) {
	c.mu.Lock()
	c.mu.pending = append(c.mu.pending, retired[T]{epoch: c.epoch.Load(), v: v})
	ready := c.collectLocked()
	c.mu.Unlock()
	c.reclaimAll(ready)
}

// Collect reclaims whatever has become safe without waiting for readers.
func (c *Collector[T]) Collect() {
	c.mu.Lock()
	ready := c.collectLocked()
	c.mu.Unlock()
	c.reclaimAll(ready)
}

// Barrier blocks until every object retired before the call has been
// reclaimed. It waits for pinned readers to unpin, so it must not be called by
// a goroutine that is itself pinned.
func (c *Collector[T]) Barrier() {
	for {
		c.mu.Lock()
		ready := c.collectLocked()
		remaining := len(c.mu.pending)
		c.mu.Unlock()
		c.reclaimAll(ready)
		remaining += int(c.inflight.Load())
		if remaining == 0 {
			return
		}
		runtime.Gosched()
	}
}

// Pending returns the number of retired objects not yet reclaimed.
func (c *Collector[T]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mu.pending) + int(c.inflight.Load())
}

// Reclaimed returns the total number of objects passed to the reclaim func.
func (c *Collector[T]) Reclaimed() uint64 {
	return c.reclaimed.Load()
}

// Epoch returns the current global epoch.
func (c *Collector[T]) Epoch() uint64 {
	return c.epoch.Load()
}

// tryAdvanceLocked moves the global epoch forward if no reader is pinned in
// the previous epoch. c.mu must be held.
func (c *Collector[T]) tryAdvanceLocked() bool {
	cur := c.epoch.Load()
	if c.pinned[(cur-1)%numBuckets].n.Load() != 0 {
		return false
	}
	c.epoch.Store(cur + 1)
	return true
}

// collectLocked advances the epoch as far as the pinned readers allow and
// removes the objects that became safe from the pending list. c.mu must be
// held.
func (c *Collector[T]) collectLocked() []*T {
	if len(c.mu.pending) == 0 {
		return nil
	}
	// Two advances are enough to make everything retired in the current epoch
	// reclaimable when there are no readers.
	for range 2 {
		if !c.tryAdvanceLocked() {
			break
		}
	}
	cur := c.epoch.Load()
	var ready []*T
	j := 0
	for _, r := range c.mu.pending {
		if r.epoch+2 <= cur {
			ready = append(ready, r.v)
			continue
		}
		c.mu.pending[j] = r
		j++
	}
	clear(c.mu.pending[j:])
	c.mu.pending = c.mu.pending[:j]
	c.inflight.Add(int64(len(ready)))
	return ready
}

func (c *Collector[T]) reclaimAll(ready []*T) {
	for _, v := range ready {
		c.reclaim(v)
		c.reclaimed.Add(1)
		c.inflight.Add(-1)
	}
}

// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package epoch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cephgo/layouttable/internal/buildtags"
	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/stretchr/testify/require"
)

type object struct {
	id        int
	reclaimed atomic.Bool
}

func TestRetireWithoutReaders(t *testing.T) {
	var freed []int
	c := New(func(o *object) { freed = append(freed, o.id) })

	for i := range 5 {
		c.Retire(&object{id: i})
		require.Equal(t, []int{0, 1, 2, 3, 4}[:i+1], freed)
	}
	require.Zero(t, c.Pending())
	require.EqualValues(t, 5, c.Reclaimed())
}

func TestPinnedReaderDelaysReclaim(t *testing.T) {
	var freed []int
	c := New(func(o *object) { freed = append(freed, o.id) })

	g := c.Pin()
	c.Retire(&object{id: 1})
	c.Retire(&object{id: 2})
	require.Empty(t, freed)
	require.Equal(t, 2, c.Pending())

	g.Unpin()
	c.Retire(&object{id: 3})
	require.Equal(t, []int{1, 2, 3}, freed)
	require.Zero(t, c.Pending())
}

func TestLateReaderDoesNotBlock(t *testing.T) {
	var freed []int
	c := New(func(o *object) { freed = append(freed, o.id) })

	c.Retire(&object{id: 1})
	require.Equal(t, []int{1}, freed)

	// A reader pinned after a retirement does not delay it, but it does hold
	// back objects retired while it is pinned.
	g := c.Pin()
	c.Retire(&object{id: 2})
	require.Equal(t, []int{1}, freed)
	g.Unpin()
	c.Barrier()
	require.Equal(t, []int{1, 2}, freed)
}

func TestBarrierWaitsForReaders(t *testing.T) {
	defer leaktest.AfterTest(t)()

	var freed atomic.Int32
	c := New(func(o *object) { freed.Add(1) })
	g := c.Pin()
	c.Retire(&object{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Barrier()
	}()

	select {
	case <-done:
		t.Fatal("barrier returned while a reader was pinned")
	case <-time.After(10 * time.Millisecond):
	}
	require.Zero(t, freed.Load())

	g.Unpin()
	<-done
	require.EqualValues(t, 1, freed.Load())
}

// TestConcurrentReaders swaps a shared pointer while readers dereference it
// under a pin. No reader may ever observe an object that has been reclaimed.
func TestConcurrentReaders(t *testing.T) {
	defer leaktest.AfterTest(t)()

	c := New(func(o *object) { o.reclaimed.Store(true) })
	var shared atomic.Pointer[object]
	shared.Store(&object{})

	iters := 20000
	if buildtags.SlowBuild {
		iters = 2000
	}

	var stop atomic.Bool
	var violations atomic.Int32
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				g := c.Pin()
				o := shared.Load()
				for range 10 {
					if o.reclaimed.Load() {
						violations.Add(1)
					}
				}
				g.Unpin()
			}
		}()
	}

	for i := range iters {
		old := shared.Swap(&object{id: i + 1})
		c.Retire(old)
	}
	stop.Store(true)
	wg.Wait()
	c.Retire(shared.Swap(nil))
	c.Barrier()

	require.Zero(t, violations.Load())
	require.Zero(t, c.Pending())
	require.EqualValues(t, iters+1, c.Reclaimed())
}

func TestCollect(t *testing.T) {
	var freed []int
	c := New(func(o *object) { freed = append(freed, o.id) })

	g := c.Pin()
	c.Retire(&object{id: 1})
	c.Collect()
	require.Empty(t, freed)

	g.Unpin()
	c.Collect()
	require.Equal(t, []int{1}, freed)
	require.Zero(t, c.Pending())
}

// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cephgo/layouttable/internal/buildtags"
	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/stretchr/testify/require"
)

func TestSlot(t *testing.T) {
	tbl := newTestTable(t, nil)

	var s Slot
	require.Nil(t, tbl.TryGet(&s))
	require.Nil(t, s.Load())

	a, err := tbl.FindOrCreate(testDesc, []byte("a"))
	require.NoError(t, err)
	s.Store(a)
	require.Same(t, a, s.Load())
	require.EqualValues(t, 1, a.Refs())

	r := tbl.TryGet(&s)
	require.Same(t, a, r)
	require.EqualValues(t, 2, a.Refs())
	tbl.Put(r)

	b, err := tbl.FindOrCreate(testDesc, []byte("b"))
	require.NoError(t, err)
	s.Store(b)
	// The slot's reference to a was its last.
	require.EqualValues(t, 1, tbl.Metrics().Retired)
	require.Equal(t, 1, tbl.Len())

	s.Clear()
	require.Nil(t, s.Load())
	require.Zero(t, tbl.Len())
	require.NoError(t, tbl.Close())
}

// TestTryGetRacesLastPut repeatedly repoints a slot while readers acquire
// references through it. Every reference a reader obtains must be live and
// carry the content it was created with.
func TestTryGetRacesLastPut(t *testing.T) {
	defer leaktest.AfterTest(t)()

	tbl := newTestTable(t, nil)
	iters := 20000
	if buildtags.SlowBuild {
		iters = 2000
	}

	var s Slot
	var stop atomic.Bool
	var acquired atomic.Int64
	errCh := make(chan error, 4)
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				// Leave the writer room to run on small machines.
				runtime.Gosched()
				l := tbl.TryGet(&s)
				if l == nil {
					continue
				}
				if refs := l.Refs(); refs <= 0 {
					errCh <- fmt.Errorf("acquired %s with refs=%d", l, refs)
					return
				}
				d := l.Descriptor()
				if want := fmt.Sprintf("ns-%d", d.StripeCount); string(l.Namespace()) != want {
					errCh <- fmt.Errorf("acquired %s, expected namespace %q", l, want)
					return
				}
				acquired.Add(1)
				tbl.Put(l)
			}
		}()
	}

	for i := range iters {
		d := testDesc
		// Alternate between a handful of layouts so the slot's reference is
		// usually the last one.
		d.StripeCount = uint32(i % 3)
		l, err := tbl.FindOrCreate(d, []byte(fmt.Sprintf("ns-%d", d.StripeCount)))
		require.NoError(t, err)
		s.Store(l)
	}
	stop.Store(true)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}

	s.Clear()
	tbl.WaitForReclaim()
	m := tbl.Metrics()
	require.Zero(t, m.Count)
	require.Zero(t, m.Bytes)
	require.Zero(t, m.PendingReclaim)
	require.Equal(t, m.Retired, m.Reclaimed)
	t.Logf("acquired %d references, %s", acquired.Load(), m)
	require.NoError(t, tbl.Close())
}

// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/cephgo/layouttable/internal/buildtags"
	"github.com/cephgo/layouttable/internal/manual"
	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/stretchr/testify/require"
)

func keyFor(i int) (Descriptor, []byte) {
	d := testDesc
	d.PoolID = int64(i % 4)
	return d, []byte(fmt.Sprintf("ns%d", i))
}

// TestConcurrentIdentity has many goroutines find the same keys at once. While
// all of them hold their references, every goroutine must have received the
// same layout for a key.
func TestConcurrentIdentity(t *testing.T) {
	defer leaktest.AfterTest(t)()

	const workers = 8
	const keys = 32
	rounds := 50
	if buildtags.SlowBuild {
		rounds = 5
	}

	tbl := newTestTable(t, nil)
	for round := range rounds {
		var got [workers][keys]*Layout
		var start, wg sync.WaitGroup
		start.Add(1)
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				start.Wait()
				for i := range keys {
					// Vary the order so creators collide from both directions.
					k := i
					if w%2 == 1 {
						k = keys - 1 - i
					}
					d, ns := keyFor(k)
					l, err := tbl.FindOrCreate(d, ns)
					if err != nil {
						panic(err)
					}
					got[w][k] = l
				}
			}()
		}
		start.Done()
		wg.Wait()

		for k := range keys {
			for w := 1; w < workers; w++ {
				require.Same(t, got[0][k], got[w][k], "round %d key %d worker %d", round, k, w)
			}
			require.EqualValues(t, workers, got[0][k].Refs())
		}
		require.Equal(t, keys, tbl.Len())

		for w := range workers {
			for k := range keys {
				tbl.Put(got[w][k])
			}
		}
		require.Zero(t, tbl.Len())
	}
	tbl.WaitForReclaim()
	m := tbl.Metrics()
	require.Zero(t, m.Bytes)
	require.EqualValues(t, rounds*keys, m.Retired)
	require.NoError(t, tbl.Close())
}

// TestConcurrentChurn acquires and releases random keys from many goroutines,
// validating the content of every reference while it is held.
func TestConcurrentChurn(t *testing.T) {
	defer leaktest.AfterTest(t)()

	ops := 20000
	if buildtags.SlowBuild {
		ops = 2000
	}
	before := manual.GetMetrics()[manual.LayoutRecord].InUseBytes
	tbl := newTestTable(t, nil)

	var wg sync.WaitGroup
	errCh := make(chan error, 8)
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(w), 1))
			var held []*Layout
			for range ops {
				if len(held) > 0 && rng.IntN(2) == 0 {
					i := rng.IntN(len(held))
					tbl.Put(held[i])
					held[i] = held[len(held)-1]
					held = held[:len(held)-1]
					continue
				}
				k := rng.IntN(16)
				d, ns := keyFor(k)
				l, err := tbl.FindOrCreate(d, ns)
				if err != nil {
					errCh <- err
					return
				}
				if l.Descriptor() != d || string(l.Namespace()) != string(ns) {
					errCh <- fmt.Errorf("key %d: got %s", k, l)
					return
				}
				held = append(held, l)
			}
			for _, l := range held {
				tbl.Put(l)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}

	tbl.WaitForReclaim()
	m := tbl.Metrics()
	require.Zero(t, m.Count)
	require.Zero(t, m.Bytes)
	require.Equal(t, m.Misses-m.RacesLost, m.Retired)
	require.Equal(t, before, manual.GetMetrics()[manual.LayoutRecord].InUseBytes)
	t.Logf("%s", m)
	require.NoError(t, tbl.Close())
}

func BenchmarkFindOrCreate(b *testing.B) {
	for _, keys := range []int{1, 64, 4096} {
		b.Run(fmt.Sprintf("keys=%d", keys), func(b *testing.B) {
			tbl, err := New(&Options{Logger: NoopLogger{}})
			require.NoError(b, err)
			// Pin one reference per key so lookups hit.
			for k := range keys {
				d, ns := keyFor(k)
				if _, err := tbl.FindOrCreate(d, ns); err != nil {
					b.Fatal(err)
				}
			}
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				rng := rand.New(rand.NewPCG(rand.Uint64(), 1))
				for pb.Next() {
					d, ns := keyFor(rng.IntN(keys))
					l, err := tbl.FindOrCreate(d, ns)
					if err != nil {
						b.Fatal(err)
					}
					tbl.Put(l)
				}
			})
			b.StopTimer()
			_ = tbl.Close()
		})
	}
}

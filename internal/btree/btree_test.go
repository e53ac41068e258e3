// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package btree

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func probeFor(k int) Probe[int] {
	return func(x int) int { return cmp.Compare(x, k) }
}

func checkIter(t *testing.T, it Iterator[int], start, end int) {
	t.Helper()
	i := start
	for it.First(); it.Valid(); it.Next() {
		if it.Cur() != i {
			t.Fatalf("expected %d, but found %d", i, it.Cur())
		}
		i++
	}
	if i != end {
		t.Fatalf("expected %d, but at %d", end, i)
	}
}

func height[T any](tr *BTree[T]) int {
	h := 0
	for n := tr.root; n != nil; n = n.children[0] {
		h++
		if n.leaf {
			break
		}
	}
	return h
}

func TestBTree(t *testing.T) {
	tr := New(cmp.Compare[int])

	// With degree == 16 (max-items/node == 31) we need 513 items in order for
	// there to be 3 levels in the tree. The count here is comfortably above
	// that.
	const count = 768
	// Add keys in sorted order.
	for i := 0; i < count; i++ {
		require.True(t, tr.Set(i))
		tr.Verify()
		if e := i + 1; e != tr.Len() {
			t.Fatalf("expected length %d, but found %d", e, tr.Len())
		}
		checkIter(t, tr.NewIter(), 0, i+1)
	}
	require.Equal(t, 3, height(tr))
	// Delete keys in sorted order.
	for i := 0; i < count; i++ {
		require.True(t, tr.Delete(i))
		tr.Verify()
		if e := count - (i + 1); e != tr.Len() {
			t.Fatalf("expected length %d, but found %d", e, tr.Len())
		}
		checkIter(t, tr.NewIter(), i+1, count)
	}
	require.False(t, tr.Delete(0))

	// Add keys in reverse sorted order.
	for i := 0; i < count; i++ {
		tr.Set(count - i)
		tr.Verify()
		if e := i + 1; e != tr.Len() {
			t.Fatalf("expected length %d, but found %d", e, tr.Len())
		}
		checkIter(t, tr.NewIter(), count-i, count+1)
	}
	// Delete keys in reverse sorted order.
	for i := 0; i < count; i++ {
		tr.Delete(count - i)
		tr.Verify()
		if e := count - (i + 1); e != tr.Len() {
			t.Fatalf("expected length %d, but found %d", e, tr.Len())
		}
		checkIter(t, tr.NewIter(), 1, count-i)
	}
}

func TestBTreeSetReplaces(t *testing.T) {
	type kv struct{ k, v int }
	tr := New(func(a, b kv) int { return cmp.Compare(a.k, b.k) })
	require.True(t, tr.Set(kv{1, 1}))
	require.False(t, tr.Set(kv{1, 2}))
	require.Equal(t, 1, tr.Len())
	got, ok := tr.Get(func(x kv) int { return cmp.Compare(x.k, 1) })
	require.True(t, ok)
	require.Equal(t, kv{1, 2}, got)
}

// TestBTreeRandom applies a random sequence of inserts and deletes and checks
// the tree against a sorted slice after every step.
func TestBTreeRandom(t *testing.T) {
	seed := rand.Uint64()
	t.Logf("seed: %d", seed)
	rng := rand.New(rand.NewPCG(seed, seed))

	tr := New(cmp.Compare[int])
	var model []int
	for step := range 5000 {
		k := rng.IntN(1000)
		i, exists := slices.BinarySearch(model, k)
		if rng.IntN(3) == 0 {
			require.Equal(t, exists, tr.Delete(k), "step %d: delete %d", step, k)
			if exists {
				model = slices.Delete(model, i, i+1)
			}
		} else {
			require.Equal(t, !exists, tr.Set(k), "step %d: set %d", step, k)
			if !exists {
				model = slices.Insert(model, i, k)
			}
		}
		if step%100 == 0 {
			tr.Verify()
		}
		require.Equal(t, len(model), tr.Len())

		probe := rng.IntN(1000)
		_, want := slices.BinarySearch(model, probe)
		got, ok := tr.Get(probeFor(probe))
		require.Equal(t, want, ok, "step %d: get %d", step, probe)
		if ok {
			require.Equal(t, probe, got)
		}
	}

	var got []int
	it := tr.NewIter()
	for it.First(); it.Valid(); it.Next() {
		got = append(got, it.Cur())
	}
	if len(model) == 0 {
		require.Empty(t, got)
	} else {
		require.Equal(t, model, got)
	}
}

func TestBTreeEmpty(t *testing.T) {
	tr := New(cmp.Compare[int])
	require.Zero(t, height(tr))
	_, ok := tr.Get(probeFor(1))
	require.False(t, ok)
	it := tr.NewIter()
	it.First()
	require.False(t, it.Valid())
	tr.Verify()

	tr.Set(1)
	tr.Reset()
	require.Zero(t, tr.Len())
	tr.Verify()
	it = tr.NewIter()
	it.First()
	require.False(t, it.Valid())
}

// TestLeafNodes checks that leaves are complete nodes whose children stay
// empty through splits and merges.
func TestLeafNodes(t *testing.T) {
	n := newLeafNode[int]()
	require.True(t, n.leaf)
	require.Len(t, n.children, maxItems+1)
	for _, c := range n.children {
		require.Nil(t, c)
	}

	tr := New(cmp.Compare[int])
	for i := range 4 * maxItems {
		tr.Set(i)
	}
	require.Equal(t, 2, height(tr))
	tr.Verify()
	for i := range 4 * maxItems {
		if i%3 != 0 {
			tr.Delete(i)
		}
	}
	tr.Verify()

	var leaves int
	var walk func(n *node[int])
	walk = func(n *node[int]) {
		if n.leaf {
			leaves++
			return
		}
		for i := int16(0); i <= n.count; i++ {
			walk(n.children[i])
		}
	}
	walk(tr.root)
	require.Positive(t, leaves)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	tr := New(cmp.Compare[int])
	for i := range 3 * maxItems {
		tr.Set(i)
	}
	tr.Verify()

	tr.length++
	require.Panics(t, tr.Verify)
	tr.length--

	leaf := tr.root.children[0]
	leaf.children[0] = newLeafNode[int]()
	require.Panics(t, tr.Verify)
	leaf.children[0] = nil

	leaf.items[0], leaf.items[1] = leaf.items[1], leaf.items[0]
	require.Panics(t, tr.Verify)
}

func BenchmarkGet(b *testing.B) {
	for _, count := range []int{16, 128, 1024} {
		b.Run(fmt.Sprintf("count=%d", count), func(b *testing.B) {
			tr := New(cmp.Compare[int])
			for i := 0; i < count; i++ {
				tr.Set(i)
			}
			rng := rand.New(rand.NewPCG(1, 1))

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				k := rng.IntN(count)
				if _, ok := tr.Get(probeFor(k)); !ok {
					b.Fatalf("expected to find %d", k)
				}
			}
		})
	}
}

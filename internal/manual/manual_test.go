// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package manual

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	for _, tc := range []struct {
		size uintptr
		want int
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{24, 5},
		{32, 5},
		{33, 6},
		{4096, 12},
	} {
		require.Equal(t, tc.want, sizeClass(tc.size), "size %d", tc.size)
	}
}

func TestPoolSizeClasses(t *testing.T) {
	for i := range 16 {
		require.NotNil(t, pools[i].New, "class %d", i)
		p := pools[i].New().(unsafe.Pointer)
		// The whole size class must be addressable.
		buf := unsafe.Slice((*byte)(p), 1<<i)
		buf[len(buf)-1] = 1
		pools[i].Put(p)
	}
	for _, n := range []uintptr{1, 24, 33, 300, 4096} {
		b := New(LayoutRecord, n)
		require.Equal(t, int(n), b.Len())
		Free(LayoutRecord, b)
	}
}

func TestNewFree(t *testing.T) {
	before := GetMetrics()[LayoutRecord]

	require.Equal(t, 0, New(LayoutRecord, 0).Len())
	require.Nil(t, New(LayoutRecord, 0).Slice())

	b := New(LayoutRecord, 40)
	require.Equal(t, 40, b.Len())
	buf := b.Slice()
	for i := range buf {
		require.Zero(t, buf[i])
		buf[i] = byte(i)
	}
	m := GetMetrics()[LayoutRecord]
	require.Equal(t, before.InUseBytes+40, m.InUseBytes)
	require.Equal(t, before.TotalBytes+40, m.TotalBytes)

	Free(LayoutRecord, b)
	m = GetMetrics()[LayoutRecord]
	require.Equal(t, before.InUseBytes, m.InUseBytes)
	require.Equal(t, before.TotalBytes+40, m.TotalBytes)

	// A recycled buffer must come back zeroed.
	b = New(LayoutRecord, 40)
	for _, c := range b.Slice() {
		require.Zero(t, c)
	}
	Free(LayoutRecord, b)
}

func TestAbandon(t *testing.T) {
	before := GetMetrics()[LayoutRecord]
	b := New(LayoutRecord, 16)
	buf := b.Slice()
	buf[0] = 7
	Abandon(LayoutRecord, b)
	require.Equal(t, before.InUseBytes, GetMetrics()[LayoutRecord].InUseBytes)
	// The abandoned memory is not mangled or recycled.
	require.Equal(t, byte(7), buf[0])
	Abandon(LayoutRecord, Buf{})
}

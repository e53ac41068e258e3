// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package manual provides explicitly managed buffers. Memory obtained with New
// must be returned with Free, after which it may be handed out again by a
// later New. Readers must therefore never touch a buffer after it has been
// freed; callers that share buffers with lock-free readers are responsible for
// delaying Free until those readers are gone.
package manual

import (
	"math/bits"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/cephgo/layouttable/internal/invariants"
)

// Purpose identifies the use-case for an allocation.
type Purpose uint8

const (
	_ Purpose = iota

	// LayoutRecord is the storage of an interned layout: fixed header plus
	// namespace bytes.
	LayoutRecord

	NumPurposes
)

// Metrics contains memory statistics by purpose.
type Metrics [NumPurposes]struct {
	// InUseBytes is the total number of bytes currently allocated. This is just
	// the sum of the lengths of the allocations and does not include any overhead
	// or fragmentation.
	InUseBytes uint64

	// TotalBytes is the total cumulative number of bytes allocated since the
	// process started.
	TotalBytes uint64
}

var counters [NumPurposes]struct {
	TotalAllocated atomic.Uint64
	TotalFreed     atomic.Uint64
	// Pad to separate counters into cache lines.
	_ [6]uint64
}

func recordAlloc(purpose Purpose, n uintptr) {
	counters[purpose].TotalAllocated.Add(uint64(n))
}

func recordFree(purpose Purpose, n uintptr) {
	counters[purpose].TotalFreed.Add(uint64(n))
}

// GetMetrics returns manual memory usage statistics.
func GetMetrics() Metrics {
	var res Metrics
	for i := range res {
		res[i].TotalBytes = counters[i].TotalAllocated.Load()
		res[i].InUseBytes = res[i].TotalBytes - counters[i].TotalFreed.Load()
	}
	return res
}

// Buf is a buffer allocated by New. The zero value is a valid empty buffer.
type Buf struct {
	data unsafe.Pointer
	n    uintptr
}

// Len returns the length of the buffer.
func (b Buf) Len() int {
	return int(b.n)
}

// Slice returns the buffer as a byte slice. The slice must not be retained
// past Free.
func (b Buf) Slice() []byte {
	if b.data == nil {
		return nil
	}
	return unsafe.Slice((*byte)(b.data), b.n)
}

// New allocates a zeroed buffer of size n.
func New(purpose Purpose, n uintptr) Buf {
	if n == 0 {
		return Buf{}
	}
	recordAlloc(purpose, n)
	b := Buf{
		data: pools[sizeClass(n)].Get().(unsafe.Pointer),
		n:    n,
	}
	clear(b.Slice())
	return b
}

// Free frees the specified buffer. It has to be exactly the buffer that was
// returned by New. In invariant builds the contents are mangled first.
func Free(purpose Purpose, b Buf) {
	if b.data == nil {
		return
	}
	invariants.MaybeMangle(b.Slice())
	recordFree(purpose, b.n)
	pools[sizeClass(b.n)].Put(b.data)
}

// Abandon accounts for b as freed without recycling it. The memory is left to
// the garbage collector, so holders of stale references keep reading the old
// contents instead of a recycled buffer.
func Abandon(purpose Purpose, b Buf) {
	if b.data == nil {
		return
	}
	recordFree(purpose, b.n)
}

// pools[n] is for allocs of size 1 << n.
var pools [bits.UintSize]sync.Pool

func init() {
	for i := range pools {
		pools[i].New = func() any {
			return unsafe.Pointer(unsafe.SliceData(make([]byte, 1<<i)))
		}
	}
}

// sizeClass determines the smallest n such that 1 << n >= size.
func sizeClass(size uintptr) int {
	return bits.UintSize - bits.LeadingZeros(uint(size-1))
}

// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

//go:build !tracing

package refcnt

import (
	"sync/atomic"

	"github.com/cephgo/layouttable/internal/invariants"
)

// RefCnt provides an atomic reference count. This version is used when the
// "tracing" build tag is not enabled. See refcnt_tracing.go for the "tracing"
// enabled version.
type RefCnt struct {
	val atomic.Int32
}

// Init initializes the reference count to the specified value.
func (v *RefCnt) Init(val int32) {
	v.val.Store(val)
}

// Refs returns the current count.
func (v *RefCnt) Refs() int32 {
	return v.val.Load()
}

// Acquire unconditionally increments the count. The caller must already hold
// a reference.
func (v *RefCnt) Acquire() {
	n := v.val.Add(1)
	if invariants.Enabled {
		assertPositive(n-1, "acquire", v)
	}
}

// TryAcquire increments the count only if it is currently non-zero. It returns
// false if the object has already dropped its last reference.
func (v *RefCnt) TryAcquire() bool {
	for {
		n := v.val.Load()
		if n <= 0 {
			return false
		}
		if v.val.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release decrements the count, returning true if it dropped to zero.
func (v *RefCnt) Release() bool {
	n := v.val.Add(-1)
	if invariants.Enabled && n < 0 {
		assertPositive(n, "release", v)
	}
	return n == 0
}

// Trace records msg in tracing builds.
func (v *RefCnt) Trace(msg string) {}

// Traces returns the recorded traces; empty unless built with "tracing".
func (v *RefCnt) Traces() string {
	return ""
}

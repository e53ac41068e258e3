// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

//go:build tracing

package refcnt

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
)

// RefCnt provides an atomic reference count, along with a tracing facility for
// debugging logic errors in manipulating the reference count. This version is
// used when the "tracing" build tag is enabled.
type RefCnt struct {
	val atomic.Int32
	mu  struct {
		sync.Mutex
		msgs []string
	}
}

// Init initializes the reference count to the specified value.
func (v *RefCnt) Init(val int32) {
	v.val.Store(val)
	v.Trace("init")
}

// Refs returns the current count.
func (v *RefCnt) Refs() int32 {
	return v.val.Load()
}

// Acquire unconditionally increments the count.
func (v *RefCnt) Acquire() {
	n := v.val.Add(1)
	v.Trace("acquire")
	assertPositive(n-1, "acquire", v)
}

// TryAcquire increments the count only if it is currently non-zero.
func (v *RefCnt) TryAcquire() bool {
	for {
		n := v.val.Load()
		if n <= 0 {
			v.Trace("try-acquire failed")
			return false
		}
		if v.val.CompareAndSwap(n, n+1) {
			v.Trace("try-acquire")
			return true
		}
	}
}

// Release decrements the count, returning true if it dropped to zero.
func (v *RefCnt) Release() bool {
	n := v.val.Add(-1)
	v.Trace("release")
	if n < 0 {
		assertPositive(n, "release", v)
	}
	return n == 0
}

// Trace records msg along with the current stack.
func (v *RefCnt) Trace(msg string) {
	s := fmt.Sprintf("%s: refs=%d\n%s", msg, v.Refs(), debug.Stack())
	v.mu.Lock()
	v.mu.msgs = append(v.mu.msgs, s)
	v.mu.Unlock()
}

// Traces returns every recorded message.
func (v *RefCnt) Traces() string {
	v.mu.Lock()
	s := strings.Join(v.mu.msgs, "\n")
	v.mu.Unlock()
	return s
}

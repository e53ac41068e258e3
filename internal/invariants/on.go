// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

//go:build invariants || race

package invariants

// Enabled is true if we were built with the "invariants" or "race" build tags.
const Enabled = true

// CloseChecker is used to check that objects are closed exactly once.
type CloseChecker struct {
	closed bool
}

// Close panics if called twice on the same object (if we were built with the
// "invariants" or "race" build tags).
func (d *CloseChecker) Close() {
	if d.closed {
		panic("double close")
	}
	d.closed = true
}

// AssertClosed panics in invariant builds if Close was not called.
func (d *CloseChecker) AssertClosed() {
	if !d.closed {
		panic("not closed")
	}
}

// AssertNotClosed panics in invariant builds if Close was called.
func (d *CloseChecker) AssertNotClosed() {
	if d.closed {
		panic("closed")
	}
}

// mangleByte is written over freed memory so that a read of reclaimed memory
// produces recognizably bogus values.
const mangleByte = 0xde

// MaybeMangle overwrites the buffer with garbage in invariant builds. It is
// used on memory that is being returned to a pool so that any reader still
// holding on to it observes corrupt data instead of plausible data.
func MaybeMangle(buf []byte) {
	for i := range buf {
		buf[i] = mangleByte
	}
}

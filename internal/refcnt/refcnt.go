// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package refcnt provides the atomic reference count embedded in every layout
// record. Building with the "tracing" tag swaps in a variant that records a
// stack trace for every change, which is printed when an invariant on the
// count is violated.
package refcnt

import "github.com/cockroachdb/errors"

func assertPositive(n int32, op string, r *RefCnt) {
	if n <= 0 {
		panic(errors.AssertionFailedf("refcnt: %s observed refs=%d\n%s", errors.Safe(op), n, r.Traces()))
	}
}

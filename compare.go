// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import (
	"bytes"
	"cmp"
)

// Compare orders layouts by content: stripe unit, stripe count, object size,
// pool, namespace length and finally the namespace bytes. It returns -1, 0 or
// +1. Two distinct layouts from the same table never compare equal while both
// are linked.
func Compare(a, b *Layout) int {
	return compareKey(a, b.Descriptor(), b.Namespace())
}

// compareKey compares the content of l against the key (d, ns). Every field is
// compared with explicit less/greater tests; subtracting fixed-width fields
// overflows for large values and would invert the order.
func compareKey(l *Layout, d Descriptor, ns []byte) int {
	if c := cmp.Compare(l.StripeUnit(), d.StripeUnit); c != 0 {
		return c
	}
	if c := cmp.Compare(l.StripeCount(), d.StripeCount); c != 0 {
		return c
	}
	if c := cmp.Compare(l.ObjectSize(), d.ObjectSize); c != 0 {
		return c
	}
	if c := cmp.Compare(l.PoolID(), d.PoolID); c != 0 {
		return c
	}
	lns := l.Namespace()
	if c := cmp.Compare(len(lns), len(ns)); c != 0 {
		return c
	}
	return bytes.Compare(lns, ns)
}

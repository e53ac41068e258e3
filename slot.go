// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import "sync/atomic"

// Slot is a shared pointer to a layout, such as the layout cached on an open
// file. The slot owns one reference to the layout it holds. Other goroutines
// obtain their own reference with Table.TryGet, which tolerates the owner
// replacing the layout concurrently.
//
// Store and Clear must be serialized by the owner. The zero value is an empty
// slot.
type Slot struct {
	p atomic.Pointer[Layout]
}

// Store installs l, taking over the caller's reference, and releases the
// reference held for the previous layout. l may be nil.
func (s *Slot) Store(l *Layout) {
	if old := s.p.Swap(l); old != nil {
		old.table.Put(old)
	}
}

// Clear empties the slot, releasing its reference.
func (s *Slot) Clear() {
	s.Store(nil)
}

// Load returns the installed layout without acquiring a reference. The result
// must not be dereferenced unless the caller otherwise holds a reference; it
// is only suitable for identity comparisons and diagnostics.
func (s *Slot) Load() *Layout {
	return s.p.Load()
}

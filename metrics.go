// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import (
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/redact"
)

// Metrics holds metrics for a Table.
type Metrics struct {
	// Count is the number of layouts reachable through the table.
	Count int64
	// Bytes is the memory charged for layouts, including layouts that were
	// released but are awaiting reclamation.
	Bytes int64
	// Hits is the number of FindOrCreate calls satisfied by an existing
	// layout on the first probe.
	Hits int64
	// Misses is the number of FindOrCreate calls that had to allocate.
	Misses int64
	// RacesLost is the number of allocated layouts discarded because a
	// concurrent FindOrCreate linked an equal layout first.
	RacesLost int64
	// StaleErased is the number of layouts found in the tree with a zero
	// reference count and unlinked by FindOrCreate.
	StaleErased int64
	// OutOfMemory is the number of FindOrCreate calls rejected by MaxBytes.
	OutOfMemory int64
	// Retired is the number of layouts whose last reference was released.
	Retired int64
	// Reclaimed is the number of retired layouts whose memory was freed.
	Reclaimed int64
	// PendingReclaim is the number of retired layouts waiting for concurrent
	// readers to finish.
	PendingReclaim int64
	// Leaked is the number of layouts still referenced when the table was
	// closed.
	Leaked int64
}

// SafeFormat implements redact.SafeFormatter.
func (m Metrics) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("layouts: %s (%s)\n",
		crhumanize.Count(m.Count, crhumanize.Compact),
		crhumanize.Bytes(m.Bytes, crhumanize.Compact, crhumanize.OmitI))
	w.Printf("lookups: %s hits, %s misses, %s races lost, %s stale, %s oom\n",
		crhumanize.Count(m.Hits, crhumanize.Compact),
		crhumanize.Count(m.Misses, crhumanize.Compact),
		crhumanize.Count(m.RacesLost, crhumanize.Compact),
		crhumanize.Count(m.StaleErased, crhumanize.Compact),
		crhumanize.Count(m.OutOfMemory, crhumanize.Compact))
	w.Printf("reclaim: %s retired, %s reclaimed, %s pending, %s leaked\n",
		crhumanize.Count(m.Retired, crhumanize.Compact),
		crhumanize.Count(m.Reclaimed, crhumanize.Compact),
		crhumanize.Count(m.PendingReclaim, crhumanize.Compact),
		crhumanize.Count(m.Leaked, crhumanize.Compact))
}

func (m Metrics) String() string {
	return redact.StringWithoutMarkers(m)
}

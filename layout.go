// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/cephgo/layouttable/internal/invariants"
	"github.com/cephgo/layouttable/internal/manual"
	"github.com/cephgo/layouttable/internal/refcnt"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// MaxNamespaceLen is the longest namespace a Layout can carry.
const MaxNamespaceLen = math.MaxUint16

// The content of a Layout lives in a single manually managed buffer: a fixed
// header followed by the namespace bytes.
//
//	+-------------+--------------+-------------+--------+-----+---------+-----------+
//	| stripe unit | stripe count | object size | ns len | pad | pool id | namespace |
//	|     u32     |     u32      |     u32     |  u16   | u16 |   i64   |  ns len   |
//	+-------------+--------------+-------------+--------+-----+---------+-----------+
const (
	offStripeUnit  = 0
	offStripeCount = 4
	offObjectSize  = 8
	offNSLen       = 12
	offPoolID      = 16
	headerSize     = 24
)

// layoutOverhead is charged against Options.MaxBytes in addition to the
// buffer.
const layoutOverhead = int64(unsafe.Sizeof(Layout{}))

// Layout is an interned, immutable, reference counted file layout. A *Layout
// obtained from FindOrCreate, Get or TryGet is a reference and must be
// released with Table.Put. Its content is stable until that reference is
// released; callers that need a value afterwards must copy it first.
type Layout struct {
	refs  refcnt.RefCnt
	id    uint64
	table *Table
	buf   manual.Buf
	data  []byte

	// linked and leaked are protected by Table.mu. linked is set while the
	// layout is reachable through the table's tree. leaked is set when the
	// table was closed while the layout was still referenced.
	linked bool
	leaked bool

	// reclaimed is only maintained in invariant builds, where it is used to
	// catch reads of reclaimed layouts.
	reclaimed atomic.Bool
}

func encodeLayout(data []byte, d Descriptor, ns []byte) {
	le := binary.LittleEndian
	le.PutUint32(data[offStripeUnit:], d.StripeUnit)
	le.PutUint32(data[offStripeCount:], d.StripeCount)
	le.PutUint32(data[offObjectSize:], d.ObjectSize)
	le.PutUint16(data[offNSLen:], uint16(len(ns)))
	le.PutUint64(data[offPoolID:], uint64(d.PoolID))
	copy(data[headerSize:], ns)
}

func layoutBufSize(ns []byte) int {
	return headerSize + len(ns)
}

func (l *Layout) content() []byte {
	if invariants.Enabled && l.reclaimed.Load() {
		panic(errors.AssertionFailedf("layouttable: layout#%d read after reclamation", errors.Safe(l.id)))
	}
	return l.data
}

// StripeUnit returns the stripe unit in bytes.
func (l *Layout) StripeUnit() uint32 {
	return binary.LittleEndian.Uint32(l.content()[offStripeUnit:])
}

// StripeCount returns the number of objects in a stripe.
func (l *Layout) StripeCount() uint32 {
	return binary.LittleEndian.Uint32(l.content()[offStripeCount:])
}

// ObjectSize returns the maximum object size in bytes.
func (l *Layout) ObjectSize() uint32 {
	return binary.LittleEndian.Uint32(l.content()[offObjectSize:])
}

// PoolID returns the placement pool.
func (l *Layout) PoolID() int64 {
	return int64(binary.LittleEndian.Uint64(l.content()[offPoolID:]))
}

// Namespace returns the pool namespace. The returned slice aliases the
// layout's storage: it must not be modified and must not be used after the
// reference is released.
func (l *Layout) Namespace() []byte {
	data := l.content()
	n := binary.LittleEndian.Uint16(data[offNSLen:])
	return data[headerSize : headerSize+int(n) : headerSize+int(n)]
}

// Descriptor returns a copy of the numeric fields.
func (l *Layout) Descriptor() Descriptor {
	return Descriptor{
		StripeUnit:  l.StripeUnit(),
		StripeCount: l.StripeCount(),
		ObjectSize:  l.ObjectSize(),
		PoolID:      l.PoolID(),
	}
}

// ID returns an identifier unique among the layouts created by one table. A
// layout recreated after its predecessor was released gets a new ID.
func (l *Layout) ID() uint64 {
	return l.id
}

// Size returns the number of bytes charged against Options.MaxBytes.
func (l *Layout) Size() int64 {
	return layoutOverhead + int64(l.buf.Len())
}

// Refs returns the current reference count. It is racy and only meant for
// diagnostics and tests.
func (l *Layout) Refs() int32 {
	return l.refs.Refs()
}

// SafeFormat implements redact.SafeFormatter. The namespace is treated as
// user data.
func (l *Layout) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("layout#%d{%s ns=%q}", redact.SafeUint(l.id), l.Descriptor(), l.Namespace())
}

func (l *Layout) String() string {
	return redact.StringWithoutMarkers(l)
}

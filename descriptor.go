// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import (
	"encoding/binary"

	"github.com/cockroachdb/redact"
)

// NoPool is the pool identifier of a descriptor with no layout at all.
const NoPool int64 = -1

// Descriptor holds the numeric fields of a file layout. Together with a
// namespace it is the identity of an interned Layout.
type Descriptor struct {
	// StripeUnit is the number of bytes written to one object before moving to
	// the next object in the stripe.
	StripeUnit uint32
	// StripeCount is the number of objects a stripe spans.
	StripeCount uint32
	// ObjectSize is the maximum size of one object.
	ObjectSize uint32
	// PoolID identifies the placement pool.
	PoolID int64
}

// SafeFormat implements redact.SafeFormatter.
func (d Descriptor) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("su=%d sc=%d os=%d pool=%d",
		redact.SafeUint(d.StripeUnit), redact.SafeUint(d.StripeCount),
		redact.SafeUint(d.ObjectSize), redact.SafeInt(d.PoolID))
}

func (d Descriptor) String() string {
	return redact.StringWithoutMarkers(d)
}

// LegacyDescriptorSize is the encoded size of a LegacyDescriptor.
const LegacyDescriptorSize = 28

// LegacyDescriptor is the fixed-width layout descriptor carried by older
// metadata messages: seven little-endian 32-bit words.
type LegacyDescriptor struct {
	StripeUnit       uint32
	StripeCount      uint32
	ObjectSize       uint32
	CASHash          uint32
	ObjectStripeUnit uint32
	Unused           uint32
	PGPool           uint32
}

// DecodeLegacy parses an encoded LegacyDescriptor. Bytes past
// LegacyDescriptorSize are ignored.
func DecodeLegacy(buf []byte) (LegacyDescriptor, error) {
	if len(buf) < LegacyDescriptorSize {
		return LegacyDescriptor{}, corruptionErrorf(
			"layouttable: legacy layout too short: %d bytes", redact.Safe(len(buf)))
	}
	le := binary.LittleEndian
	return LegacyDescriptor{
		StripeUnit:       le.Uint32(buf[0:]),
		StripeCount:      le.Uint32(buf[4:]),
		ObjectSize:       le.Uint32(buf[8:]),
		CASHash:          le.Uint32(buf[12:]),
		ObjectStripeUnit: le.Uint32(buf[16:]),
		Unused:           le.Uint32(buf[20:]),
		PGPool:           le.Uint32(buf[24:]),
	}, nil
}

// DescriptorFromLegacy converts a legacy descriptor. An all-zero legacy
// layout means "no layout" and maps to PoolID == NoPool.
func DescriptorFromLegacy(ld LegacyDescriptor) Descriptor {
	d := Descriptor{
		StripeUnit:  ld.StripeUnit,
		StripeCount: ld.StripeCount,
		ObjectSize:  ld.ObjectSize,
		PoolID:      int64(ld.PGPool),
	}
	if d.PoolID == 0 && d.StripeUnit == 0 && d.StripeCount == 0 && d.ObjectSize == 0 {
		d.PoolID = NoPool
	}
	return d
}

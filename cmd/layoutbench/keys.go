// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package main

import (
	"encoding/binary"
	"fmt"

	"github.com/cephgo/layouttable"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// keySpace maps key indexes to distinct layouts. Key k lives in pool
// k/len(namespaces) under namespace k%len(namespaces); the striping parameters
// are derived from a hash of the pool so that every pool looks different.
type keySpace struct {
	namespaces [][]byte
	index      map[string]uint64
}

func newKeySpace(n int) keySpace {
	ks := keySpace{index: make(map[string]uint64, n)}
	for i := range n {
		// Vary namespace lengths; the empty namespace is common in practice.
		h := xxhash.Sum64String(fmt.Sprint(i))
		ns := []byte(fmt.Sprintf("%016x", h)[:i%17])
		if _, ok := ks.index[string(ns)]; ok {
			ns = []byte(fmt.Sprintf("ns%d", i))
		}
		ks.index[string(ns)] = uint64(i)
		ks.namespaces = append(ks.namespaces, ns)
	}
	return ks
}

func (ks keySpace) layout(k uint64) (layouttable.Descriptor, []byte) {
	n := uint64(len(ks.namespaces))
	pool := k / n
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], pool)
	h := xxhash.Sum64(buf[:])
	su := uint32(64<<10) << (h % 7)
	d := layouttable.Descriptor{
		StripeUnit:  su,
		StripeCount: 1 + uint32(h>>8)%4,
		ObjectSize:  max(su, 4<<20),
		PoolID:      int64(pool),
	}
	return d, ks.namespaces[k%n]
}

// verify checks that l carries the content of some key and returns that key.
func (ks keySpace) verify(l *layouttable.Layout) (uint64, error) {
	i, ok := ks.index[string(l.Namespace())]
	if !ok || l.PoolID() < 0 {
		return 0, errors.AssertionFailedf("unexpected layout %s", l)
	}
	k := uint64(l.PoolID())*uint64(len(ks.namespaces)) + i
	d, ns := ks.layout(k)
	if l.Descriptor() != d || string(l.Namespace()) != string(ns) {
		return 0, errors.AssertionFailedf("layout %s does not match key %d (%s)", l, errors.Safe(k), d)
	}
	return k, nil
}

// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package layouttable interns file layouts: small immutable records holding a
// striping descriptor and a pool namespace. Every distinct layout is stored
// once per table and shared by reference count, so that many open files with
// the same layout point at the same record.
//
// A reference is obtained from FindOrCreate, Get or TryGet and released with
// Put. Releasing the last reference unlinks the record; its memory is
// reclaimed once no concurrent TryGet can still be inspecting it.
package layouttable

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cephgo/layouttable/internal/btree"
	"github.com/cephgo/layouttable/internal/epoch"
	"github.com/cephgo/layouttable/internal/invariants"
	"github.com/cephgo/layouttable/internal/manual"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/prometheus/client_golang/prometheus"
)

// maxLeaksReported bounds the number of leaked layouts listed by Close.
const maxLeaksReported = 16

// Table is an interning table of layouts. It is safe for concurrent use.
type Table struct {
	opts   *Options
	logger Logger

	nextID atomic.Uint64
	// bytes is the memory charged for layouts that have not been reclaimed.
	bytes  atomic.Int64
	closed atomic.Bool

	epochs epoch.Collector[Layout]

	mu struct {
		sync.Mutex
		// tree holds every linked layout. A layout is linked from creation
		// until either its last reference is released or a FindOrCreate finds
		// it with a zero reference count.
		tree       *btree.BTree[*Layout]
		closeCheck invariants.CloseChecker
	}

	stats struct {
		hits        atomic.Int64
		misses      atomic.Int64
		racesLost   atomic.Int64
		staleErased atomic.Int64
		oom         atomic.Int64
		retired     atomic.Int64
		leaked      atomic.Int64
	}

	collector prometheus.Collector
}

// New creates an empty table. A nil opts is equivalent to &Options{}.
func New(opts *Options) (*Table, error) {
	opts = opts.EnsureDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		opts:   opts,
		logger: opts.Logger,
	}
	t.mu.tree = btree.New(Compare)
	t.epochs.Init(t.reclaim)
	if opts.Registerer != nil {
		c := NewCollector(t)
		if err := opts.Registerer.Register(c); err != nil {
			return nil, errors.Wrap(err, "layouttable: registering metrics")
		}
		t.collector = c
	}
	return t, nil
}

// FindOrCreate returns a reference to the layout with the given descriptor and
// namespace, creating it if no equal layout is linked. Concurrent calls with
// equal arguments return the same layout. The namespace is copied.
//
// It panics with ErrClosed if the table has been closed.
func (t *Table) FindOrCreate(d Descriptor, ns []byte) (*Layout, error) {
	if t.closed.Load() {
		panic(ErrClosed)
	}
	if len(ns) > MaxNamespaceLen {
		return nil, errors.Wrapf(ErrInvalidNamespace, "namespace length %d exceeds %d",
			errors.Safe(len(ns)), errors.Safe(MaxNamespaceLen))
	}
	probe := func(l *Layout) int { return compareKey(l, d, ns) }

	if l := t.lookup(probe); l != nil {
		t.stats.hits.Add(1)
		return l, nil
	}
	t.stats.misses.Add(1)

	n, err := t.alloc(d, ns)
	if err != nil {
		return nil, err
	}
	if invariants.Sometimes(10) {
		// Widen the window in which a concurrent creator can win the race.
		runtime.Gosched()
	}
	l := t.commit(n, probe)
	if l != n {
		t.stats.racesLost.Add(1)
		t.discard(n)
	}
	return l, nil
}

// FindOrCreateLegacy is like FindOrCreate but takes the legacy fixed-width
// descriptor.
func (t *Table) FindOrCreateLegacy(ld LegacyDescriptor, ns []byte) (*Layout, error) {
	return t.FindOrCreate(DescriptorFromLegacy(ld), ns)
}

// lookup returns a new reference to the linked layout matching probe, or nil.
// A matching layout whose last reference is being released is unlinked.
func (t *Table) lookup(probe btree.Probe[*Layout]) *Layout {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.closeCheck.AssertNotClosed()

	l, ok := t.mu.tree.Get(probe)
	if !ok {
		return nil
	}
	if l.refs.TryAcquire() {
		return l
	}
	t.unlinkLocked(l)
	t.stats.staleErased.Add(1)
	return nil
}

// alloc builds an unlinked layout holding one reference. No lock is held.
func (t *Table) alloc(d Descriptor, ns []byte) (*Layout, error) {
	n := layoutBufSize(ns)
	if err := t.reserve(layoutOverhead + int64(n)); err != nil {
		return nil, err
	}
	l := &Layout{
		id:    t.nextID.Add(1),
		table: t,
		buf:   manual.New(manual.LayoutRecord, uintptr(n)),
	}
	l.data = l.buf.Slice()
	encodeLayout(l.data, d, ns)
	l.refs.Init(1)
	return l, nil
}

// reserve charges n bytes against Options.MaxBytes.
func (t *Table) reserve(n int64) error {
	limit := t.opts.MaxBytes
	collected := false
	for {
		cur := t.bytes.Load()
		if limit > 0 && cur+n > limit {
			if !collected {
				// Released layouts still count until they are reclaimed.
				t.epochs.Collect()
				collected = true
				continue
			}
			t.stats.oom.Add(1)
			return errors.Mark(errors.Newf("layouttable: allocating %d bytes exceeds limit of %d (%d in use)",
				errors.Safe(n), errors.Safe(limit), errors.Safe(cur)), ErrOutOfMemory)
		}
		if t.bytes.CompareAndSwap(cur, cur+n) {
			return nil
		}
	}
}

// commit links n unless an equal live layout is already linked, in which case
// a reference to that layout is returned instead.
func (t *Table) commit(n *Layout, probe btree.Probe[*Layout]) *Layout {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		l, ok := t.mu.tree.Get(probe)
		if !ok {
			if !t.mu.tree.Set(n) && invariants.Enabled {
				panic(errors.AssertionFailedf("layouttable: %s replaced a linked layout", n))
			}
			n.linked = true
			if invariants.Enabled {
				t.mu.tree.Verify()
			}
			return n
		}
		if l.refs.TryAcquire() {
			return l
		}
		// Each iteration unlinks a stale layout, and no new layout equal to n
		// can be linked while we hold the lock.
		t.unlinkLocked(l)
		t.stats.staleErased.Add(1)
	}
}

// unlinkLocked removes l from the tree if it is still linked. t.mu must be
// held.
func (t *Table) unlinkLocked(l *Layout) {
	if !l.linked {
		return
	}
	if invariants.Enabled {
		cur, ok := t.mu.tree.Get(func(x *Layout) int { return Compare(x, l) })
		if !ok || cur != l {
			panic(errors.AssertionFailedf("layouttable: linked %s not found in tree", l))
		}
	}
	// At most one linked layout per content, so deleting by content removes l.
	t.mu.tree.Delete(l)
	l.linked = false
	if invariants.Enabled {
		t.mu.tree.Verify()
	}
}

// discard frees a layout that lost the race to be linked. It was never
// visible to any other goroutine.
func (t *Table) discard(l *Layout) {
	l.refs.Release()
	t.reclaim(l)
}

// Get acquires an additional reference on l. The caller must already hold a
// reference.
func (t *Table) Get(l *Layout) *Layout {
	if invariants.Enabled && l.table != t {
		panic(errors.AssertionFailedf("layouttable: %s belongs to another table", l))
	}
	l.refs.Acquire()
	return l
}

// TryGet returns a new reference to the layout held by s, or nil if s is
// empty. It is safe to call concurrently with the owner of s replacing the
// layout and releasing the slot's reference.
func (t *Table) TryGet(s *Slot) *Layout {
	g := t.epochs.Pin()
	defer g.Unpin()
	for {
		l := s.p.Load()
		if l == nil {
			return nil
		}
		// The slot's own reference keeps the count positive while l is
		// installed, so a failed acquire means the slot was already
		// repointed. l.refs lives in the garbage collected Layout, which is
		// never reused, so the acquire is safe either way. The pin holds off
		// freeing l.buf until we return, which lets WaitForReclaim wait for
		// in-flight readers.
		if l.refs.TryAcquire() {
			return l
		}
		runtime.Gosched()
	}
}

// Put releases a reference. Releasing the last reference unlinks the layout
// and schedules its memory for reclamation. A nil layout is ignored. Put must
// not be called more times than references were acquired.
func (t *Table) Put(l *Layout) {
	if l == nil {
		return
	}
	if !l.refs.Release() {
		return
	}
	t.mu.Lock()
	if l.leaked {
		// Force freed by Close.
		t.mu.Unlock()
		return
	}
	t.unlinkLocked(l)
	t.mu.Unlock()

	t.stats.retired.Add(1)
	t.epochs.Retire(l)
}

// reclaim returns l's memory once no TryGet can be inspecting it.
func (t *Table) reclaim(l *Layout) {
	size := l.Size()
	if invariants.Enabled {
		l.reclaimed.Store(true)
	}
	manual.Free(manual.LayoutRecord, l.buf)
	l.buf = manual.Buf{}
	l.data = nil
	t.bytes.Add(-size)
}

// Len returns the number of linked layouts.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.tree.Len()
}

// WaitForReclaim blocks until every released layout has been reclaimed. It
// waits for in-flight TryGet calls.
func (t *Table) WaitForReclaim() {
	t.epochs.Barrier()
}

// Metrics returns the table's current metrics.
func (t *Table) Metrics() Metrics {
	return Metrics{
		Count:          int64(t.Len()),
		Bytes:          t.bytes.Load(),
		Hits:           t.stats.hits.Load(),
		Misses:         t.stats.misses.Load(),
		RacesLost:      t.stats.racesLost.Load(),
		StaleErased:    t.stats.staleErased.Load(),
		OutOfMemory:    t.stats.oom.Load(),
		Retired:        t.stats.retired.Load(),
		Reclaimed:      int64(t.epochs.Reclaimed()),
		PendingReclaim: int64(t.epochs.Pending()),
		Leaked:         t.stats.leaked.Load(),
	}
}

// Close tears down the table. Layouts that are still referenced are leaked:
// they are logged, unlinked and their memory is handed to the garbage
// collector, and Close returns an error marked with ErrLeaked. Holders of a
// leaked layout may keep reading it and must still Put it. Close waits for
// pending reclamation to complete.
//
// Close must be called exactly once and must not race with FindOrCreate. It
// panics with ErrClosed when called again.
func (t *Table) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		panic(ErrClosed)
	}

	t.mu.Lock()
	t.mu.closeCheck.Close()
	var leaked []*Layout
	it := t.mu.tree.NewIter()
	for it.First(); it.Valid(); it.Next() {
		l := it.Cur()
		l.linked = false
		// A layout at zero has a Put waiting for the lock; that Put retires
		// it.
		if l.refs.Refs() > 0 {
			l.leaked = true
			l.refs.Trace("leaked")
			leaked = append(leaked, l)
		}
	}
	t.mu.tree.Reset()
	t.mu.Unlock()

	var err error
	if len(leaked) > 0 {
		list := redact.Sprintfn(func(w redact.SafePrinter) {
			for i, l := range leaked {
				if i == maxLeaksReported {
					w.Printf(" ... %d more", redact.Safe(len(leaked)-i))
					break
				}
				if i > 0 {
					w.SafeString(", ")
				}
				w.Print(l)
			}
		})
		t.logger.Errorf("detected %d shared layout leaks: %s", len(leaked), list)
		err = errors.Mark(errors.Newf("layouttable: %d layouts still referenced at close: %s",
			errors.Safe(len(leaked)), list), ErrLeaked)

		for _, l := range leaked {
			t.bytes.Add(-l.Size())
			manual.Abandon(manual.LayoutRecord, l.buf)
			t.stats.leaked.Add(1)
		}
	}

	if t.collector != nil {
		t.opts.Registerer.Unregister(t.collector)
	}
	t.epochs.Barrier()
	return err
}

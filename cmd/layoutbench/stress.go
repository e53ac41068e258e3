// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package main

import (
	"context"
	"time"

	"github.com/cephgo/layouttable"
	"github.com/cephgo/layouttable/internal/randvar"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var stressConfig struct {
	slots   int
	writers int
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "race TryGet against slots being repointed",
	Long: `
Writers repoint a set of shared slots to freshly interned layouts, releasing
the slot's previous reference, while readers acquire references through the
slots with TryGet and validate the content they see.
`,
	Args: cobra.NoArgs,
	RunE: runStress,
}

func runStress(cmd *cobra.Command, args []string) error {
	if stressConfig.writers <= 0 || stressConfig.writers >= concurrency {
		return errors.Newf("--writers must be in [1, %d)", concurrency)
	}
	if stressConfig.slots < stressConfig.writers {
		return errors.Newf("--slots must be >= --writers")
	}
	ks := newKeySpace(namespaces)
	reg := newHistogramRegistry()
	slots := make([]layouttable.Slot, stressConfig.slots)
	return runTest(test{
		init: func(ctx context.Context, tbl *layouttable.Table, g *errgroup.Group) {
			for w := range stressConfig.writers {
				hist := reg.Register("store")
				g.Go(func() error {
					return stressWriter(ctx, tbl, ks, slots, w, hist)
				})
			}
			for r := stressConfig.writers; r < concurrency; r++ {
				hist := reg.Register("try-get")
				g.Go(func() error {
					return stressReader(ctx, tbl, ks, slots, seed+uint64(r), hist)
				})
			}
		},
		tick: func(elapsed time.Duration, i int) {
			if i%20 == 0 {
				printTickHeader()
			}
			reg.Tick(func(tick histogramTick) {
				printTick(elapsed, tick)
			})
		},
		done: func(elapsed time.Duration) {
			printSummary(elapsed, reg)
		},
	})
}

// stressWriter owns the slots i with i%writers == w.
func stressWriter(
	ctx context.Context,
	tbl *layouttable.Table,
	ks keySpace,
	slots []layouttable.Slot,
	w int,
	hist *namedHistogram,
) error {
	var owned []*layouttable.Slot
	for i := w; i < len(slots); i += stressConfig.writers {
		owned = append(owned, &slots[i])
	}
	defer func() {
		for _, s := range owned {
			s.Clear()
		}
	}()

	rng := randvar.NewRand(seed + uint64(w))
	limiter := newRateLimiter()
	for ctx.Err() == nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		d, ns := ks.layout(keys.Uint64(rng))
		start := time.Now()
		l, err := tbl.FindOrCreate(d, ns)
		if err != nil {
			if errors.Is(err, layouttable.ErrOutOfMemory) {
				continue
			}
			return err
		}
		owned[rng.Intn(len(owned))].Store(l)
		hist.Record(time.Since(start))
	}
	return nil
}

func stressReader(
	ctx context.Context,
	tbl *layouttable.Table,
	ks keySpace,
	slots []layouttable.Slot,
	seed uint64,
	hist *namedHistogram,
) error {
	rng := randvar.NewRand(seed)
	limiter := newRateLimiter()
	for ctx.Err() == nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		s := &slots[rng.Intn(len(slots))]
		start := time.Now()
		l := tbl.TryGet(s)
		hist.Record(time.Since(start))
		if l == nil {
			continue
		}
		if refs := l.Refs(); refs <= 0 {
			return errors.AssertionFailedf("acquired %s with refs=%d", l, errors.Safe(refs))
		}
		_, err := ks.verify(l)
		tbl.Put(l)
		if err != nil {
			return err
		}
	}
	return nil
}

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
	"github.com/cockroachdb/swiss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var benchConfig struct {
	hold int
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "measure FindOrCreate/Put throughput",
	Long: `
Each worker draws keys from the --keys distribution and interns the
corresponding layout. A worker keeps up to --hold references, so that popular
keys are found in the table and unpopular ones are created and released.
`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func runBench(cmd *cobra.Command, args []string) error {
	ks := newKeySpace(namespaces)
	reg := newHistogramRegistry()
	return runTest(test{
		init: func(ctx context.Context, tbl *layouttable.Table, g *errgroup.Group) {
			for w := range concurrency {
				hist := reg.Register("find")
				g.Go(func() error {
					return benchWorker(ctx, tbl, ks, seed+uint64(w), hist)
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

func benchWorker(
	ctx context.Context, tbl *layouttable.Table, ks keySpace, seed uint64, hist *namedHistogram,
) error {
	rng := randvar.NewRand(seed)
	limiter := newRateLimiter()

	// held maps a key to the reference this worker holds for it.
	var held swiss.Map[uint64, *layouttable.Layout]
	held.Init(benchConfig.hold)
	defer func() {
		held.All(func(_ uint64, l *layouttable.Layout) bool {
			tbl.Put(l)
			return true
		})
		held.Close()
	}()

	for ctx.Err() == nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		k := keys.Uint64(rng)
		d, ns := ks.layout(k)
		start := time.Now()
		l, err := tbl.FindOrCreate(d, ns)
		hist.Record(time.Since(start))
		if err != nil {
			if errors.Is(err, layouttable.ErrOutOfMemory) {
				evictOne(tbl, &held)
				continue
			}
			return err
		}
		if _, err := ks.verify(l); err != nil {
			return err
		}
		if prev, ok := held.Get(k); ok {
			// While we hold a reference, every lookup must return the same
			// layout.
			if prev != l {
				return errors.AssertionFailedf("key %d: found %s while holding %s", errors.Safe(k), l, prev)
			}
			tbl.Put(l)
			continue
		}
		held.Put(k, l)
		if held.Len() > benchConfig.hold {
			evictOne(tbl, &held)
		}
	}
	return nil
}

// evictOne releases an arbitrary held reference.
func evictOne(tbl *layouttable.Table, held *swiss.Map[uint64, *layouttable.Layout]) {
	var victim uint64
	var l *layouttable.Layout
	held.All(func(k uint64, v *layouttable.Layout) bool {
		victim, l = k, v
		return false
	})
	if l != nil {
		held.Delete(victim)
		tbl.Put(l)
	}
}

// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cephgo/layouttable"
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tokenbucket"
	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

type test struct {
	init func(ctx context.Context, t *layouttable.Table, g *errgroup.Group)
	tick func(elapsed time.Duration, i int)
	done func(elapsed time.Duration)
}

// rateLimiter paces a single worker. The zero value does not limit.
type rateLimiter struct {
	tb      tokenbucket.TokenBucket
	enabled bool
}

// newRateLimiter returns a limiter granting one worker its share of --rate.
func newRateLimiter() *rateLimiter {
	r := &rateLimiter{}
	if maxOpsPerSec > 0 {
		rate := maxOpsPerSec / float64(concurrency)
		r.tb.Init(tokenbucket.TokensPerSecond(rate), tokenbucket.Tokens(max(rate/10, 1)))
		r.enabled = true
	}
	return r
}

func (r *rateLimiter) Wait(ctx context.Context) error {
	if !r.enabled {
		return nil
	}
	for {
		ok, d := r.tb.TryToFulfill(1)
		if ok {
			return nil
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func runTest(t test) error {
	zl, err := newZapLogger(verbose)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	reg := prometheus.NewRegistry()
	tbl, err := layouttable.New(&layouttable.Options{
		Logger:     zapLogger{s: zl.Sugar()},
		MaxBytes:   maxBytes,
		Registerer: reg,
	})
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:    metricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Sugar().Errorf("metrics server: %v", err)
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	fmt.Printf("concurrency %d\nkeys %s\nnamespaces %d\n", concurrency, keys, namespaces)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	t.init(gctx, tbl, g)

	workersDone := make(chan error, 1)
	go func() {
		workersDone <- g.Wait()
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	done := make(chan os.Signal, 3)
	signal.Notify(done, os.Interrupt)
	defer signal.Stop(done)

	var timeout <-chan time.Time
	if duration > 0 {
		timeout = time.After(duration)
	}

	start := time.Now()
	var workErr error
loop:
	for i := 0; ; i++ {
		select {
		case <-ticker.C:
			t.tick(time.Since(start), i)

		case <-done:
			cancel()
			workErr = <-workersDone
			break loop

		case <-timeout:
			cancel()
			workErr = <-workersDone
			break loop

		case workErr = <-workersDone:
			break loop
		}
	}
	if errors.Is(workErr, context.Canceled) {
		workErr = nil
	}
	t.done(time.Since(start))

	tbl.WaitForReclaim()
	printMetrics(tbl.Metrics())
	if rss, ok := peakRSS(); ok {
		fmt.Printf("peak rss %s\n", crhumanize.Bytes(rss, crhumanize.Compact, crhumanize.OmitI))
	}
	return errors.CombineErrors(workErr, tbl.Close())
}

func printMetrics(m layouttable.Metrics) {
	fmt.Println()
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Metric", "Value"})
	count := func(v int64) string { return string(crhumanize.Count(v, crhumanize.Compact)) }
	tw.Append([]string{"layouts", count(m.Count)})
	tw.Append([]string{"bytes", string(crhumanize.Bytes(m.Bytes, crhumanize.Compact, crhumanize.OmitI))})
	tw.Append([]string{"hits", count(m.Hits)})
	tw.Append([]string{"misses", count(m.Misses)})
	tw.Append([]string{"races lost", count(m.RacesLost)})
	tw.Append([]string{"stale erased", count(m.StaleErased)})
	tw.Append([]string{"out of memory", count(m.OutOfMemory)})
	tw.Append([]string{"retired", count(m.Retired)})
	tw.Append([]string{"reclaimed", count(m.Reclaimed)})
	tw.Append([]string{"pending reclaim", count(m.PendingReclaim)})
	tw.Append([]string{"leaked", count(m.Leaked)})
	tw.Render()
}

func printTickHeader() {
	fmt.Println("_elapsed___name______ops/sec___p50(µs)___p95(µs)___p99(µs)_pMax(µs)")
}

func printTick(elapsed time.Duration, tick histogramTick) {
	h := tick.Hist
	fmt.Printf("%8s %-8s %10.1f %9.1f %9.1f %9.1f %8.1f\n",
		time.Duration(elapsed.Seconds()+0.5)*time.Second,
		tick.Name,
		float64(h.TotalCount())/tick.Elapsed.Seconds(),
		time.Duration(h.ValueAtQuantile(50)).Seconds()*1e6,
		time.Duration(h.ValueAtQuantile(95)).Seconds()*1e6,
		time.Duration(h.ValueAtQuantile(99)).Seconds()*1e6,
		time.Duration(h.ValueAtQuantile(100)).Seconds()*1e6)
}

func printSummary(elapsed time.Duration, reg *histogramRegistry) {
	fmt.Println("\n_elapsed___name_____ops(total)___ops/sec(cum)__avg(µs)__p50(µs)__p95(µs)__p99(µs)_pMax(µs)")
	var names []string
	reg.Tick(func(tick histogramTick) {
		h := tick.Cumulative
		fmt.Printf("%7.1fs %-8s %12d %14.1f %8.1f %8.1f %8.1f %8.1f %8.1f\n",
			elapsed.Seconds(), tick.Name, h.TotalCount(),
			float64(h.TotalCount())/elapsed.Seconds(),
			time.Duration(h.Mean()).Seconds()*1e6,
			time.Duration(h.ValueAtQuantile(50)).Seconds()*1e6,
			time.Duration(h.ValueAtQuantile(95)).Seconds()*1e6,
			time.Duration(h.ValueAtQuantile(99)).Seconds()*1e6,
			time.Duration(h.ValueAtQuantile(100)).Seconds()*1e6)
		names = append(names, tick.Name)
	})
	for _, name := range names {
		// The last sample covers a partial second.
		if rates := reg.Rates(name); len(rates) > 2 {
			fmt.Println()
			fmt.Println(asciigraph.Plot(rates[:len(rates)-1],
				asciigraph.Height(10), asciigraph.Caption(name+" ops/sec")))
		}
	}
}

// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "layouttable"

// Collector exports a table's Metrics to prometheus.
type Collector struct {
	t *Table

	count          *prometheus.Desc
	bytes          *prometheus.Desc
	hits           *prometheus.Desc
	misses         *prometheus.Desc
	racesLost      *prometheus.Desc
	staleErased    *prometheus.Desc
	outOfMemory    *prometheus.Desc
	retired        *prometheus.Desc
	reclaimed      *prometheus.Desc
	pendingReclaim *prometheus.Desc
	leaked         *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector reading t's metrics on every scrape.
func NewCollector(t *Table) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, nil, nil)
	}
	return &Collector{
		t:              t,
		count:          desc("layouts", "Number of linked layouts."),
		bytes:          desc("bytes", "Bytes charged for layouts not yet reclaimed."),
		hits:           desc("hits_total", "FindOrCreate calls served by a linked layout."),
		misses:         desc("misses_total", "FindOrCreate calls that allocated a layout."),
		racesLost:      desc("races_lost_total", "Allocated layouts discarded after a concurrent creator won."),
		staleErased:    desc("stale_erased_total", "Layouts unlinked by FindOrCreate after their last reference was released."),
		outOfMemory:    desc("out_of_memory_total", "FindOrCreate calls rejected by the memory limit."),
		retired:        desc("retired_total", "Layouts whose last reference was released."),
		reclaimed:      desc("reclaimed_total", "Retired layouts whose memory was freed."),
		pendingReclaim: desc("pending_reclaim", "Retired layouts waiting for concurrent readers."),
		leaked:         desc("leaked_total", "Layouts still referenced when the table was closed."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.count
	ch <- c.bytes
	ch <- c.hits
	ch <- c.misses
	ch <- c.racesLost
	ch <- c.staleErased
	ch <- c.outOfMemory
	ch <- c.retired
	ch <- c.reclaimed
	ch <- c.pendingReclaim
	ch <- c.leaked
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.t.Metrics()
	gauge := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	counter := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge(c.count, m.Count)
	gauge(c.bytes, m.Bytes)
	counter(c.hits, m.Hits)
	counter(c.misses, m.Misses)
	counter(c.racesLost, m.RacesLost)
	counter(c.staleErased, m.StaleErased)
	counter(c.outOfMemory, m.OutOfMemory)
	counter(c.retired, m.Retired)
	counter(c.reclaimed, m.Reclaimed)
	gauge(c.pendingReclaim, m.PendingReclaim)
	counter(c.leaked, m.Leaked)
}

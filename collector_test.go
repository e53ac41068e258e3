// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gatherValues(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, f := range families {
		require.Len(t, f.GetMetric(), 1)
		m := f.GetMetric()[0]
		switch f.GetType() {
		case dto.MetricType_GAUGE:
			values[f.GetName()] = m.GetGauge().GetValue()
		case dto.MetricType_COUNTER:
			values[f.GetName()] = m.GetCounter().GetValue()
		default:
			t.Fatalf("unexpected metric type %s for %s", f.GetType(), f.GetName())
		}
	}
	return values
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	tbl := newTestTable(t, &Options{Registerer: reg})

	a, err := tbl.FindOrCreate(testDesc, []byte("a"))
	require.NoError(t, err)
	a2, err := tbl.FindOrCreate(testDesc, []byte("a"))
	require.NoError(t, err)
	b, err := tbl.FindOrCreate(testDesc, []byte("b"))
	require.NoError(t, err)
	tbl.Put(b)

	v := gatherValues(t, reg)
	require.Equal(t, 1.0, v["layouttable_layouts"])
	require.Equal(t, float64(a.Size()), v["layouttable_bytes"])
	require.Equal(t, 1.0, v["layouttable_hits_total"])
	require.Equal(t, 2.0, v["layouttable_misses_total"])
	require.Equal(t, 1.0, v["layouttable_retired_total"])
	require.Equal(t, 1.0, v["layouttable_reclaimed_total"])
	require.Equal(t, 0.0, v["layouttable_pending_reclaim"])
	require.Len(t, v, 11)

	// A second table cannot register under the same names.
	_, err = New(&Options{Registerer: reg})
	require.Error(t, err)

	tbl.Put(a)
	tbl.Put(a2)
	require.NoError(t, tbl.Close())

	// Close unregisters the collector.
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Empty(t, families)
}

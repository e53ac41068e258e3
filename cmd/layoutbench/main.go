// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// layoutbench drives a layout table with concurrent workloads and reports
// throughput, latency and table metrics.
package main

import (
	"log"
	"os"
	"time"

	"github.com/cephgo/layouttable/internal/randvar"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	duration     time.Duration
	keys         = randvar.NewFlag("zipf:10000")
	namespaces   int
	maxBytes     int64
	maxOpsPerSec float64
	metricsAddr  string
	seed         uint64
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "layoutbench [command] (flags)",
	Short: "layout table benchmarking/stress tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		benchCmd,
		stressCmd,
	)

	for _, cmd := range []*cobra.Command{benchCmd, stressCmd} {
		cmd.Flags().IntVarP(
			&concurrency, "concurrency", "c", 8, "number of concurrent workers")
		cmd.Flags().DurationVarP(
			&duration, "duration", "d", 10*time.Second, "the duration to run (0, run forever)")
		cmd.Flags().Var(
			keys, "keys", "key distribution [{zipf,uniform}:]n")
		cmd.Flags().IntVar(
			&namespaces, "namespaces", 4, "number of distinct namespaces keys are spread over")
		cmd.Flags().Int64Var(
			&maxBytes, "max-bytes", 0, "memory limit for the table (0, unlimited)")
		cmd.Flags().Float64Var(
			&maxOpsPerSec, "rate", 0, "maximum operations per second across all workers (0, unlimited)")
		cmd.Flags().StringVar(
			&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
		cmd.Flags().Uint64Var(
			&seed, "seed", 1, "random seed")
		cmd.Flags().BoolVarP(
			&verbose, "verbose", "v", false, "enable verbose logging")
	}

	benchCmd.Flags().IntVar(
		&benchConfig.hold, "hold", 64, "number of references each worker keeps")
	stressCmd.Flags().IntVar(
		&stressConfig.slots, "slots", 16, "number of shared slots")
	stressCmd.Flags().IntVar(
		&stressConfig.writers, "writers", 2, "number of workers repointing slots")

	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error message.
		os.Exit(1)
	}
}

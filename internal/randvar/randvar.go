// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package randvar provides the key distributions used by layoutbench.
// Generators are immutable once built; the random source is supplied on every
// draw so that each worker can own one without locking.
package randvar

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/rand"
)

// Static draws values from a fixed range [0, N).
type Static interface {
	Uint64(rng *rand.Rand) uint64
	// N returns the size of the range.
	N() uint64
}

// NewRand returns a random source seeded with seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Flag is a pflag.Value parsing a distribution of the form
// [{zipf,uniform}:]n.
type Flag struct {
	Static
	spec string
}

// NewFlag returns a Flag initialized from spec. It panics if spec is invalid.
func NewFlag(spec string) *Flag {
	f := &Flag{}
	if err := f.Set(spec); err != nil {
		panic(err)
	}
	return f
}

// String implements pflag.Value.
func (f *Flag) String() string {
	return f.spec
}

// Type implements pflag.Value.
func (f *Flag) Type() string {
	return "randvar"
}

// Set implements pflag.Value.
func (f *Flag) Set(spec string) error {
	kind, arg, ok := strings.Cut(spec, ":")
	if !ok {
		kind, arg = "uniform", spec
	}
	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid distribution %q", spec)
	}
	if n == 0 {
		return errors.Newf("invalid distribution %q: empty range", spec)
	}
	switch kind {
	case "uniform":
		f.Static = NewUniform(n)
	case "zipf":
		z, err := NewZipf(n, defaultTheta)
		if err != nil {
			return err
		}
		f.Static = z
	default:
		return errors.Newf("unknown distribution %q", kind)
	}
	f.spec = spec
	return nil
}

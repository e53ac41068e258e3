// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package randvar

import "golang.org/x/exp/rand"

// Uniform draws every value in [0, n) with equal probability.
type Uniform struct {
	n uint64
}

var _ Static = Uniform{}

// NewUniform returns a uniform generator over [0, n).
func NewUniform(n uint64) Uniform {
	return Uniform{n: n}
}

// Uint64 implements Static.
func (g Uniform) Uint64(rng *rand.Rand) uint64 {
	return rng.Uint64n(g.n)
}

// N implements Static.
func (g Uniform) N() uint64 {
	return g.n
}

// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package randvar

import (
	"math"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/rand"
)

const defaultTheta = 0.99

// Zipf draws values in [0, n) with a Zipfian skew towards small values, using
// the method from "Quickly Generating Billion-Record Synthetic Databases" by
// Gray et al., SIGMOD 1994. Unlike rand.Zipf it accepts any theta other than 1.
type Zipf struct {
	n            uint64
	theta, alpha float64
	zeta2, zetaN float64
	eta          float64
}

var _ Static = (*Zipf)(nil)

// NewZipf returns a Zipf generator over [0, n). Building it takes O(n).
func NewZipf(n uint64, theta float64) (*Zipf, error) {
	if n == 0 {
		return nil, errors.New("zipf: empty range")
	}
	if theta < 0 || theta == 1 {
		return nil, errors.Newf("zipf: theta must be >= 0 and != 1, got %f", theta)
	}
	z := &Zipf{
		n:     n,
		theta: theta,
		alpha: 1 / (1 - theta),
		zeta2: zeta(2, theta),
		zetaN: zeta(n, theta),
	}
	z.eta = (1 - math.Pow(2/float64(n), 1-theta)) / (1 - z.zeta2/z.zetaN)
	return z, nil
}

// zeta returns 1/1^theta + 1/2^theta + ... + 1/n^theta.
func zeta(n uint64, theta float64) float64 {
	var sum float64
	for i := uint64(1); i <= n; i++ {
		sum += 1 / math.Pow(float64(i), theta)
	}
	return sum
}

// Uint64 implements Static.
func (z *Zipf) Uint64(rng *rand.Rand) uint64 {
	u := rng.Float64()
	uz := u * z.zetaN
	switch {
	case uz < 1:
		return 0
	case uz < 1+math.Pow(0.5, z.theta):
		return min(1, z.n-1)
	}
	v := uint64(float64(z.n) * math.Pow(z.eta*u-z.eta+1, z.alpha))
	return min(v, z.n-1)
}

// N implements Static.
func (z *Zipf) N() uint64 {
	return z.n
}

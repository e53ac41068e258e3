// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

//go:build !linux && !darwin

package main

func peakRSS() (int64, bool) {
	return 0, false
}

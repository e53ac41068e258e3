// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

//go:build tracing

package buildtags

// Tracing indicates if the tracing tag is used.
//
// This tag enables stack tracing of every reference count change on layout
// records.
const Tracing = true

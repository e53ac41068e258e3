// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import (
	"fmt"
	"strings"

	"github.com/cephgo/layouttable/internal/base"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines an interface for writing log messages.
type Logger = base.Logger

// DefaultLogger logs to the Go stdlib logs.
type DefaultLogger = base.DefaultLogger

// NoopLogger discards informational and error messages.
type NoopLogger = base.NoopLogger

// Options holds the optional parameters for configuring a Table. The zero
// value is valid.
type Options struct {
	// Logger is used to report leaked layouts at Close. Defaults to
	// DefaultLogger.
	Logger Logger

	// MaxBytes bounds the memory held by layouts, including layouts that have
	// been released but not yet reclaimed. FindOrCreate returns an error
	// marked with ErrOutOfMemory instead of exceeding it. Zero means no limit.
	MaxBytes int64

	// Registerer, if set, is used to register the table's metrics collector
	// when the table is created. The collector is unregistered by Close.
	Registerer prometheus.Registerer
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified. Returns the new options.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger{}
	}
	return o
}

// Validate verifies that the options are mutually consistent. EnsureDefaults
// is presumed to have been called.
func (o *Options) Validate() error {
	var buf strings.Builder
	if o.MaxBytes < 0 {
		fmt.Fprintf(&buf, "MaxBytes (%d) must be >= 0\n", o.MaxBytes)
	}
	if o.MaxBytes > 0 && o.MaxBytes < layoutOverhead+headerSize {
		fmt.Fprintf(&buf, "MaxBytes (%d) must fit at least one layout (%d)\n",
			o.MaxBytes, layoutOverhead+headerSize)
	}
	if buf.Len() == 0 {
		return nil
	}
	return errors.New(buf.String())
}

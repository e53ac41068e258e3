// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package layouttable

import "github.com/cockroachdb/errors"

var (
	// ErrClosed is the panic value used when an operation is performed on a
	// closed table.
	ErrClosed = errors.New("layouttable: closed")

	// ErrOutOfMemory marks errors returned by FindOrCreate when a new record
	// would exceed Options.MaxBytes. No record is inserted in that case.
	ErrOutOfMemory = errors.New("layouttable: out of memory")

	// ErrInvalidNamespace is returned when a namespace is longer than
	// MaxNamespaceLen.
	ErrInvalidNamespace = errors.New("layouttable: invalid namespace")

	// ErrCorruption marks errors decoding a malformed layout descriptor.
	ErrCorruption = errors.New("layouttable: corruption")

	// ErrLeaked marks the error returned by Close when records were still
	// referenced.
	ErrLeaked = errors.New("layouttable: leaked layouts")
)

// corruptionErrorf formats an error marked with ErrCorruption.
func corruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

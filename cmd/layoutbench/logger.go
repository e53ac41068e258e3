// Copyright 2026 The Layouttable Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package main

import (
	"github.com/cephgo/layouttable"
	"go.uber.org/zap"
)

// zapLogger routes table log messages to zap.
type zapLogger struct {
	s *zap.SugaredLogger
}

var _ layouttable.Logger = zapLogger{}

func newZapLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (l zapLogger) Infof(format string, args ...interface{}) {
	l.s.Infof(format, args...)
}

func (l zapLogger) Errorf(format string, args ...interface{}) {
	l.s.Errorf(format, args...)
}

func (l zapLogger) Fatalf(format string, args ...interface{}) {
	l.s.Fatalf(format, args...)
}

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tlog is the logging facade used throughout tinylog. It is
// deliberately small — the feed engine and version manager only ever
// log at Debug/Info/Warn/Error — and is backed by zap the way the
// teacher's own log package backs its richer Logger interface.
//
// The teacher's github.com/luxfi/log.Logger interface was not itself
// part of the retrieved pack (only two thin re-export/no-op files
// were); implementing against an interface we have not seen risks
// fabricating method signatures, so this package defines its own
// narrow Logger interface and wraps zap directly instead.
package tlog

import "go.uber.org/zap"

// Logger is the narrow logging surface the rest of tinylog depends on.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	With(kv ...interface{}) Logger
}

// noOp is a Logger that discards everything, mirroring the teacher's
// NoLog.
type noOp struct{}

// NewNoOp returns a logger that discards everything.
func NewNoOp() Logger { return noOp{} }

func (noOp) Debug(string, ...interface{}) {}
func (noOp) Info(string, ...interface{})  {}
func (noOp) Warn(string, ...interface{})  {}
func (noOp) Error(string, ...interface{}) {}
func (n noOp) With(...interface{}) Logger { return n }

// zapLogger adapts a *zap.SugaredLogger to Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZap wraps z as a Logger.
func NewZap(z *zap.Logger) Logger {
	return zapLogger{s: z.Sugar()}
}

func (z zapLogger) Debug(msg string, kv ...interface{}) { z.s.Debugw(msg, kv...) }
func (z zapLogger) Info(msg string, kv ...interface{})  { z.s.Infow(msg, kv...) }
func (z zapLogger) Warn(msg string, kv ...interface{})  { z.s.Warnw(msg, kv...) }
func (z zapLogger) Error(msg string, kv ...interface{}) { z.s.Errorw(msg, kv...) }
func (z zapLogger) With(kv ...interface{}) Logger {
	return zapLogger{s: z.s.With(kv...)}
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rlog owns the process-wide logger. It is initialized once at
// startup by the CLI entrypoint and never reconfigured except through the
// setters declared here; no other package should construct its own zap
// logger for server diagnostics.
package rlog

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.Mutex
	log = zap.NewNop().Sugar()
)

// Options configures the process-wide logger.
type Options struct {
	Debug       bool   // verbose (debug level) logging
	RemoteDebug bool   // accepted but unused: wire packets are not logged
	NoColors    bool   // disable ANSI color in console output
	LogFile     string // optional path; empty means stderr
}

// Init installs the process-wide logger. Safe to call once at startup;
// calling it again replaces the logger for every holder of a Get() result
// obtained afterwards, but existing *zap.SugaredLogger values captured
// earlier keep their original configuration.
func Init(opt Options) error {
	level := zapcore.InfoLevel
	if opt.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if !opt.NoColors {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var ws zapcore.WriteSyncer
	if opt.LogFile != "" {
		f, err := os.OpenFile(opt.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		ws = zapcore.AddSync(f)
	} else {
		ws = zapcore.AddSync(os.Stderr)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level)
	l := zap.New(core)

	mu.Lock()
	log = l.Sugar()
	mu.Unlock()
	return nil
}

// Get returns the current process-wide logger.
func Get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return log
}

// Named returns a child logger scoped to name (e.g. "session", "ptrace").
func Named(name string) *zap.SugaredLogger {
	return Get().Named(name)
}

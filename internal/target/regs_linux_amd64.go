// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux && amd64

package target

import "golang.org/x/sys/unix"

func regsPC(regs *unix.PtraceRegs) uint64 { return regs.Rip }

func setRegsPC(regs *unix.PtraceRegs, pc uint64) { regs.Rip = pc }

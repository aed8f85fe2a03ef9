// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux && arm64

package target

import "golang.org/x/sys/unix"

// syscallOpcode is the AArch64 `svc #0` instruction.
func syscallOpcode() []byte { return []byte{0x01, 0x00, 0x00, 0xd4} }

func setSyscallRegs(regs *unix.PtraceRegs, pc uint64, nr uintptr, a1, a2, a3, a4, a5, a6 uint64) {
	regs.Pc = pc
	regs.Regs[8] = uint64(nr)
	regs.Regs[0] = a1
	regs.Regs[1] = a2
	regs.Regs[2] = a3
	regs.Regs[3] = a4
	regs.Regs[4] = a5
	regs.Regs[5] = a6
}

func syscallReturn(regs *unix.PtraceRegs) uint64 { return regs.Regs[0] }

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux && amd64

package target

import "golang.org/x/sys/unix"

// syscallOpcode is the x86-64 `syscall` instruction (0f 05).
func syscallOpcode() []byte { return []byte{0x0f, 0x05} }

func setSyscallRegs(regs *unix.PtraceRegs, pc uint64, nr uintptr, a1, a2, a3, a4, a5, a6 uint64) {
	regs.Rip = pc
	regs.Rax = uint64(nr)
	regs.Rdi = a1
	regs.Rsi = a2
	regs.Rdx = a3
	regs.R10 = a4
	regs.R8 = a5
	regs.R9 = a6
}

func syscallReturn(regs *unix.PtraceRegs) uint64 { return regs.Rax }

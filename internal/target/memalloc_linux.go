// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package target

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// AllocateMemory/DeallocateMemory implement spec.md §4.6 and the open
// question of §9: inject a small call into the target's own mmap/munmap by
// saving its register state, temporarily overwriting the instruction at its
// current PC with the architecture's syscall instruction, setting up the
// syscall ABI registers, single-stepping past the syscall, then restoring
// the original instruction bytes and the saved registers. The return value
// is read back from the
// syscall return register; a page-aligned address indicates success, and a
// small negative value (within the last page) is the negated errno,
// exactly as the Linux x86-64/arm64 mmap(2) ABI defines it. This heuristic
// is Linux-specific (spec.md §9 flags it as needing re-verification on
// other platforms, which are out of scope here per spec.md §1).
func (b *linuxBackend) AllocateMemory(pid int, size uint64, prot int) (uint64, error) {
	ret, err := b.remoteSyscall(pid, unix.SYS_MMAP, 0, size, uint64(prot),
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS, ^uint64(0), 0)
	if err != nil {
		return 0, err
	}
	if isErrnoReturn(ret) {
		return 0, fmt.Errorf("remote mmap failed: errno %d", -int64(ret))
	}
	return ret, nil
}

func (b *linuxBackend) DeallocateMemory(pid int, addr uint64, size uint64) error {
	ret, err := b.remoteSyscall(pid, unix.SYS_MUNMAP, addr, size, 0, 0, 0, 0)
	if err != nil {
		return err
	}
	if isErrnoReturn(ret) {
		return fmt.Errorf("remote munmap failed: errno %d", -int64(ret))
	}
	return nil
}

// isErrnoReturn distinguishes a kernel -errno return (a small negative
// value, never a valid page-aligned address) from a successful mmap
// address, per spec.md §9.
func isErrnoReturn(ret uint64) bool {
	v := int64(ret)
	return v < 0 && v > -4096
}

// remoteSyscall is the generic "inject one syscall" primitive used by
// AllocateMemory/DeallocateMemory: it is architecture-specific (register
// ABI for syscall args/number/PC) and implemented per-arch in
// syscall_linux_*.go.
func (b *linuxBackend) remoteSyscall(pid int, nr uintptr, a1, a2, a3, a4, a5, a6 uint64) (uint64, error) {
	var result uint64
	err := b.do(func() error {
		var saved unix.PtraceRegs
		if err := unix.PtraceGetRegs(pid, &saved); err != nil {
			return err
		}
		pc := regsPC(&saved)
		opcode := syscallOpcode()
		origCode := make([]byte, len(opcode))
		if n, err := unix.PtracePeekData(pid, uintptr(pc), origCode); err != nil || n != len(origCode) {
			return fmt.Errorf("remoteSyscall: read original opcode: %w", err)
		}
		if n, err := unix.PtracePokeData(pid, uintptr(pc), opcode); err != nil || n != len(opcode) {
			return fmt.Errorf("remoteSyscall: write syscall opcode: %w", err)
		}
		defer unix.PtracePokeData(pid, uintptr(pc), origCode)

		work := saved
		setSyscallRegs(&work, pc, nr, a1, a2, a3, a4, a5, a6)
		if err := unix.PtraceSetRegs(pid, &work); err != nil {
			return err
		}
		if err := unix.PtraceSingleStep(pid); err != nil {
			return err
		}
		var status unix.WaitStatus
		if _, err := unix.Wait4(pid, &status, 0, nil); err != nil {
			return err
		}
		var after unix.PtraceRegs
		if err := unix.PtraceGetRegs(pid, &after); err != nil {
			return err
		}
		result = syscallReturn(&after)
		return unix.PtraceSetRegs(pid, &saved)
	})
	return result, err
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package target

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

func localIOVec(b []byte) []unix.Iovec {
	if len(b) == 0 {
		return nil
	}
	return []unix.Iovec{{Base: &b[0], Len: uint64(len(b))}}
}

func remoteIOVec(addr uint64, n int) []unix.RemoteIovec {
	return []unix.RemoteIovec{{Base: uintptr(addr), Len: n}}
}

// ptraceGetSigInfo fetches the siginfo_t the kernel attached to the most
// recent stop, used by classifyStop to distinguish self-inflicted pauses
// from user interrupts per spec.md §4.7.
func ptraceGetSigInfo(pid int, info *unix.Siginfo) error {
	return unix.PtraceGetSigInfo(pid, info)
}

// siginfoPid extracts si_pid. golang.org/x/sys/unix.Siginfo exposes the
// raw union as an opaque byte array on most platforms; si_pid sits at a
// fixed offset defined by the kernel's siginfo_t layout.
func siginfoPid(info *unix.Siginfo) int32 {
	const siPidOffset = 8 // matches the kernel __pid_t si_pid field layout
	raw := (*[128]byte)(unsafe.Pointer(info))
	return int32(binary.LittleEndian.Uint32(raw[siPidOffset:]))
}

// ptraceRegsPC extracts the program counter from the architecture's
// PtraceRegs; register layout/numbering beyond this single field is out of
// scope per spec.md §1.
func ptraceRegsPC(regs *unix.PtraceRegs) uint64 {
	return regsPC(regs)
}

// ptraceRegsBytes/ptraceRegsFromBytes convert between the kernel's
// PtraceRegs struct and the opaque RegisterSnapshot byte blob the Session's
// wire codec deals in.
func ptraceRegsBytes(regs *unix.PtraceRegs) []byte {
	size := int(unsafe.Sizeof(*regs))
	raw := (*[1 << 16]byte)(unsafe.Pointer(regs))[:size:size]
	out := make([]byte, size)
	copy(out, raw)
	return out
}

func ptraceRegsFromBytes(b []byte) (*unix.PtraceRegs, error) {
	var regs unix.PtraceRegs
	size := int(unsafe.Sizeof(regs))
	if len(b) != size {
		return nil, fmt.Errorf("register snapshot has %d bytes, want %d", len(b), size)
	}
	raw := (*[1 << 16]byte)(unsafe.Pointer(&regs))[:size:size]
	copy(raw, b)
	return &regs, nil
}

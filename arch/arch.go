// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arch contains architecture-specific definitions consumed by the
// target control loop and the wire codec. The register tables themselves
// (and their code generator) are out of scope per spec.md §1; this package
// carries only the handful of facts the core needs: pointer width, byte
// order, and the bytes a software breakpoint overwrites.
package arch

import (
	"encoding/binary"
)

const MaxBreakpointSize = 4

// Architecture defines the architecture-specific details for a given machine.
type Architecture struct {
	// BreakpointSize is the size of a breakpoint instruction, in bytes.
	BreakpointSize int
	// BreakpointPCAdjust is how far the trapped PC has moved past the
	// breakpoint's address by the time the kernel reports the stop, and
	// so how far classifyStop must rewind it to recover the site address
	// and to restore the register state reported back to the client. x86's
	// INT3 leaves PC one byte past the opcode; ARM/ARM64's undefined-
	// instruction traps leave PC on the instruction itself.
	BreakpointPCAdjust int
	// IntSize is the size of the int type, in bytes.
	IntSize int
	// PointerSize is the size of a pointer, in bytes.
	PointerSize int
	// ByteOrder is the byte order for ints and pointers.
	ByteOrder       binary.ByteOrder
	BreakpointInstr [MaxBreakpointSize]byte
}

var AMD64 = Architecture{
	BreakpointSize:     1,
	BreakpointPCAdjust: 1,
	IntSize:            8,
	PointerSize:        8,
	ByteOrder:          binary.LittleEndian,
	BreakpointInstr:    [MaxBreakpointSize]byte{0xCC}, // INT 3
}

var X86 = Architecture{
	BreakpointSize:     1,
	BreakpointPCAdjust: 1,
	IntSize:            4,
	PointerSize:        4,
	ByteOrder:          binary.LittleEndian,
	BreakpointInstr:    [MaxBreakpointSize]byte{0xCC}, // INT 3
}

var ARM = Architecture{
	BreakpointSize:     4,
	BreakpointPCAdjust: 0,
	IntSize:            4,
	PointerSize:        4,
	ByteOrder:          binary.LittleEndian,
	BreakpointInstr:    [MaxBreakpointSize]byte{0xf0, 0x01, 0xf0, 0xe7}, // udf #16
}

var ARM64 = Architecture{
	BreakpointSize:     4,
	BreakpointPCAdjust: 0,
	IntSize:            8,
	PointerSize:        8,
	ByteOrder:          binary.LittleEndian,
	BreakpointInstr:    [MaxBreakpointSize]byte{0x00, 0x00, 0x20, 0xd4}, // brk #0
}

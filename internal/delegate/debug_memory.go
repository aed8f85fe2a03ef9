// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delegate

import (
	"strings"

	"github.com/rdbg/rgdbserver/internal/target"
)

func (d *DebugSessionImpl) ReadMemory(addr uint64, length int) ([]byte, error) {
	p, err := d.process()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if err := p.ReadMemory(addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *DebugSessionImpl) WriteMemory(addr uint64, data []byte) error {
	p, err := d.process()
	if err != nil {
		return err
	}
	return p.WriteMemory(addr, data)
}

// permissionBits parses an "rwx"-style permission string into the mmap
// PROT_* bitmask Process.AllocateMemory expects.
func permissionBits(permissions string) int {
	bits := 0
	if strings.ContainsRune(permissions, 'r') {
		bits |= 1
	}
	if strings.ContainsRune(permissions, 'w') {
		bits |= 2
	}
	if strings.ContainsRune(permissions, 'x') {
		bits |= 4
	}
	if bits == 0 {
		bits = 1 | 2
	}
	return bits
}

func (d *DebugSessionImpl) AllocateMemory(size uint64, permissions string) (uint64, error) {
	p, err := d.process()
	if err != nil {
		return 0, err
	}
	return p.AllocateMemory(size, permissionBits(permissions))
}

func (d *DebugSessionImpl) DeallocateMemory(addr uint64) error {
	p, err := d.process()
	if err != nil {
		return err
	}
	return p.DeallocateMemory(addr)
}

func (d *DebugSessionImpl) MemoryRegionInfo(addr uint64) (target.MemoryRegion, error) {
	p, err := d.process()
	if err != nil {
		return target.MemoryRegion{}, err
	}
	return p.MemoryRegionInfo(addr)
}

func (d *DebugSessionImpl) InsertBreakpoint(kind int, addr uint64, size int) error {
	p, err := d.process()
	if err != nil {
		return err
	}
	return p.InsertBreakpoint(kind, addr, size)
}

func (d *DebugSessionImpl) RemoveBreakpoint(kind int, addr uint64, size int) error {
	p, err := d.process()
	if err != nil {
		return err
	}
	return p.RemoveBreakpoint(kind, addr, size)
}

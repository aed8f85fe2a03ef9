// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"fmt"
	"sync"
)

// HardwareManager tracks hardware breakpoints and watchpoints (Z/z types
// 1-4 of spec.md §4.4): unlike BreakpointManager it never patches target
// memory, it only occupies one of the CPU's limited debug-register slots
// via the platform ptrace backend.
type HardwareManager struct {
	mutex sync.Mutex
	sites map[uint64]*BreakpointSite
	slots int // number of hardware debug-register slots available
}

// NewHardwareManager returns a manager with the given number of debug
// register slots (4 on x86-64, platform dependent elsewhere).
func NewHardwareManager(slots int) *HardwareManager {
	return &HardwareManager{sites: make(map[uint64]*BreakpointSite), slots: slots}
}

// Add installs a hardware site, failing with a resource error once every
// debug-register slot is occupied.
func (m *HardwareManager) Add(addr uint64, size int, mode BreakpointMode) (*BreakpointSite, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if s, ok := m.sites[addr]; ok && s.Mode == mode {
		s.RefCount++
		return s, nil
	}
	if len(m.sites) >= m.slots {
		return nil, fmt.Errorf("hardware breakpoint: no free debug register slot")
	}
	s := &BreakpointSite{Address: addr, Size: size, Mode: mode, Lifetime: LifetimePermanent, RefCount: 1}
	m.sites[addr] = s
	return s, nil
}

// Remove decrements RefCount, freeing the slot at zero.
func (m *HardwareManager) Remove(addr uint64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.sites[addr]
	if !ok {
		return fmt.Errorf("hardware breakpoint: no site at %#x", addr)
	}
	s.RefCount--
	if s.RefCount <= 0 {
		delete(m.sites, addr)
	}
	return nil
}

// FillStopInfo classifies a hardware-debug-register trap, claiming it
// (and setting the matching watchpoint Reason) before BreakpointManager
// gets a chance to treat the trap as a software breakpoint, per spec.md
// §4.7's "consult hardware-bp manager first" rule.
func (m *HardwareManager) FillStopInfo(addr uint64, si *StopInfo) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.sites[addr]
	if !ok {
		return false
	}
	switch {
	case s.Mode == ModeExec:
		si.Reason = ReasonBreakpoint
	case s.Mode&ModeWrite != 0 && s.Mode&ModeRead != 0:
		si.Reason = ReasonAccessWatchpoint
	case s.Mode&ModeWrite != 0:
		si.Reason = ReasonWriteWatchpoint
	case s.Mode&ModeRead != 0:
		si.Reason = ReasonReadWatchpoint
	default:
		return false
	}
	si.HasWatchpoint = s.Mode != ModeExec
	si.WatchpointAddr = addr
	return true
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"fmt"
	"sync"

	"github.com/rdbg/rgdbserver/arch"
)

// BreakpointMode is the {exec,read,write,read|write} mode of a
// BreakpointSite, per spec.md §3. Software breakpoints are always Exec.
type BreakpointMode int

const (
	ModeExec BreakpointMode = 1 << iota
	ModeRead
	ModeWrite
)

// BreakpointLifetime distinguishes a permanent site from a one-shot
// (temporary) one, per spec.md §3.
type BreakpointLifetime int

const (
	LifetimePermanent BreakpointLifetime = iota
	LifetimeTempOneShot
)

// BreakpointSite is one logical breakpoint request, per spec.md §3.
// Invariant: at most one Site per (address, mode) pair.
type BreakpointSite struct {
	Address  uint64
	Size     int
	Mode     BreakpointMode
	Lifetime BreakpointLifetime
	RefCount int

	enabled bool
}

// BreakpointManager is the per-process software breakpoint table of
// spec.md §4.8. Hardware breakpoints/watchpoints reuse the same shape but
// never patch memory; see HardwareManager below.
//
// Touched only from the main command-loop thread, per spec.md §5 — no
// internal locking beyond what guards concurrent reads from the resume
// wait-loop's fillStopInfo call.
type BreakpointManager struct {
	mu proc // memory accessor, set at construction

	mutex sync.Mutex
	sites map[uint64]*BreakpointSite
	// original holds the bytes each enabled site overwrote, keyed by
	// address, so disable (and the final clear()) can restore them. This
	// is the "parallel table" spec.md §3 requires for software
	// breakpoints.
	original map[uint64][]byte

	order []uint64 // add order, for enable()'s iteration
	arch  *arch.Architecture
}

// proc is the minimal memory-access surface BreakpointManager needs from
// Process, kept separate so tests can supply a fake.
type proc interface {
	ReadMemory(addr uint64, out []byte) error
	WriteMemory(addr uint64, data []byte) error
}

// NewBreakpointManager returns a manager that patches memory through mem
// using a.BreakpointInstr for software breakpoints.
func NewBreakpointManager(mem proc, a *arch.Architecture) *BreakpointManager {
	return &BreakpointManager{
		mu:       mem,
		sites:    make(map[uint64]*BreakpointSite),
		original: make(map[uint64][]byte),
		arch:     a,
	}
}

// Add installs a new site (or bumps RefCount on an existing one at the same
// address+mode), per spec.md §4.8/§8.5.
func (m *BreakpointManager) Add(addr uint64, lifetime BreakpointLifetime, size int, mode BreakpointMode) (*BreakpointSite, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := addr
	if s, ok := m.sites[key]; ok && s.Mode == mode {
		s.RefCount++
		return s, nil
	}
	if _, ok := m.sites[key]; ok {
		return nil, fmt.Errorf("breakpoint: address %#x already has a site in a different mode", addr)
	}
	s := &BreakpointSite{Address: addr, Size: size, Mode: mode, Lifetime: lifetime, RefCount: 1}
	m.sites[key] = s
	m.order = append(m.order, key)
	return s, nil
}

// Remove decrements RefCount and deletes the site (disabling it first) once
// it reaches zero.
func (m *BreakpointManager) Remove(addr uint64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sites[addr]
	if !ok {
		return fmt.Errorf("breakpoint: no site at %#x", addr)
	}
	s.RefCount--
	if s.RefCount > 0 {
		return nil
	}
	if s.enabled {
		if err := m.disableLocked(s); err != nil {
			return err
		}
	}
	delete(m.sites, addr)
	m.removeFromOrder(addr)
	return nil
}

func (m *BreakpointManager) removeFromOrder(addr uint64) {
	for i, a := range m.order {
		if a == addr {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// Enable patches every site's original bytes with the architecture's
// breakpoint opcode, in add order, per spec.md §4.8's enable algorithm.
// Thread-specific software breakpoints are not supported: thread is
// accepted for interface symmetry with hardware breakpoints but ignored
// (with a warning left to the caller), per spec.md §4.8.
func (m *BreakpointManager) Enable(thread *Thread) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, addr := range m.order {
		s := m.sites[addr]
		if s.enabled || s.Mode != ModeExec {
			continue
		}
		if err := m.enableLocked(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *BreakpointManager) enableLocked(s *BreakpointSite) error {
	orig := make([]byte, s.Size)
	if err := m.mu.ReadMemory(s.Address, orig); err != nil {
		return fmt.Errorf("breakpoint enable: read original bytes at %#x: %w", s.Address, err)
	}
	m.original[s.Address] = orig
	if err := m.mu.WriteMemory(s.Address, m.arch.BreakpointInstr[:s.Size]); err != nil {
		return fmt.Errorf("breakpoint enable: write opcode at %#x: %w", s.Address, err)
	}
	s.enabled = true
	return nil
}

// Disable restores every enabled site's original bytes. Order need not be
// LIFO, per spec.md §4.8, but each address's original bytes must be
// preserved across the enable/disable boundary.
func (m *BreakpointManager) Disable(thread *Thread) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, addr := range m.order {
		s := m.sites[addr]
		if !s.enabled {
			continue
		}
		if err := m.disableLocked(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *BreakpointManager) disableLocked(s *BreakpointSite) error {
	orig, ok := m.original[s.Address]
	if !ok {
		return fmt.Errorf("breakpoint disable: no saved bytes at %#x", s.Address)
	}
	if err := m.mu.WriteMemory(s.Address, orig); err != nil {
		return fmt.Errorf("breakpoint disable: restore bytes at %#x: %w", s.Address, err)
	}
	s.enabled = false
	return nil
}

// Clear disables and removes every site. After Clear, every address that
// was ever enabled holds its original instruction bytes (spec.md §8.5).
func (m *BreakpointManager) Clear() error {
	m.mutex.Lock()
	order := append([]uint64(nil), m.order...)
	m.mutex.Unlock()

	for _, addr := range order {
		m.mutex.Lock()
		s, ok := m.sites[addr]
		m.mutex.Unlock()
		if !ok {
			continue
		}
		if s.enabled {
			m.mutex.Lock()
			err := m.disableLocked(s)
			m.mutex.Unlock()
			if err != nil {
				return err
			}
		}
	}
	m.mutex.Lock()
	m.sites = make(map[uint64]*BreakpointSite)
	m.order = nil
	m.mutex.Unlock()
	return nil
}

// FillStopInfo sets si.Reason to ReasonBreakpoint and returns true if si's
// stop address corresponds to a known exec site, per spec.md §4.8.
func (m *BreakpointManager) FillStopInfo(addr uint64, si *StopInfo) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if s, ok := m.sites[addr]; ok && s.Mode == ModeExec {
		si.Reason = ReasonBreakpoint
		return true
	}
	return false
}

// Site returns the site at addr, if any.
func (m *BreakpointManager) Site(addr uint64) (*BreakpointSite, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.sites[addr]
	return s, ok
}

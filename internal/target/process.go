// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"fmt"
	"sync"

	"github.com/rdbg/rgdbserver/arch"
	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/rlog"
	"go.uber.org/zap"
)

// Spawner is the host-process-launch collaborator Process drives for a
// spawned (as opposed to attached) child, per spec.md §1's "process
// spawning ... specified only by the operations the core consumes".
type Spawner interface {
	// Start launches the child and returns its pid. The child is stopped
	// at its very first instruction (e.g. via PTRACE_TRACEME) so Process
	// can perform its initial wait.
	Start(path string, argv, envp []string, workdir string) (pid int, err error)
	// Stdout/Stderr deliver buffered output captured from the child; the
	// delegate forwards these as "O<hex>" packets per spec.md §4.5 step 5.
	Stdout() []byte
	Stderr() []byte
}

// backend is the platform-specific ptrace surface Process drives. Linux is
// implemented in ptrace_linux.go; other platforms are out of scope per
// spec.md §1.
type backend interface {
	Attach(pid int) error
	Detach(pid int) error
	Kill(pid int) error
	Cont(tid, signal int) error
	SingleStep(tid int) error
	Stop(tid int) error // SIGSTOP-equivalent, used by suspend()
	Wait() (waitResult, error)
	GetRegisters(tid int) (RegisterSnapshot, error)
	SetRegisters(tid int, regs RegisterSnapshot) error
	RewindPC(tid int, pc uint64) error
	ReadMemory(pid int, addr uint64, out []byte) error
	WriteMemory(pid int, addr uint64, data []byte) error
	AllocateMemory(pid int, size uint64, prot int) (addr uint64, err error)
	DeallocateMemory(pid int, addr uint64, size uint64) error
	EnumerateThreads(pid int) ([]int, error)
	AuxiliaryVector(pid int) (map[uint64]uint64, error)
	MemoryRegions(pid int) ([]MemoryRegion, error)
	LinkMap(pid int) ([]SharedLibrary, error)
}

// waitResult is what the platform backend's Wait returns for one raw OS
// wait event, before Process classifies it into a StopInfo.
type waitResult struct {
	Pid      int
	Tid      int
	Exited   bool
	ExitCode int
	Signaled bool
	Signal   int
	Stopped  bool
	StopSig  int
	StopPC   uint64 // program counter at the time of a SIGTRAP stop
	SICode   int    // si_code from the delivered siginfo
	SIPid    int    // si_pid from the delivered siginfo
	NewChild int    // nonzero if this event is a PTRACE_EVENT_CLONE
}

// MemoryRegion is one entry of spec.md §4.6's getMemoryRegionInfo reply.
type MemoryRegion struct {
	Start, Length      uint64
	Read, Write, Exec  bool
	BackingFile        string
	Offset             uint64
	Inode               uint64
	Unmapped           bool
}

// SharedLibrary is one entry of the link-map walk of spec.md §4.6.
type SharedLibrary struct {
	Name    string
	LoadBase uint64
	IsMainExecutable bool
}

// AllocationEntry records one onAllocateMemory grant, per spec.md §3, so
// the matching deallocate can recover the original size.
type AllocationEntry struct {
	Address uint64
	Size    uint64
}

// Process is the abstract, OS-backed tracee of spec.md §4.6.
type Process struct {
	log *zap.SugaredLogger

	arch    *arch.Architecture
	backend backend

	mu       sync.Mutex
	pid      int
	attached bool // true if attached (not owned on exit), false if spawned
	threads  map[int]*Thread
	current  *Thread

	signalPassThrough map[int]bool

	softBP *BreakpointManager
	hardBP *HardwareManager

	spawner Spawner
	exited  bool

	allocations map[uint64]uint64

	auxvCache map[uint64]uint64
}

// NewProcess wraps pid (already attached or spawned by caller) for control
// through the given backend/arch.
func NewProcess(pid int, a *arch.Architecture, be backend) *Process {
	p := &Process{
		arch:              a,
		backend:           be,
		pid:               pid,
		threads:           make(map[int]*Thread),
		signalPassThrough: make(map[int]bool),
		allocations:       make(map[uint64]uint64),
		log:               rlog.Named("target"),
	}
	p.softBP = NewBreakpointManager(p, a)
	p.hardBP = NewHardwareManager(4)
	return p
}

func (p *Process) Pid() int { return p.pid }

func (p *Process) Attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attached
}

// Attach implements spec.md §4.6's attach: it ptrace-attaches the process's
// main thread (p.pid), records every thread listed in /proc/<pid>/task
// (re-enumerating until no new ones appear, to catch concurrently spawned
// threads), and waits for the initial stop. Only the main thread is
// ptrace-attached; the other recorded threads are not attached individually.
func (p *Process) Attach() error {
	if err := p.backend.Attach(p.pid); err != nil {
		return rdbgerr.New("attach", rdbgerr.KProcessNotFound, err)
	}
	for {
		tids, err := p.backend.EnumerateThreads(p.pid)
		if err != nil {
			return rdbgerr.New("attach", rdbgerr.KUnknown, err)
		}
		added := false
		p.mu.Lock()
		for _, tid := range tids {
			if _, ok := p.threads[tid]; !ok {
				t := newThread(p, tid)
				t.setState(ThreadRunning)
				p.threads[tid] = t
				added = true
			}
		}
		p.mu.Unlock()
		if !added {
			break
		}
	}
	if _, err := p.Wait(); err != nil {
		return err
	}
	p.mu.Lock()
	p.attached = true
	p.mu.Unlock()
	return nil
}

// AdoptSpawned registers a process Process did not attach to but launched
// itself via sp (the attached flag stays false, matching spec.md §3's
// lifecycle note).
func (p *Process) AdoptSpawned(sp Spawner) {
	p.mu.Lock()
	p.spawner = sp
	p.mu.Unlock()
}

// CurrentThread is the thread whose stop caused the last Wait to return.
func (p *Process) CurrentThread() *Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Thread looks up a thread by tid.
func (p *Process) Thread(tid int) (*Thread, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.threads[tid]
	return t, ok
}

// Threads returns a snapshot slice of every known thread.
func (p *Process) Threads() []*Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Thread, 0, len(p.threads))
	for _, t := range p.threads {
		out = append(out, t)
	}
	return out
}

// Resume resumes every thread not named in excluded, with the given signal
// (0 for none), per spec.md §4.6.
func (p *Process) Resume(signal int, excluded map[int]bool) error {
	p.mu.Lock()
	threads := make([]*Thread, 0, len(p.threads))
	for _, t := range p.threads {
		if !excluded[t.Tid()] {
			threads = append(threads, t)
		}
	}
	p.mu.Unlock()
	for _, t := range threads {
		if t.State() == ThreadTerminated {
			continue
		}
		if err := p.backend.Cont(t.Tid(), signal); err != nil {
			return rdbgerr.New("resume", rdbgerr.KUnknown, err)
		}
		t.setState(ThreadRunning)
	}
	return nil
}

// StepThread single-steps one thread.
func (p *Process) StepThread(t *Thread, signal int) error {
	if err := p.backend.SingleStep(t.Tid()); err != nil {
		return rdbgerr.New("step", rdbgerr.KUnknown, err)
	}
	t.setState(ThreadRunning)
	return nil
}

// Suspend is the symmetric counterpart to Resume: SIGSTOP-equivalent every
// running thread and wait each individually, per spec.md §4.6.
func (p *Process) Suspend() error {
	for _, t := range p.Threads() {
		if t.State() != ThreadRunning {
			continue
		}
		if err := p.backend.Stop(t.Tid()); err != nil {
			return rdbgerr.New("suspend", rdbgerr.KUnknown, err)
		}
	}
	for _, t := range p.Threads() {
		if t.State() != ThreadRunning {
			continue
		}
		if _, err := p.waitOne(); err != nil {
			return err
		}
	}
	return nil
}

// GetRegisters reads tid's full register set.
func (p *Process) GetRegisters(tid int) (RegisterSnapshot, error) {
	regs, err := p.backend.GetRegisters(tid)
	if err != nil {
		return RegisterSnapshot{}, rdbgerr.New("getRegisters", rdbgerr.KUnknown, err)
	}
	return regs, nil
}

// SetRegisters writes tid's full register set.
func (p *Process) SetRegisters(tid int, regs RegisterSnapshot) error {
	if err := p.backend.SetRegisters(tid, regs); err != nil {
		return rdbgerr.New("setRegisters", rdbgerr.KUnknown, err)
	}
	return nil
}

// InsertBreakpoint adds and (for exec sites) enables a breakpoint site at
// addr, dispatching to the software or hardware manager per kind, per
// spec.md §4.4's Z packet: 0=software, 1=hardware, 2=write-watch,
// 3=read-watch, 4=access-watch.
func (p *Process) InsertBreakpoint(kind int, addr uint64, size int) error {
	switch kind {
	case 0:
		if _, err := p.softBP.Add(addr, LifetimePermanent, size, ModeExec); err != nil {
			return rdbgerr.New("insertBreakpoint", rdbgerr.KUnknown, err)
		}
		if err := p.softBP.Enable(nil); err != nil {
			return rdbgerr.New("insertBreakpoint", rdbgerr.KUnknown, err)
		}
		return nil
	case 1, 2, 3, 4:
		mode := hardwareModeForKind(kind)
		if _, err := p.hardBP.Add(addr, size, mode); err != nil {
			return rdbgerr.New("insertBreakpoint", rdbgerr.KNoMemory, err)
		}
		return nil
	default:
		return rdbgerr.New("insertBreakpoint", rdbgerr.KInvalidArgument, fmt.Errorf("unknown breakpoint type %d", kind))
	}
}

// RemoveBreakpoint is the inverse of InsertBreakpoint.
func (p *Process) RemoveBreakpoint(kind int, addr uint64, size int) error {
	switch kind {
	case 0:
		if err := p.softBP.Remove(addr); err != nil {
			return rdbgerr.New("removeBreakpoint", rdbgerr.KNotFound, err)
		}
		return nil
	case 1, 2, 3, 4:
		if err := p.hardBP.Remove(addr); err != nil {
			return rdbgerr.New("removeBreakpoint", rdbgerr.KNotFound, err)
		}
		return nil
	default:
		return rdbgerr.New("removeBreakpoint", rdbgerr.KInvalidArgument, fmt.Errorf("unknown breakpoint type %d", kind))
	}
}

func hardwareModeForKind(kind int) BreakpointMode {
	switch kind {
	case 1:
		return ModeExec
	case 2:
		return ModeWrite
	case 3:
		return ModeRead
	case 4:
		return ModeRead | ModeWrite
	default:
		return ModeExec
	}
}

// Terminate kills every thread group, per spec.md §4.5's vKill handler.
func (p *Process) Terminate() error {
	if err := p.backend.Kill(p.pid); err != nil {
		return rdbgerr.New("terminate", rdbgerr.KUnknown, err)
	}
	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()
	return nil
}

// Detach releases ptrace control, leaving the process running (for
// attached-not-owned processes), per spec.md §3.
func (p *Process) Detach() error {
	if err := p.backend.Detach(p.pid); err != nil {
		return rdbgerr.New("detach", rdbgerr.KUnknown, err)
	}
	return nil
}

// ReadMemory/WriteMemory satisfy the `proc` interface BreakpointManager
// needs, and are also called directly by the m/M/x/X handlers.
func (p *Process) ReadMemory(addr uint64, out []byte) error {
	if err := p.backend.ReadMemory(p.pid, addr, out); err != nil {
		return rdbgerr.New("readMemory", rdbgerr.KInvalidAddress, err)
	}
	return nil
}

func (p *Process) WriteMemory(addr uint64, data []byte) error {
	if err := p.backend.WriteMemory(p.pid, addr, data); err != nil {
		return rdbgerr.New("writeMemory", rdbgerr.KInvalidAddress, err)
	}
	return nil
}

// AllocateMemory injects a remote mmap call, per spec.md §4.6 and the open
// question in §9 (Linux return-value heuristic, see memalloc_linux.go).
func (p *Process) AllocateMemory(size uint64, protection int) (uint64, error) {
	addr, err := p.backend.AllocateMemory(p.pid, size, protection)
	if err != nil {
		return 0, rdbgerr.New("allocateMemory", rdbgerr.KNoMemory, err)
	}
	p.mu.Lock()
	p.allocations[addr] = size
	p.mu.Unlock()
	return addr, nil
}

// DeallocateMemory looks up the matching AllocateMemory call so the
// original size can be given back to munmap, per spec.md §4.5's invariant.
func (p *Process) DeallocateMemory(addr uint64) error {
	p.mu.Lock()
	size, ok := p.allocations[addr]
	if ok {
		delete(p.allocations, addr)
	}
	p.mu.Unlock()
	if !ok {
		return rdbgerr.New("deallocateMemory", rdbgerr.KInvalidArgument, fmt.Errorf("no allocation at %#x", addr))
	}
	if err := p.backend.DeallocateMemory(p.pid, addr, size); err != nil {
		return rdbgerr.New("deallocateMemory", rdbgerr.KUnknown, err)
	}
	return nil
}

// MemoryRegionInfo implements spec.md §4.6's getMemoryRegionInfo, returning
// a synthetic hole entry when addr lies in unmapped space.
func (p *Process) MemoryRegionInfo(addr uint64) (MemoryRegion, error) {
	regions, err := p.backend.MemoryRegions(p.pid)
	if err != nil {
		return MemoryRegion{}, rdbgerr.New("memoryRegionInfo", rdbgerr.KUnknown, err)
	}
	for _, r := range regions {
		if addr >= r.Start && addr < r.Start+r.Length {
			return r, nil
		}
	}
	// No mapping contains addr: report the gap up to the next mapping (or
	// to the top of the address space) as a synthetic unmapped hole.
	next := ^uint64(0)
	for _, r := range regions {
		if r.Start > addr && r.Start < next {
			next = r.Start
		}
	}
	return MemoryRegion{Start: addr, Length: next - addr, Unmapped: true}, nil
}

// SharedLibraries returns the loaded objects the backend's LinkMap reports,
// per spec.md §4.6. On Linux these are the distinct backing files of
// /proc/<pid>/maps; the dynamic linker's DT_DEBUG -> r_debug.r_map chain is
// not walked. A Busy error (no backing files mapped yet) recovers locally
// per spec.md §7: the caller retries on the next qXfer:libraries:read.
func (p *Process) SharedLibraries() ([]SharedLibrary, error) {
	libs, err := p.backend.LinkMap(p.pid)
	if err != nil {
		return nil, rdbgerr.New("sharedLibraries", rdbgerr.KBusy, err)
	}
	return libs, nil
}

// AuxiliaryVector returns (and caches) the process's auxv, per spec.md §4.6.
func (p *Process) AuxiliaryVector() (map[uint64]uint64, error) {
	p.mu.Lock()
	if p.auxvCache != nil {
		defer p.mu.Unlock()
		return p.auxvCache, nil
	}
	p.mu.Unlock()

	av, err := p.backend.AuxiliaryVector(p.pid)
	if err != nil {
		return nil, rdbgerr.New("auxv", rdbgerr.KUnknown, err)
	}
	p.mu.Lock()
	p.auxvCache = av
	p.mu.Unlock()
	return av, nil
}

// SetSignalPassThrough implements QPassSignals: these signals are
// delivered to the tracee instead of being reported to the debugger.
func (p *Process) SetSignalPassThrough(signals []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signalPassThrough = make(map[int]bool, len(signals))
	for _, s := range signals {
		p.signalPassThrough[s] = true
	}
}

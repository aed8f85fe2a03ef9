// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"testing"

	"github.com/rdbg/rgdbserver/arch"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeWaitBackend is a no-op backend satisfying the full backend interface,
// recording RewindPC calls so classifyStop's breakpoint-PC fixup can be
// asserted against.
type fakeWaitBackend struct {
	rewoundTid int
	rewoundPC  uint64
	rewindErr  error
}

func (f *fakeWaitBackend) Attach(int) error    { return nil }
func (f *fakeWaitBackend) Detach(int) error    { return nil }
func (f *fakeWaitBackend) Kill(int) error      { return nil }
func (f *fakeWaitBackend) Cont(int, int) error { return nil }
func (f *fakeWaitBackend) SingleStep(int) error { return nil }
func (f *fakeWaitBackend) Stop(int) error      { return nil }
func (f *fakeWaitBackend) Wait() (waitResult, error) { return waitResult{}, nil }
func (f *fakeWaitBackend) GetRegisters(int) (RegisterSnapshot, error) {
	return RegisterSnapshot{}, nil
}
func (f *fakeWaitBackend) SetRegisters(int, RegisterSnapshot) error { return nil }
func (f *fakeWaitBackend) RewindPC(tid int, pc uint64) error {
	f.rewoundTid = tid
	f.rewoundPC = pc
	return f.rewindErr
}
func (f *fakeWaitBackend) ReadMemory(int, uint64, []byte) error  { return nil }
func (f *fakeWaitBackend) WriteMemory(int, uint64, []byte) error { return nil }
func (f *fakeWaitBackend) AllocateMemory(int, uint64, int) (uint64, error) {
	return 0, nil
}
func (f *fakeWaitBackend) DeallocateMemory(int, uint64, uint64) error { return nil }
func (f *fakeWaitBackend) EnumerateThreads(int) ([]int, error)       { return nil, nil }
func (f *fakeWaitBackend) AuxiliaryVector(int) (map[uint64]uint64, error) {
	return nil, nil
}
func (f *fakeWaitBackend) MemoryRegions(int) ([]MemoryRegion, error)  { return nil, nil }
func (f *fakeWaitBackend) LinkMap(int) ([]SharedLibrary, error)       { return nil, nil }

// TestClassifyStopRewindsSoftwareBreakpointPC drives a simulated amd64 INT3
// trap (StopPC one byte past the patched address, as PTRACE_GETREGS reports
// it) through classifyStop and checks that the site lookup succeeds against
// the rewound address and that the thread's live PC is corrected to match.
func TestClassifyStopRewindsSoftwareBreakpointPC(t *testing.T) {
	be := &fakeWaitBackend{}
	p := NewProcess(100, &arch.AMD64, be)
	const siteAddr = 0x401000
	_, err := p.softBP.Add(siteAddr, LifetimePermanent, 1, ModeExec)
	require.NoError(t, err)

	th := newThread(p, 100)
	wr := waitResult{
		Pid:     100,
		Tid:     100,
		Stopped: true,
		StopSig: int(unix.SIGTRAP),
		SICode:  0,
		StopPC:  siteAddr + 1, // INT3 advances RIP by its own width
	}

	si, reportable := p.classifyStop(th, wr)
	require.True(t, reportable)
	require.Equal(t, ReasonBreakpoint, si.Reason)
	require.Equal(t, 100, be.rewoundTid)
	require.Equal(t, uint64(siteAddr), be.rewoundPC)
}

// TestClassifyStopDoesNotRewindUnmatchedTrap checks that a plain SIGTRAP
// stop with no breakpoint installed at the implied address falls through to
// ReasonTrap without ever touching the thread's registers.
func TestClassifyStopDoesNotRewindUnmatchedTrap(t *testing.T) {
	be := &fakeWaitBackend{}
	p := NewProcess(100, &arch.AMD64, be)
	th := newThread(p, 100)
	wr := waitResult{
		Pid:     100,
		Tid:     100,
		Stopped: true,
		StopSig: int(unix.SIGTRAP),
		SICode:  0,
		StopPC:  0x777001,
	}

	si, reportable := p.classifyStop(th, wr)
	require.True(t, reportable)
	require.Equal(t, ReasonTrap, si.Reason)
	require.Equal(t, 0, be.rewoundTid)
}

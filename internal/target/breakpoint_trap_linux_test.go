// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package target

import (
	"os/exec"
	"syscall"
	"testing"

	"github.com/rdbg/rgdbserver/arch"
	"github.com/stretchr/testify/require"
)

// execSpawner is a minimal Spawner, just enough to drive a real
// PTRACE_TRACEME child for this test without pulling in internal/host.
type execSpawner struct {
	cmd *exec.Cmd
}

func (s *execSpawner) Start(path string, argv, envp []string, workdir string) (int, error) {
	cmd := exec.Command(path)
	cmd.Args = argv
	cmd.Env = envp
	cmd.Dir = workdir
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	s.cmd = cmd
	return cmd.Process.Pid, nil
}

func (s *execSpawner) Stdout() []byte { return nil }
func (s *execSpawner) Stderr() []byte { return nil }

func mustRegsPC(t *testing.T, snap RegisterSnapshot) uint64 {
	t.Helper()
	regs, err := ptraceRegsFromBytes(snap.Raw)
	require.NoError(t, err)
	return ptraceRegsPC(regs)
}

// TestProcessSoftwareBreakpointRewindsLivePC drives a real ptrace trap
// through Process.Wait/classifyStop end to end, the scenario classifyStop's
// unit test fakes: a software breakpoint planted at the thread's current
// PC must both classify as ReasonBreakpoint and leave the thread's live PC
// (as read back via GetRegisters) at the breakpoint's address, not one
// byte past it.
func TestProcessSoftwareBreakpointRewindsLivePC(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	sp := &execSpawner{}
	pid, err := sp.Start("sleep", []string{"sleep", "5"}, nil, "")
	if err != nil {
		t.Skipf("ptrace spawn unavailable in this environment: %v", err)
	}

	p := NewLinuxProcess(pid, &arch.AMD64)
	p.AdoptSpawned(sp)
	defer p.Terminate()

	if _, err := p.Wait(); err != nil {
		t.Skipf("initial wait failed in this environment: %v", err)
	}

	th := p.CurrentThread()
	require.NotNil(t, th)

	regs, err := p.GetRegisters(th.Tid())
	require.NoError(t, err)
	pc := mustRegsPC(t, regs)

	require.NoError(t, p.InsertBreakpoint(0, pc, arch.AMD64.BreakpointSize))

	require.NoError(t, p.Resume(0, nil))
	si, err := p.Wait()
	require.NoError(t, err)
	require.Equal(t, ReasonBreakpoint, si.Reason)

	after, err := p.GetRegisters(si.Tid)
	require.NoError(t, err)
	require.Equal(t, pc, mustRegsPC(t, after),
		"live PC after a software breakpoint trap must be rewound to the breakpoint address")
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package target

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// linuxBackend is the Linux ptrace implementation of the backend interface.
//
// Grounded on the teacher's program/server/ptrace.go: every ptrace call
// (and every other call that must run on the thread that attached) is
// funneled through a single OS thread pinned with runtime.LockOSThread,
// via an unbuffered function/error channel pair. Generalized here from a
// single-process single-closure design to a reusable executor serving the
// whole backend interface.
type linuxBackend struct {
	fc chan func() error
	ec chan error
}

// newLinuxBackend starts the dedicated ptrace goroutine and returns the
// backend. Exactly one linuxBackend exists per debugged process.
func newLinuxBackend() *linuxBackend {
	b := &linuxBackend{fc: make(chan func() error), ec: make(chan error)}
	go b.run()
	return b
}

func (b *linuxBackend) run() {
	runtime.LockOSThread()
	for f := range b.fc {
		b.ec <- f()
	}
}

func (b *linuxBackend) do(f func() error) error {
	b.fc <- f
	return <-b.ec
}

func (b *linuxBackend) Attach(pid int) error {
	return b.do(func() error { return unix.PtraceAttach(pid) })
}

func (b *linuxBackend) Detach(pid int) error {
	return b.do(func() error { return unix.PtraceDetach(pid) })
}

func (b *linuxBackend) Kill(pid int) error {
	return b.do(func() error { return unix.Kill(pid, unix.SIGKILL) })
}

func (b *linuxBackend) Cont(tid, signal int) error {
	return b.do(func() error { return unix.PtraceCont(tid, signal) })
}

func (b *linuxBackend) SingleStep(tid int) error {
	return b.do(func() error { return unix.PtraceSingleStep(tid) })
}

func (b *linuxBackend) Stop(tid int) error {
	return b.do(func() error { return unix.Tgkill(tid, tid, unix.SIGSTOP) })
}

func (b *linuxBackend) Wait() (waitResult, error) {
	var status unix.WaitStatus
	var rusage unix.Rusage
	var pid int
	err := b.do(func() error {
		p, werr := unix.Wait4(-1, &status, 0, &rusage)
		pid = p
		return werr
	})
	if err != nil {
		return waitResult{}, err
	}

	wr := waitResult{Pid: pid, Tid: pid}
	switch {
	case status.Exited():
		wr.Exited = true
		wr.ExitCode = status.ExitStatus()
	case status.Signaled():
		wr.Signaled = true
		wr.Signal = int(status.Signal())
	case status.Stopped():
		wr.Stopped = true
		sig := status.StopSignal()
		wr.StopSig = int(sig)
		if event := status.TrapCause(); event == unix.PTRACE_EVENT_CLONE {
			wr.NewChild = 1
		}
		if sig == unix.SIGTRAP {
			var siginfo unix.Siginfo
			if gerr := b.do(func() error { return ptraceGetSigInfo(pid, &siginfo) }); gerr == nil {
				wr.SICode = int(siginfo.Code)
				wr.SIPid = int(siginfoPid(&siginfo))
			}
			var regs unix.PtraceRegs
			if gerr := b.do(func() error { return unix.PtraceGetRegs(pid, &regs) }); gerr == nil {
				wr.StopPC = ptraceRegsPC(&regs)
			}
		}
	}
	return wr, nil
}

// RewindPC writes pc back into tid's program counter, used by classifyStop
// to undo the kernel's post-INT3 RIP advance once a software breakpoint hit
// is confirmed, so both the classification and every later register read
// agree on the address the breakpoint actually sits at.
func (b *linuxBackend) RewindPC(tid int, pc uint64) error {
	return b.do(func() error {
		var regs unix.PtraceRegs
		if err := unix.PtraceGetRegs(tid, &regs); err != nil {
			return err
		}
		setRegsPC(&regs, pc)
		return unix.PtraceSetRegs(tid, &regs)
	})
}

func (b *linuxBackend) GetRegisters(tid int) (RegisterSnapshot, error) {
	var regs unix.PtraceRegs
	err := b.do(func() error { return unix.PtraceGetRegs(tid, &regs) })
	if err != nil {
		return RegisterSnapshot{}, err
	}
	return RegisterSnapshot{Raw: ptraceRegsBytes(&regs)}, nil
}

func (b *linuxBackend) SetRegisters(tid int, snap RegisterSnapshot) error {
	regs, err := ptraceRegsFromBytes(snap.Raw)
	if err != nil {
		return err
	}
	return b.do(func() error { return unix.PtraceSetRegs(tid, regs) })
}

func (b *linuxBackend) ReadMemory(pid int, addr uint64, out []byte) error {
	if len(out) > 8 {
		n, err := unix.ProcessVMReadv(pid, localIOVec(out), remoteIOVec(addr, len(out)), 0)
		if err == nil && n == len(out) {
			return nil
		}
	}
	// Fall back to ptrace-word transfers, which also bypass page
	// protection bits (needed when writing software breakpoints, but
	// just as valid here for a uniform read path).
	return b.do(func() error {
		n, err := unix.PtracePeekData(pid, uintptr(addr), out)
		if err != nil {
			return err
		}
		if n != len(out) {
			return fmt.Errorf("short ptrace peek: got %d want %d", n, len(out))
		}
		return nil
	})
}

func (b *linuxBackend) WriteMemory(pid int, addr uint64, data []byte) error {
	if len(data) > 8 {
		n, err := unix.ProcessVMWritev(pid, localIOVec(data), remoteIOVec(addr, len(data)), 0)
		if err == nil && n == len(data) {
			return nil
		}
	}
	// ptrace-word write: required for software breakpoints over
	// read-only code pages, per spec.md §4.6.
	return b.do(func() error {
		n, err := unix.PtracePokeData(pid, uintptr(addr), data)
		if err != nil {
			return err
		}
		if n != len(data) {
			return fmt.Errorf("short ptrace poke: wrote %d want %d", n, len(data))
		}
		return nil
	})
}

func (b *linuxBackend) EnumerateThreads(pid int) ([]int, error) {
	entries, err := os.ReadDir(fmt.Sprintf("/proc/%d/task", pid))
	if err != nil {
		return nil, err
	}
	tids := make([]int, 0, len(entries))
	for _, e := range entries {
		var tid int
		if _, err := fmt.Sscanf(e.Name(), "%d", &tid); err == nil {
			tids = append(tids, tid)
		}
	}
	return tids, nil
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import "golang.org/x/sys/unix"

// Wait blocks until a reportable event occurs on any tracee thread,
// silently resuming the affected thread on transient internal events
// (thread spawn, our own pause-for-suspend SIGSTOP), per spec.md §4.6 and
// §7's "local recovery" rule. It returns the StopInfo of the first
// reportable event.
func (p *Process) Wait() (StopInfo, error) {
	for {
		si, reportable, err := p.waitOne()
		if err != nil {
			return StopInfo{}, err
		}
		if reportable {
			return si, nil
		}
		// Transient: the thread has already been silently resumed by
		// waitOne's classification step.
	}
}

// waitOne performs exactly one OS wait, classifies it, updates thread
// state, and reports whether the event should be surfaced to the caller.
func (p *Process) waitOne() (StopInfo, bool, error) {
	wr, err := p.backend.Wait()
	if err != nil {
		return StopInfo{}, false, err
	}

	p.mu.Lock()
	t, known := p.threads[wr.Tid]
	if !known {
		t = newThread(p, wr.Tid)
		p.threads[wr.Tid] = t
	}
	p.mu.Unlock()

	switch {
	case wr.Exited:
		t.setState(ThreadTerminated)
		si := StopInfo{Event: EventExit, Reason: ReasonNone, ExitStatus: wr.ExitCode, Pid: wr.Pid, Tid: wr.Tid}
		t.setLastStopInfo(si)
		p.mu.Lock()
		p.current = t
		p.mu.Unlock()
		return si, true, nil

	case wr.Signaled:
		t.setState(ThreadTerminated)
		si := StopInfo{Event: EventKill, Reason: ReasonNone, Signal: wr.Signal, Pid: wr.Pid, Tid: wr.Tid}
		t.setLastStopInfo(si)
		p.mu.Lock()
		p.current = t
		p.mu.Unlock()
		return si, true, nil

	case wr.Stopped:
		si, reportable := p.classifyStop(t, wr)
		t.setLastStopInfo(si)
		if reportable {
			p.mu.Lock()
			p.current = t
			p.mu.Unlock()
			t.setState(ThreadStopped)
			return si, true, nil
		}
		// Transient: resume the thread and let the caller's loop spin.
		if err := p.backend.Cont(t.Tid(), 0); err != nil {
			return StopInfo{}, false, err
		}
		t.setState(ThreadRunning)
		return StopInfo{}, false, nil

	default:
		return StopInfo{}, false, nil
	}
}

// classifyStop implements the Linux-style classification table of
// spec.md §4.7.
func (p *Process) classifyStop(t *Thread, wr waitResult) (StopInfo, bool) {
	si := StopInfo{Event: EventStop, Pid: wr.Pid, Tid: wr.Tid, Signal: wr.StopSig}

	if wr.NewChild != 0 {
		si.Reason = ReasonThreadSpawn
		return si, false // internal: PTRACE_O_TRACECLONE observation
	}

	switch {
	case wr.StopSig == int(unix.SIGSTOP) && wr.SICode == sigCodeTKill && wr.SIPid == p.pid:
		si.Reason = ReasonNone // self-inflicted pause for suspend()
		return si, false

	case wr.StopSig == int(unix.SIGSTOP) && wr.SICode == sigCodeUser && wr.SIPid == p.pid:
		si.Reason = ReasonSignalStop // user hit Ctrl-C
		return si, true

	case wr.StopSig == int(unix.SIGSTOP) && wr.SICode == sigCodeUser && wr.SIPid == 0:
		si.Reason = ReasonTrap // initial attach stop
		return si, true

	case wr.StopSig == int(unix.SIGTRAP) && (wr.SICode == 0 || wr.SICode == sigCodeTrapBrkpt || wr.SICode == sigCodeKernel):
		if p.hardBP.FillStopInfo(wr.StopPC, &si) {
			return si, true
		}
		// A software breakpoint's trap PC has already moved past the
		// patched instruction (e.g. amd64's INT3 advances RIP by one),
		// so sites — keyed by the address actually patched — must be
		// looked up at the rewound PC, not the raw trap PC.
		bpPC := wr.StopPC - uint64(p.arch.BreakpointPCAdjust)
		if p.softBP.FillStopInfo(bpPC, &si) {
			if p.arch.BreakpointPCAdjust != 0 {
				if err := p.backend.RewindPC(t.Tid(), bpPC); err != nil {
					p.log.Warnw("rewind PC after breakpoint trap", "tid", t.Tid(), "err", err)
				}
			}
			return si, true
		}
		si.Reason = ReasonTrap
		return si, true

	case wr.StopSig == int(unix.SIGTRAP) && (wr.SICode == sigCodeTrapHWBkpt || wr.SICode == sigCodeTrapTrace):
		if p.hardBP.FillStopInfo(wr.StopPC, &si) {
			return si, true
		}
		si.Reason = ReasonTrace
		return si, true

	default:
		si.Reason = ReasonSignalStop
		return si, true
	}
}

// si_code values consulted by classifyStop, named per spec.md §4.7.
const (
	sigCodeUser       = 0   // SI_USER
	sigCodeKernel     = 0x80 // SI_KERNEL
	sigCodeTKill      = -6  // SI_TKILL
	sigCodeTrapBrkpt  = 1   // TRAP_BRKPT
	sigCodeTrapTrace  = 2   // TRAP_TRACE
	sigCodeTrapHWBkpt = 4   // TRAP_HWBKPT
)

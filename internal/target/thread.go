// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import "sync"

// ThreadState is the per-thread state machine of spec.md §4.7.
type ThreadState int

const (
	ThreadInvalid ThreadState = iota
	ThreadRunning
	ThreadStopped
	ThreadStepped
	ThreadTerminated
)

func (s ThreadState) String() string {
	switch s {
	case ThreadRunning:
		return "Running"
	case ThreadStopped:
		return "Stopped"
	case ThreadStepped:
		return "Stepped"
	case ThreadTerminated:
		return "Terminated"
	default:
		return "Invalid"
	}
}

// Thread is a single tracee thread. Process owns every Thread by tid; a
// Thread holds only a non-owning back-reference, which invalidate clears,
// resolving the Process<->Thread cycle per spec.md §9. Process itself never
// calls invalidate.
type Thread struct {
	mu sync.Mutex

	tid   int
	state ThreadState
	proc  *Process // non-owning; cleared by invalidate

	lastStop StopInfo
	name     string
}

func newThread(proc *Process, tid int) *Thread {
	return &Thread{tid: tid, proc: proc, state: ThreadInvalid}
}

// Tid returns the thread id (also called "port" on some platforms).
func (t *Thread) Tid() int { return t.tid }

// State returns the thread's current state.
func (t *Thread) State() ThreadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// setState performs one of the transitions in the table of spec.md §4.7.
// Callers (Process) are responsible for only requesting legal transitions;
// setState does not itself validate the table since every caller site is
// already state-machine aware.
func (t *Thread) setState(s ThreadState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// LastStopInfo returns the StopInfo that most recently moved this thread out
// of Running.
func (t *Thread) LastStopInfo() StopInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastStop
}

func (t *Thread) setLastStopInfo(si StopInfo) {
	t.mu.Lock()
	t.lastStop = si
	t.mu.Unlock()
}

// invalidate severs the back-reference to Process and marks the thread
// Invalid, per spec.md §9.
func (t *Thread) invalidate() {
	t.mu.Lock()
	t.proc = nil
	t.state = ThreadInvalid
	t.mu.Unlock()
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package target implements the ptrace-backed process/thread state machine
// of spec.md §4.6-§4.8: attach, resume/step, wait, stop classification,
// software breakpoints, and shared-library enumeration.
//
// Grounded on the teacher's program/server/ptrace.go (dedicated-goroutine
// ptrace executor) and cross-checked against the thread state machines of
// the delve forks under _examples/other_examples (proc-proc.go.go,
// proc-threads.go.go) for the attach/resume/wait/classify shape.
package target

// EventKind is the top-level classification of a StopInfo, per spec.md §3.
type EventKind int

const (
	EventNone EventKind = iota
	EventStop
	EventExit
	EventKill
)

// StopReason refines an EventStop, per spec.md §3.
type StopReason int

const (
	ReasonNone StopReason = iota
	ReasonTrap
	ReasonBreakpoint
	ReasonTrace
	ReasonSignalStop
	ReasonReadWatchpoint
	ReasonWriteWatchpoint
	ReasonAccessWatchpoint
	ReasonThreadSpawn
	ReasonThreadExit
	ReasonLibraryEvent
	ReasonMemoryError
	ReasonMathError
	ReasonInstructionError
	ReasonDebugOutput
	ReasonUserException
)

// StopInfo is the tagged record of spec.md §3.
type StopInfo struct {
	Event  EventKind
	Reason StopReason

	Signal     int
	ExitStatus int
	Pid        int
	Tid        int
	ThreadName string
	Core       int

	Registers RegisterSnapshot
	LiveTids  []int

	WatchpointAddr  uint64
	WatchpointIndex int
	HasWatchpoint   bool

	DebugString string
	HasDebugString bool
}

// RegisterSnapshot is an opaque, architecture-shaped blob of CPU state: the
// register table itself is out of scope per spec.md §1, so target only
// carries it opaquely between ptrace and the wire codec (internal/session).
type RegisterSnapshot struct {
	// Raw holds the architecture's native register struct (the kernel's
	// PtraceRegs), copied byte for byte in its own field order. Populated by the
	// platform-specific ptrace backend.
	Raw []byte
}

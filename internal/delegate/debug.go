// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package delegate implements session.SessionDelegate: DebugSessionImpl
// (spec.md §4.5), which owns a target.Process, and PlatformSessionImpl
// (spec.md's platform-mode component), which serves process listing,
// remote shell, and gdbserver-launching without owning any target.
package delegate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rdbg/rgdbserver/arch"
	"github.com/rdbg/rgdbserver/internal/host"
	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/rlog"
	"github.com/rdbg/rgdbserver/internal/rsp"
	"github.com/rdbg/rgdbserver/internal/session"
	"github.com/rdbg/rgdbserver/internal/target"
	"go.uber.org/zap"
)

type savedRegisters struct {
	tid  int
	regs target.RegisterSnapshot
}

// launchParams accumulates the QEnvironment*/QSetWorkingDir/QSetSTDIN etc.
// parameters a subsequent vRun applies, per spec.md §4.4. disableASLR and
// launchArch are recorded here but Run does not pass them to the spawner, so
// they have no effect on the launched child.
type launchParams struct {
	env         map[string]string
	workdir     string
	stdin       string
	stdout      string
	stderr      string
	disableASLR bool
	launchArch  string
}

// DebugSessionImpl is the Delegate of spec.md §4.5: it owns the
// Target::Process and normalizes its StopInfo/register/memory operations
// into the wire-facing shapes session.Session expects.
type DebugSessionImpl struct {
	session.UnsupportedDelegate

	log  *zap.SugaredLogger
	arch *arch.Architecture
	file host.File

	spawner Spawner

	mu         sync.Mutex
	proc       *target.Process
	params     launchParams
	attached   bool
	outputSink session.OutputSink

	// resumeSessionLock is held from OnResume's kickoff through
	// WaitForStop's return, per spec.md §4.5's invariant, so a
	// concurrently-running console-output callback (fed by the spawner's
	// stdout/stderr pipes) can safely interleave O<hex> packets without a
	// resume landing half-applied. OnResume locks it and only unlocks on
	// its own early-error paths; the success path leaves it locked for
	// WaitForStop to release once the target has actually stopped.
	resumeSessionLock sync.Mutex

	regMu     sync.Mutex
	nextRegID uint64
	savedRegs map[uint64]savedRegisters
}

// Spawner launches the debuggee; host.OSSpawner implements it (it wraps
// os/exec + PTRACE_TRACEME), per spec.md §1's "process spawning
// is an out-of-scope collaborator" note.
type Spawner interface {
	target.Spawner
	Launch(path string, argv, envp []string, workdir, stdin, stdout, stderr string) (pid int, err error)
}

// NewDebugSessionImpl returns a Delegate with no process attached yet;
// Attach/Run populates proc.
func NewDebugSessionImpl(a *arch.Architecture, f host.File, sp Spawner) *DebugSessionImpl {
	return &DebugSessionImpl{
		arch:      a,
		file:      f,
		spawner:   sp,
		log:       rlog.Named("delegate"),
		nextRegID: 1,
		savedRegs: make(map[uint64]savedRegisters),
		params:    launchParams{env: make(map[string]string)},
	}
}

// OutputCapturer is implemented by spawners (host.OSSpawner) that can
// forward live child stdout/stderr; SetOutputSink wires it into the
// session's O<hex> packets via a type assertion, the same
// optional-interface pattern internal/channel's TimeoutReader uses.
type OutputCapturer interface {
	SetOutputFunc(fn host.OutputFunc)
}

// SetOutputSink implements session.OutputSinkSetter: it's how NewSession
// hands DebugSessionImpl a way to emit O<hex> packets, and is where the
// spawner's captured stdout/stderr gets wired to actually use it.
func (d *DebugSessionImpl) SetOutputSink(sink session.OutputSink) {
	d.mu.Lock()
	d.outputSink = sink
	d.mu.Unlock()
	if oc, ok := d.spawner.(OutputCapturer); ok {
		oc.SetOutputFunc(func(data []byte) {
			sink.SendOutput(data)
		})
	}
}

func (d *DebugSessionImpl) process() (*target.Process, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proc == nil {
		return nil, rdbgerr.New("delegate", rdbgerr.KProcessNotFound, fmt.Errorf("no process attached"))
	}
	return d.proc, nil
}

// --- lifecycle ---

func (d *DebugSessionImpl) Attach(pid int) error {
	p := target.NewLinuxProcess(pid, d.arch)
	if err := p.Attach(); err != nil {
		return err
	}
	d.mu.Lock()
	d.proc = p
	d.attached = true
	d.mu.Unlock()
	return nil
}

func (d *DebugSessionImpl) Run(argv []string) error {
	if len(argv) == 0 {
		return rdbgerr.New("run", rdbgerr.KInvalidArgument, fmt.Errorf("empty argv"))
	}
	d.mu.Lock()
	envp := os.Environ()
	for k, v := range d.params.env {
		envp = append(envp, k+"="+v)
	}
	workdir, stdin, stdout, stderr := d.params.workdir, d.params.stdin, d.params.stdout, d.params.stderr
	d.mu.Unlock()

	pid, err := d.spawner.Launch(argv[0], argv, envp, workdir, stdin, stdout, stderr)
	if err != nil {
		return rdbgerr.New("run", rdbgerr.KProcessNotFound, err)
	}
	p := target.NewLinuxProcess(pid, d.arch)
	p.AdoptSpawned(d.spawner)
	if _, err := p.Wait(); err != nil {
		return err
	}
	d.mu.Lock()
	d.proc = p
	d.attached = false
	d.mu.Unlock()
	return nil
}

func (d *DebugSessionImpl) Kill() error {
	p, err := d.process()
	if err != nil {
		return err
	}
	return p.Terminate()
}

func (d *DebugSessionImpl) Detach() error {
	p, err := d.process()
	if err != nil {
		return err
	}
	return p.Detach()
}

// --- execution control ---

// OnResume kicks off the actual resume and then leaves resumeSessionLock
// held on success, handing ownership of it to the matching WaitForStop
// call (session.doResume always pairs the two, in that order). On any
// error it unlocks itself, since there will be no WaitForStop call to do
// it.
func (d *DebugSessionImpl) OnResume(actions []session.ResumeAction) error {
	p, err := d.process()
	if err != nil {
		return err
	}
	d.resumeSessionLock.Lock()
	if err := d.applyResume(p, actions); err != nil {
		d.resumeSessionLock.Unlock()
		return err
	}
	return nil
}

func (d *DebugSessionImpl) applyResume(p *target.Process, actions []session.ResumeAction) error {
	var global *session.ResumeAction
	resumed := make(map[int]bool)

	for i := range actions {
		a := &actions[i]
		if a.Global {
			if global != nil {
				return rdbgerr.New("resume", rdbgerr.KInvalidArgument, fmt.Errorf("more than one global action"))
			}
			global = a
			continue
		}
		t, ok := p.Thread(int(a.Ptid.Tid))
		if !ok {
			continue
		}
		if err := d.applyAction(p, t, a); err != nil {
			return err
		}
		resumed[t.Tid()] = true
	}

	if global != nil {
		if global.Step {
			for _, t := range p.Threads() {
				if resumed[t.Tid()] {
					continue
				}
				if err := p.StepThread(t, global.Signal); err != nil {
					return err
				}
			}
			return nil
		}
		return p.Resume(global.Signal, resumed)
	}
	return nil
}

func (d *DebugSessionImpl) applyAction(p *target.Process, t *target.Thread, a *session.ResumeAction) error {
	if a.Step {
		return p.StepThread(t, a.Signal)
	}
	excluded := make(map[int]bool, 1)
	for _, other := range p.Threads() {
		if other.Tid() != t.Tid() {
			excluded[other.Tid()] = true
		}
	}
	return p.Resume(a.Signal, excluded)
}

// WaitForStop blocks for the next reportable stop and normalizes it, per
// spec.md §4.5's step 4-5: draining transient internal events happens
// inside Process.Wait itself; here we only add the thread name (read from
// /proc/<pid>/task/<tid>/comm), the live-tid set and the register snapshot
// Process.Wait leaves at their zero value. Core is always reported as 0. It
// releases
// resumeSessionLock (acquired by the OnResume call that must precede every
// WaitForStop call) once the target has actually stopped, closing the
// window during which the spawner's output callback may interleave O<hex>
// packets with this resume.
func (d *DebugSessionImpl) WaitForStop() (target.StopInfo, error) {
	p, err := d.process()
	if err != nil {
		return target.StopInfo{}, err
	}
	defer d.resumeSessionLock.Unlock()
	si, err := p.Wait()
	if err != nil {
		return target.StopInfo{}, err
	}
	d.normalizeStopInfo(p, &si)
	return si, nil
}

func (d *DebugSessionImpl) normalizeStopInfo(p *target.Process, si *target.StopInfo) {
	if si.Event != target.EventStop {
		si.Reason = target.ReasonNone
		return
	}
	threads := p.Threads()
	tids := make([]int, 0, len(threads))
	for _, t := range threads {
		tids = append(tids, t.Tid())
		if t.Tid() == si.Tid {
			si.Core = 0
		}
	}
	si.LiveTids = tids
	if comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/task/%d/comm", p.Pid(), si.Tid)); err == nil {
		si.ThreadName = strings.TrimSpace(string(comm))
	}
	if regs, err := p.GetRegisters(si.Tid); err == nil {
		si.Registers = regs
	}
}

func (d *DebugSessionImpl) OnInterrupt() error {
	p, err := d.process()
	if err != nil {
		return err
	}
	return p.Suspend()
}

func (d *DebugSessionImpl) QueryStopInfo(ptid rsp.ProcessThreadID) (target.StopInfo, error) {
	p, err := d.process()
	if err != nil {
		return target.StopInfo{}, err
	}
	var t *target.Thread
	if ptid.TidAny || ptid.Tid == 0 {
		t = p.CurrentThread()
	} else {
		t, _ = p.Thread(int(ptid.Tid))
	}
	if t == nil {
		return target.StopInfo{}, rdbgerr.New("queryStopInfo", rdbgerr.KNotFound, nil)
	}
	si := t.LastStopInfo()
	d.normalizeStopInfo(p, &si)
	return si, nil
}

func (d *DebugSessionImpl) CurrentThread() (rsp.ProcessThreadID, error) {
	p, err := d.process()
	if err != nil {
		return rsp.ProcessThreadID{}, err
	}
	t := p.CurrentThread()
	if t == nil {
		return rsp.ProcessThreadID{}, rdbgerr.New("qC", rdbgerr.KNotFound, nil)
	}
	return rsp.ProcessThreadID{Pid: int64(p.Pid()), Tid: int64(t.Tid())}, nil
}

func (d *DebugSessionImpl) ListThreads() ([]rsp.ProcessThreadID, error) {
	p, err := d.process()
	if err != nil {
		return nil, err
	}
	var out []rsp.ProcessThreadID
	for _, t := range p.Threads() {
		out = append(out, rsp.ProcessThreadID{Pid: int64(p.Pid()), Tid: int64(t.Tid())})
	}
	return out, nil
}

type threadInfoEntry struct {
	Tid    int    `json:"tid"`
	Reason string `json:"reason"`
	Signal int    `json:"signal"`
}

func (d *DebugSessionImpl) ThreadsInfoJSON() (string, error) {
	p, err := d.process()
	if err != nil {
		return "", err
	}
	var entries []threadInfoEntry
	for _, t := range p.Threads() {
		si := t.LastStopInfo()
		entries = append(entries, threadInfoEntry{Tid: t.Tid(), Reason: reasonName(si.Reason), Signal: si.Signal})
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", rdbgerr.New("jThreadsInfo", rdbgerr.KUnknown, err)
	}
	return string(b), nil
}

func reasonName(r target.StopReason) string {
	switch r {
	case target.ReasonBreakpoint:
		return "breakpoint"
	case target.ReasonTrace:
		return "trace"
	case target.ReasonSignalStop:
		return "signal"
	case target.ReasonReadWatchpoint, target.ReasonWriteWatchpoint, target.ReasonAccessWatchpoint:
		return "watchpoint"
	default:
		return "none"
	}
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/rsp"
	"github.com/rdbg/rgdbserver/internal/target"
	"github.com/stretchr/testify/require"
)

// memChannel is an in-memory stand-in for channel.Channel: tests only ever
// drive handlers directly via Interpreter.Dispatch, so Read/Wait are never
// exercised, but NewSession still needs a live channel.Channel to embed.
type memChannel struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *memChannel) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Read(p)
}
func (c *memChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}
func (c *memChannel) Close() error { return nil }
func (c *memChannel) Wait() error  { return nil }

// fakeDelegate embeds UnsupportedDelegate and overrides only what a given
// test exercises, per the default-unsupported strategy DESIGN.md records.
type fakeDelegate struct {
	UnsupportedDelegate

	insertedKind int
	insertedAddr uint64
	insertedSize int
	insertErr    error

	stopInfo target.StopInfo

	resumeActions []ResumeAction
	resumeErr     error
	waitErr       error
}

func (f *fakeDelegate) OnResume(actions []ResumeAction) error {
	f.resumeActions = actions
	return f.resumeErr
}

func (f *fakeDelegate) WaitForStop() (target.StopInfo, error) {
	return f.stopInfo, f.waitErr
}

func (f *fakeDelegate) InsertBreakpoint(kind int, addr uint64, size int) error {
	f.insertedKind, f.insertedAddr, f.insertedSize = kind, addr, size
	return f.insertErr
}

func (f *fakeDelegate) QueryStopInfo(rsp.ProcessThreadID) (target.StopInfo, error) {
	return f.stopInfo, nil
}

func newTestSession(d SessionDelegate) *Session {
	return NewSession(&memChannel{}, d)
}

func TestDispatchInsertBreakpointParsesArgs(t *testing.T) {
	d := &fakeDelegate{}
	s := newTestSession(d)

	reply := s.in.Dispatch("Z0,4000,1")
	require.Equal(t, "OK", reply)
	require.Equal(t, 0, d.insertedKind)
	require.Equal(t, uint64(0x4000), d.insertedAddr)
	require.Equal(t, 1, d.insertedSize)
}

func TestDispatchInsertBreakpointPropagatesError(t *testing.T) {
	d := &fakeDelegate{}
	s := newTestSession(d)

	reply := s.in.Dispatch("ZX,xyz,1")
	require.Equal(t, fmt.Sprintf("E%02x", int(rdbgerr.KInvalidArgument)), reply,
		"a non-hex kind field fails argument parsing before reaching the delegate")
}

func TestFormatStopReplyExit(t *testing.T) {
	s := newTestSession(&fakeDelegate{})
	got := s.formatStopReply(target.StopInfo{Event: target.EventExit, ExitStatus: 7})
	require.Equal(t, "W07", got)
}

func TestFormatStopReplyKill(t *testing.T) {
	s := newTestSession(&fakeDelegate{})
	got := s.formatStopReply(target.StopInfo{Event: target.EventKill, Signal: 11})
	require.Equal(t, "X0b", got)
}

func TestFormatStopReplyBreakpointIncludesThreadAndName(t *testing.T) {
	s := newTestSession(&fakeDelegate{})
	si := target.StopInfo{
		Event:      target.EventStop,
		Reason:     target.ReasonBreakpoint,
		Signal:     5,
		Pid:        100,
		Tid:        200,
		ThreadName: "main",
	}
	got := s.formatStopReply(si)
	require.Contains(t, got, "T05")
	require.Contains(t, got, "name:main;")
}

func TestFormatStopReplyWatchpoint(t *testing.T) {
	s := newTestSession(&fakeDelegate{})
	si := target.StopInfo{
		Event:          target.EventStop,
		Reason:         target.ReasonWriteWatchpoint,
		Signal:         5,
		HasWatchpoint:  true,
		WatchpointAddr: 0x1234,
	}
	got := s.formatStopReply(si)
	require.Contains(t, got, "watch:1234;")
}

func TestEffectiveGeneralPtidPrefersSuffixOverHSet(t *testing.T) {
	s := newTestSession(&fakeDelegate{})
	s.ptidGeneral = rsp.ProcessThreadID{Pid: 1, Tid: 2}

	got := s.effectiveGeneralPtid("")
	require.Equal(t, int64(2), got.Tid)

	got = s.effectiveGeneralPtid("99")
	require.Equal(t, int64(0x99), got.Tid)
}

func TestSplitThreadSuffix(t *testing.T) {
	body, suffix := splitThreadSuffix("1000,4;thread:7")
	require.Equal(t, "1000,4", body)
	require.Equal(t, "7", suffix)

	body, suffix = splitThreadSuffix("1000,4")
	require.Equal(t, "1000,4", body)
	require.Equal(t, "", suffix)
}

func TestHandleQNonStopRejectsEnable(t *testing.T) {
	s := newTestSession(&fakeDelegate{})
	reply := s.in.Dispatch("QNonStop:1")
	require.Equal(t, fmt.Sprintf("E%02x", int(rdbgerr.KInvalidArgument)), reply)
}

func TestHandleVContResumesGlobalThenReportsStop(t *testing.T) {
	d := &fakeDelegate{stopInfo: target.StopInfo{Event: target.EventStop, Reason: target.ReasonTrace, Signal: 5}}
	s := newTestSession(d)

	reply := s.in.Dispatch("vCont;c")
	require.Equal(t, "T05thread:0;", reply)
	require.Len(t, d.resumeActions, 1)
	require.True(t, d.resumeActions[0].Global)
	require.False(t, d.resumeActions[0].Step)
}

func TestHandleVContStepWithSignal(t *testing.T) {
	d := &fakeDelegate{stopInfo: target.StopInfo{Event: target.EventExit, ExitStatus: 0}}
	s := newTestSession(d)

	reply := s.in.Dispatch("vCont;S05:p1.2")
	require.Equal(t, "W00", reply)
	require.Len(t, d.resumeActions, 1)
	a := d.resumeActions[0]
	require.False(t, a.Global)
	require.True(t, a.Step)
	require.Equal(t, 5, a.Signal)
	require.Equal(t, int64(2), a.Ptid.Tid)
}

func TestHandleVContQuery(t *testing.T) {
	s := newTestSession(&fakeDelegate{})
	require.Equal(t, "vCont;c;C;s;S", s.in.Dispatch("vCont?"))
}

func TestStartNoAckModeDisablesAck(t *testing.T) {
	s := newTestSession(&fakeDelegate{})
	require.True(t, s.ackEnabled())
	s.in.Dispatch("QStartNoAckMode")
	require.False(t, s.ackEnabled())
}

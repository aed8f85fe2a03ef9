// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package target

import (
	"testing"

	"github.com/rdbg/rgdbserver/arch"
	"github.com/stretchr/testify/require"
)

// fakeMemory is an in-memory stand-in for Process, satisfying proc.
type fakeMemory struct {
	data map[uint64][]byte // 1-byte granularity, keyed by address
}

func newFakeMemory() *fakeMemory { return &fakeMemory{data: make(map[uint64][]byte)} }

func (f *fakeMemory) set(addr uint64, b []byte) {
	for i, c := range b {
		f.data[addr+uint64(i)] = []byte{c}
	}
}

func (f *fakeMemory) ReadMemory(addr uint64, out []byte) error {
	for i := range out {
		b, ok := f.data[addr+uint64(i)]
		if !ok {
			out[i] = 0
			continue
		}
		out[i] = b[0]
	}
	return nil
}

func (f *fakeMemory) WriteMemory(addr uint64, data []byte) error {
	f.set(addr, data)
	return nil
}

func TestBreakpointManagerRestoresOriginalBytes(t *testing.T) {
	mem := newFakeMemory()
	mem.set(0x4000, []byte{0x55}) // arbitrary original instruction byte
	mem.set(0x5000, []byte{0x90})

	mgr := NewBreakpointManager(mem, &arch.AMD64)

	_, err := mgr.Add(0x4000, LifetimePermanent, 1, ModeExec)
	require.NoError(t, err)
	_, err = mgr.Add(0x5000, LifetimePermanent, 1, ModeExec)
	require.NoError(t, err)

	require.NoError(t, mgr.Enable(nil))
	out := make([]byte, 1)
	require.NoError(t, mem.ReadMemory(0x4000, out))
	require.Equal(t, byte(0xCC), out[0])

	require.NoError(t, mgr.Disable(nil))
	require.NoError(t, mem.ReadMemory(0x4000, out))
	require.Equal(t, byte(0x55), out[0])
	require.NoError(t, mem.ReadMemory(0x5000, out))
	require.Equal(t, byte(0x90), out[0])
}

func TestBreakpointManagerClearRestoresAllEverEnabled(t *testing.T) {
	mem := newFakeMemory()
	mem.set(0x1000, []byte{0x11})
	mem.set(0x2000, []byte{0x22})

	mgr := NewBreakpointManager(mem, &arch.AMD64)
	mgr.Add(0x1000, LifetimePermanent, 1, ModeExec)
	mgr.Add(0x2000, LifetimeTempOneShot, 1, ModeExec)
	require.NoError(t, mgr.Enable(nil))
	require.NoError(t, mgr.Clear())

	out := make([]byte, 1)
	mem.ReadMemory(0x1000, out)
	require.Equal(t, byte(0x11), out[0])
	mem.ReadMemory(0x2000, out)
	require.Equal(t, byte(0x22), out[0])

	_, ok := mgr.Site(0x1000)
	require.False(t, ok)
}

func TestBreakpointManagerRefCounting(t *testing.T) {
	mem := newFakeMemory()
	mem.set(0x4000, []byte{0x55})
	mgr := NewBreakpointManager(mem, &arch.AMD64)

	s1, err := mgr.Add(0x4000, LifetimePermanent, 1, ModeExec)
	require.NoError(t, err)
	s2, err := mgr.Add(0x4000, LifetimePermanent, 1, ModeExec)
	require.NoError(t, err)
	require.Same(t, s1, s2)
	require.Equal(t, 2, s1.RefCount)

	require.NoError(t, mgr.Remove(0x4000))
	_, ok := mgr.Site(0x4000)
	require.True(t, ok, "still referenced once")

	require.NoError(t, mgr.Remove(0x4000))
	_, ok = mgr.Site(0x4000)
	require.False(t, ok)
}

func TestThreadStateTransitions(t *testing.T) {
	th := newThread(nil, 42)
	require.Equal(t, ThreadInvalid, th.State())
	th.setState(ThreadRunning)
	require.Equal(t, ThreadRunning, th.State())
	th.setState(ThreadStopped)
	require.Equal(t, ThreadStopped, th.State())
	th.invalidate()
	require.Equal(t, ThreadInvalid, th.State())
}

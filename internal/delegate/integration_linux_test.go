// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package delegate

import (
	"os"
	"testing"

	"github.com/rdbg/rgdbserver/arch"
	"github.com/rdbg/rgdbserver/internal/host"
	"github.com/stretchr/testify/require"
)

// TestDebugSessionRunSpawnsAndStopsAtEntry exercises the real PTRACE_TRACEME
// launch path end to end: Run should leave the child stopped immediately
// after its execve, with a current thread and a live pid the session can
// subsequently kill. Skips if the sandbox denies ptrace.
func TestDebugSessionRunSpawnsAndStopsAtEntry(t *testing.T) {
	if _, err := os.Stat("/bin/sleep"); err != nil {
		t.Skip("/bin/sleep not available")
	}

	d := NewDebugSessionImpl(&arch.AMD64, host.NewOSFile(), &host.OSSpawner{})
	err := d.Run([]string{"/bin/sleep", "5"})
	if err != nil {
		t.Skipf("ptrace spawn unavailable in this environment: %v", err)
	}
	defer d.Kill()

	ptid, err := d.CurrentThread()
	require.NoError(t, err)
	require.Greater(t, ptid.Pid, int64(0))

	threads, err := d.ListThreads()
	require.NoError(t, err)
	require.NotEmpty(t, threads)

	require.NoError(t, d.Kill())
}

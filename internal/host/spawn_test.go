// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestOSSpawnerLaunchStopsAtExecve exercises the PTRACE_TRACEME launch path
// against /bin/true: the child should report a pid and, per ptrace
// semantics, have already delivered its post-execve SIGTRAP before Launch
// returns (so the caller can safely attach and resume it).
func TestOSSpawnerLaunchStopsAtExecve(t *testing.T) {
	if _, err := os.Stat("/bin/true"); err != nil {
		t.Skip("/bin/true not available")
	}

	var sp OSSpawner
	pid, err := sp.Launch("/bin/true", []string{"/bin/true"}, os.Environ(), "", "", "", "")
	require.NoError(t, err)
	require.Greater(t, pid, 0)

	var ws syscall.WaitStatus
	_, err = syscall.Wait4(pid, &ws, 0, nil)
	require.NoError(t, err)
	require.True(t, ws.Stopped(), "PTRACE_TRACEME should stop the child at its first instruction")

	// Detach and let the child run to completion so the test doesn't leak
	// a stopped zombie process.
	require.NoError(t, syscall.PtraceDetach(pid))
	syscall.Wait4(pid, &ws, 0, nil)
}

// TestOSSpawnerForwardsOutputLive checks that a callback registered via
// SetOutputFunc before Launch receives the child's stdout chunks, not just
// the buffered Stdout() accessor.
func TestOSSpawnerForwardsOutputLive(t *testing.T) {
	if _, err := os.Stat("/bin/echo"); err != nil {
		t.Skip("/bin/echo not available")
	}

	var sp OSSpawner
	var mu sync.Mutex
	var got []byte
	sp.SetOutputFunc(func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, data...)
	})

	pid, err := sp.Launch("/bin/echo", []string{"/bin/echo", "hello-from-child"}, os.Environ(), "", "", "", "")
	require.NoError(t, err)

	var ws syscall.WaitStatus
	_, err = syscall.Wait4(pid, &ws, 0, nil)
	require.NoError(t, err)
	require.NoError(t, syscall.PtraceDetach(pid))
	syscall.Wait4(pid, &ws, 0, nil)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return strings.Contains(string(got), "hello-from-child")
	}, time.Second, 10*time.Millisecond, "callback never observed the child's output")

	require.Contains(t, string(sp.Stdout()), "hello-from-child")
}

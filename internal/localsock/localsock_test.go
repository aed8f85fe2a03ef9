// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package localsock

import (
	"io"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenForPIDAndDialRoundTrip(t *testing.T) {
	const msg = "hello from the session"

	ln, path, err := ListenForPID(os.Getpid())
	require.NoError(t, err)
	defer os.Remove(path)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.WriteString(conn, msg)
	}()

	conn, err := Dial(os.Getuid(), os.Getpid())
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, len(msg))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	require.Equal(t, msg, string(buf))
	<-done
}

func TestCollectGarbageRemovesDeadPlatformSessionSockets(t *testing.T) {
	dirName, _ := names(os.Getuid(), os.Getpid())
	require.NoError(t, os.MkdirAll(dirName, 0700))

	// A pid this test can be confident is not running: mix of a plain
	// ListenForPID-style name and a LaunchGDBServer-style session name,
	// both scoped to that dead pid.
	const deadPID = 1 << 30
	deadPlain := dirName + "/pid" + strconv.Itoa(deadPID)
	deadSession := dirName + "/platform" + strconv.Itoa(deadPID) + "-session7"
	require.NoError(t, os.WriteFile(deadPlain, nil, 0600))
	require.NoError(t, os.WriteFile(deadSession, nil, 0600))
	defer os.Remove(deadPlain)
	defer os.Remove(deadSession)

	liveSession := dirName + "/platform" + strconv.Itoa(os.Getpid()) + "-session1"
	require.NoError(t, os.WriteFile(liveSession, nil, 0600))
	defer os.Remove(liveSession)

	CollectGarbage()

	_, err := os.Stat(deadPlain)
	require.True(t, os.IsNotExist(err), "CollectGarbage should remove pidN sockets for a dead pid")
	_, err = os.Stat(deadSession)
	require.True(t, os.IsNotExist(err), "CollectGarbage should remove platformN-sessionM sockets for a dead platform pid")
	_, err = os.Stat(liveSession)
	require.NoError(t, err, "CollectGarbage must not remove session sockets for a still-running platform pid")
}

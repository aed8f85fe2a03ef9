// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package localsock gives a gdbserver platform-mode listener a way to hand
// each spawned debug session its own discoverable address instead of a fixed
// TCP port: a Unix domain socket per child PID (ListenForPID) or per
// platform session (SessionSocketPath), namespaced under a UID-specific
// directory so only the owning user can reach it.
package localsock

import (
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
)

func names(uid, pid int) (dirName, socketName string) {
	dirName = "/tmp/rgdbserver-uid" + strconv.Itoa(uid)
	socketName = dirName + "/pid" + strconv.Itoa(pid)
	return
}

// SessionSocketPath names the address a platform-mode listener hands a
// qLaunchGDBServer child it spawns on request, rather than one it binds
// itself via ListenForPID: the socket is scoped to the launching platform
// process (platformPID) and a monotonic per-session counter (seq), since
// the child's own pid isn't known until after it's already been told what
// address to bind. Kept in this package, not hand-rolled by the caller, so
// CollectGarbage's filter can never drift out of sync with the names it
// needs to recognize.
func SessionSocketPath(platformPID int, seq uint64) string {
	dirName, _ := names(os.Getuid(), platformPID)
	return dirName + "/platform" + strconv.Itoa(platformPID) + "-session" + strconv.FormatUint(seq, 10)
}

// ListenForPID creates a PID-specific socket under a UID-specific
// sub-directory of /tmp. That sub-directory is created with 0700 permission
// bits (before umasking), so that only processes with the same UID can dial
// that socket.
func ListenForPID(pid int) (net.Listener, string, error) {
	dirName, socketName := names(os.Getuid(), pid)
	if err := os.MkdirAll(dirName, 0700); err != nil {
		return nil, "", err
	}
	if err := os.Remove(socketName); err != nil && !os.IsNotExist(err) {
		return nil, "", err
	}
	ln, err := net.Listen("unix", socketName)
	if err != nil {
		return nil, "", err
	}
	return ln, socketName, nil
}

// Dial dials the Unix domain socket created by ListenForPID for the given
// UID and PID.
func Dial(uid, pid int) (net.Conn, error) {
	_, socketName := names(uid, pid)
	return net.Dial("unix", socketName)
}

// owningPID extracts the PID whose liveness governs fileName's garbage
// collection: "pidN" (ListenForPID's own sockets, owned by N directly) and
// "platformN-sessionM" (SessionSocketPath's sockets, scoped to the
// launching platform process N — once it's gone, its session files are
// orphaned regardless of whether the gdbserver child it spawned is still
// running). ok is false for anything else found in the directory.
func owningPID(fileName string) (pid int, ok bool) {
	switch {
	case strings.HasPrefix(fileName, "pid"):
		n, err := strconv.Atoi(fileName[len("pid"):])
		if err != nil {
			return 0, false
		}
		return n, true
	case strings.HasPrefix(fileName, "platform"):
		rest := fileName[len("platform"):]
		idx := strings.Index(rest, "-session")
		if idx < 0 {
			return 0, false
		}
		n, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// CollectGarbage deletes sockets left behind by PIDs that are no longer
// running, so a long-lived platform listener doesn't leak files under
// /tmp across many short debug sessions.
func CollectGarbage() {
	dirName, _ := names(os.Getuid(), os.Getpid())
	dir, err := os.Open(dirName)
	if err != nil {
		return
	}
	defer dir.Close()
	fileNames, err := dir.Readdirnames(-1)
	if err != nil {
		return
	}
	for _, fileName := range fileNames {
		pid, ok := owningPID(fileName)
		if !ok {
			continue
		}
		// os.FindProcess always succeeds on Unix even for a dead PID, so
		// probe liveness with signal 0 and look for ESRCH instead.
		if syscall.Kill(pid, 0) != syscall.ESRCH {
			continue
		}
		os.Remove(dirName + "/" + fileName)
	}
}

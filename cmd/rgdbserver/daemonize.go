// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/exec"
	"syscall"
)

// daemonizeSelf re-execs the current binary detached from the controlling
// terminal: the child gets its own session via Setsid, inherits no
// standard streams, and the parent exits immediately so the shell that
// launched rgdbserver regains its prompt.
func daemonizeSelf(args []string) error {
	if os.Getenv("RGDBSERVER_DAEMONIZED") == "1" {
		// Already the re-exec'd child; nothing further to do.
		syscall.Setsid()
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), "RGDBSERVER_DAEMONIZED=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return err
	}
	os.Exit(0)
	return nil
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bytes"
	"os"
	"os/exec"
	"syscall"

	"github.com/rdbg/rgdbserver/internal/rdbgerr"
)

// OutputFunc receives each chunk of captured child stdout/stderr as soon as
// the OS delivers it, in the order it was written, per spec.md §4.5 step 5's
// O<hex> forwarding.
type OutputFunc func(data []byte)

// callbackWriter both buffers into buf (so OSSpawner.Stdout/Stderr keep
// working) and, if fn is set, forwards the same bytes onward live.
type callbackWriter struct {
	buf *bytes.Buffer
	fn  OutputFunc
}

func (w *callbackWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	if n > 0 && w.fn != nil {
		w.fn(append([]byte(nil), p[:n]...))
	}
	return n, err
}

// OSSpawner launches the debuggee with PTRACE_TRACEME set so its very
// first instruction is a ptrace-visible stop, grounded on the
// SysProcAttr{Ptrace: true} launch sequence of
// _examples/other_examples/c4480aa0_pmorie-delve__proctl-proctl.go.go
// (func Launch), generalized to accept env/workdir/stdio redirection per
// spec.md §4.4's QEnvironment*/QSetWorkingDir/QSetSTDIN-OUT-ERR handlers.
type OSSpawner struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer

	outputFunc OutputFunc
}

// SetOutputFunc registers fn to be called with every chunk of stdout/stderr
// the child produces from the next Launch onward, satisfying the
// delegate package's optional OutputCapturer interface.
func (s *OSSpawner) SetOutputFunc(fn OutputFunc) { s.outputFunc = fn }

// Launch implements delegate.Spawner.
func (s *OSSpawner) Launch(path string, argv, envp []string, workdir, stdin, stdout, stderr string) (int, error) {
	cmd := exec.Command(path)
	cmd.Args = argv
	cmd.Env = envp
	cmd.Dir = workdir
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	if stdin != "" {
		f, err := os.Open(stdin)
		if err != nil {
			return 0, rdbgerr.New("run", rdbgerr.KNotFound, err)
		}
		cmd.Stdin = f
	}
	cmd.Stdout = &callbackWriter{buf: &s.stdout, fn: s.outputFunc}
	cmd.Stderr = &callbackWriter{buf: &s.stderr, fn: s.outputFunc}
	if stdout != "" {
		if f, err := os.Create(stdout); err == nil {
			cmd.Stdout = f
		}
	}
	if stderr != "" {
		if f, err := os.Create(stderr); err == nil {
			cmd.Stderr = f
		}
	}

	if err := cmd.Start(); err != nil {
		return 0, rdbgerr.New("run", rdbgerr.KProcessNotFound, err)
	}
	s.cmd = cmd
	return cmd.Process.Pid, nil
}

// Start implements target.Spawner for callers that already have argv/envp
// resolved (Launch is the richer entry point cmd/rgdbserver drives through
// the delegate; Start exists so OSSpawner also satisfies the narrower
// interface Process.AdoptSpawned expects).
func (s *OSSpawner) Start(path string, argv, envp []string, workdir string) (int, error) {
	return s.Launch(path, argv, envp, workdir, "", "", "")
}

func (s *OSSpawner) Stdout() []byte { return s.stdout.Bytes() }
func (s *OSSpawner) Stderr() []byte { return s.stderr.Bytes() }

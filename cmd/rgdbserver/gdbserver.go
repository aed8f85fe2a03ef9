// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rdbg/rgdbserver/arch"
	"github.com/rdbg/rgdbserver/internal/channel"
	"github.com/rdbg/rgdbserver/internal/delegate"
	"github.com/rdbg/rgdbserver/internal/host"
	"github.com/rdbg/rgdbserver/internal/rlog"
	"github.com/rdbg/rgdbserver/internal/session"
	"github.com/spf13/cobra"
)

var (
	attachPID   int
	setEnv      []string
	unsetEnv    []string
	gdbCompat   bool
	namedPipe   string
	reverseConn bool
	fdNum       int
)

var gdbserverCmd = &cobra.Command{
	Use:   "g [host]:port",
	Short: "Serve one debug session over the GDB Remote Serial Protocol",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGDBServer,
}

func init() {
	gdbserverCmd.Flags().IntVar(&attachPID, "attach", 0, "attach to an existing process instead of waiting for vRun")
	gdbserverCmd.Flags().StringArrayVar(&setEnv, "set-env", nil, "KEY=VALUE to add to the spawned process's environment")
	gdbserverCmd.Flags().StringArrayVar(&unsetEnv, "unset-env", nil, "KEY to remove from the inherited environment")
	gdbserverCmd.Flags().BoolVar(&gdbCompat, "gdb-compat", false, "accepted for compatibility; the dialect is still detected from the client's packets")
	gdbserverCmd.Flags().StringVar(&namedPipe, "named-pipe", "", "serve over a named pipe instead of a socket")
	gdbserverCmd.Flags().BoolVar(&reverseConn, "reverse-connect", false, "connect out to the address instead of listening on it")
	gdbserverCmd.Flags().IntVar(&fdNum, "fd", 0, "serve over an already-open file descriptor instead of an address")
}

func runGDBServer(cmd *cobra.Command, args []string) error {
	if err := maybeDaemonize(); err != nil {
		return err
	}
	log := rlog.Named("cmd")

	var addr string
	if len(args) == 1 {
		addr = args[0]
	}

	ch, cleanup, err := dialOrListen(addr)
	if err != nil {
		return err
	}
	defer cleanup()

	a := &arch.AMD64
	sess := newDebugSession(a)
	if attachPID != 0 {
		if err := sess.Attach(attachPID); err != nil {
			return fmt.Errorf("attach %d: %w", attachPID, err)
		}
	}
	for _, kv := range setEnv {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			sess.SetEnv(k, v)
		}
	}
	for _, k := range unsetEnv {
		os.Unsetenv(k)
	}

	s := session.NewSession(ch, sess)
	log.Infow("serving debug session", "addr", addr, "gdbCompat", gdbCompat)
	return s.Run()
}

func newDebugSession(a *arch.Architecture) *delegate.DebugSessionImpl {
	return delegate.NewDebugSessionImpl(a, host.NewOSFile(), &host.OSSpawner{})
}

// dialOrListen resolves the positional [host]:port / unix:// / unix-abstract://
// / --named-pipe / --fd / --reverse-connect surface into a single ready
// channel.Channel per spec.md §6, since the server handles one debug
// session per process invocation (the platform-mode subcommand is what
// spawns further gdbserver children for concurrent sessions). The returned
// Channel is always a channel.QueueChannel: spec.md §2/§5 requires the
// command loop to be able to observe an async interrupt byte while it is
// blocked elsewhere (e.g. mid-resume), which needs a dedicated reader
// goroutine owning the transport's read side rather than the session
// dispatch loop reading it directly.
func dialOrListen(addr string) (channel.Channel, func(), error) {
	noop := func() {}

	if fdNum != 0 {
		f := os.NewFile(uintptr(fdNum), "fd")
		conn, err := net.FileConn(f)
		if err != nil {
			return nil, noop, fmt.Errorf("fd %d: %w", fdNum, err)
		}
		qc := channel.NewQueueChannel(channel.NewNetChannel(conn))
		return qc, func() { qc.Close() }, nil
	}

	if namedPipe != "" {
		ch, cleanup, err := dialNamedPipe(namedPipe)
		if err != nil {
			return nil, cleanup, err
		}
		qc := channel.NewQueueChannel(ch)
		return qc, func() { qc.Close() }, nil
	}

	network, target := resolveAddr(addr)

	if reverseConn {
		conn, err := net.Dial(network, target)
		if err != nil {
			return nil, noop, fmt.Errorf("reverse-connect to %s: %w", addr, err)
		}
		qc := channel.NewQueueChannel(channel.NewNetChannel(conn))
		return qc, func() { qc.Close() }, nil
	}

	ln, err := net.Listen(network, target)
	if err != nil {
		return nil, noop, fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return nil, noop, fmt.Errorf("accept on %s: %w", addr, err)
	}
	qc := channel.NewQueueChannel(channel.NewNetChannel(conn))
	return qc, func() { qc.Close() }, nil
}

// resolveAddr maps the CLI's unix:// / unix-abstract:// / [host]:port
// surface to a (network, address) pair for net.Listen/net.Dial.
func resolveAddr(addr string) (network, target string) {
	switch {
	case strings.HasPrefix(addr, "unix-abstract://"):
		return "unix", "@" + strings.TrimPrefix(addr, "unix-abstract://")
	case strings.HasPrefix(addr, "unix://"):
		return "unix", strings.TrimPrefix(addr, "unix://")
	case addr == "":
		return "tcp", ":0"
	default:
		if _, _, err := net.SplitHostPort(addr); err != nil {
			// Bare port, e.g. ":1234" missing the colon, or "1234".
			if _, convErr := strconv.Atoi(addr); convErr == nil {
				addr = ":" + addr
			}
		}
		return "tcp", addr
	}
}

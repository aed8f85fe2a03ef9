// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"

	"github.com/rdbg/rgdbserver/internal/channel"
	"github.com/rdbg/rgdbserver/internal/delegate"
	"github.com/rdbg/rgdbserver/internal/host"
	"github.com/rdbg/rgdbserver/internal/rlog"
	"github.com/rdbg/rgdbserver/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var platformCmd = &cobra.Command{
	Use:   "p [host]:port",
	Short: "Serve platform-mode queries (process listing, remote shell, gdbserver spawning)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlatform,
}

// runPlatform accepts connections in a loop and serves each with a fresh
// PlatformSessionImpl; unlike gdbserver mode, a platform server is a
// long-lived daemon that many clients dial into over its lifetime.
func runPlatform(cmd *cobra.Command, args []string) error {
	if err := maybeDaemonize(); err != nil {
		return err
	}
	log := rlog.Named("cmd")

	var addr string
	if len(args) == 1 {
		addr = args[0]
	}
	network, target := resolveAddr(addr)
	ln, err := net.Listen(network, target)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer ln.Close()
	log.Infow("serving platform mode", "addr", ln.Addr().String())

	exe, err := os.Executable()
	if err != nil {
		return err
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go servePlatformConn(conn, exe, log)
	}
}

func servePlatformConn(conn net.Conn, gdbserverPath string, log *zap.SugaredLogger) {
	ch := channel.NewQueueChannel(channel.NewNetChannel(conn))
	defer ch.Close()
	impl := delegate.NewPlatformSessionImpl(host.OSProcessLister{}, gdbserverPath)
	s := session.NewSession(ch, impl)
	if err := s.Run(); err != nil {
		log.Errorw("platform session ended", "remote", conn.RemoteAddr(), "err", err)
	}
}

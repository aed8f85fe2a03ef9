// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"

	"github.com/rdbg/rgdbserver/arch"
	"github.com/rdbg/rgdbserver/internal/channel"
	"github.com/rdbg/rgdbserver/internal/rlog"
	"github.com/rdbg/rgdbserver/internal/session"
	"github.com/spf13/cobra"
)

var slaveFD int

var slaveCmd = &cobra.Command{
	Use:    "s",
	Short:  "Serve a single debug session over an already-connected descriptor",
	Hidden: true,
	RunE:   runSlave,
}

func init() {
	slaveCmd.Flags().IntVar(&slaveFD, "fd", 0, "inherited socket descriptor to serve")
}

// runSlave hands a single already-accepted connection, inherited as --fd, to
// a fresh DebugSessionImpl, without re-listening on any address itself.
// PlatformSessionImpl's LaunchGDBServer does not use this mode: it starts its
// children in gdbserver mode ("g <addr>").
func runSlave(cmd *cobra.Command, args []string) error {
	log := rlog.Named("cmd")
	if slaveFD == 0 {
		return fmt.Errorf("slave mode requires --fd")
	}
	f := os.NewFile(uintptr(slaveFD), "slave-fd")
	conn, err := net.FileConn(f)
	if err != nil {
		return fmt.Errorf("fd %d: %w", slaveFD, err)
	}

	ch := channel.NewQueueChannel(channel.NewNetChannel(conn))
	defer ch.Close()
	sess := newDebugSession(&arch.AMD64)
	s := session.NewSession(ch, sess)
	log.Infow("serving slave session", "fd", slaveFD)
	return s.Run()
}

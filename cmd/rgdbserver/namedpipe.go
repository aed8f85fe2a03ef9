// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/rdbg/rgdbserver/internal/channel"
	"golang.org/x/sys/unix"
)

// fileChannel adapts an *os.File (a FIFO in practice) to channel.Channel;
// NewNetChannel requires a net.Conn, which a named pipe is not.
type fileChannel struct{ f *os.File }

func (c *fileChannel) Read(p []byte) (int, error)  { return c.f.Read(p) }
func (c *fileChannel) Write(p []byte) (int, error) { return c.f.Write(p) }
func (c *fileChannel) Close() error                { return c.f.Close() }

func (c *fileChannel) Wait() error {
	one := make([]byte, 1)
	_, err := c.f.Read(one)
	return err
}

// dialNamedPipe creates (if needed) and opens path as a bidirectional
// FIFO-backed channel for --named-pipe.
func dialNamedPipe(path string) (channel.Channel, func(), error) {
	if err := unix.Mkfifo(path, 0o600); err != nil && !os.IsExist(err) {
		return nil, func() {}, fmt.Errorf("mkfifo %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open %s: %w", path, err)
	}
	return &fileChannel{f: f}, func() { f.Close() }, nil
}

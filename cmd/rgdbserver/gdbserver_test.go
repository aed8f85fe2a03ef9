// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveAddrUnix(t *testing.T) {
	network, target := resolveAddr("unix:///tmp/rgdbserver.sock")
	require.Equal(t, "unix", network)
	require.Equal(t, "/tmp/rgdbserver.sock", target)
}

func TestResolveAddrUnixAbstract(t *testing.T) {
	network, target := resolveAddr("unix-abstract://rgdbserver")
	require.Equal(t, "unix", network)
	require.Equal(t, "@rgdbserver", target)
}

func TestResolveAddrEmptyPicksEphemeralTCP(t *testing.T) {
	network, target := resolveAddr("")
	require.Equal(t, "tcp", network)
	require.Equal(t, ":0", target)
}

func TestResolveAddrBarePortGetsColonPrefix(t *testing.T) {
	network, target := resolveAddr("1234")
	require.Equal(t, "tcp", network)
	require.Equal(t, ":1234", target)
}

func TestResolveAddrHostPortPassesThrough(t *testing.T) {
	network, target := resolveAddr("localhost:1234")
	require.Equal(t, "tcp", network)
	require.Equal(t, "localhost:1234", target)
}

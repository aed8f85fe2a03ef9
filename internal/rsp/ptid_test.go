// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPtidRoundTrip(t *testing.T) {
	cases := []struct {
		mode CompatMode
		wire string
	}{
		{ModeGDB, "1a2b"},
		{ModeGDBMultiprocess, "p1a2b.3c4d"},
		{ModeGDBMultiprocess, "p1a2b.0"},
		{ModeLLDB, "p1a2b.3c4d"},
		{ModeLLDB, "thread:3c4d"},
	}
	for _, c := range cases {
		ptid, err := ParsePtid(c.wire, c.mode)
		require.NoError(t, err, c.wire)
		require.Equal(t, c.wire, ptid.Format(c.mode), c.wire)

		again, err := ParsePtid(ptid.Format(c.mode), c.mode)
		require.NoError(t, err)
		require.Equal(t, ptid, again)
	}
}

func TestPtidOverflowRejected(t *testing.T) {
	_, err := ParsePtid("fffffffffffffffff", ModeGDB)
	require.Error(t, err)
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in, cmd, args string
	}{
		{"qSupported:multiprocess+", "qSupported", "multiprocess+"},
		{"vCont;c", "vCont", "c"},
		{"Qfoo:bar", "Qfoo", "bar"},
		{"bc", "bc", ""},
		{"bx", "b", "x"},
		{"_M1000,rwx", "_M", "1000,rwx"},
		{"_z", "_", "z"},
		{"jThreadsInfo:", "jThreadsInfo", ""},
		{"m4000,4", "m", "4000,4"},
		{"?", "?", ""},
	}
	for _, c := range cases {
		cmd, args := SplitCommand(c.in)
		require.Equal(t, c.cmd, cmd, c.in)
		require.Equal(t, c.args, args, c.in)
	}
}

func TestInterpreterLongestMatchWins(t *testing.T) {
	var in Interpreter
	in.Register(MatchStartsWith, "q", func(string, string) string { return "short" })
	in.Register(MatchStartsWith, "qSupported", func(string, string) string { return "long" })
	require.Equal(t, "long", in.Dispatch("qSupported:x"))
	require.Equal(t, "short", in.Dispatch("qOther"))
}

func TestInterpreterUnknownCommandEmptyReply(t *testing.T) {
	var in Interpreter
	require.Equal(t, "", in.Dispatch("zzz"))
}

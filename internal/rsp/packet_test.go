// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recording struct {
	packets  [][]byte
	valid    []bool
	acks     int
	naks     int
	intr     int
	invalids [][]byte
}

func (r *recording) OnPacketData(payload []byte, valid bool) {
	r.packets = append(r.packets, append([]byte(nil), payload...))
	r.valid = append(r.valid, valid)
}
func (r *recording) OnACK()             { r.acks++ }
func (r *recording) OnNAK()             { r.naks++ }
func (r *recording) OnInterrupt()       { r.intr++ }
func (r *recording) OnInvalidData(d []byte) { r.invalids = append(r.invalids, append([]byte(nil), d...)) }

func frame(payload string) []byte {
	sum := Checksum([]byte(payload))
	return []byte("$" + payload + "#" + FormatChecksum(sum))
}

func TestProcessorRoundTrip(t *testing.T) {
	r := &recording{}
	p := NewProcessor(r)
	p.Feed(frame("qSupported"))
	require.Len(t, r.packets, 1)
	require.Equal(t, "qSupported", string(r.packets[0]))
	require.True(t, r.valid[0])
}

func TestProcessorFragmentation(t *testing.T) {
	full := frame("m4000,4")
	for split := 0; split <= len(full); split++ {
		r := &recording{}
		p := NewProcessor(r)
		p.Feed(full[:split])
		p.Feed(full[split:])
		require.Len(t, r.packets, 1, "split at %d", split)
		require.Equal(t, "m4000,4", string(r.packets[0]))
		require.True(t, r.valid[0])
	}
}

func TestProcessorBadChecksum(t *testing.T) {
	r := &recording{}
	p := NewProcessor(r)
	p.Feed([]byte("$g#00"))
	require.Len(t, r.packets, 1)
	require.False(t, r.valid[0])
}

func TestProcessorACKNAKInterrupt(t *testing.T) {
	r := &recording{}
	p := NewProcessor(r)
	p.Feed([]byte("+-\x03"))
	require.Equal(t, 1, r.acks)
	require.Equal(t, 1, r.naks)
	require.Equal(t, 1, r.intr)
}

func TestProcessorInvalidPrefixCollectedUntilFrame(t *testing.T) {
	r := &recording{}
	p := NewProcessor(r)
	p.Feed([]byte("garbage"))
	require.Empty(t, r.invalids, "not flushed until a frame starts")
	p.Feed(frame("OK"))
	require.Len(t, r.invalids, 1)
	require.Equal(t, "garbage", string(r.invalids[0]))
}

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("plain"),
		[]byte("has$dollar"),
		[]byte("has#hash"),
		[]byte("has}brace"),
		[]byte("has*star"),
		[]byte("$#}*combo$#}*"),
	}
	for _, c := range cases {
		esc := Escape(c)
		require.Equal(t, c, Unescape(esc))
		require.Equal(t, esc, Escape(Unescape(esc)))
	}
}

func TestRunLengthExpansion(t *testing.T) {
	// 'a' followed by *'#' adds ('#'-29)=6 more copies of 'a' after the
	// literal 'a' already emitted, for 7 total.
	in := []byte{'a', '*', '#'}
	out := Unescape(in)
	require.Equal(t, "aaaaaaa", string(out))
}

func TestChecksumDeterministic(t *testing.T) {
	require.Equal(t, byte('Q'+'S'), Checksum([]byte("QS")))
}

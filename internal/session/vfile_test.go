// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexDecodePath(t *testing.T) {
	encoded := hex.EncodeToString([]byte("/tmp/foo"))
	require.Equal(t, "/tmp/foo", hexDecodePath(encoded))
}

func TestHexDecodePathPassesThroughInvalidHex(t *testing.T) {
	require.Equal(t, "not-hex!", hexDecodePath("not-hex!"))
}

func TestDecodeOpenFlagsReadOnlyDefault(t *testing.T) {
	f := decodeOpenFlags(0)
	require.Equal(t, FileRead, f)
}

func TestDecodeOpenFlagsWriteCreateTruncate(t *testing.T) {
	const (
		oWRONLY = 0x1
		oCREAT  = 0x200
		oTRUNC  = 0x400
	)
	f := decodeOpenFlags(oWRONLY | oCREAT | oTRUNC)
	require.Equal(t, FileWrite|FileCreate|FileTruncate, f)
}

func TestDecodeOpenFlagsReadWrite(t *testing.T) {
	const oRDWR = 0x2
	f := decodeOpenFlags(oRDWR)
	require.True(t, f&FileRead != 0)
	require.True(t, f&FileWrite != 0)
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddrLen(t *testing.T) {
	addr, length, err := parseAddrLen("4000,10")
	require.NoError(t, err)
	require.Equal(t, uint64(0x4000), addr)
	require.Equal(t, 0x10, length)
}

func TestParseAddrLenRejectsMissingComma(t *testing.T) {
	_, _, err := parseAddrLen("4000")
	require.Error(t, err)
}

func TestParseAddrLenRejectsNonHexLength(t *testing.T) {
	_, _, err := parseAddrLen("4000,zz")
	require.Error(t, err)
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delegate

import (
	"testing"

	"github.com/rdbg/rgdbserver/internal/target"
	"github.com/stretchr/testify/require"
)

func TestPermissionBitsParsesRWX(t *testing.T) {
	require.Equal(t, 1, permissionBits("r"))
	require.Equal(t, 2, permissionBits("w"))
	require.Equal(t, 4, permissionBits("x"))
	require.Equal(t, 7, permissionBits("rwx"))
}

func TestPermissionBitsDefaultsToReadWrite(t *testing.T) {
	require.Equal(t, 3, permissionBits(""))
	require.Equal(t, 3, permissionBits("?"))
}

func TestArchName(t *testing.T) {
	require.Equal(t, "i386:x86-64", archName(8))
	require.Equal(t, "i386", archName(4))
}

func TestReasonName(t *testing.T) {
	require.Equal(t, "breakpoint", reasonName(target.ReasonBreakpoint))
	require.Equal(t, "trace", reasonName(target.ReasonTrace))
	require.Equal(t, "signal", reasonName(target.ReasonSignalStop))
	require.Equal(t, "watchpoint", reasonName(target.ReasonWriteWatchpoint))
	require.Equal(t, "none", reasonName(target.ReasonNone))
}

func TestProcessErrorsBeforeAttachOrRun(t *testing.T) {
	d := NewDebugSessionImpl(nil, nil, nil)
	_, err := d.process()
	require.Error(t, err)
}

func TestSavedRegistersTableStoresEntriesByID(t *testing.T) {
	d := NewDebugSessionImpl(nil, nil, nil)
	d.savedRegs[1] = savedRegisters{tid: 7, regs: target.RegisterSnapshot{Raw: []byte{1, 2, 3}}}
	d.nextRegID = 2

	id := d.nextRegID
	d.savedRegs[id] = savedRegisters{tid: 9, regs: target.RegisterSnapshot{Raw: []byte{4}}}
	d.nextRegID++

	require.Equal(t, uint64(2), id)
	require.Len(t, d.savedRegs, 2)
	require.Equal(t, 9, d.savedRegs[2].tid)
}

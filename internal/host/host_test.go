// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"crypto/md5"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/session"
	"github.com/stretchr/testify/require"
)

func TestToOSFlagsReadWrite(t *testing.T) {
	require.Equal(t, os.O_RDONLY, toOSFlags(session.FileRead))
	require.Equal(t, os.O_WRONLY, toOSFlags(session.FileWrite))
	require.Equal(t, os.O_RDWR, toOSFlags(session.FileRead|session.FileWrite))
	require.Equal(t, os.O_RDWR|os.O_CREATE|os.O_TRUNC,
		toOSFlags(session.FileRead|session.FileWrite|session.FileCreate|session.FileTruncate))
}

func TestOSFileOpenWriteReadClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")

	f := NewOSFile()
	h, err := f.Open(path, session.FileWrite|session.FileCreate|session.FileTruncate, 0o644)
	require.NoError(t, err)

	n, err := f.PWrite(h, 0, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.NoError(t, f.Close(h))

	h2, err := f.Open(path, session.FileRead, 0)
	require.NoError(t, err)
	data, err := f.PRead(h2, 0, 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
	require.NoError(t, f.Close(h2))
}

func TestOSFileCloseUnknownHandleErrors(t *testing.T) {
	f := NewOSFile()
	err := f.Close(9999)
	require.Error(t, err)
	require.Equal(t, rdbgerr.KInvalidHandle, rdbgerr.KindOf(err))
}

func TestOSFileExistsMD5Size(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	f := NewOSFile()
	ok, err := f.Exists(path)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.Exists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.False(t, ok)

	sum, err := f.MD5(path)
	require.NoError(t, err)
	require.Equal(t, md5.Sum([]byte("abc")), sum)

	size, err := f.Size(path)
	require.NoError(t, err)
	require.Equal(t, int64(3), size)
}

func TestOSFileStatReportsMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	f := NewOSFile()
	st, err := f.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(1), st.Size)
	require.Equal(t, uint32(0o600), st.Mode&0o777)
}

func TestWaitStatusExitCode(t *testing.T) {
	require.Equal(t, 0, WaitStatusExitCode(syscall.WaitStatus(0)))
}

func TestShellRunsCommand(t *testing.T) {
	out, err := Shell("echo -n hi")
	require.NoError(t, err)
	require.Equal(t, "hi", out)
}

func TestShellReportsNonZeroExitWithoutError(t *testing.T) {
	out, err := Shell("exit 3")
	require.NoError(t, err, "a non-zero exit status is not returned as a Go error")
	require.Equal(t, "", out)
}

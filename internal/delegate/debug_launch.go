// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delegate

import (
	"fmt"

	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/session"
)

func (d *DebugSessionImpl) SetEnv(key, value string) error {
	d.mu.Lock()
	d.params.env[key] = value
	d.mu.Unlock()
	return nil
}

func (d *DebugSessionImpl) SetWorkingDir(dir string) error {
	d.mu.Lock()
	d.params.workdir = dir
	d.mu.Unlock()
	return nil
}

func (d *DebugSessionImpl) SetStdin(path string) error {
	d.mu.Lock()
	d.params.stdin = path
	d.mu.Unlock()
	return nil
}

func (d *DebugSessionImpl) SetStdout(path string) error {
	d.mu.Lock()
	d.params.stdout = path
	d.mu.Unlock()
	return nil
}

func (d *DebugSessionImpl) SetStderr(path string) error {
	d.mu.Lock()
	d.params.stderr = path
	d.mu.Unlock()
	return nil
}

func (d *DebugSessionImpl) SetDisableASLR(disable bool) error {
	d.mu.Lock()
	d.params.disableASLR = disable
	d.mu.Unlock()
	return nil
}

func (d *DebugSessionImpl) SetLaunchArch(archName string) error {
	d.mu.Lock()
	d.params.launchArch = archName
	d.mu.Unlock()
	return nil
}

// RemoteCommand implements qRcmd's monitor-command surface; the server's
// "exit" special case is handled entirely in session.handleQRcmd before
// reaching here, so only genuine monitor commands arrive.
func (d *DebugSessionImpl) RemoteCommand(cmd string) (string, error) {
	switch cmd {
	case "help":
		return "monitor commands: help", nil
	default:
		return "", rdbgerr.New("qRcmd", rdbgerr.KUnsupported, fmt.Errorf("unknown monitor command %q", cmd))
	}
}

// --- vFile forwarding to host.File ---

func (d *DebugSessionImpl) FileOpen(path string, flags session.FileOpenFlags, mode uint32) (int, error) {
	return d.file.Open(path, flags, mode)
}
func (d *DebugSessionImpl) FileClose(handle int) error { return d.file.Close(handle) }
func (d *DebugSessionImpl) FilePRead(handle int, offset int64, length int) ([]byte, error) {
	return d.file.PRead(handle, offset, length)
}
func (d *DebugSessionImpl) FilePWrite(handle int, offset int64, data []byte) (int, error) {
	return d.file.PWrite(handle, offset, data)
}
func (d *DebugSessionImpl) FileUnlink(path string) error             { return d.file.Unlink(path) }
func (d *DebugSessionImpl) FileReadlink(path string) (string, error) { return d.file.Readlink(path) }
func (d *DebugSessionImpl) FileExists(path string) (bool, error)     { return d.file.Exists(path) }
func (d *DebugSessionImpl) FileMD5(path string) ([16]byte, error)    { return d.file.MD5(path) }
func (d *DebugSessionImpl) FileSize(path string) (int64, error)      { return d.file.Size(path) }
func (d *DebugSessionImpl) FileStat(path string) (session.FileStat, error) {
	return d.file.Stat(path)
}

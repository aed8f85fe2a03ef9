// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host defines the out-of-scope host-OS collaborators spec.md §1
// names only by the operations the core consumes: file access for the
// vFile:* surface, process spawning for vRun, and process enumeration for
// platform-mode qfProcessInfo/qsProcessInfo. OSFile, OSSpawner and
// OSProcessLister back the three with the real OS, grounded on the teacher's minimal
// program/server collaborator shape (Spawner in internal/target).
package host

import (
	"crypto/md5"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/session"
)

// File is the host file-access collaborator the vFile:* handlers route to.
type File interface {
	Open(path string, flags session.FileOpenFlags, mode uint32) (handle int, err error)
	Close(handle int) error
	PRead(handle int, offset int64, length int) ([]byte, error)
	PWrite(handle int, offset int64, data []byte) (int, error)
	Unlink(path string) error
	Readlink(path string) (string, error)
	Exists(path string) (bool, error)
	MD5(path string) ([16]byte, error)
	Size(path string) (int64, error)
	Stat(path string) (session.FileStat, error)
}

// OSFile is the real-filesystem File implementation.
type OSFile struct {
	files fileTable
}

type fileTable struct {
	next    int
	entries map[int]*os.File
}

// NewOSFile returns a File backed by the real filesystem.
func NewOSFile() *OSFile {
	return &OSFile{files: fileTable{next: 1, entries: make(map[int]*os.File)}}
}

func toOSFlags(f session.FileOpenFlags) int {
	flags := 0
	switch {
	case f&session.FileRead != 0 && f&session.FileWrite != 0:
		flags |= os.O_RDWR
	case f&session.FileWrite != 0:
		flags |= os.O_WRONLY
	default:
		flags |= os.O_RDONLY
	}
	if f&session.FileAppend != 0 {
		flags |= os.O_APPEND
	}
	if f&session.FileCreate != 0 {
		flags |= os.O_CREATE
	}
	if f&session.FileTruncate != 0 {
		flags |= os.O_TRUNC
	}
	if f&session.FileNewOnly != 0 {
		flags |= os.O_EXCL
	}
	return flags
}

func (h *OSFile) Open(path string, flags session.FileOpenFlags, mode uint32) (int, error) {
	f, err := os.OpenFile(path, toOSFlags(flags), os.FileMode(mode))
	if err != nil {
		return 0, translateOSErr("open", err)
	}
	h.files.next++
	handle := h.files.next
	h.files.entries[handle] = f
	return handle, nil
}

func (h *OSFile) lookup(handle int) (*os.File, error) {
	f, ok := h.files.entries[handle]
	if !ok {
		return nil, rdbgerr.New("vFile", rdbgerr.KInvalidHandle, fmt.Errorf("no open handle %d", handle))
	}
	return f, nil
}

func (h *OSFile) Close(handle int) error {
	f, err := h.lookup(handle)
	if err != nil {
		return err
	}
	delete(h.files.entries, handle)
	return f.Close()
}

func (h *OSFile) PRead(handle int, offset int64, length int) ([]byte, error) {
	f, err := h.lookup(handle)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return nil, translateOSErr("pread", err)
	}
	return buf[:n], nil
}

func (h *OSFile) PWrite(handle int, offset int64, data []byte) (int, error) {
	f, err := h.lookup(handle)
	if err != nil {
		return 0, err
	}
	n, err := f.WriteAt(data, offset)
	if err != nil {
		return n, translateOSErr("pwrite", err)
	}
	return n, nil
}

func (h *OSFile) Unlink(path string) error {
	if err := os.Remove(path); err != nil {
		return translateOSErr("unlink", err)
	}
	return nil
}

func (h *OSFile) Readlink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", translateOSErr("readlink", err)
	}
	return target, nil
}

func (h *OSFile) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, translateOSErr("exists", err)
}

func (h *OSFile) MD5(path string) ([16]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [16]byte{}, translateOSErr("MD5", err)
	}
	return md5.Sum(data), nil
}

func (h *OSFile) Size(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, translateOSErr("size", err)
	}
	return fi.Size(), nil
}

func (h *OSFile) Stat(path string) (session.FileStat, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return session.FileStat{}, translateOSErr("fstat", err)
	}
	st := session.FileStat{Size: fi.Size(), Mode: uint32(fi.Mode()), MTime: fi.ModTime().Unix()}
	return st, nil
}

func translateOSErr(op string, err error) error {
	switch {
	case os.IsNotExist(err):
		return rdbgerr.New(op, rdbgerr.KNotFound, err)
	case os.IsPermission(err):
		return rdbgerr.New(op, rdbgerr.KNoPermission, err)
	default:
		return rdbgerr.New(op, rdbgerr.KUnknown, err)
	}
}

// ProcessLister enumerates host processes for platform-mode's
// qfProcessInfo/qsProcessInfo, per spec.md §4.4/§6.
type ProcessLister interface {
	List() ([]session.ProcessSummary, error)
}

// OSProcessLister lists processes by reading /proc on Linux.
type OSProcessLister struct{}

func (OSProcessLister) List() ([]session.ProcessSummary, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, rdbgerr.New("qfProcessInfo", rdbgerr.KUnknown, err)
	}
	var out []session.ProcessSummary
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		comm, _ := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		out = append(out, session.ProcessSummary{Pid: pid, Name: strings.TrimSpace(string(comm))})
	}
	return out, nil
}

// Shell runs command via the host shell for qPlatform_shell, per spec.md
// §4.4's platform-mode component.
func Shell(command string) (string, error) {
	cmd := exec.Command("/bin/sh", "-c", command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return string(out), rdbgerr.New("qPlatform_shell", rdbgerr.KUnknown, err)
		}
	}
	return string(out), nil
}

// WaitStatusExitCode extracts a POSIX exit code from a syscall.WaitStatus,
// used by spawner implementations translating os/exec results.
func WaitStatusExitCode(ws syscall.WaitStatus) int {
	if ws.Exited() {
		return ws.ExitStatus()
	}
	return -1
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session implements SessionBase (frame I/O) and Session (the
// ~150 command handlers) of spec.md §4.3-§4.4, dispatched to a
// SessionDelegate — the pure capability surface of spec.md §4.5 that
// DebugSessionImpl and PlatformSessionImpl implement.
package session

import (
	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/rsp"
	"github.com/rdbg/rgdbserver/internal/target"
)

// ResumeAction is one per-thread (or global, when Ptid.TidAny && Ptid.PidAny)
// action of a vCont-style resume request, per spec.md §4.4.
type ResumeAction struct {
	Ptid   rsp.ProcessThreadID
	Global bool
	Step   bool
	Signal int   // 0 if none
	Addr   uint64 // for the rarely-used "resume/step at address" forms
	HasAddr bool
}

// Feature is one entry of a qSupported exchange, per spec.md §3.
type Feature struct {
	Name  string
	Flag  FeatureFlag
	Value string
}

type FeatureFlag int

const (
	FeatureSupported FeatureFlag = iota
	FeatureNotSupported
	FeatureQuerySupported
)

// FileOpenFlags is the normalized, OS/dialect-independent flag set of
// spec.md §6's vFile surface.
type FileOpenFlags int

const (
	FileRead FileOpenFlags = 1 << iota
	FileWrite
	FileAppend
	FileTruncate
	FileNonBlocking
	FileCreate
	FileNewOnly
	FileNoFollow
	FileCloseOnExec
)

// FileStat is the subset of stat(2) vFile:fstat/size need, per
// SPEC_FULL.md §3.
type FileStat struct {
	Size  int64
	Mode  uint32
	MTime int64
}

// SessionDelegate is the single capability surface every debugger
// operation routes through, per spec.md §4.5 and design note §9: a single
// interface with a default-unsupported base (UnsupportedDelegate),
// overridden piecemeal by DebugSessionImpl and PlatformSessionImpl.
type SessionDelegate interface {
	// --- process/thread lifecycle ---
	Attach(pid int) error
	AttachName(name string) error
	AttachWait(name string) error
	AttachOrWait(name string) error
	Run(argv []string) error
	Kill() error
	Detach() error

	// --- execution control ---
	OnResume(actions []ResumeAction) error
	WaitForStop() (target.StopInfo, error)
	OnInterrupt() error
	QueryStopInfo(ptid rsp.ProcessThreadID) (target.StopInfo, error)
	CurrentThread() (rsp.ProcessThreadID, error)
	ListThreads() ([]rsp.ProcessThreadID, error)
	ThreadsInfoJSON() (string, error)

	// --- registers ---
	ReadRegisters(ptid rsp.ProcessThreadID) ([]byte, error)
	WriteRegisters(ptid rsp.ProcessThreadID, data []byte) error
	ReadRegister(ptid rsp.ProcessThreadID, regnum int) ([]byte, error)
	WriteRegister(ptid rsp.ProcessThreadID, regnum int, data []byte) error
	SaveRegisterState(ptid rsp.ProcessThreadID) (uint64, error)
	RestoreRegisterState(ptid rsp.ProcessThreadID, id uint64) error

	// --- memory ---
	ReadMemory(addr uint64, length int) ([]byte, error)
	WriteMemory(addr uint64, data []byte) error
	AllocateMemory(size uint64, permissions string) (uint64, error)
	DeallocateMemory(addr uint64) error
	MemoryRegionInfo(addr uint64) (target.MemoryRegion, error)

	// --- breakpoints ---
	InsertBreakpoint(kind int, addr uint64, size int) error
	RemoveBreakpoint(kind int, addr uint64, size int) error

	// --- qXfer-backed objects ---
	ReadFeaturesXML() ([]byte, error)
	ReadAuxiliaryVector() ([]byte, error)
	ReadLibraries() ([]byte, error)
	ReadLibrariesSVR4() ([]byte, error)
	Offsets() (text, data, bss uint64, err error)

	// --- launch parameter accumulation ---
	SetEnv(key, value string) error
	SetWorkingDir(dir string) error
	SetStdin(path string) error
	SetStdout(path string) error
	SetStderr(path string) error
	SetDisableASLR(disable bool) error
	SetLaunchArch(arch string) error

	// --- qSupported negotiation ---
	Supported(clientFeatures []Feature) ([]Feature, error)

	// --- host file operations ---
	FileOpen(path string, flags FileOpenFlags, mode uint32) (handle int, err error)
	FileClose(handle int) error
	FilePRead(handle int, offset int64, length int) ([]byte, error)
	FilePWrite(handle int, offset int64, data []byte) (int, error)
	FileUnlink(path string) error
	FileReadlink(path string) (string, error)
	FileExists(path string) (bool, error)
	FileMD5(path string) ([16]byte, error)
	FileSize(path string) (int64, error)
	FileStat(path string) (FileStat, error)

	// --- platform-mode operations ---
	ListProcesses() ([]ProcessSummary, error)
	RemoteShell(command string) (string, error)
	LaunchGDBServer(addr string) (pid int, port int, err error)

	// --- misc ---
	RemoteCommand(cmd string) (string, error)
}

// OutputSink lets a delegate forward captured child stdout/stderr to the
// client as "O<hex>" packets while a resume is in flight, per spec.md
// §4.5 step 5. *Session implements it.
type OutputSink interface {
	SendOutput(data []byte) error
}

// OutputSinkSetter is implemented by delegates that can forward live child
// output (DebugSessionImpl). NewSession wires it via a type assertion, the
// same optional-interface pattern channel.TimeoutReader uses for
// QueueChannel: delegates (or tests) that don't implement it simply never
// get output forwarding wired up.
type OutputSinkSetter interface {
	SetOutputSink(OutputSink)
}

// ProcessSummary is one row of the platform-mode process listing of
// spec.md §4.4/§6.
type ProcessSummary struct {
	Pid  int
	Name string
	User string
}

// UnsupportedDelegate implements every SessionDelegate method by returning
// KUnsupported, which Session.errReply maps to the empty "not implemented"
// reply per spec.md §7. DebugSessionImpl and PlatformSessionImpl embed this
// and override only the methods they implement, per design note §9's
// "default-unsupported" strategy.
type UnsupportedDelegate struct{}

func unsupported(op string) error { return rdbgerr.New(op, rdbgerr.KUnsupported, nil) }

func (UnsupportedDelegate) Attach(int) error                     { return unsupported("attach") }
func (UnsupportedDelegate) AttachName(string) error              { return unsupported("attachName") }
func (UnsupportedDelegate) AttachWait(string) error              { return unsupported("attachWait") }
func (UnsupportedDelegate) AttachOrWait(string) error            { return unsupported("attachOrWait") }
func (UnsupportedDelegate) Run([]string) error                   { return unsupported("run") }
func (UnsupportedDelegate) Kill() error                          { return unsupported("kill") }
func (UnsupportedDelegate) Detach() error                        { return unsupported("detach") }
func (UnsupportedDelegate) OnResume([]ResumeAction) error        { return unsupported("resume") }
func (UnsupportedDelegate) WaitForStop() (target.StopInfo, error) {
	return target.StopInfo{}, unsupported("wait")
}
func (UnsupportedDelegate) OnInterrupt() error { return unsupported("interrupt") }
func (UnsupportedDelegate) QueryStopInfo(rsp.ProcessThreadID) (target.StopInfo, error) {
	return target.StopInfo{}, unsupported("queryStopInfo")
}
func (UnsupportedDelegate) CurrentThread() (rsp.ProcessThreadID, error) {
	return rsp.ProcessThreadID{}, unsupported("qC")
}
func (UnsupportedDelegate) ListThreads() ([]rsp.ProcessThreadID, error) {
	return nil, unsupported("listThreads")
}
func (UnsupportedDelegate) ThreadsInfoJSON() (string, error) {
	return "", unsupported("jThreadsInfo")
}
func (UnsupportedDelegate) ReadRegisters(rsp.ProcessThreadID) ([]byte, error) {
	return nil, unsupported("readRegisters")
}
func (UnsupportedDelegate) WriteRegisters(rsp.ProcessThreadID, []byte) error {
	return unsupported("writeRegisters")
}
func (UnsupportedDelegate) ReadRegister(rsp.ProcessThreadID, int) ([]byte, error) {
	return nil, unsupported("readRegister")
}
func (UnsupportedDelegate) WriteRegister(rsp.ProcessThreadID, int, []byte) error {
	return unsupported("writeRegister")
}
func (UnsupportedDelegate) SaveRegisterState(rsp.ProcessThreadID) (uint64, error) {
	return 0, unsupported("QSaveRegisterState")
}
func (UnsupportedDelegate) RestoreRegisterState(rsp.ProcessThreadID, uint64) error {
	return unsupported("QRestoreRegisterState")
}
func (UnsupportedDelegate) ReadMemory(uint64, int) ([]byte, error) {
	return nil, unsupported("readMemory")
}
func (UnsupportedDelegate) WriteMemory(uint64, []byte) error { return unsupported("writeMemory") }
func (UnsupportedDelegate) AllocateMemory(uint64, string) (uint64, error) {
	return 0, unsupported("allocateMemory")
}
func (UnsupportedDelegate) DeallocateMemory(uint64) error { return unsupported("deallocateMemory") }
func (UnsupportedDelegate) MemoryRegionInfo(uint64) (target.MemoryRegion, error) {
	return target.MemoryRegion{}, unsupported("qMemoryRegionInfo")
}
func (UnsupportedDelegate) InsertBreakpoint(int, uint64, int) error {
	return unsupported("insertBreakpoint")
}
func (UnsupportedDelegate) RemoveBreakpoint(int, uint64, int) error {
	return unsupported("removeBreakpoint")
}
func (UnsupportedDelegate) ReadFeaturesXML() ([]byte, error) {
	return nil, unsupported("qXfer:features")
}
func (UnsupportedDelegate) ReadAuxiliaryVector() ([]byte, error) {
	return nil, unsupported("qXfer:auxv")
}
func (UnsupportedDelegate) ReadLibraries() ([]byte, error) {
	return nil, unsupported("qXfer:libraries")
}
func (UnsupportedDelegate) ReadLibrariesSVR4() ([]byte, error) {
	return nil, unsupported("qXfer:libraries-svr4")
}
func (UnsupportedDelegate) Offsets() (uint64, uint64, uint64, error) {
	return 0, 0, 0, unsupported("qOffsets")
}
func (UnsupportedDelegate) SetEnv(string, string) error         { return unsupported("QEnvironment") }
func (UnsupportedDelegate) SetWorkingDir(string) error          { return unsupported("QSetWorkingDir") }
func (UnsupportedDelegate) SetStdin(string) error               { return unsupported("QSetSTDIN") }
func (UnsupportedDelegate) SetStdout(string) error              { return unsupported("QSetSTDOUT") }
func (UnsupportedDelegate) SetStderr(string) error              { return unsupported("QSetSTDERR") }
func (UnsupportedDelegate) SetDisableASLR(bool) error           { return unsupported("QSetDisableASLR") }
func (UnsupportedDelegate) SetLaunchArch(string) error          { return unsupported("QLaunchArch") }
func (UnsupportedDelegate) Supported([]Feature) ([]Feature, error) {
	return nil, unsupported("qSupported")
}
func (UnsupportedDelegate) FileOpen(string, FileOpenFlags, uint32) (int, error) {
	return 0, unsupported("vFile:open")
}
func (UnsupportedDelegate) FileClose(int) error { return unsupported("vFile:close") }
func (UnsupportedDelegate) FilePRead(int, int64, int) ([]byte, error) {
	return nil, unsupported("vFile:pread")
}
func (UnsupportedDelegate) FilePWrite(int, int64, []byte) (int, error) {
	return 0, unsupported("vFile:pwrite")
}
func (UnsupportedDelegate) FileUnlink(string) error       { return unsupported("vFile:unlink") }
func (UnsupportedDelegate) FileReadlink(string) (string, error) {
	return "", unsupported("vFile:readlink")
}
func (UnsupportedDelegate) FileExists(string) (bool, error) {
	return false, unsupported("vFile:exists")
}
func (UnsupportedDelegate) FileMD5(string) ([16]byte, error) {
	return [16]byte{}, unsupported("vFile:MD5")
}
func (UnsupportedDelegate) FileSize(string) (int64, error) { return 0, unsupported("vFile:size") }
func (UnsupportedDelegate) FileStat(string) (FileStat, error) {
	return FileStat{}, unsupported("vFile:fstat")
}
func (UnsupportedDelegate) ListProcesses() ([]ProcessSummary, error) {
	return nil, unsupported("qfProcessInfo")
}
func (UnsupportedDelegate) RemoteShell(string) (string, error) {
	return "", unsupported("qPlatform_shell")
}
func (UnsupportedDelegate) LaunchGDBServer(string) (int, int, error) {
	return 0, 0, unsupported("qLaunchGDBServer")
}
func (UnsupportedDelegate) RemoteCommand(string) (string, error) { return "", unsupported("qRcmd") }

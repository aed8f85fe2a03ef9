// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/rdbg/rgdbserver/internal/channel"
	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/rsp"
	"github.com/rdbg/rgdbserver/internal/target"
)

// Session is the stateful command-interpretation layer of spec.md §4.4: it
// owns the dispatch table, the per-command thread context (ptids['c'],
// ptids['g']), the compat-mode upgrades, and the threadsInStopReply flag.
// Every wire operation is routed through a single SessionDelegate.
type Session struct {
	SessionBase

	delegate SessionDelegate

	in  *rsp.Interpreter
	pp  *rsp.Processor

	mu                 sync.Mutex
	compatMode         rsp.CompatMode
	ptidContinue       rsp.ProcessThreadID
	ptidGeneral        rsp.ProcessThreadID
	threadsInStopReply bool
	nonStopRequested   bool

	pointerSize int // bytes; default 8, set by the caller's architecture

	exit chan struct{}
}

// NewSession wires ch to delegate and registers every command handler.
func NewSession(ch channel.Channel, delegate SessionDelegate) *Session {
	s := &Session{
		SessionBase: newSessionBase(ch),
		delegate:    delegate,
		in:          &rsp.Interpreter{},
		pointerSize: 8,
		exit:        make(chan struct{}),
	}
	s.ptidContinue.PidAny, s.ptidContinue.TidAny = true, true
	s.ptidGeneral.PidAny, s.ptidGeneral.TidAny = true, true
	s.pp = rsp.NewProcessor(s)
	s.registerHandlers()
	if setter, ok := delegate.(OutputSinkSetter); ok {
		setter.SetOutputSink(s)
	}
	return s
}

// SendOutput implements OutputSink: it wraps data as an "O<hex>" console
// packet, per spec.md §4.5 step 5. SessionBase.Send's writeMu already
// serializes this against every other reply, so a delegate's output
// callback can call this concurrently with the command-dispatch goroutine
// without corrupting the wire stream.
func (s *Session) SendOutput(data []byte) error {
	return s.SendString("O" + hex.EncodeToString(data))
}

// Run reads from the channel until it errs (connection closed), feeding
// every chunk to the packet processor, which delivers upcalls synchronously
// on this goroutine — satisfying spec.md §8.7's resume-atomicity property
// since only one command handler ever runs at a time.
func (s *Session) Run() error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-s.exit:
			return nil
		default:
		}
		n, err := s.ch.Read(buf)
		if err != nil {
			s.pp.Flush()
			return err
		}
		s.pp.Feed(buf[:n])
	}
}

// --- rsp.ProcessorHandler ---

func (s *Session) OnPacketData(payload []byte, valid bool) {
	if s.ackEnabled() {
		if valid {
			s.sendAck()
		} else {
			s.sendNak()
			return
		}
	}
	if !valid {
		return
	}
	reply := s.in.Dispatch(string(payload))
	if reply == "" {
		s.SendEmpty()
		return
	}
	s.SendString(reply)
}

func (s *Session) OnACK()              {}
func (s *Session) OnNAK()              {}
func (s *Session) OnInterrupt()        { s.delegate.OnInterrupt() }
func (s *Session) OnInvalidData([]byte) {}

// --- compat-mode helpers ---

func (s *Session) mode() rsp.CompatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compatMode
}

func (s *Session) upgradeToLLDB() {
	s.mu.Lock()
	s.compatMode = rsp.ModeLLDB
	s.mu.Unlock()
}

func (s *Session) upgradeToMultiprocess() {
	s.mu.Lock()
	if s.compatMode == rsp.ModeGDB {
		s.compatMode = rsp.ModeGDBMultiprocess
	}
	s.mu.Unlock()
}

func (s *Session) handleListThreadsInStopReply(string, string) string {
	s.mu.Lock()
	s.threadsInStopReply = true
	s.mu.Unlock()
	s.upgradeToLLDB()
	return "OK"
}

func (s *Session) handleThreadSuffixSupported(string, string) string {
	s.upgradeToLLDB()
	return "OK"
}

// --- registration ---

func (s *Session) registerHandlers() {
	eq := rsp.MatchEquals
	sw := rsp.MatchStartsWith

	s.in.Register(eq, "?", s.handleStopQuery)
	s.in.Register(sw, "qThreadStopInfo", s.handleThreadStopInfo)
	s.in.Register(eq, "qC", s.handleQC)
	s.in.Register(eq, "qOffsets", s.handleQOffsets)
	s.in.Register(eq, "H", s.handleH)

	s.in.Register(eq, "c", s.handleResumeLegacy)
	s.in.Register(eq, "C", s.handleResumeLegacy)
	s.in.Register(eq, "s", s.handleResumeLegacy)
	s.in.Register(eq, "S", s.handleResumeLegacy)
	s.in.Register(eq, "vCont", s.handleVCont)
	s.in.Register(eq, "vCont?", s.handleVContQuery)

	s.in.Register(eq, "g", s.handleReadRegisters)
	s.in.Register(eq, "G", s.handleWriteRegisters)
	s.in.Register(eq, "p", s.handleReadRegister)
	s.in.Register(eq, "P", s.handleWriteRegister)

	s.in.Register(eq, "m", s.handleReadMemory)
	s.in.Register(eq, "M", s.handleWriteMemoryHex)
	s.in.Register(eq, "X", s.handleWriteMemoryBinary)
	s.in.Register(eq, "x", s.handleReadMemoryBinary)

	s.in.Register(eq, "Z", s.handleInsertBreakpoint)
	s.in.Register(eq, "z", s.handleRemoveBreakpoint)

	s.in.Register(sw, "qXfer", s.handleQXfer)
	s.in.Register(eq, "qSupported", s.handleQSupported)
	s.in.Register(eq, "QStartNoAckMode", s.handleStartNoAckMode)
	s.in.Register(eq, "QListThreadsInStopReply", s.handleListThreadsInStopReply)
	s.in.Register(eq, "QThreadSuffixSupported", s.handleThreadSuffixSupported)
	s.in.Register(eq, "QNonStop", s.handleQNonStop)

	s.in.Register(sw, "vFile", s.handleVFile)

	s.in.Register(eq, "vAttach", s.handleVAttach)
	s.in.Register(eq, "vAttachName", s.handleVAttachName)
	s.in.Register(eq, "vAttachWait", s.handleVAttachWait)
	s.in.Register(eq, "vAttachOrWait", s.handleVAttachOrWait)
	s.in.Register(eq, "vRun", s.handleVRun)
	s.in.Register(eq, "vKill", s.handleVKill)

	s.in.Register(eq, "QEnvironment", s.handleQEnvironment)
	s.in.Register(eq, "QEnvironmentHexEncoded", s.handleQEnvironmentHex)
	s.in.Register(eq, "QSetWorkingDir", s.handleQSetWorkingDir)
	s.in.Register(eq, "QSetSTDIN", s.handleQSetStdin)
	s.in.Register(eq, "QSetSTDOUT", s.handleQSetStdout)
	s.in.Register(eq, "QSetSTDERR", s.handleQSetStderr)
	s.in.Register(eq, "QSetDisableASLR", s.handleQSetDisableASLR)
	s.in.Register(eq, "QLaunchArch", s.handleQLaunchArch)

	s.in.Register(eq, "jThreadsInfo", s.handleJThreadsInfo)
	s.in.Register(eq, "qRcmd", s.handleQRcmd)

	s.in.Register(eq, "D", s.handleDetach)
	s.in.Register(eq, "k", s.handleKill)

	s.in.Register(eq, "QSaveRegisterState", s.handleSaveRegisterState)
	s.in.Register(eq, "QRestoreRegisterState", s.handleRestoreRegisterState)
}

// --- ? / qThreadStopInfo ---

func (s *Session) handleStopQuery(string, string) string {
	si, err := s.delegate.QueryStopInfo(s.effectiveGeneralPtid(""))
	if err != nil {
		return s.errReply(err)
	}
	return s.formatStopReply(si)
}

func (s *Session) handleThreadStopInfo(_ string, args string) string {
	ptid, err := rsp.ParsePtid(args, s.mode())
	if err != nil {
		return s.errReply(err)
	}
	si, err := s.delegate.QueryStopInfo(ptid)
	if err != nil {
		return s.errReply(err)
	}
	return s.formatStopReply(si)
}

func (s *Session) handleQC(string, string) string {
	ptid, err := s.delegate.CurrentThread()
	if err != nil {
		return s.errReply(err)
	}
	return "QC" + ptid.Format(s.mode())
}

func (s *Session) handleQOffsets(string, string) string {
	text, data, bss, err := s.delegate.Offsets()
	if err != nil {
		return s.errReply(err)
	}
	return fmt.Sprintf("Text=%x;Data=%x;Bss=%x", text, data, bss)
}

func (s *Session) handleQNonStop(_ string, args string) string {
	// Non-stop mode is declared unsupported at the handshake per
	// SPEC_FULL.md's redesign of spec.md §9's open question: reject
	// "QNonStop:1" outright instead of partially handling it.
	if args == "1" {
		return fmt.Sprintf("E%02x", int(rdbgerr.KInvalidArgument))
	}
	return "OK"
}

// --- H ---

func (s *Session) handleH(_ string, args string) string {
	if len(args) == 0 {
		return s.errReply(rdbgerr.New("H", rdbgerr.KInvalidArgument, nil))
	}
	op := args[0]
	ptid, err := rsp.ParsePtid(args[1:], s.mode())
	if err != nil {
		return s.errReply(err)
	}
	if ptid.PidAll {
		return s.errReply(rdbgerr.New("H", rdbgerr.KInvalidArgument, fmt.Errorf("p-1.tid rejected")))
	}
	s.mu.Lock()
	switch op {
	case 'c':
		s.ptidContinue = ptid
	case 'g':
		s.ptidGeneral = ptid
	default:
		s.mu.Unlock()
		return s.errReply(rdbgerr.New("H", rdbgerr.KInvalidArgument, fmt.Errorf("unknown op class %q", op)))
	}
	s.mu.Unlock()
	return "OK"
}

// --- D / k ---

func (s *Session) handleDetach(string, string) string {
	err := s.delegate.Detach()
	if err == nil {
		close(s.exit)
	}
	return s.errReply(err)
}

func (s *Session) handleKill(string, string) string {
	s.delegate.Kill()
	close(s.exit)
	return ""
}

// --- register-save/restore (QSaveRegisterState/QRestoreRegisterState) ---

func (s *Session) handleSaveRegisterState(string, string) string {
	id, err := s.delegate.SaveRegisterState(s.effectiveGeneralPtid(""))
	if err != nil {
		return s.errReply(err)
	}
	return fmt.Sprintf("%d", id)
}

func (s *Session) handleRestoreRegisterState(_ string, args string) string {
	var id uint64
	fmt.Sscanf(args, "%d", &id)
	err := s.delegate.RestoreRegisterState(s.effectiveGeneralPtid(""), id)
	return s.errReply(err)
}

// --- shared helpers ---

func (s *Session) errReply(err error) string {
	if err == nil {
		return "OK"
	}
	kind := rdbgerr.KindOf(err)
	if kind == rdbgerr.KUnsupported || kind == rdbgerr.KUnknown {
		return ""
	}
	return fmt.Sprintf("E%02x", int(kind))
}

// effectiveGeneralPtid resolves the thread a register/memory op targets:
// an LLDB ";thread:XXX" suffix on suffix (if present) wins over ptids['g'],
// per spec.md §4.4.
func (s *Session) effectiveGeneralPtid(suffix string) rsp.ProcessThreadID {
	if suffix != "" {
		if ptid, err := rsp.ParsePtid("thread:"+suffix, s.mode()); err == nil {
			return ptid
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ptidGeneral
}

func splitThreadSuffix(args string) (body, suffix string) {
	const marker = ";thread:"
	if idx := strings.Index(args, marker); idx >= 0 {
		return args[:idx], args[idx+len(marker):]
	}
	return args, ""
}

// formatStopReply renders a StopInfo as T/S/W/X per spec.md §3, grounded on
// the T-packet field grammar parsed by
// _examples/other_examples/b667341e_nkbai-tgo__debugapi-lldb-client.go.go
// (handleTPacket/handleWPacket/handleXPacket), generalized to the server
// (encoding) side.
func (s *Session) formatStopReply(si target.StopInfo) string {
	switch si.Event {
	case target.EventExit:
		return fmt.Sprintf("W%02x", si.ExitStatus&0xff)
	case target.EventKill:
		return fmt.Sprintf("X%02x", si.Signal&0xff)
	case target.EventNone:
		return ""
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "T%02x", si.Signal&0xff)
		ptid := rsp.ProcessThreadID{Pid: int64(si.Pid), Tid: int64(si.Tid)}
		fmt.Fprintf(&b, "thread:%s;", ptid.Format(s.mode()))
		if si.ThreadName != "" {
			fmt.Fprintf(&b, "name:%s;", si.ThreadName)
		}
		if si.HasWatchpoint {
			fmt.Fprintf(&b, "watch:%x;", si.WatchpointAddr)
		}
		s.mu.Lock()
		includeThreads := s.threadsInStopReply
		s.mu.Unlock()
		if includeThreads && len(si.LiveTids) > 0 {
			parts := make([]string, len(si.LiveTids))
			for i, t := range si.LiveTids {
				parts[i] = fmt.Sprintf("%x", t)
			}
			fmt.Fprintf(&b, "threads:%s;", strings.Join(parts, ","))
		}
		return b.String()
	}
}

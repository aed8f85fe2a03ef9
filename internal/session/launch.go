// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/rdbg/rgdbserver/internal/rdbgerr"
)

func (s *Session) handleVAttach(_ string, args string) string {
	pid, err := strconv.ParseInt(args, 16, 32)
	if err != nil {
		return s.errReply(rdbgerr.New("vAttach", rdbgerr.KInvalidArgument, err))
	}
	if err := s.delegate.Attach(int(pid)); err != nil {
		return s.errReply(err)
	}
	si, err := s.delegate.QueryStopInfo(s.effectiveGeneralPtid(""))
	if err != nil {
		return s.errReply(err)
	}
	return s.formatStopReply(si)
}

func (s *Session) handleVAttachName(_ string, args string) string {
	return s.errReply(s.delegate.AttachName(hexDecodePath(args)))
}

func (s *Session) handleVAttachWait(_ string, args string) string {
	return s.errReply(s.delegate.AttachWait(hexDecodePath(args)))
}

func (s *Session) handleVAttachOrWait(_ string, args string) string {
	return s.errReply(s.delegate.AttachOrWait(hexDecodePath(args)))
}

// handleVRun implements "vRun;<hex-argv0>;<hex-arg1>;...", per spec.md
// §4.4: the accumulated QEnvironment*/QSetWorkingDir/QSetSTDIN etc. launch
// parameters are applied by the delegate when it spawns the child.
func (s *Session) handleVRun(_ string, args string) string {
	var argv []string
	for _, f := range strings.Split(args, ";") {
		if f == "" {
			continue
		}
		argv = append(argv, hexDecodePath(f))
	}
	if err := s.delegate.Run(argv); err != nil {
		return s.errReply(err)
	}
	si, err := s.delegate.QueryStopInfo(s.effectiveGeneralPtid(""))
	if err != nil {
		return s.errReply(err)
	}
	return s.formatStopReply(si)
}

func (s *Session) handleVKill(string, string) string {
	if err := s.delegate.Kill(); err != nil {
		return s.errReply(err)
	}
	return "OK"
}

func (s *Session) handleQEnvironment(_ string, args string) string {
	key, value, _ := strings.Cut(args, "=")
	return s.errReply(s.delegate.SetEnv(key, value))
}

func (s *Session) handleQEnvironmentHex(_ string, args string) string {
	decoded := hexDecodePath(args)
	key, value, _ := strings.Cut(decoded, "=")
	return s.errReply(s.delegate.SetEnv(key, value))
}

func (s *Session) handleQSetWorkingDir(_ string, args string) string {
	return s.errReply(s.delegate.SetWorkingDir(hexDecodePath(args)))
}

func (s *Session) handleQSetStdin(_ string, args string) string {
	return s.errReply(s.delegate.SetStdin(hexDecodePath(args)))
}

func (s *Session) handleQSetStdout(_ string, args string) string {
	return s.errReply(s.delegate.SetStdout(hexDecodePath(args)))
}

func (s *Session) handleQSetStderr(_ string, args string) string {
	return s.errReply(s.delegate.SetStderr(hexDecodePath(args)))
}

func (s *Session) handleQSetDisableASLR(_ string, args string) string {
	return s.errReply(s.delegate.SetDisableASLR(args == "1"))
}

func (s *Session) handleQLaunchArch(_ string, args string) string {
	return s.errReply(s.delegate.SetLaunchArch(args))
}

// handleJThreadsInfo implements "jThreadsInfo": a JSON array of per-thread
// stop dictionaries, sent unescaped per spec.md §4.4.
func (s *Session) handleJThreadsInfo(string, string) string {
	payload, err := s.delegate.ThreadsInfoJSON()
	if err != nil {
		return s.errReply(err)
	}
	return payload
}

// handleQRcmd decodes a hex-encoded monitor command and special-cases
// "exit" to terminate the server after acking, per spec.md §4.4.
func (s *Session) handleQRcmd(_ string, args string) string {
	raw, err := hex.DecodeString(args)
	if err != nil {
		return s.errReply(rdbgerr.New("qRcmd", rdbgerr.KInvalidArgument, err))
	}
	cmd := strings.TrimSpace(string(raw))
	if cmd == "exit" {
		defer close(s.exit)
		return "OK"
	}
	out, err := s.delegate.RemoteCommand(cmd)
	if err != nil {
		return s.errReply(err)
	}
	return hex.EncodeToString([]byte(fmt.Sprintf("%s\n", out)))
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/rsp"
)

func parseAddrLen(args string) (addr uint64, length int, err error) {
	addrStr, lenStr, ok := strings.Cut(args, ",")
	if !ok {
		return 0, 0, rdbgerr.New("mem", rdbgerr.KInvalidArgument, nil)
	}
	addr, err = rsp.ParseAddress(addrStr)
	if err != nil {
		return 0, 0, rdbgerr.New("mem", rdbgerr.KInvalidArgument, err)
	}
	l, err := strconv.ParseInt(lenStr, 16, 32)
	if err != nil {
		return 0, 0, rdbgerr.New("mem", rdbgerr.KInvalidArgument, err)
	}
	return addr, int(l), nil
}

// handleReadMemory implements "m<addr>,<len>": hex-encoded bytes.
func (s *Session) handleReadMemory(_ string, args string) string {
	addr, length, err := parseAddrLen(args)
	if err != nil {
		return s.errReply(err)
	}
	data, err := s.delegate.ReadMemory(addr, length)
	if err != nil {
		return s.errReply(err)
	}
	return hex.EncodeToString(data)
}

// handleReadMemoryBinary implements "x<addr>,<len>": same as m, but the
// reply is the raw bytes instead of hex, per the LLDB dialect's binary
// memory extension; the send path binary-escapes them once on the wire.
func (s *Session) handleReadMemoryBinary(_ string, args string) string {
	addr, length, err := parseAddrLen(args)
	if err != nil {
		return s.errReply(err)
	}
	data, err := s.delegate.ReadMemory(addr, length)
	if err != nil {
		return s.errReply(err)
	}
	return string(data)
}

// handleWriteMemoryHex implements "M<addr>,<len>:<hex-bytes>".
func (s *Session) handleWriteMemoryHex(_ string, args string) string {
	head, dataStr, ok := strings.Cut(args, ":")
	if !ok {
		return s.errReply(rdbgerr.New("M", rdbgerr.KInvalidArgument, nil))
	}
	addr, length, err := parseAddrLen(head)
	if err != nil {
		return s.errReply(err)
	}
	data, err := hex.DecodeString(dataStr)
	if err != nil || len(data) != length {
		return s.errReply(rdbgerr.New("M", rdbgerr.KInvalidArgument, err))
	}
	return s.errReply(s.delegate.WriteMemory(addr, data))
}

// handleWriteMemoryBinary implements "X<addr>,<len>:<binary-escaped-bytes>".
// The interpreter has already unescaped args' tail via its run-length/escape
// expansion, so dataStr here is the raw byte payload.
func (s *Session) handleWriteMemoryBinary(_ string, args string) string {
	head, dataStr, ok := strings.Cut(args, ":")
	if !ok {
		return s.errReply(rdbgerr.New("X", rdbgerr.KInvalidArgument, nil))
	}
	addr, _, err := parseAddrLen(head)
	if err != nil {
		return s.errReply(err)
	}
	return s.errReply(s.delegate.WriteMemory(addr, []byte(dataStr)))
}

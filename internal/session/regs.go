// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"encoding/hex"
	"strconv"

	"github.com/rdbg/rgdbserver/internal/rdbgerr"
)

// handleReadRegisters implements "g": the full register blob for
// ptids['g'] (or its LLDB thread-suffix override), hex-encoded.
func (s *Session) handleReadRegisters(_ string, args string) string {
	_, suffix := splitThreadSuffix(args)
	ptid := s.effectiveGeneralPtid(suffix)
	data, err := s.delegate.ReadRegisters(ptid)
	if err != nil {
		return s.errReply(err)
	}
	return hex.EncodeToString(data)
}

// handleWriteRegisters implements "G<hex-blob>[;thread:tid]".
func (s *Session) handleWriteRegisters(_ string, args string) string {
	body, suffix := splitThreadSuffix(args)
	ptid := s.effectiveGeneralPtid(suffix)
	data, err := hex.DecodeString(body)
	if err != nil {
		return s.errReply(rdbgerr.New("G", rdbgerr.KInvalidArgument, err))
	}
	return s.errReply(s.delegate.WriteRegisters(ptid, data))
}

// handleReadRegister implements "p<regnum>[;thread:tid]".
func (s *Session) handleReadRegister(_ string, args string) string {
	body, suffix := splitThreadSuffix(args)
	ptid := s.effectiveGeneralPtid(suffix)
	regnum, err := strconv.ParseInt(body, 16, 32)
	if err != nil {
		return s.errReply(rdbgerr.New("p", rdbgerr.KInvalidArgument, err))
	}
	data, err := s.delegate.ReadRegister(ptid, int(regnum))
	if err != nil {
		return s.errReply(err)
	}
	return hex.EncodeToString(data)
}

// handleWriteRegister implements "P<regnum>=<hex-value>[;thread:tid]".
func (s *Session) handleWriteRegister(_ string, args string) string {
	body, suffix := splitThreadSuffix(args)
	ptid := s.effectiveGeneralPtid(suffix)
	numStr, valStr, ok := cutEquals(body)
	if !ok {
		return s.errReply(rdbgerr.New("P", rdbgerr.KInvalidArgument, nil))
	}
	regnum, err := strconv.ParseInt(numStr, 16, 32)
	if err != nil {
		return s.errReply(rdbgerr.New("P", rdbgerr.KInvalidArgument, err))
	}
	data, err := hex.DecodeString(valStr)
	if err != nil {
		return s.errReply(rdbgerr.New("P", rdbgerr.KInvalidArgument, err))
	}
	return s.errReply(s.delegate.WriteRegister(ptid, int(regnum), data))
}

func cutEquals(s string) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"strconv"
	"strings"

	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/rsp"
)

func parseBreakpointArgs(args string) (kind int, addr uint64, size int, err error) {
	parts := strings.Split(args, ",")
	if len(parts) < 3 {
		return 0, 0, 0, rdbgerr.New("breakpoint", rdbgerr.KInvalidArgument, nil)
	}
	k, err := strconv.ParseInt(parts[0], 16, 32)
	if err != nil {
		return 0, 0, 0, rdbgerr.New("breakpoint", rdbgerr.KInvalidArgument, err)
	}
	a, err := rsp.ParseAddress(parts[1])
	if err != nil {
		return 0, 0, 0, rdbgerr.New("breakpoint", rdbgerr.KInvalidArgument, err)
	}
	sz, err := strconv.ParseInt(parts[2], 16, 32)
	if err != nil {
		return 0, 0, 0, rdbgerr.New("breakpoint", rdbgerr.KInvalidArgument, err)
	}
	return int(k), a, int(sz), nil
}

// handleInsertBreakpoint implements "Z<type>,<addr>,<kind>", per spec.md
// §4.4: type 0=software, 1=hardware, 2=write-watch, 3=read-watch,
// 4=access-watch.
func (s *Session) handleInsertBreakpoint(_ string, args string) string {
	kind, addr, size, err := parseBreakpointArgs(args)
	if err != nil {
		return s.errReply(err)
	}
	return s.errReply(s.delegate.InsertBreakpoint(kind, addr, size))
}

// handleRemoveBreakpoint implements "z<type>,<addr>,<kind>".
func (s *Session) handleRemoveBreakpoint(_ string, args string) string {
	kind, addr, size, err := parseBreakpointArgs(args)
	if err != nil {
		return s.errReply(err)
	}
	return s.errReply(s.delegate.RemoveBreakpoint(kind, addr, size))
}

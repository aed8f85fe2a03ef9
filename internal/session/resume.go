// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"strconv"
	"strings"
	"sync"

	"github.com/rdbg/rgdbserver/internal/channel"
	"github.com/rdbg/rgdbserver/internal/rsp"
)

// interruptPollMS bounds each watchForInterrupt poll so the goroutine
// reliably notices done closing instead of sitting in a Read call that
// nothing will ever unblock.
const interruptPollMS = 100

// handleResumeLegacy implements the single-letter c/s/C/S commands, each
// equivalent to a one-action vCont applied to ptids['c'] (or every thread,
// if no H c has ever been sent), per spec.md §4.4.
func (s *Session) handleResumeLegacy(command, args string) string {
	a := ResumeAction{Global: true}
	s.mu.Lock()
	if !(s.ptidContinue.PidAny && s.ptidContinue.TidAny) {
		a.Ptid = s.ptidContinue
		a.Global = false
	}
	s.mu.Unlock()

	switch command {
	case "s":
		a.Step = true
	case "C":
		if sig, err := strconv.ParseInt(args, 16, 32); err == nil {
			a.Signal = int(sig)
		}
	case "S":
		a.Step = true
		if sig, err := strconv.ParseInt(args, 16, 32); err == nil {
			a.Signal = int(sig)
		}
	}
	return s.doResume([]ResumeAction{a})
}

// handleVCont parses "vCont;c:p1.2;s:p1.3" et al per spec.md §4.4: a
// semicolon-separated list of action:ptid-list entries, where an entry
// with no ptid is the global (any-thread) action.
func (s *Session) handleVCont(_ string, args string) string {
	parts := strings.Split(args, ";")
	var actions []ResumeAction
	for _, part := range parts {
		if part == "" {
			continue
		}
		actionStr, ptidStr, hasPtid := strings.Cut(part, ":")
		a := ResumeAction{Global: !hasPtid}
		if hasPtid {
			ptid, err := rsp.ParsePtid(ptidStr, s.mode())
			if err != nil {
				return s.errReply(err)
			}
			a.Ptid = ptid
		}
		switch {
		case actionStr == "c":
		case actionStr == "s":
			a.Step = true
		case strings.HasPrefix(actionStr, "C"):
			if sig, err := strconv.ParseInt(actionStr[1:], 16, 32); err == nil {
				a.Signal = int(sig)
			}
		case strings.HasPrefix(actionStr, "S"):
			a.Step = true
			if sig, err := strconv.ParseInt(actionStr[1:], 16, 32); err == nil {
				a.Signal = int(sig)
			}
		default:
			continue
		}
		actions = append(actions, a)
	}
	return s.doResume(actions)
}

func (s *Session) handleVContQuery(string, string) string {
	return "vCont;c;C;s;S"
}

// doResume implements the DebugSessionImpl resume sequence of spec.md §4.5:
// kick off onResume (non-blocking; the delegate rejects a request with more
// than one global action), then block for the next
// reportable stop while a side goroutine watches the channel for an
// out-of-band interrupt byte, per spec.md §5's concurrent interrupt path.
//
// The watcher is joined with wg.Wait before doResume returns, so Run's own
// Read loop never resumes pulling from s.ch until the watcher has fully
// stopped doing the same — the two never read concurrently. That handoff
// is only safe because s.ch is expected to be a channel.QueueChannel in
// production (internal/channel's reader-thread-backed Channel facade):
// its single background goroutine is the only thing that ever touches the
// raw transport, so both the watcher and Run's loop are really just
// competing, serialized consumers of its MessageQueue, not of the socket
// itself.
func (s *Session) doResume(actions []ResumeAction) string {
	if err := s.delegate.OnResume(actions); err != nil {
		return s.errReply(err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go s.watchForInterrupt(done, &wg)

	si, err := s.delegate.WaitForStop()
	close(done)
	wg.Wait()

	if err != nil {
		return s.errReply(err)
	}
	return s.formatStopReply(si)
}

// watchForInterrupt polls the channel for single bytes while a resume is in
// flight, forwarding a 0x03 byte to Delegate.OnInterrupt. Per spec.md §5
// and §8.8, no other packet may arrive during a resume, so any other byte
// observed here is simply dropped (the invariant is a contract on the
// client, not something this loop needs to enforce). Each poll is bounded
// by interruptPollMS so the loop notices done closing promptly, letting
// doResume join it with wg.Wait rather than abandoning it mid-Read.
func (s *Session) watchForInterrupt(done <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, 1)
	for {
		select {
		case <-done:
			return
		default:
		}
		n, err := s.readTimeout(buf, interruptPollMS)
		if err == channel.ErrTimeout {
			continue
		}
		if err != nil {
			return
		}
		if n > 0 && buf[0] == 0x03 {
			s.delegate.OnInterrupt()
			return
		}
	}
}

// readTimeout delegates to s.ch's bounded read when it implements
// channel.TimeoutReader (QueueChannel always does), falling back to a plain
// blocking Read for channels that don't — test fakes, mainly, where an
// unbounded Read is harmless since they return immediately once exhausted.
func (s *Session) readTimeout(p []byte, timeoutMS int) (int, error) {
	if tr, ok := s.ch.(channel.TimeoutReader); ok {
		return tr.ReadTimeout(p, timeoutMS)
	}
	return s.ch.Read(p)
}

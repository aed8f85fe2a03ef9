// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rsp

import (
	"sort"
	"strings"
)

// MatchMode controls whether a registered command string must equal the
// received command exactly, or may match as a prefix, per spec.md §4.2.
type MatchMode int

const (
	MatchEquals MatchMode = iota
	MatchStartsWith
)

// Handler is a registered command handler; args is already unescaped with
// run-length sequences expanded.
type Handler func(command string, args string) string

type entry struct {
	command string
	mode    MatchMode
	handler Handler
}

// Interpreter is the command lookup/dispatch table of spec.md §4.2: a
// sorted-by-command-string list searched so that, among all entries whose
// command matches, the longest wins.
type Interpreter struct {
	entries []entry
	sorted  bool
}

// Register adds a handler for command under the given match mode. The
// caller is expected to register once per command at startup; Register
// does not need to be concurrency-safe.
func (in *Interpreter) Register(mode MatchMode, command string, h Handler) {
	in.entries = append(in.entries, entry{command: command, mode: mode, handler: h})
	in.sorted = false
}

func (in *Interpreter) ensureSorted() {
	if in.sorted {
		return
	}
	sort.Slice(in.entries, func(i, j int) bool {
		return in.entries[i].command < in.entries[j].command
	})
	in.sorted = true
}

// SplitCommand implements spec.md §4.2's command/argument split rules.
func SplitCommand(packet string) (command, args string) {
	if packet == "" {
		return "", ""
	}
	switch packet[0] {
	case 'v', 'q', 'Q':
		idx := strings.IndexAny(packet, ",:;")
		if idx < 0 {
			return packet, ""
		}
		return packet[:idx], packet[idx+1:]
	case 'b':
		if len(packet) > 1 && (packet[1] == 'c' || packet[1] == 's') {
			return splitAt(packet, 2)
		}
		return splitAt(packet, 1)
	case '_':
		if len(packet) > 1 && (packet[1] == 'M' || packet[1] == 'm') {
			return splitAt(packet, 2)
		}
		return splitAt(packet, 1)
	case 'j':
		idx := strings.IndexByte(packet, ':')
		if idx < 0 {
			return packet, ""
		}
		return packet[:idx], packet[idx+1:]
	default:
		return splitAt(packet, 1)
	}
}

func splitAt(s string, n int) (string, string) {
	if len(s) < n {
		return s, ""
	}
	return s[:n], s[n:]
}

// Dispatch looks up the handler for the packet's command (after splitting
// per SplitCommand), unescapes its arguments, and invokes it. If no entry
// matches, it returns the empty string — the wire's "unsupported" reply
// per spec.md §4.2 and §7.
func (in *Interpreter) Dispatch(packet string) string {
	in.ensureSorted()
	command, args := SplitCommand(packet)

	if strings.ContainsAny(args, "*}") {
		args = string(Unescape([]byte(args)))
	}

	var best *entry
	for i := range in.entries {
		e := &in.entries[i]
		switch e.mode {
		case MatchEquals:
			if e.command == command {
				if best == nil || len(e.command) > len(best.command) {
					best = e
				}
			}
		case MatchStartsWith:
			if strings.HasPrefix(command, e.command) {
				if best == nil || len(e.command) > len(best.command) {
					best = e
				}
			}
		}
	}
	if best == nil {
		return ""
	}
	return best.handler(command, args)
}

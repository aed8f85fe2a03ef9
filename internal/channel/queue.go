// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"sync"
	"time"
)

// MessageQueue is a bounded-unbounded FIFO of strings with a blocking Get, a
// timed Wait, and a terminating Clear, per spec.md §4.1 item 2 and the
// ordering/cancellation guarantees of §5 and §8.8.
type MessageQueue struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      []string
	terminated bool
}

// NewMessageQueue returns an empty, non-terminated queue.
func NewMessageQueue() *MessageQueue {
	q := &MessageQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends value, waking one waiter. Has no effect after Clear(true).
func (q *MessageQueue) Put(value string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.terminated {
		return
	}
	q.items = append(q.items, value)
	q.cond.Signal()
}

// Get blocks until a value is available, the queue is cleared, or waitMS
// milliseconds elapse (-1 means forever). Returns ("", false) on timeout or
// termination.
func (q *MessageQueue) Get(waitMS int) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if waitMS < 0 {
		for len(q.items) == 0 && !q.terminated {
			q.cond.Wait()
		}
		return q.pop()
	}

	deadline := time.Now().Add(time.Duration(waitMS) * time.Millisecond)
	for len(q.items) == 0 && !q.terminated {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", false
		}
		// q.mu is held here (Get locked it on entry); the timer callback
		// blocks on the same lock until cond.Wait below atomically
		// releases it, so there is no lost-wakeup race between arming
		// the timer and waiting on it.
		timer := time.AfterFunc(remaining, func() {
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		})
		q.cond.Wait()
		timer.Stop()
	}
	return q.pop()
}

func (q *MessageQueue) pop() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, true
}

// Clear empties the queue. If terminating is true, the queue becomes
// permanently terminated: all current and future waiters return
// immediately with ("", false), per spec.md §5's cancellation guarantee.
func (q *MessageQueue) Clear(terminating bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	if terminating {
		q.terminated = true
	}
	q.cond.Broadcast()
}

// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageQueueOrderAndGet(t *testing.T) {
	q := NewMessageQueue()
	q.Put("a")
	q.Put("b")
	q.Put("c")

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Get(-1)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestMessageQueueTimeout(t *testing.T) {
	q := NewMessageQueue()
	start := time.Now()
	v, ok := q.Get(20)
	require.False(t, ok)
	require.Empty(t, v)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestMessageQueueClearTerminatesWaiters(t *testing.T) {
	q := NewMessageQueue()
	done := make(chan struct{})
	go func() {
		_, ok := q.Get(-1)
		require.False(t, ok)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	q.Clear(true)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get did not unblock after Clear(true)")
	}

	// Subsequent Gets return empty immediately.
	v, ok := q.Get(-1)
	require.False(t, ok)
	require.Empty(t, v)
}

func TestMessageQueueBlockingGetReceivesPut(t *testing.T) {
	q := NewMessageQueue()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Put("hello")
	}()
	v, ok := q.Get(-1)
	require.True(t, ok)
	require.Equal(t, "hello", v)
}

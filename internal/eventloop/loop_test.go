// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package eventloop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoop_RunsInOrder(t *testing.T) {
	l := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() { order = append(order, i) }))
	}
	require.NoError(t, l.Call(ctx, func() error { return nil }))
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)

	cancel()
	require.NoError(t, <-errCh)
	require.False(t, l.Post(func() {}))
}

func TestLoop_CallReturnsError(t *testing.T) {
	l := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	boom := errors.New("boom")
	require.ErrorIs(t, l.Call(context.Background(), func() error { return boom }), boom)

	cancel()
	require.NoError(t, <-errCh)
	require.ErrorIs(t, l.Call(context.Background(), func() error { return nil }), ErrStopped)
}

func TestLoop_RecoversPanics(t *testing.T) {
	l := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	l.Post(func() { panic("bad task") })
	require.NoError(t, l.Call(context.Background(), func() error { return nil }))

	cancel()
	require.NoError(t, <-errCh)
}

func startLoop(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})
}

func TestLoop_TaskPostsPastInitialDepth(t *testing.T) {
	l := New(2)
	startLoop(t, l)

	gate := make(chan struct{})
	finished := make(chan struct{})
	var got []int
	l.Post(func() {
		<-gate
		for i := 0; i < 3; i++ {
			i := i
			l.Post(func() {
				got = append(got, 10+i)
				if i == 2 {
					close(finished)
				}
			})
		}
	})
	require.True(t, l.Post(func() { got = append(got, 1) }))
	require.True(t, l.Post(func() { got = append(got, 2) }))
	close(gate)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("follow-up tasks never ran")
	}
	var snapshot []int
	require.NoError(t, l.Call(context.Background(), func() error {
		snapshot = append(snapshot, got...)
		return nil
	}))
	require.Equal(t, []int{1, 2, 10, 11, 12}, snapshot)
}

func TestLoop_CallSkipsTaskAfterTimeout(t *testing.T) {
	l := New(4)
	startLoop(t, l)

	gate := make(chan struct{})
	l.Post(func() { <-gate })

	var ran atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Call(ctx, func() error {
		ran.Store(true)
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate)
	require.NoError(t, l.Call(context.Background(), func() error { return nil }))
	require.False(t, ran.Load())
	require.Zero(t, l.Len())
}

func TestQueue_FlushRunsNestedPosts(t *testing.T) {
	var q Queue
	var got []string
	q.Post(func() {
		got = append(got, "a")
		q.Post(func() { got = append(got, "c") })
	})
	q.Post(func() { got = append(got, "b") })

	require.Equal(t, 2, q.Len())
	require.Equal(t, 3, q.Flush())
	require.Equal(t, []string{"a", "b", "c"}, got)
	require.Zero(t, q.Len())
}

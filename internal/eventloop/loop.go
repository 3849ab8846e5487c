// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package eventloop serializes session work onto a single goroutine.
// Engine callbacks and client calls are posted here so session state is
// only ever touched from one place.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/umms/internal/log"
)

// ErrStopped is returned when posting to a loop that is not running.
var ErrStopped = errors.New("event loop stopped")

// Dispatcher schedules fn to run on the event loop.
type Dispatcher interface {
	Post(fn func()) bool
}

// Loop runs posted functions in order on one goroutine. Post never blocks:
// tasks running on the loop post follow-ups to it, so a bounded queue
// could wait on itself.
type Loop struct {
	mu      sync.Mutex
	tasks   []func()
	stopped bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a loop whose queue starts with room for depth tasks.
func New(depth int) *Loop {
	if depth <= 0 {
		depth = 256
	}
	return &Loop{
		tasks: make([]func(), 0, depth),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Run executes posted functions until ctx is done. Work accepted before
// shutdown is drained first.
func (l *Loop) Run(ctx context.Context) error {
	logger := log.WithComponent("eventloop")
	defer l.once.Do(func() { close(l.done) })

	for {
		l.drain()
		select {
		case <-l.wake:
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.mu.Unlock()
			l.drain()
			logger.Debug().Str(log.FieldEvent, "eventloop.stopped").Msg("event loop stopped")
			return nil
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		l.exec(fn)
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger := log.WithComponent("eventloop")
			logger.Error().
				Str(log.FieldEvent, "eventloop.panic").
				Str("panic", fmt.Sprint(r)).
				Msg("recovered panic in event loop task")
		}
	}()
	fn()
}

// Post enqueues fn and returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of tasks waiting to run.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Call runs fn on the loop and waits for its result. When ctx ends before
// fn has started, fn is skipped; once started, Call waits for it so that
// nothing fn writes is read early.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	var claimed atomic.Bool
	result := make(chan error, 1)
	ok := l.Post(func() {
		if claimed.CompareAndSwap(false, true) {
			result <- fn()
		}
	})
	if !ok {
		return ErrStopped
	}

	var abort error
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		abort = ctx.Err()
	case <-l.done:
		abort = ErrStopped
	}
	if claimed.CompareAndSwap(false, true) {
		return abort
	}
	return <-result
}

var _ Dispatcher = (*Loop)(nil)

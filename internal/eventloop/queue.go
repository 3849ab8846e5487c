// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventloop

import "sync"

// Queue is a manually driven Dispatcher. Posted work runs only when Flush
// is called, which makes callback ordering explicit in tests.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
}

// Post implements Dispatcher.
func (q *Queue) Post(fn func()) bool {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
	return true
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Flush runs queued tasks, including ones posted while flushing, until the
// queue is empty. It returns the number of tasks run.
func (q *Queue) Flush() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return n
		}
		fn := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		fn()
		n++
	}
}

var _ Dispatcher = (*Queue)(nil)

// Package dispatch runs callbacks one at a time, in posting order, on a
// single goroutine.
//
// It plays the part of a UI main queue: every state notification and
// result callback of a checkout attempt is delivered here, so observers
// see mutations in the order they happened and may call back into their
// producer without deadlocking it.
package dispatch

import (
	"log/slog"
	"sync"
)

// Queue is an unbounded FIFO of callbacks drained by one goroutine.
type Queue struct {
	mu     sync.Mutex
	items  []func()
	closed bool

	wake chan struct{}
	done chan struct{}

	logger *slog.Logger
}

// New starts a queue. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	go q.run()
	return q
}

// Post appends fn to the queue. It never blocks. It reports false when
// the queue is already closed, in which case fn is dropped.
func (q *Queue) Post(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Flush blocks until every callback posted before the call has run.
// It must not be called from a callback running on this queue.
func (q *Queue) Flush() {
	done := make(chan struct{})
	if !q.Post(func() { close(done) }) {
		<-q.done
		return
	}
	<-done
}

// Close stops accepting callbacks, runs the ones already queued and
// waits for the queue goroutine to exit. It is safe to call more than
// once, but not from a callback running on this queue.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.items) == 0 {
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-q.wake
			q.mu.Lock()
		}
		fn := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		q.call(fn)
	}
}

// call runs fn and keeps the queue alive if it panics.
func (q *Queue) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("dispatch: callback panic", "panic", r)
		}
	}()
	fn()
}

// Package tracker counts collaborator calls using atomics.
package tracker

import "sync/atomic"

// Tracker records how many collaborator calls are running right now
// and how many were started in total. The zero value is ready to use
// and a nil *Tracker records nothing.
type Tracker struct {
	running atomic.Int64
	started atomic.Int64
}

// Begin records the start of a call and returns the func that ends it.
func (t *Tracker) Begin() (end func()) {
	if t == nil {
		return func() {}
	}
	t.running.Add(1)
	t.started.Add(1)
	return func() { t.running.Add(-1) }
}

// Running returns the number of calls in progress.
func (t *Tracker) Running() int64 {
	if t == nil {
		return 0
	}
	return t.running.Load()
}

// Started returns the number of calls ever begun.
func (t *Tracker) Started() int64 {
	if t == nil {
		return 0
	}
	return t.started.Load()
}

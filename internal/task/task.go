// Package task runs a function on its own goroutine and exposes only whether
// it has finished and a way to block until it has.
package task

import (
	"fmt"
	"sync/atomic"
)

// Task is a single run of a function. It cannot be restarted.
type Task[T any] struct {
	done     chan struct{}
	finished atomic.Bool
	result   T
	err      error
}

// Go starts fn on a new goroutine. A panic inside fn is recovered and
// reported as the task's error so that a waiting caller always learns about
// the failure.
func Go[T any](fn func() (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go t.run(fn)
	return t
}

func (t *Task[T]) run(fn func() (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("task panicked: %v", r)
		}
		t.finished.Store(true)
		close(t.done)
	}()
	t.result, t.err = fn()
}

// Finished reports whether the function has returned. It never blocks.
func (t *Task[T]) Finished() bool {
	return t.finished.Load()
}

// Done is closed when the function has returned.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the function has returned and yields its result.
// Safe to call more than once and from multiple goroutines.
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	return t.result, t.err
}

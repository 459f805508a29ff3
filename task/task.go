// File: task/task.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Resumable-value types over goroutines: Spawn is the eager fire-and-forget
// flavour used for top-level event handlers, Task is the lazy chainable
// flavour with a typed result. A task's context is the Go rendering of
// frame ownership: cancelling it tears down the operations the task awaits
// with that context (Operation.AwaitContext), which keeps the completion
// core safe when a task is dropped mid-await. Plain Await calls inside the
// task do not observe the cancellation.

package task

import (
	"context"
	"sync"

	"github.com/momentics/hioload-aio/logging"
)

// Spawn runs fn immediately on its own goroutine. It has no awaitable
// surface; panics are logged and swallowed so one handler cannot take the
// process down.
func Spawn(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Errorf("panic in spawned task: %v", r)
			}
		}()
		fn()
	}()
}

// Task is a lazy computation producing a T. It starts suspended and is
// advanced the first time it is awaited. Cancel releases the task: the
// context handed to fn is cancelled and awaited operations inside observe
// it.
type Task[T any] struct {
	fn     func(context.Context) T
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
	result T
}

// New creates a task around fn. fn does not run until the task is awaited.
func New[T any](fn func(context.Context) T) *Task[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task[T]{fn: fn, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// NewWithContext creates a task whose lifetime is additionally bounded by
// parent.
func NewWithContext[T any](parent context.Context, fn func(context.Context) T) *Task[T] {
	ctx, cancel := context.WithCancel(parent)
	return &Task[T]{fn: fn, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

func (t *Task[T]) start() {
	t.once.Do(func() {
		go func() {
			defer close(t.done)
			t.result = t.fn(t.ctx)
		}()
	})
}

// Done starts the task if necessary and returns a channel closed when it
// finished.
func (t *Task[T]) Done() <-chan struct{} {
	t.start()
	return t.done
}

// Await starts the task if necessary and blocks until its result is
// available.
func (t *Task[T]) Await() T {
	t.start()
	<-t.done
	return t.result
}

// AwaitContext is Await bounded by ctx. When ctx wins, the task is
// cancelled and the zero value returned with ctx's error; the task
// goroutine unwinds through its own context.
func (t *Task[T]) AwaitContext(ctx context.Context) (T, error) {
	t.start()
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		t.cancel()
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel drops the task: its context is cancelled so in-flight awaits
// inside that use the context tear their operations down. Idempotent.
func (t *Task[T]) Cancel() { t.cancel() }

// Context returns the task's context, for forwarding into awaited
// operations.
func (t *Task[T]) Context() context.Context { return t.ctx }

// File: concurrent/threadpool.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed worker pool with a mutex+cond task queue. Submit wraps a callable
// into a Promise/Future pair so workers can hand results back to the loop
// through the future's event descriptor.

//go:build linux

package concurrent

import (
	"context"
	"runtime"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-aio/ioqueue"
	"github.com/momentics/hioload-aio/task"
)

// ThreadPool runs queued callables on a fixed set of worker goroutines.
type ThreadPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   *queue.Queue
	running bool
	wg      sync.WaitGroup
}

// NewThreadPool creates a pool with numWorkers workers; zero or negative
// selects the hardware concurrency, with a minimum of one.
func NewThreadPool(numWorkers int) *ThreadPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	p := &ThreadPool{
		tasks:   queue.New(),
		running: true,
	}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Push enqueues a bare task.
func (p *ThreadPool) Push(task func()) {
	p.mu.Lock()
	p.tasks.Add(task)
	p.mu.Unlock()
	p.cond.Signal()
}

// Close stops the workers and joins them. Tasks still queued are dropped.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *ThreadPool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for p.tasks.Length() == 0 && p.running {
			p.cond.Wait()
		}
		if !p.running {
			p.mu.Unlock()
			return
		}
		task := p.tasks.Remove().(func())
		p.mu.Unlock()
		safeExecute(task)
	}
}

func safeExecute(task func()) {
	defer func() { recover() }()
	task()
}

// Submit runs fn on the pool and returns a future for its result.
func Submit[T any](p *ThreadPool, fn func() T) *Future[T] {
	promise := NewPromise[T]()
	future := promise.Future()
	p.Push(func() {
		promise.Set(fn())
	})
	return future
}

var (
	defaultPool     *ThreadPool
	defaultPoolOnce sync.Once
)

// DefaultThreadPool returns the lazily initialized process-wide pool. It is
// never closed: its workers are not joined and end with the process; tests
// must not leak tasks into it.
func DefaultThreadPool() *ThreadPool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewThreadPool(0)
	})
	return defaultPool
}

// AsTask lifts a blocking callable onto the pool and exposes it as a lazy
// task: awaiting the task submits fn and consumes the future on the loop.
func AsTask[T any](q *ioqueue.IoQueue, p *ThreadPool, fn func() T) *task.Task[T] {
	return task.New(func(context.Context) T {
		return Wait(q, Submit(p, fn))
	})
}

// File: concurrent/future.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Promise/Future pair bridging worker threads into the loop. Set publishes
// the value under the shared mutex, wakes blocking Get callers through the
// condition variable and writes one to the owned event descriptor, which
// is how a loop-side Wait learns about readiness.

//go:build linux

package concurrent

import (
	"sync"

	"github.com/momentics/hioload-aio/ioqueue"
	"github.com/momentics/hioload-aio/logging"
)

type sharedState[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	value   T
	ready   bool
	eventFd *EventFd
}

// Promise is the producer half. Set may be called from any thread, exactly
// once.
type Promise[T any] struct {
	shared *sharedState[T]
	issued bool
}

// NewPromise creates a promise with a fresh shared state and event
// descriptor.
func NewPromise[T any]() *Promise[T] {
	s := &sharedState[T]{eventFd: NewEventFd(false)}
	s.cond = sync.NewCond(&s.mu)
	return &Promise[T]{shared: s}
}

// Future returns the consumer half. Only call this once.
func (p *Promise[T]) Future() *Future[T] {
	if p.issued {
		logging.Fatalf("future requested twice from one promise")
	}
	p.issued = true
	return &Future[T]{shared: p.shared}
}

// Set publishes the value. Setting twice is a contract violation.
func (p *Promise[T]) Set(value T) {
	s := p.shared
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		logging.Fatalf("promise set twice")
	}
	s.value = value
	s.ready = true
	s.mu.Unlock()
	s.cond.Broadcast()
	s.eventFd.Write(1)
}

// Future is the consumer half: moveable, single reader.
type Future[T any] struct {
	shared *sharedState[T]
}

// Ready is a non-blocking readiness peek.
func (f *Future[T]) Ready() bool {
	f.shared.mu.Lock()
	defer f.shared.mu.Unlock()
	return f.shared.ready
}

// Get blocks on the condition variable until the value is published.
func (f *Future[T]) Get() T {
	s := f.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.ready {
		s.cond.Wait()
	}
	return s.value
}

// EventFd exposes the readiness descriptor for loop-side waiting.
func (f *Future[T]) EventFd() *EventFd { return f.shared.eventFd }

// Wait consumes a future on the loop: the event descriptor is read through
// the ring, after which the value is known to be published and Get returns
// immediately. Works across threads because Set writes synchronously.
func Wait[T any](q *ioqueue.IoQueue, f *Future[T]) T {
	if f.Ready() {
		return f.Get()
	}
	v, err := f.shared.eventFd.Read(q).Await()
	if err != nil {
		logging.Fatalf("error reading from future eventfd: %v", err)
	}
	if v != 1 {
		logging.Fatalf("unexpected future eventfd count: %d", v)
	}
	return f.Get()
}

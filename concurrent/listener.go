// File: concurrent/listener.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventListener delivers events produced on arbitrary threads to a handler
// running on the loop goroutine: producers enqueue onto a bounded
// multi-producer ring and bump an event descriptor; the loop-side pump
// reads the descriptor through the ring and drains the queue.

//go:build linux

package concurrent

import (
	"runtime"
	"sync/atomic"

	"github.com/momentics/hioload-aio/ioqueue"
	"github.com/momentics/hioload-aio/logging"
)

type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// eventRing is a bounded multi-producer single-consumer ring with per-cell
// sequence numbers, padded to keep the hot indices on separate cache
// lines.
type eventRing[T any] struct {
	head  uint64
	_     [56]byte // padding
	tail  uint64
	_     [56]byte // padding
	mask  uint64
	cells []cell[T]
}

func newEventRing[T any](size uint64) *eventRing[T] {
	if size < 2 {
		size = 2
	}
	if size&(size-1) != 0 {
		n := size - 1
		n |= n >> 1
		n |= n >> 2
		n |= n >> 4
		n |= n >> 8
		n |= n >> 16
		n |= n >> 32
		size = n + 1
	}
	r := &eventRing[T]{
		mask:  size - 1,
		cells: make([]cell[T], size),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

func (r *eventRing[T]) enqueue(item T) bool {
	for {
		tail := atomic.LoadUint64(&r.tail)
		c := &r.cells[tail&r.mask]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(tail)
		if dif == 0 {
			if atomic.CompareAndSwapUint64(&r.tail, tail, tail+1) {
				c.data = item
				c.sequence.Store(tail + 1)
				return true
			}
		} else if dif < 0 {
			return false // full
		}
	}
}

func (r *eventRing[T]) dequeue() (T, bool) {
	for {
		head := atomic.LoadUint64(&r.head)
		c := &r.cells[head&r.mask]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(head+1)
		if dif == 0 {
			if atomic.CompareAndSwapUint64(&r.head, head, head+1) {
				item := c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + r.mask + 1)
				return item, true
			}
		} else if dif < 0 {
			var zero T
			return zero, false // empty
		}
	}
}

// EventListener pumps events from any thread into loop-side handler
// calls. Construct it on the loop thread before Run starts or from a loop
// callback.
type EventListener[T any] struct {
	q       *ioqueue.IoQueue
	handler func(T)
	events  *eventRing[T]
	eventFd *EventFd
	pending ioqueue.Handle
	closed  bool
}

// NewEventListener registers handler and arms the descriptor pump.
func NewEventListener[T any](q *ioqueue.IoQueue, handler func(T)) *EventListener[T] {
	l := &EventListener[T]{
		q:       q,
		handler: handler,
		events:  newEventRing[T](1024),
		eventFd: NewEventFd(false),
	}
	l.pump()
	return l
}

// Emit queues one event. Safe from any thread; spins briefly when the
// ring is momentarily full.
func (l *EventListener[T]) Emit(ev T) {
	for !l.events.enqueue(ev) {
		runtime.Gosched()
	}
	l.eventFd.Write(1)
}

func (l *EventListener[T]) pump() {
	l.pending = l.eventFd.ReadCallback(l.q, func(_ uint64, err error) {
		if err != nil {
			logging.Errorf("error reading listener eventfd: %v", err)
		} else {
			for {
				ev, ok := l.events.dequeue()
				if !ok {
					break
				}
				l.handler(ev)
			}
		}
		if !l.closed {
			l.pump()
		}
	})
}

// Close disarms the pump: the pending descriptor read is cancelled with
// handler drop, so the handler never runs again. Must be called on the
// loop goroutine.
func (l *EventListener[T]) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.pending.Cancel(true)
	l.eventFd.Close()
}

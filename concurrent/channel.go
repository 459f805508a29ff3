// File: concurrent/channel.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Multi-producer message channel draining into the loop. Producers push
// under the mutex and increment a semaphore event descriptor once per
// message; each receive reads the descriptor through the ring (blocking in
// the kernel until a message exists for this receiver) and then pops one
// message. The semaphore flavour is what makes several concurrent
// receivers correct: exactly one of them wakes per send.

//go:build linux

package concurrent

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-aio/ioqueue"
	"github.com/momentics/hioload-aio/logging"
)

// Channel is a mutex-protected FIFO with ring-integrated receives.
// Per-sender order is preserved; there is no ordering across senders.
type Channel[T any] struct {
	mu       sync.Mutex
	messages *queue.Queue
	eventFd  *EventFd
}

// NewChannel creates a channel. The event descriptor is explicitly the
// semaphore flavour; the default flavour would wake every receiver on one
// send and make them pop from an empty queue.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{
		messages: queue.New(),
		eventFd:  NewEventFd(true),
	}
}

// Send enqueues one message. Safe from any thread.
func (c *Channel[T]) Send(msg T) {
	c.mu.Lock()
	c.messages.Add(msg)
	c.mu.Unlock()
	c.eventFd.Write(1)
}

// Len returns the number of queued messages.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages.Length()
}

func (c *Channel[T]) pop() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.messages.Length() == 0 {
		// The semaphore guarantees a message per wakeup; an empty queue
		// here is a programming error.
		logging.Fatalf("channel pop on empty queue")
	}
	return c.messages.Remove().(T)
}

// Receive blocks until a message is available to this receiver and
// returns it.
func (c *Channel[T]) Receive(q *ioqueue.IoQueue) T {
	if _, err := c.eventFd.Read(q).Await(); err != nil {
		logging.Fatalf("error reading from eventfd in channel: %v", err)
	}
	return c.pop()
}

// ReceiveCallback delivers the next message to cb on the loop goroutine.
func (c *Channel[T]) ReceiveCallback(q *ioqueue.IoQueue, cb func(T)) {
	c.eventFd.ReadCallback(q, func(_ uint64, err error) {
		if err != nil {
			logging.Fatalf("error reading from eventfd in channel: %v", err)
		}
		cb(c.pop())
	})
}

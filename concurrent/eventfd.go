// File: concurrent/eventfd.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventFd wraps the kernel counter descriptor used as the wakeup primitive
// between worker threads and the loop. Writes are synchronous and safe
// from any goroutine; reads go through the ring and always transfer
// exactly eight bytes.

//go:build linux

package concurrent

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ioqueue"
	"github.com/momentics/hioload-aio/logging"
)

// EventFd is a kernel event counter. The default flavour resets the
// counter to zero on read; the semaphore flavour decrements it by one and
// blocks readers at zero, so at most one waiter wakes per increment.
type EventFd struct {
	fd int
}

// NewEventFd creates an event descriptor. Creation failure is fatal: the
// bridges built on top cannot degrade gracefully without one.
func NewEventFd(semaphore bool) *EventFd {
	flags := unix.EFD_CLOEXEC
	if semaphore {
		flags |= unix.EFD_SEMAPHORE
	}
	fd, err := unix.Eventfd(0, flags)
	if err != nil {
		logging.Fatalf("could not create eventfd: %v", err)
	}
	return &EventFd{fd: fd}
}

// Fd returns the raw descriptor.
func (e *EventFd) Fd() int { return e.fd }

// Close releases the descriptor. Not issued through the ring: an EventFd
// may be dropped from a worker thread, which must not touch the loop.
func (e *EventFd) Close() error {
	if e.fd == -1 {
		return nil
	}
	err := unix.Close(e.fd)
	e.fd = -1
	return err
}

// Write increments the counter by v. This is a synchronous syscall, usable
// from any thread. A failed write would strand every reader forever, so it
// is fatal.
func (e *EventFd) Write(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	if n, err := unix.Write(e.fd, buf[:]); err != nil || n != 8 {
		logging.Fatalf("error writing to eventfd: %v", err)
	}
}

// ReadOp is the pending ring read of an EventFd counter.
type ReadOp struct {
	op  *ioqueue.Operation
	buf *[8]byte
}

// Done returns the completion signal, for use with combinators.
func (r *ReadOp) Done() <-chan struct{} { return r.op.Done() }

// Await blocks until the read completes and returns the counter value.
func (r *ReadOp) Await() (uint64, error) {
	res := r.op.Await()
	if !res.OK() {
		return 0, res.Err()
	}
	if res.Value() != 8 {
		// man 2 eventfd: each successful read returns an 8-byte integer.
		return 0, fmt.Errorf("short eventfd read: %d bytes", res.Value())
	}
	return binary.LittleEndian.Uint64(r.buf[:]), nil
}

// Read issues the counter read through the ring. The read buffer belongs
// to the operation, not to the EventFd: two concurrent readers each get
// their own.
func (e *EventFd) Read(q *ioqueue.IoQueue) *ReadOp {
	buf := new([8]byte)
	return &ReadOp{op: q.Read(e.fd, buf[:]), buf: buf}
}

// ReadCallback issues the counter read with a completion handler running
// on the loop goroutine.
func (e *EventFd) ReadCallback(q *ioqueue.IoQueue, cb func(uint64, error)) ioqueue.Handle {
	buf := new([8]byte)
	return q.ReadCallback(e.fd, buf[:], func(res api.Result) {
		if !res.OK() {
			cb(0, res.Err())
			return
		}
		if res.Value() != 8 {
			cb(0, fmt.Errorf("short eventfd read: %d bytes", res.Value()))
			return
		}
		cb(binary.LittleEndian.Uint64(buf[:]), nil)
	})
}

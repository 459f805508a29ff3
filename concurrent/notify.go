// File: concurrent/notify.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One-shot notifier bridging a single worker-thread event into the loop,
// and the Async helper built on it.

//go:build linux

package concurrent

import (
	"sync/atomic"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ioqueue"
	"github.com/momentics/hioload-aio/logging"
)

// NotifyHandle shares ownership of one event descriptor with the pending
// ring read that represents the notification. Notify must be called
// exactly once: a second call is a contract violation, and never calling
// it leaks the pending read.
type NotifyHandle struct {
	eventFd atomic.Pointer[EventFd]
}

// OK reports whether the handle holds a pending notification.
func (h *NotifyHandle) OK() bool { return h != nil && h.eventFd.Load() != nil }

// Notify wakes the waiter with the given value and drops local ownership
// of the descriptor (the pending read still references it). Writes
// synchronously, so it is safe from any thread but may briefly block the
// caller.
func (h *NotifyHandle) Notify(value uint64) {
	e := h.eventFd.Swap(nil)
	if e == nil {
		logging.Fatalf("notify called twice")
	}
	e.Write(value)
}

// NotifyWait registers cb to run on the loop when the returned handle is
// notified; the value passed to Notify is handed to cb. Returns nil when
// the read could not be issued.
func NotifyWait(q *ioqueue.IoQueue, cb func(uint64, error)) *NotifyHandle {
	eventFd := NewEventFd(false)
	if h := eventFd.ReadCallback(q, cb); !h.Valid() {
		eventFd.Close()
		return nil
	}
	handle := &NotifyHandle{}
	handle.eventFd.Store(eventFd)
	return handle
}

// Async runs fn on a detached goroutine and delivers its result to cb on
// the loop goroutine once the worker finished. Returns api.ErrRingFull
// when the notification read could not be issued.
func Async[T any](q *ioqueue.IoQueue, fn func() T, cb func(T, error)) error {
	resultCh := make(chan T, 1)
	handle := NotifyWait(q, func(_ uint64, err error) {
		if err != nil {
			var zero T
			cb(zero, err)
			return
		}
		cb(<-resultCh, nil)
	})
	if handle == nil {
		return api.ErrRingFull
	}
	go func() {
		resultCh <- fn()
		handle.Notify(1)
	}()
	return nil
}

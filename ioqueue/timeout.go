// File: ioqueue/timeout.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bare and linked timeouts. Resolution is milliseconds; sleep accuracy on
// Linux is a few milliseconds anyway.

//go:build linux

package ioqueue

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/uring"
)

func timespecAfter(d time.Duration) *uring.Timespec {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	ts := unix.NsecToTimespec(ms * int64(time.Millisecond))
	return &ts
}

// timespecAt converts a wall-clock target into the monotonic-clock value
// absolute ring timeouts are measured against.
func timespecAt(tp time.Time) *uring.Timespec {
	delta := time.Until(tp)
	if delta < 0 {
		delta = 0
	}
	var now unix.Timespec
	_ = unix.ClockGettime(unix.CLOCK_MONOTONIC, &now)
	ns := now.Nano() + delta.Milliseconds()*int64(time.Millisecond)
	ts := unix.NsecToTimespec(ns)
	return &ts
}

// Timeout completes with ETIME after the given duration.
func (q *IoQueue) Timeout(d time.Duration) *Operation {
	ts := timespecAfter(d)
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareTimeout(ts, 0, 0) }, ts)
}

// TimeoutCallback is the handler flavour of Timeout.
func (q *IoQueue) TimeoutCallback(d time.Duration, cb func(api.Result)) Handle {
	ts := timespecAfter(d)
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareTimeout(ts, 0, 0) },
		&callbackCompleter{fn: cb, refs: []any{ts}})
}

// TimeoutAt completes with ETIME at the given instant.
func (q *IoQueue) TimeoutAt(tp time.Time) *Operation {
	ts := timespecAt(tp)
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareTimeout(ts, 0, uring.TimeoutAbs) }, ts)
}

// TimeoutAtCallback is the handler flavour of TimeoutAt.
func (q *IoQueue) TimeoutAtCallback(tp time.Time, cb func(api.Result)) Handle {
	ts := timespecAt(tp)
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareTimeout(ts, 0, uring.TimeoutAbs) },
		&callbackCompleter{fn: cb, refs: []any{ts}})
}

// linkTimeoutLocked attaches a link-timeout to the entry prepared
// immediately before, which must still be q.lastSQE. Caller holds q.mu.
func (q *IoQueue) linkTimeoutLocked(ts *uring.Timespec) bool {
	if q.lastSQE == nil {
		return false
	}
	q.lastSQE.Flags |= uring.SqeIoLink
	return q.issueIgnoredLocked(q.ring.PrepareLinkTimeout(ts, 0), false)
}

// newLinkedOperation issues prepare plus a link-timeout sidecar in one
// submission batch: if the timeout fires first, the operation completes
// with ECANCELED.
func (q *IoQueue) newLinkedOperation(d time.Duration, prepare func() *uring.SQE, refs ...any) *Operation {
	ts := timespecAfter(d)
	op := &Operation{done: make(chan struct{}), refs: append(refs, ts)}
	q.mu.Lock()
	h := q.issueLocked(prepare(), &opCompleter{op: op}, false)
	if h.Valid() && !q.linkTimeoutLocked(ts) {
		// No room for the sidecar: fall back to an unbounded operation
		// rather than losing the already-prepared entry.
		q.lastSQE.Flags &^= uring.SqeIoLink
	}
	q.flushLocked()
	q.mu.Unlock()
	op.handle = h
	if !h.Valid() {
		op.failIssue()
	}
	return op
}

// RecvDeadline is Recv bounded by a linked timeout.
func (q *IoQueue) RecvDeadline(fd int, buf []byte, d time.Duration) *Operation {
	return q.newLinkedOperation(d, func() *uring.SQE { return q.ring.PrepareRecv(fd, buf, 0) }, buf)
}

// SendDeadline is Send bounded by a linked timeout.
func (q *IoQueue) SendDeadline(fd int, buf []byte, d time.Duration) *Operation {
	return q.newLinkedOperation(d, func() *uring.SQE { return q.ring.PrepareSend(fd, buf, 0) }, buf)
}

// AcceptDeadline is Accept bounded by a linked timeout.
func (q *IoQueue) AcceptDeadline(fd int, addr *unix.RawSockaddrAny, addrLen *uint32, d time.Duration) *Operation {
	return q.newLinkedOperation(d, func() *uring.SQE { return q.ring.PrepareAccept(fd, addr, addrLen, 0) }, addr, addrLen)
}

// ConnectDeadline is Connect bounded by a linked timeout.
func (q *IoQueue) ConnectDeadline(fd int, addr *unix.RawSockaddrAny, addrLen uint32, d time.Duration) *Operation {
	return q.newLinkedOperation(d, func() *uring.SQE { return q.ring.PrepareConnect(fd, addr, addrLen) }, addr)
}

// TimeoutCancel bounds an already-issued operation: a bare timeout is
// issued and, when it expires before the target completed, an async
// cancellation for the target follows. The target then observes ECANCELED
// exactly as with a linked timeout. This is the fallback for targets whose
// submission entry already left the queue and can no longer carry a link
// flag.
func (q *IoQueue) TimeoutCancel(d time.Duration, target Handle) Handle {
	return q.TimeoutCallback(d, func(res api.Result) {
		if res.Errno() == syscall.ETIME {
			q.Cancel(target, false)
		}
	})
}

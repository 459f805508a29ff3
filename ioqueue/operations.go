// File: ioqueue/operations.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The operation surface of the IoQueue. Every operation exists in two
// flavours: the awaitable form returns an *Operation, the *Callback form
// registers a one-shot handler that runs on the loop goroutine.

//go:build linux

package ioqueue

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/uring"
)

// Nop issues a no-op. Useful to pump the loop in tests.
func (q *IoQueue) Nop() *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareNop() })
}

// NopCallback issues a no-op with a completion handler.
func (q *IoQueue) NopCallback(cb func(api.Result)) Handle {
	return q.issue(func() *uring.SQE { return q.ring.PrepareNop() }, &callbackCompleter{fn: cb})
}

// Accept awaits an incoming connection on fd. addr and addrLen may be nil;
// both must stay alive until completion.
func (q *IoQueue) Accept(fd int, addr *unix.RawSockaddrAny, addrLen *uint32) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareAccept(fd, addr, addrLen, 0) }, addr, addrLen)
}

// AcceptCallback is the handler flavour of Accept.
func (q *IoQueue) AcceptCallback(fd int, addr *unix.RawSockaddrAny, addrLen *uint32, cb func(api.Result)) Handle {
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareAccept(fd, addr, addrLen, 0) },
		&callbackCompleter{fn: cb, refs: []any{addr, addrLen}})
}

// Connect starts a connection attempt to the given socket address.
func (q *IoQueue) Connect(fd int, addr *unix.RawSockaddrAny, addrLen uint32) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareConnect(fd, addr, addrLen) }, addr)
}

// ConnectCallback is the handler flavour of Connect.
func (q *IoQueue) ConnectCallback(fd int, addr *unix.RawSockaddrAny, addrLen uint32, cb func(api.Result)) Handle {
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareConnect(fd, addr, addrLen) },
		&callbackCompleter{fn: cb, refs: []any{addr}})
}

// Send transmits buf on a connected socket.
func (q *IoQueue) Send(fd int, buf []byte) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareSend(fd, buf, 0) }, buf)
}

// SendCallback is the handler flavour of Send.
func (q *IoQueue) SendCallback(fd int, buf []byte, cb func(api.Result)) Handle {
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareSend(fd, buf, 0) },
		&callbackCompleter{fn: cb, refs: []any{buf}})
}

// Recv receives into buf from a connected socket.
func (q *IoQueue) Recv(fd int, buf []byte) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareRecv(fd, buf, 0) }, buf)
}

// RecvCallback is the handler flavour of Recv.
func (q *IoQueue) RecvCallback(fd int, buf []byte, cb func(api.Result)) Handle {
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareRecv(fd, buf, 0) },
		&callbackCompleter{fn: cb, refs: []any{buf}})
}

// Read reads into buf from the current file position.
func (q *IoQueue) Read(fd int, buf []byte) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareRead(fd, buf, 0) }, buf)
}

// ReadCallback is the handler flavour of Read.
func (q *IoQueue) ReadCallback(fd int, buf []byte, cb func(api.Result)) Handle {
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareRead(fd, buf, 0) },
		&callbackCompleter{fn: cb, refs: []any{buf}})
}

// Write writes buf at the current file position.
func (q *IoQueue) Write(fd int, buf []byte) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareWrite(fd, buf, 0) }, buf)
}

// WriteCallback is the handler flavour of Write.
func (q *IoQueue) WriteCallback(fd int, buf []byte, cb func(api.Result)) Handle {
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareWrite(fd, buf, 0) },
		&callbackCompleter{fn: cb, refs: []any{buf}})
}

// Close closes fd through the ring.
func (q *IoQueue) Close(fd int) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareClose(fd) })
}

// CloseCallback is the handler flavour of Close.
func (q *IoQueue) CloseCallback(fd int, cb func(api.Result)) Handle {
	return q.issue(func() *uring.SQE { return q.ring.PrepareClose(fd) }, &callbackCompleter{fn: cb})
}

// Shutdown shuts down part of a full-duplex connection.
func (q *IoQueue) Shutdown(fd int, how int) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareShutdown(fd, how) })
}

// ShutdownCallback is the handler flavour of Shutdown.
func (q *IoQueue) ShutdownCallback(fd int, how int, cb func(api.Result)) Handle {
	return q.issue(func() *uring.SQE { return q.ring.PrepareShutdown(fd, how) }, &callbackCompleter{fn: cb})
}

// Poll waits for the given event mask on fd (one-shot).
func (q *IoQueue) Poll(fd int, events uint32) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PreparePollAdd(fd, events) })
}

// PollCallback is the handler flavour of Poll.
func (q *IoQueue) PollCallback(fd int, events uint32, cb func(api.Result)) Handle {
	return q.issue(func() *uring.SQE { return q.ring.PreparePollAdd(fd, events) }, &callbackCompleter{fn: cb})
}

// Recvmsg receives a message; msg must stay alive until completion.
func (q *IoQueue) Recvmsg(fd int, msg *unix.Msghdr, flags uint32) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareRecvmsg(fd, msg, flags) }, msg)
}

// RecvmsgCallback is the handler flavour of Recvmsg.
func (q *IoQueue) RecvmsgCallback(fd int, msg *unix.Msghdr, flags uint32, cb func(api.Result)) Handle {
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareRecvmsg(fd, msg, flags) },
		&callbackCompleter{fn: cb, refs: []any{msg}})
}

// Sendmsg sends a message; msg must stay alive until completion.
func (q *IoQueue) Sendmsg(fd int, msg *unix.Msghdr, flags uint32) *Operation {
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareSendmsg(fd, msg, flags) }, msg)
}

// SendmsgCallback is the handler flavour of Sendmsg.
func (q *IoQueue) SendmsgCallback(fd int, msg *unix.Msghdr, flags uint32, cb func(api.Result)) Handle {
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareSendmsg(fd, msg, flags) },
		&callbackCompleter{fn: cb, refs: []any{msg}})
}

// msgRecord backs RecvFrom/SendTo: the msghdr and iovec outlive the call,
// so they live on the heap with their lifetime tied to the completer.
type msgRecord struct {
	iov unix.Iovec
	msg unix.Msghdr
}

func newMsgRecord(buf []byte, addr *unix.RawSockaddrInet4) *msgRecord {
	rec := &msgRecord{}
	if len(buf) > 0 {
		rec.iov.Base = &buf[0]
		rec.iov.SetLen(len(buf))
	}
	rec.msg.Iov = &rec.iov
	rec.msg.SetIovlen(1)
	if addr != nil {
		rec.msg.Name = (*byte)(unsafe.Pointer(addr))
		rec.msg.Namelen = uint32(unsafe.Sizeof(*addr))
	}
	return rec
}

// RecvFrom receives one datagram into buf, recording the source address in
// src when non-nil. Convenience wrapper over Recvmsg; use Recvmsg directly
// when the allocation matters.
func (q *IoQueue) RecvFrom(fd int, buf []byte, flags uint32, src *unix.RawSockaddrInet4) *Operation {
	rec := newMsgRecord(buf, src)
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareRecvmsg(fd, &rec.msg, flags) }, rec, buf, src)
}

// RecvFromCallback is the handler flavour of RecvFrom.
func (q *IoQueue) RecvFromCallback(fd int, buf []byte, flags uint32, src *unix.RawSockaddrInet4, cb func(api.Result)) Handle {
	rec := newMsgRecord(buf, src)
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareRecvmsg(fd, &rec.msg, flags) },
		&callbackCompleter{fn: cb, refs: []any{rec, buf, src}})
}

// SendTo sends one datagram from buf to dst. Convenience wrapper over
// Sendmsg.
func (q *IoQueue) SendTo(fd int, buf []byte, flags uint32, dst *unix.RawSockaddrInet4) *Operation {
	rec := newMsgRecord(buf, dst)
	return q.newOperation(func() *uring.SQE { return q.ring.PrepareSendmsg(fd, &rec.msg, flags) }, rec, buf, dst)
}

// SendToCallback is the handler flavour of SendTo.
func (q *IoQueue) SendToCallback(fd int, buf []byte, flags uint32, dst *unix.RawSockaddrInet4, cb func(api.Result)) Handle {
	rec := newMsgRecord(buf, dst)
	return q.issue(
		func() *uring.SQE { return q.ring.PrepareSendmsg(fd, &rec.msg, flags) },
		&callbackCompleter{fn: cb, refs: []any{rec, buf, dst}})
}

// File: internal/uring/ring.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Submission and completion paths: SQE allocation, flush-to-kernel, CQE
// peek/wait/advance.

//go:build linux

package uring

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Entries returns the submission queue capacity.
func (r *Ring) Entries() uint32 { return r.params.SqEntries }

// Pending returns the number of allocated but not yet flushed SQEs.
func (r *Ring) Pending() uint32 { return r.sqeTail - r.sqeHead }

// GetSQE reserves the next submission entry, zero-filled apart from nothing.
// Returns nil when the submission queue is full.
func (r *Ring) GetSQE() *SQE {
	head := atomic.LoadUint32(r.sqHead)
	if r.sqeTail-head >= r.params.SqEntries {
		return nil
	}
	sqe := &r.sqes[r.sqeTail&r.sqMask]
	r.sqeTail++
	*sqe = SQE{}
	return sqe
}

// flush publishes allocated SQEs to the kernel-visible tail and returns how
// many were made visible.
func (r *Ring) flush() uint32 {
	tail := atomic.LoadUint32(r.sqTail)
	n := r.sqeTail - r.sqeHead
	for ; r.sqeHead != r.sqeTail; r.sqeHead++ {
		r.sqArray[tail&r.sqMask] = r.sqeHead & r.sqMask
		tail++
	}
	if n > 0 {
		// Release-publish the tail so the kernel observes filled entries.
		atomic.StoreUint32(r.sqTail, tail)
	}
	return n
}

func (r *Ring) needsEnter(flags *uint32) bool {
	if r.params.Flags&SetupSqpoll == 0 {
		return true
	}
	if atomic.LoadUint32(r.sqFlags)&SqNeedWakeup != 0 {
		*flags |= EnterSqWakeup
		return true
	}
	return false
}

// Submit flushes pending SQEs without waiting for completions.
func (r *Ring) Submit() (int, error) {
	return r.SubmitAndWait(0)
}

// SubmitAndWait flushes pending SQEs and, if waitNr > 0, enters the kernel
// until at least waitNr completions are available. Under submission
// polling the kernel is entered only when its poller thread needs a wakeup
// or completions are awaited.
func (r *Ring) SubmitAndWait(waitNr uint32) (int, error) {
	submitted := r.flush()
	if submitted == 0 && waitNr == 0 {
		return 0, nil
	}
	var flags uint32
	if waitNr > 0 {
		flags |= EnterGetevents
	}
	if waitNr == 0 && !r.needsEnter(&flags) {
		return int(submitted), nil
	}
	n, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER,
		uintptr(r.fd), uintptr(submitted), uintptr(waitNr), uintptr(flags), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

// PeekCQE returns the next unconsumed completion entry, or nil if the
// completion queue is empty. The entry stays valid until AdvanceCQ passes
// it.
func (r *Ring) PeekCQE() *CQE {
	head := atomic.LoadUint32(r.cqHead)
	// Acquire-load pairs with the kernel's tail publication.
	tail := atomic.LoadUint32(r.cqTail)
	if head == tail {
		return nil
	}
	return &r.cqes[head&r.cqMask]
}

// WaitCQE enters the kernel until at least n completions are available and
// returns the first one.
func (r *Ring) WaitCQE(n uint32) (*CQE, error) {
	if cqe := r.PeekCQE(); cqe != nil {
		return cqe, nil
	}
	_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER,
		uintptr(r.fd), 0, uintptr(n), uintptr(EnterGetevents), 0, 0)
	if errno != 0 {
		return nil, errno
	}
	return r.PeekCQE(), nil
}

// AdvanceCQ moves the completion head past n consumed entries.
func (r *Ring) AdvanceCQ(n uint32) {
	if n > 0 {
		// Release-store so the kernel may reuse the consumed slots.
		atomic.StoreUint32(r.cqHead, atomic.LoadUint32(r.cqHead)+n)
	}
}

// Overflow returns the kernel's dropped-completion counter. With the
// no-drop feature required at setup this stays zero.
func (r *Ring) Overflow() uint32 {
	return atomic.LoadUint32(r.cqOverflow)
}

func ptr(p unsafe.Pointer) uint64 { return uint64(uintptr(p)) }

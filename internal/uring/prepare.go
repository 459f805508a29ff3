// File: internal/uring/prepare.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-opcode submission entry preparation. Each Prepare* reserves an SQE,
// fills the opcode-specific fields and returns it for the caller to stamp
// user_data; nil means the submission queue is full.

//go:build linux

package uring

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func (r *Ring) prepare(opcode uint8, fd int32, off uint64, addr unsafe.Pointer, length uint32) *SQE {
	sqe := r.GetSQE()
	if sqe == nil {
		return nil
	}
	sqe.Opcode = opcode
	sqe.Fd = fd
	sqe.Off = off
	if addr != nil {
		sqe.Addr = ptr(addr)
	}
	sqe.Len = length
	return sqe
}

// PrepareNop queues a no-op.
func (r *Ring) PrepareNop() *SQE {
	return r.prepare(OpNop, -1, 0, nil, 0)
}

// PrepareRead queues read(2)-like I/O at the given offset.
func (r *Ring) PrepareRead(fd int, buf []byte, offset uint64) *SQE {
	return r.prepare(OpRead, int32(fd), offset, unsafe.Pointer(&buf[0]), uint32(len(buf)))
}

// PrepareWrite queues write(2)-like I/O at the given offset.
func (r *Ring) PrepareWrite(fd int, buf []byte, offset uint64) *SQE {
	return r.prepare(OpWrite, int32(fd), offset, unsafe.Pointer(&buf[0]), uint32(len(buf)))
}

// PrepareReadv queues a vectored read.
func (r *Ring) PrepareReadv(fd int, iov []unix.Iovec, offset uint64) *SQE {
	return r.prepare(OpReadv, int32(fd), offset, unsafe.Pointer(&iov[0]), uint32(len(iov)))
}

// PrepareWritev queues a vectored write.
func (r *Ring) PrepareWritev(fd int, iov []unix.Iovec, offset uint64) *SQE {
	return r.prepare(OpWritev, int32(fd), offset, unsafe.Pointer(&iov[0]), uint32(len(iov)))
}

// PrepareFsync queues an fsync. flags may carry IORING_FSYNC_DATASYNC.
func (r *Ring) PrepareFsync(fd int, flags uint32) *SQE {
	sqe := r.prepare(OpFsync, int32(fd), 0, nil, 0)
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PreparePollAdd queues a one-shot poll for the given event mask.
func (r *Ring) PreparePollAdd(fd int, events uint32) *SQE {
	sqe := r.prepare(OpPollAdd, int32(fd), 0, nil, 0)
	if sqe != nil {
		sqe.OpFlags = events
	}
	return sqe
}

// PreparePollRemove cancels a pending poll identified by its user_data.
func (r *Ring) PreparePollRemove(userData uint64) *SQE {
	sqe := r.prepare(OpPollRemove, -1, 0, nil, 0)
	if sqe != nil {
		sqe.Addr = userData
	}
	return sqe
}

// PrepareSyncFileRange queues sync_file_range(2).
func (r *Ring) PrepareSyncFileRange(fd int, offset, nbytes uint64, flags uint32) *SQE {
	sqe := r.prepare(OpSyncFileRange, int32(fd), offset, nil, uint32(nbytes))
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareSendmsg queues sendmsg(2).
func (r *Ring) PrepareSendmsg(fd int, msg *unix.Msghdr, flags uint32) *SQE {
	sqe := r.prepare(OpSendmsg, int32(fd), 0, unsafe.Pointer(msg), 1)
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareRecvmsg queues recvmsg(2).
func (r *Ring) PrepareRecvmsg(fd int, msg *unix.Msghdr, flags uint32) *SQE {
	sqe := r.prepare(OpRecvmsg, int32(fd), 0, unsafe.Pointer(msg), 1)
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareSend queues send(2).
func (r *Ring) PrepareSend(fd int, buf []byte, flags uint32) *SQE {
	sqe := r.prepare(OpSend, int32(fd), 0, unsafe.Pointer(&buf[0]), uint32(len(buf)))
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareRecv queues recv(2).
func (r *Ring) PrepareRecv(fd int, buf []byte, flags uint32) *SQE {
	sqe := r.prepare(OpRecv, int32(fd), 0, unsafe.Pointer(&buf[0]), uint32(len(buf)))
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareAccept queues accept4(2). addr and addrLen may be nil.
func (r *Ring) PrepareAccept(fd int, addr *unix.RawSockaddrAny, addrLen *uint32, flags uint32) *SQE {
	sqe := r.prepare(OpAccept, int32(fd), 0, unsafe.Pointer(addr), 0)
	if sqe != nil {
		sqe.Off = ptr(unsafe.Pointer(addrLen)) // addr2
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareConnect queues connect(2).
func (r *Ring) PrepareConnect(fd int, addr *unix.RawSockaddrAny, addrLen uint32) *SQE {
	return r.prepare(OpConnect, int32(fd), uint64(addrLen), unsafe.Pointer(addr), 0)
}

// PrepareClose queues close(2).
func (r *Ring) PrepareClose(fd int) *SQE {
	return r.prepare(OpClose, int32(fd), 0, nil, 0)
}

// PrepareShutdown queues shutdown(2).
func (r *Ring) PrepareShutdown(fd int, how int) *SQE {
	return r.prepare(OpShutdown, int32(fd), 0, nil, uint32(how))
}

// PrepareOpenat queues openat(2). path must be NUL-terminated.
func (r *Ring) PrepareOpenat(dirfd int, path *byte, flags uint32, mode uint32) *SQE {
	sqe := r.prepare(OpOpenat, int32(dirfd), 0, unsafe.Pointer(path), mode)
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareOpenat2 queues openat2(2). path must be NUL-terminated.
func (r *Ring) PrepareOpenat2(dirfd int, path *byte, how *unix.OpenHow) *SQE {
	return r.prepare(OpOpenat2, int32(dirfd), ptr(unsafe.Pointer(how)), unsafe.Pointer(path), uint32(unsafe.Sizeof(unix.OpenHow{})))
}

// PrepareStatx queues statx(2). path must be NUL-terminated.
func (r *Ring) PrepareStatx(dirfd int, path *byte, flags uint32, mask uint32, statx *unix.Statx_t) *SQE {
	sqe := r.prepare(OpStatx, int32(dirfd), ptr(unsafe.Pointer(statx)), unsafe.Pointer(path), mask)
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareRenameat queues renameat2(2). Paths must be NUL-terminated.
func (r *Ring) PrepareRenameat(oldDirfd int, oldPath *byte, newDirfd int, newPath *byte, flags uint32) *SQE {
	sqe := r.prepare(OpRenameat, int32(oldDirfd), ptr(unsafe.Pointer(newPath)), unsafe.Pointer(oldPath), uint32(newDirfd))
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareUnlinkat queues unlinkat(2). path must be NUL-terminated.
func (r *Ring) PrepareUnlinkat(dirfd int, path *byte, flags uint32) *SQE {
	sqe := r.prepare(OpUnlinkat, int32(dirfd), 0, unsafe.Pointer(path), 0)
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareEpollCtl queues epoll_ctl(2).
func (r *Ring) PrepareEpollCtl(epfd int, op int, fd int, event *unix.EpollEvent) *SQE {
	return r.prepare(OpEpollCtl, int32(epfd), uint64(fd), unsafe.Pointer(event), uint32(op))
}

// PrepareTimeout queues a timeout. flags may carry TimeoutAbs for an
// absolute clock target; count > 0 also completes after that many other
// completions.
func (r *Ring) PrepareTimeout(ts *Timespec, count uint64, flags uint32) *SQE {
	sqe := r.prepare(OpTimeout, -1, count, unsafe.Pointer(ts), 1)
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareTimeoutRemove cancels a pending timeout identified by user_data.
func (r *Ring) PrepareTimeoutRemove(userData uint64, flags uint32) *SQE {
	sqe := r.prepare(OpTimeoutRemove, -1, 0, nil, 0)
	if sqe != nil {
		sqe.Addr = userData
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareLinkTimeout queues a timeout bound to the immediately preceding
// SQE, which must carry the IO link flag.
func (r *Ring) PrepareLinkTimeout(ts *Timespec, flags uint32) *SQE {
	sqe := r.prepare(OpLinkTimeout, -1, 0, unsafe.Pointer(ts), 1)
	if sqe != nil {
		sqe.OpFlags = flags
	}
	return sqe
}

// PrepareAsyncCancel queues cancellation of the operation identified by
// user_data.
func (r *Ring) PrepareAsyncCancel(userData uint64) *SQE {
	sqe := r.prepare(OpAsyncCancel, -1, 0, nil, 0)
	if sqe != nil {
		sqe.Addr = userData
	}
	return sqe
}

// File: internal/uring/types.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// io_uring ABI structures. Layouts mirror <linux/io_uring.h> and must not
// be reordered.

//go:build linux

package uring

import "golang.org/x/sys/unix"

// Timespec is the 64-bit kernel timespec used by timeout entries.
type Timespec = unix.Timespec

// SQE is one submission queue entry (64 bytes).
type SQE struct {
	Opcode      uint8
	Flags       uint8
	IoPrio      uint16
	Fd          int32
	Off         uint64 // union { off, addr2 }
	Addr        uint64 // union { addr, splice_off_in }
	Len         uint32
	OpFlags     uint32 // per-opcode flags union
	UserData    uint64
	BufIndex    uint16
	Personality uint16
	SpliceFdIn  int32
	_           [2]uint64 // padding
}

// CQE is one completion queue entry (16 bytes).
type CQE struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

// Params is struct io_uring_params.
type Params struct {
	SqEntries    uint32
	CqEntries    uint32
	Flags        uint32
	SqThreadCPU  uint32
	SqThreadIdle uint32
	Features     uint32
	WqFd         uint32
	Resv         [3]uint32
	SqOff        SQRingOffsets
	CqOff        CQRingOffsets
}

// SQRingOffsets locates the submission ring fields inside its mmap.
type SQRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Flags       uint32
	Dropped     uint32
	Array       uint32
	Resv1       uint32
	Resv2       uint64
}

// CQRingOffsets locates the completion ring fields inside its mmap.
type CQRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Overflow    uint32
	Cqes        uint32
	Flags       uint32
	Resv1       uint32
	Resv2       uint64
}

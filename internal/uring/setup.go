// File: internal/uring/setup.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ring creation and teardown: io_uring_setup plus the shared-memory maps
// for the submission ring, completion ring and SQE array.

//go:build linux

package uring

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// MinEntries and MaxEntries bound the requested ring capacity.
	MinEntries = 1
	MaxEntries = 4096
)

// Ring wraps one io_uring instance. It is single-owner: no method may be
// called from two goroutines at once. Concurrent peek/advance would require
// delaying the CQ head move until every in-flight handler finished, which
// this binding deliberately does not support.
type Ring struct {
	fd     int
	params Params

	sqHead    *uint32
	sqTail    *uint32
	sqMask    uint32
	sqFlags   *uint32
	sqDropped *uint32
	sqArray   []uint32
	sqes      []SQE

	// Local SQE allocation cursor, published to the kernel on flush.
	sqeHead uint32
	sqeTail uint32

	cqHead     *uint32
	cqTail     *uint32
	cqMask     uint32
	cqOverflow *uint32
	cqes       []CQE

	sqMmap  []byte
	cqMmap  []byte
	sqeMmap []byte
}

// New creates a ring with the given capacity, which must be a power of two
// in [MinEntries, MaxEntries]. sqPoll requests kernel-side submission
// polling. Absence of the no-drop or submit-stable kernel features is an
// error: the completion core cannot run without either.
func New(entries uint32, sqPoll bool) (*Ring, error) {
	if entries < MinEntries || entries > MaxEntries || entries&(entries-1) != 0 {
		return nil, fmt.Errorf("uring: entries must be a power of two in [%d, %d]", MinEntries, MaxEntries)
	}
	r := &Ring{fd: -1}
	if sqPoll {
		r.params.Flags |= SetupSqpoll
	}
	fd, _, errno := unix.Syscall6(unix.SYS_IO_URING_SETUP,
		uintptr(entries), uintptr(unsafe.Pointer(&r.params)), 0, 0, 0, 0)
	if errno != 0 {
		return nil, fmt.Errorf("uring: io_uring_setup: %w", errno)
	}
	r.fd = int(fd)

	if r.params.Features&FeatNoDrop == 0 {
		r.Close()
		return nil, fmt.Errorf("uring: kernel lacks NODROP")
	}
	if r.params.Features&FeatSubmitStable == 0 {
		r.Close()
		return nil, fmt.Errorf("uring: kernel lacks SUBMIT_STABLE")
	}

	if err := r.mapRings(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Ring) mapRings() error {
	sqSize := uintptr(r.params.SqOff.Array) + uintptr(r.params.SqEntries)*4
	cqSize := uintptr(r.params.CqOff.Cqes) + uintptr(r.params.CqEntries)*uintptr(unsafe.Sizeof(CQE{}))

	singleMmap := r.params.Features&FeatSingleMmap != 0
	if singleMmap && cqSize > sqSize {
		sqSize = cqSize
	}

	sqMmap, err := unix.Mmap(r.fd, offSqRing, int(sqSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return fmt.Errorf("uring: mmap sq ring: %w", err)
	}
	r.sqMmap = sqMmap

	cqMmap := sqMmap
	if !singleMmap {
		cqMmap, err = unix.Mmap(r.fd, offCqRing, int(cqSize),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
		if err != nil {
			return fmt.Errorf("uring: mmap cq ring: %w", err)
		}
		r.cqMmap = cqMmap
	}

	sqeSize := uintptr(r.params.SqEntries) * unsafe.Sizeof(SQE{})
	sqeMmap, err := unix.Mmap(r.fd, offSqes, int(sqeSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return fmt.Errorf("uring: mmap sqes: %w", err)
	}
	r.sqeMmap = sqeMmap

	sqBase := unsafe.Pointer(&sqMmap[0])
	r.sqHead = (*uint32)(unsafe.Add(sqBase, r.params.SqOff.Head))
	r.sqTail = (*uint32)(unsafe.Add(sqBase, r.params.SqOff.Tail))
	r.sqMask = *(*uint32)(unsafe.Add(sqBase, r.params.SqOff.RingMask))
	r.sqFlags = (*uint32)(unsafe.Add(sqBase, r.params.SqOff.Flags))
	r.sqDropped = (*uint32)(unsafe.Add(sqBase, r.params.SqOff.Dropped))
	r.sqArray = unsafe.Slice((*uint32)(unsafe.Add(sqBase, r.params.SqOff.Array)), r.params.SqEntries)
	r.sqes = unsafe.Slice((*SQE)(unsafe.Pointer(&sqeMmap[0])), r.params.SqEntries)

	cqBase := unsafe.Pointer(&cqMmap[0])
	r.cqHead = (*uint32)(unsafe.Add(cqBase, r.params.CqOff.Head))
	r.cqTail = (*uint32)(unsafe.Add(cqBase, r.params.CqOff.Tail))
	r.cqMask = *(*uint32)(unsafe.Add(cqBase, r.params.CqOff.RingMask))
	r.cqOverflow = (*uint32)(unsafe.Add(cqBase, r.params.CqOff.Overflow))
	r.cqes = unsafe.Slice((*CQE)(unsafe.Add(cqBase, r.params.CqOff.Cqes)), r.params.CqEntries)

	r.sqeHead = atomic.LoadUint32(r.sqHead)
	r.sqeTail = r.sqeHead
	return nil
}

// Params returns the kernel-filled setup parameters.
func (r *Ring) Params() *Params { return &r.params }

// Fd returns the ring file descriptor.
func (r *Ring) Fd() int { return r.fd }

// Close unmaps the rings and closes the ring descriptor.
func (r *Ring) Close() error {
	if r.sqeMmap != nil {
		_ = unix.Munmap(r.sqeMmap)
		r.sqeMmap = nil
	}
	if r.cqMmap != nil {
		_ = unix.Munmap(r.cqMmap)
		r.cqMmap = nil
	}
	if r.sqMmap != nil {
		_ = unix.Munmap(r.sqMmap)
		r.sqMmap = nil
	}
	if r.fd != -1 {
		err := unix.Close(r.fd)
		r.fd = -1
		return err
	}
	return nil
}

// File: sockets/fd.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Owning file descriptor handle: closes on Close, Release hands the raw
// descriptor to another owner.

//go:build linux

package sockets

import "golang.org/x/sys/unix"

// Fd owns one file descriptor. Construct with NewFd or InvalidFd.
type Fd struct {
	fd int
}

// NewFd wraps a raw descriptor.
func NewFd(fd int) Fd { return Fd{fd: fd} }

// InvalidFd owns nothing.
func InvalidFd() Fd { return Fd{fd: -1} }

// Raw returns the descriptor without transferring ownership.
func (f *Fd) Raw() int { return f.fd }

// Valid reports whether a descriptor is held.
func (f *Fd) Valid() bool { return f.fd != -1 }

// Close releases the descriptor if one is held.
func (f *Fd) Close() {
	if f.fd != -1 {
		_ = unix.Close(f.fd)
	}
	f.fd = -1
}

// Reset closes the current descriptor and adopts fd.
func (f *Fd) Reset(fd int) {
	f.Close()
	f.fd = fd
}

// Release returns the descriptor without closing it; the handle becomes
// empty.
func (f *Fd) Release() int {
	fd := f.fd
	f.fd = -1
	return fd
}

// Pipe is a connected read/write descriptor pair.
type Pipe struct {
	Read  Fd
	Write Fd
}

// NewPipe creates a pipe.
func NewPipe() (Pipe, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return Pipe{Read: InvalidFd(), Write: InvalidFd()}, err
	}
	return Pipe{Read: NewFd(fds[0]), Write: NewFd(fds[1])}, nil
}

// Close releases both ends.
func (p *Pipe) Close() {
	p.Read.Close()
	p.Write.Close()
}

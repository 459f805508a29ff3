// File: sockets/socket.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket creation and listen/bind helpers around the raw descriptor
// handle.

//go:build linux

package sockets

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/ioqueue"
)

// SocketType selects the transport protocol.
type SocketType int

const (
	TCP SocketType = iota
	UDP
)

// CreateSocket creates an IPv4 socket of the given type.
func CreateSocket(typ SocketType) (Fd, error) {
	sockType := unix.SOCK_STREAM
	proto := unix.IPPROTO_TCP
	if typ == UDP {
		sockType = unix.SOCK_DGRAM
		proto = unix.IPPROTO_UDP
	}
	fd, err := unix.Socket(unix.AF_INET, sockType|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return InvalidFd(), fmt.Errorf("sockets: socket: %w", err)
	}
	return NewFd(fd), nil
}

// Bind binds the socket to the given address.
func Bind(fd *Fd, addr AddrPort) error {
	sa := &unix.SockaddrInet4{Port: int(addr.Port)}
	sa.Addr[0] = byte(addr.Addr.IPv4)
	sa.Addr[1] = byte(addr.Addr.IPv4 >> 8)
	sa.Addr[2] = byte(addr.Addr.IPv4 >> 16)
	sa.Addr[3] = byte(addr.Addr.IPv4 >> 24)
	if err := unix.Bind(fd.Raw(), sa); err != nil {
		return fmt.Errorf("sockets: bind %s: %w", addr, err)
	}
	return nil
}

// CreateBoundSocket creates a socket bound to bindAddr, optionally with
// address reuse.
func CreateBoundSocket(typ SocketType, bindAddr AddrPort, reuseAddr bool) (Fd, error) {
	fd, err := CreateSocket(typ)
	if err != nil {
		return InvalidFd(), err
	}
	if reuseAddr {
		if err := unix.SetsockoptInt(fd.Raw(), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			fd.Close()
			return InvalidFd(), fmt.Errorf("sockets: setsockopt SO_REUSEADDR: %w", err)
		}
	}
	if err := Bind(&fd, bindAddr); err != nil {
		fd.Close()
		return InvalidFd(), err
	}
	return fd, nil
}

// Connect starts a connection attempt to addr through the ring.
func Connect(q *ioqueue.IoQueue, fd int, addr AddrPort) *ioqueue.Operation {
	sa, saLen := addr.Sockaddr()
	return q.Connect(fd, sa, saLen)
}

// CreateTCPListenSocket creates a reusable listening socket on
// listenAddr.
func CreateTCPListenSocket(listenAddr AddrPort, backlog int) (Fd, error) {
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	fd, err := CreateBoundSocket(TCP, listenAddr, true)
	if err != nil {
		return InvalidFd(), err
	}
	if err := unix.Listen(fd.Raw(), backlog); err != nil {
		fd.Close()
		return InvalidFd(), fmt.Errorf("sockets: listen %s: %w", listenAddr, err)
	}
	return fd, nil
}

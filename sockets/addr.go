// File: sockets/addr.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IPv4 addressing at the core boundary: a 32-bit network-order address,
// optionally paired with a port. Parsing accepts exactly "a.b.c.d" and
// "a.b.c.d:port".

//go:build linux

package sockets

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Addr is an IPv4 address in network byte order.
type Addr struct {
	IPv4 uint32
}

// AddrFromOctets builds an address from its dotted-quad octets.
func AddrFromOctets(o0, o1, o2, o3 uint8) Addr {
	return Addr{IPv4: uint32(o0) | uint32(o1)<<8 | uint32(o2)<<16 | uint32(o3)<<24}
}

// ParseAddr parses "a.b.c.d".
func ParseAddr(s string) (Addr, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return Addr{}, fmt.Errorf("sockets: invalid address %q", s)
	}
	var octets [4]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Addr{}, fmt.Errorf("sockets: invalid address %q", s)
		}
		octets[i] = uint8(v)
	}
	return AddrFromOctets(octets[0], octets[1], octets[2], octets[3]), nil
}

// String formats the address as "a.b.c.d".
func (a Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a.IPv4&0xff, a.IPv4>>8&0xff, a.IPv4>>16&0xff, a.IPv4>>24&0xff)
}

// AddrPort is an IPv4 address plus a 16-bit port.
type AddrPort struct {
	Addr Addr
	Port uint16
}

// ParseAddrPort parses "a.b.c.d" (port zero) or "a.b.c.d:port".
func ParseAddrPort(s string) (AddrPort, error) {
	host := s
	var port uint16
	if idx := strings.LastIndexByte(s, ':'); idx != -1 {
		host = s[:idx]
		v, err := strconv.ParseUint(s[idx+1:], 10, 16)
		if err != nil {
			return AddrPort{}, fmt.Errorf("sockets: invalid address-port %q", s)
		}
		port = uint16(v)
	}
	addr, err := ParseAddr(host)
	if err != nil {
		return AddrPort{}, err
	}
	return AddrPort{Addr: addr, Port: port}, nil
}

// String formats the address-port as "a.b.c.d:port".
func (ap AddrPort) String() string {
	return fmt.Sprintf("%s:%d", ap.Addr, ap.Port)
}

func (ap AddrPort) sockaddrInet4() *unix.RawSockaddrInet4 {
	sa := &unix.RawSockaddrInet4{Family: unix.AF_INET}
	sa.Port = ap.Port>>8 | ap.Port<<8 // network byte order
	sa.Addr[0] = byte(ap.Addr.IPv4)
	sa.Addr[1] = byte(ap.Addr.IPv4 >> 8)
	sa.Addr[2] = byte(ap.Addr.IPv4 >> 16)
	sa.Addr[3] = byte(ap.Addr.IPv4 >> 24)
	return sa
}

// Sockaddr returns the raw kernel socket address for ring operations,
// together with its length.
func (ap AddrPort) Sockaddr() (*unix.RawSockaddrAny, uint32) {
	sa := ap.sockaddrInet4()
	return (*unix.RawSockaddrAny)(unsafe.Pointer(sa)), uint32(unsafe.Sizeof(*sa))
}

// AddrPortFromRaw decodes an accepted or received peer address.
func AddrPortFromRaw(raw *unix.RawSockaddrInet4) AddrPort {
	return AddrPort{
		Addr: AddrFromOctets(raw.Addr[0], raw.Addr[1], raw.Addr[2], raw.Addr[3]),
		Port: raw.Port>>8 | raw.Port<<8,
	}
}

// File: sockets/addr_test.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build linux

package sockets

import "testing"

func TestParseAddr_RoundTrip(t *testing.T) {
	cases := []string{"0.0.0.0", "127.0.0.1", "10.1.2.3", "255.255.255.255"}
	for _, s := range cases {
		addr, err := ParseAddr(s)
		if err != nil {
			t.Fatalf("ParseAddr(%q): %v", s, err)
		}
		if addr.String() != s {
			t.Errorf("round trip %q -> %q", s, addr.String())
		}
	}
}

func TestParseAddr_Rejects(t *testing.T) {
	cases := []string{"", "1.2.3", "1.2.3.4.5", "256.0.0.1", "a.b.c.d", "1..2.3", "-1.0.0.0"}
	for _, s := range cases {
		if _, err := ParseAddr(s); err == nil {
			t.Errorf("ParseAddr(%q) unexpectedly succeeded", s)
		}
	}
}

func TestParseAddrPort_RoundTrip(t *testing.T) {
	ap, err := ParseAddrPort("127.0.0.1:4242")
	if err != nil {
		t.Fatal(err)
	}
	if ap.Port != 4242 {
		t.Fatalf("expected port 4242, got %d", ap.Port)
	}
	if ap.String() != "127.0.0.1:4242" {
		t.Fatalf("round trip gave %q", ap.String())
	}
}

func TestParseAddrPort_NoPort(t *testing.T) {
	ap, err := ParseAddrPort("10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if ap.Port != 0 {
		t.Fatalf("expected port 0, got %d", ap.Port)
	}
}

func TestParseAddrPort_Rejects(t *testing.T) {
	cases := []string{"1.2.3.4:", "1.2.3.4:65536", "1.2.3.4:x", ":80", "1.2.3:80"}
	for _, s := range cases {
		if _, err := ParseAddrPort(s); err == nil {
			t.Errorf("ParseAddrPort(%q) unexpectedly succeeded", s)
		}
	}
}

func TestAddrFromOctets_NetworkOrder(t *testing.T) {
	addr := AddrFromOctets(127, 0, 0, 1)
	// Network byte order keeps the first octet in the low byte.
	if addr.IPv4&0xff != 127 {
		t.Fatalf("expected network byte order, got %08x", addr.IPv4)
	}
}

func TestSockaddr_RoundTrip(t *testing.T) {
	ap, _ := ParseAddrPort("192.168.1.2:8080")
	sa := ap.sockaddrInet4()
	back := AddrPortFromRaw(sa)
	if back != ap {
		t.Fatalf("sockaddr round trip gave %v", back)
	}
}

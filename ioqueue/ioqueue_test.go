// File: ioqueue/ioqueue_test.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Integration tests driving the completion core against the live ring:
// completion delivery, echo round trips, cancellation and linked-timeout
// races.

//go:build linux

package ioqueue_test

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ioqueue"
	"github.com/momentics/hioload-aio/sockets"
	"github.com/momentics/hioload-aio/task"
)

func newQueue(t *testing.T) *ioqueue.IoQueue {
	t.Helper()
	q := ioqueue.New(ioqueue.Options{Entries: 64})
	t.Cleanup(func() { q.Release() })
	return q
}

func TestIoQueue_NopCompletions(t *testing.T) {
	q := newQueue(t)
	const count = 10
	var mu sync.Mutex
	calls := map[api.OperationID]int{}
	ids := map[api.OperationID]bool{}
	for i := 0; i < count; i++ {
		h := q.NopCallback(func(res api.Result) {
			if !res.OK() {
				t.Errorf("nop failed: %v", res.Err())
			}
		})
		if !h.Valid() {
			t.Fatal("nop not admitted")
		}
		if ids[h.ID()] {
			t.Fatalf("operation id %d allocated twice", h.ID())
		}
		ids[h.ID()] = true
		id := h.ID()
		q.NopCallback(func(api.Result) {
			mu.Lock()
			calls[id]++
			mu.Unlock()
		})
	}
	q.Run()
	if q.Size() != 0 {
		t.Fatalf("map not empty after run: %d", q.Size())
	}
	for id, n := range calls {
		if n != 1 {
			t.Errorf("completer for %d invoked %d times", id, n)
		}
	}
}

func TestIoQueue_RunReturnsWhenIdle(t *testing.T) {
	q := newQueue(t)
	done := make(chan struct{})
	go func() {
		q.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run must return immediately with no operations in flight")
	}
}

func listenTCP(t *testing.T) (sockets.Fd, uint16) {
	t.Helper()
	addr, _ := sockets.ParseAddrPort("127.0.0.1:0")
	sock, err := sockets.CreateTCPListenSocket(addr, 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	sa, err := unix.Getsockname(sock.Raw())
	if err != nil {
		t.Fatalf("getsockname: %v", err)
	}
	return sock, uint16(sa.(*unix.SockaddrInet4).Port)
}

// echoServe wires a one-connection callback-style echo server: accept,
// echo until EOF, close.
func echoServe(t *testing.T, q *ioqueue.IoQueue, listenFd int) {
	q.AcceptCallback(listenFd, nil, nil, func(res api.Result) {
		if !res.OK() {
			t.Errorf("accept: %v", res.Err())
			return
		}
		fd := res.Value()
		buf := make([]byte, 1024)
		var recvOne func()
		recvOne = func() {
			q.RecvCallback(fd, buf, func(res api.Result) {
				if !res.OK() || res.Value() == 0 {
					q.CloseCallback(fd, func(api.Result) {})
					return
				}
				q.SendCallback(fd, buf[:res.Value()], func(sent api.Result) {
					if !sent.OK() {
						q.CloseCallback(fd, func(api.Result) {})
						return
					}
					recvOne()
				})
			})
		}
		recvOne()
	})
}

func TestIoQueue_TCPEcho(t *testing.T) {
	q := newQueue(t)
	sock, port := listenTCP(t)
	defer sock.Close()
	echoServe(t, q, sock.Raw())

	clientErr := make(chan error, 1)
	go func() {
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			clientErr <- err
			return
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(5 * time.Second))
		if _, err := conn.Write([]byte("Hello\n")); err != nil {
			clientErr <- err
			return
		}
		reply := make([]byte, 6)
		if _, err := readFull(conn, reply); err != nil {
			clientErr <- err
			return
		}
		if string(reply) != "Hello\n" {
			clientErr <- fmt.Errorf("echoed %q", reply)
			return
		}
		clientErr <- nil
	}()

	q.Run()
	if err := <-clientErr; err != nil {
		t.Fatalf("client: %v", err)
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func TestIoQueue_UDPEcho(t *testing.T) {
	q := newQueue(t)
	addr, _ := sockets.ParseAddrPort("127.0.0.1:0")
	sock, err := sockets.CreateBoundSocket(sockets.UDP, addr, false)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer sock.Close()
	sa, err := unix.Getsockname(sock.Raw())
	if err != nil {
		t.Fatalf("getsockname: %v", err)
	}
	port := sa.(*unix.SockaddrInet4).Port

	fd := sock.Raw()
	buf := make([]byte, 64)
	var src unix.RawSockaddrInet4
	q.RecvFromCallback(fd, buf, 0, &src, func(res api.Result) {
		if !res.OK() {
			t.Errorf("recvfrom: %v", res.Err())
			return
		}
		dst := src
		q.SendToCallback(fd, buf[:res.Value()], 0, &dst, func(res api.Result) {
			if !res.OK() {
				t.Errorf("sendto: %v", res.Err())
			}
		})
	})

	clientErr := make(chan error, 1)
	go func() {
		conn, err := net.Dial("udp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			clientErr <- err
			return
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(5 * time.Second))
		if _, err := conn.Write([]byte("ping")); err != nil {
			clientErr <- err
			return
		}
		reply := make([]byte, 64)
		n, err := conn.Read(reply)
		if err != nil {
			clientErr <- err
			return
		}
		if string(reply[:n]) != "ping" {
			clientErr <- fmt.Errorf("echoed %q", reply[:n])
			return
		}
		clientErr <- nil
	}()

	q.Run()
	if err := <-clientErr; err != nil {
		t.Fatalf("client: %v", err)
	}
}

func socketpair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestIoQueue_ImmediateCancelDropsHandler(t *testing.T) {
	q := newQueue(t)
	a, _ := socketpair(t)
	var called bool
	buf := make([]byte, 16)
	h := q.RecvCallback(a, buf, func(api.Result) { called = true })
	if !h.Valid() {
		t.Fatal("recv not admitted")
	}
	// Cancel with handler drop before the loop ever sees a completion.
	q.Cancel(h, true)
	q.Run()
	if called {
		t.Fatal("user code ran for a dropped handler")
	}
	if q.Size() != 0 {
		t.Fatalf("map not empty: %d", q.Size())
	}
}

func TestIoQueue_LinkedTimeoutFires(t *testing.T) {
	q := newQueue(t)
	a, _ := socketpair(t)
	buf := make([]byte, 16)
	op := q.RecvDeadline(a, buf, 20*time.Millisecond)
	q.Run()
	res := op.Await()
	if !res.Canceled() {
		t.Fatalf("expected cancellation by linked timeout, got %v (%v)", res, res.Err())
	}
}

func TestIoQueue_LinkedTimeoutLoses(t *testing.T) {
	q := newQueue(t)
	a, b := socketpair(t)
	if _, err := unix.Write(b, []byte("data")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 16)
	op := q.RecvDeadline(a, buf, 500*time.Millisecond)
	q.Run()
	res := op.Await()
	if !res.OK() || res.Value() != 4 {
		t.Fatalf("expected 4 bytes, got %v (%v)", res, res.Err())
	}
}

func TestIoQueue_BareTimeout(t *testing.T) {
	q := newQueue(t)
	start := time.Now()
	op := q.Timeout(30 * time.Millisecond)
	q.Run()
	res := op.Await()
	if res.Errno() != unix.ETIME {
		t.Fatalf("expected ETIME, got %v", res.Err())
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("timeout fired after %v", elapsed)
	}
}

func TestIoQueue_TimeoutCancelFallback(t *testing.T) {
	q := newQueue(t)
	a, _ := socketpair(t)
	buf := make([]byte, 16)
	op := q.Recv(a, buf)
	q.TimeoutCancel(20*time.Millisecond, op.Handle())
	q.Run()
	res := op.Await()
	if !res.Canceled() {
		t.Fatalf("expected cancellation via timeout fallback, got %v (%v)", res, res.Err())
	}
}

func TestIoQueue_WaitAllTimers(t *testing.T) {
	q := newQueue(t)
	t1 := q.Timeout(10 * time.Millisecond)
	t2 := q.Timeout(20 * time.Millisecond)
	t3 := q.Timeout(30 * time.Millisecond)
	loopDone := make(chan struct{})
	go func() {
		q.Run()
		close(loopDone)
	}()
	start := time.Now()
	task.WaitAll(t1, t2, t3)
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("WaitAll resumed after %v", elapsed)
	}
	select {
	case <-loopDone:
	case <-time.After(time.Second):
		t.Fatal("loop did not drain")
	}
}

func TestIoQueue_WaitAnyTimers(t *testing.T) {
	q := newQueue(t)
	slow := q.Timeout(200 * time.Millisecond)
	fast := q.Timeout(10 * time.Millisecond)
	loopDone := make(chan struct{})
	go func() {
		q.Run()
		close(loopDone)
	}()
	if idx := task.WaitAny(slow, fast); idx != 1 {
		t.Fatalf("expected fast timer to win, got %d", idx)
	}
	<-loopDone
}

// File: concurrent/bridge_test.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Integration tests for the cross-thread bridges: channel delivery,
// loop-side future consumption, notify handles and the async helper.

//go:build linux

package concurrent

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/ioqueue"
)

func newQueue(t *testing.T) *ioqueue.IoQueue {
	t.Helper()
	q := ioqueue.New(ioqueue.Options{Entries: 64})
	t.Cleanup(func() { q.Release() })
	return q
}

func TestChannel_EveryMessageConsumedOnce(t *testing.T) {
	q := newQueue(t)
	ch := NewChannel[string]()

	var mu sync.Mutex
	var got []string
	collect := func(id string) func(string) {
		return func(msg string) {
			mu.Lock()
			got = append(got, msg)
			mu.Unlock()
		}
	}
	// Two concurrent receivers; the first one takes a second helping.
	ch.ReceiveCallback(q, collect("1"))
	ch.ReceiveCallback(q, collect("1"))
	ch.ReceiveCallback(q, collect("2"))

	go func() {
		for _, msg := range []string{"A", "B", "C"} {
			ch.Send(msg)
		}
	}()

	q.Run()
	sort.Strings(got)
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("messages lost or duplicated: %v", got)
	}
}

func TestChannel_SenderFIFO(t *testing.T) {
	q := newQueue(t)
	ch := NewChannel[int]()
	var got []int
	var receive func()
	receive = func() {
		ch.ReceiveCallback(q, func(v int) {
			got = append(got, v)
			if len(got) < 5 {
				receive()
			}
		})
	}
	receive()
	go func() {
		for i := 0; i < 5; i++ {
			ch.Send(i)
		}
	}()
	q.Run()
	for i, v := range got {
		if v != i {
			t.Fatalf("per-sender order violated: %v", got)
		}
	}
}

func TestFuture_LoopSideWait(t *testing.T) {
	q := newQueue(t)
	p := NewPromise[int]()
	f := p.Future()

	got := make(chan int, 1)
	f.EventFd().ReadCallback(q, func(v uint64, err error) {
		if err != nil {
			t.Errorf("eventfd read: %v", err)
			return
		}
		if v != 1 {
			t.Errorf("unexpected eventfd count %d", v)
		}
		got <- f.Get()
	})

	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Set(42)
	}()

	q.Run()
	if v := <-got; v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestWait_AwaitableFlavour(t *testing.T) {
	q := newQueue(t)
	p := NewPromise[string]()
	f := p.Future()

	// A timer keeps the loop alive while the waiting goroutine issues
	// its read.
	q.TimeoutCallback(200*time.Millisecond, func(api.Result) {})

	got := make(chan string, 1)
	go func() { got <- Wait(q, f) }()
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Set("published")
	}()

	q.Run()
	if v := <-got; v != "published" {
		t.Fatalf("expected published value, got %q", v)
	}
}

func TestWait_ReadyShortCircuit(t *testing.T) {
	q := newQueue(t)
	p := NewPromise[int]()
	f := p.Future()
	p.Set(5)
	// No loop needed: the value is already published.
	if v := Wait(q, f); v != 5 {
		t.Fatalf("expected 5, got %d", v)
	}
}

func TestNotifyHandle_DeliversValue(t *testing.T) {
	q := newQueue(t)
	got := make(chan uint64, 1)
	handle := NotifyWait(q, func(v uint64, err error) {
		if err != nil {
			t.Errorf("notify wait: %v", err)
			return
		}
		got <- v
	})
	if handle == nil || !handle.OK() {
		t.Fatal("notify handle not armed")
	}
	go func() {
		time.Sleep(5 * time.Millisecond)
		handle.Notify(7)
	}()
	q.Run()
	if v := <-got; v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	if handle.OK() {
		t.Fatal("handle must drop ownership after notify")
	}
}

func TestAsync_DeliversResultToLoop(t *testing.T) {
	q := newQueue(t)
	got := make(chan int, 1)
	err := Async(q, func() int {
		time.Sleep(5 * time.Millisecond)
		return 99
	}, func(v int, err error) {
		if err != nil {
			t.Errorf("async: %v", err)
			return
		}
		got <- v
	})
	if err != nil {
		t.Fatalf("async not admitted: %v", err)
	}
	q.Run()
	if v := <-got; v != 99 {
		t.Fatalf("expected 99, got %d", v)
	}
}

func TestEventListener_PumpsFromWorker(t *testing.T) {
	q := newQueue(t)
	var listener *EventListener[int]
	var sum int
	count := 0
	listener = NewEventListener(q, func(v int) {
		sum += v
		count++
		if count == 3 {
			listener.Close()
		}
	})
	go func() {
		for i := 1; i <= 3; i++ {
			listener.Emit(i)
			time.Sleep(time.Millisecond)
		}
	}()
	q.Run()
	if sum != 6 || count != 3 {
		t.Fatalf("expected 3 events summing 6, got %d events summing %d", count, sum)
	}
}

// File: internal/uring/ring_test.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build linux

package uring

import "testing"

func newTestRing(t *testing.T, entries uint32) *Ring {
	t.Helper()
	r, err := New(entries, false)
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestNew_RejectsBadCapacity(t *testing.T) {
	for _, entries := range []uint32{0, 3, 100, 8192} {
		if r, err := New(entries, false); err == nil {
			r.Close()
			t.Errorf("New(%d) unexpectedly succeeded", entries)
		}
	}
}

func TestNew_RequiredFeatures(t *testing.T) {
	r := newTestRing(t, 8)
	if r.Params().Features&FeatNoDrop == 0 {
		t.Error("ring admitted without NODROP")
	}
	if r.Params().Features&FeatSubmitStable == 0 {
		t.Error("ring admitted without SUBMIT_STABLE")
	}
}

func TestRing_CapacityBoundary(t *testing.T) {
	r := newTestRing(t, 8)
	for i := 0; i < 8; i++ {
		if r.PrepareNop() == nil {
			t.Fatalf("entry %d not admitted", i)
		}
	}
	if r.PrepareNop() != nil {
		t.Fatal("entry beyond capacity must be refused")
	}
	if _, err := r.SubmitAndWait(8); err != nil {
		t.Fatalf("submit: %v", err)
	}
	for i := 0; i < 8; i++ {
		cqe, err := r.WaitCQE(1)
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
		if cqe == nil {
			t.Fatal("expected completion entry")
		}
		if cqe.Res != 0 {
			t.Fatalf("nop completed with %d", cqe.Res)
		}
		r.AdvanceCQ(1)
	}
	if r.PeekCQE() != nil {
		t.Fatal("completion queue must be drained")
	}
}

func TestRing_UserDataEchoed(t *testing.T) {
	r := newTestRing(t, 8)
	sqe := r.PrepareNop()
	sqe.UserData = 0xdeadbeef
	if _, err := r.SubmitAndWait(1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	cqe, err := r.WaitCQE(1)
	if err != nil || cqe == nil {
		t.Fatalf("wait: %v", err)
	}
	if cqe.UserData != 0xdeadbeef {
		t.Fatalf("user data %x not echoed", cqe.UserData)
	}
	r.AdvanceCQ(1)
}

// File: ioqueue/ioqueue.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IoQueue is the completion core: it issues operations on the ring,
// allocates operation ids, tracks in-flight completers and dispatches
// completion entries back to them.
//
// The loop goroutine owns completion consumption and runs every callback
// completer. Continuation completers hand their result to the goroutine
// parked in Operation.Await. Submission-side state (SQE preparation, the
// completer map, id allocation) is guarded by one mutex so operations may
// be issued from awaiting goroutines; every issue flushes its entries
// before returning, which the submit-stable kernel feature makes safe and
// which guarantees the loop can never strand an entry prepared elsewhere.

//go:build linux

package ioqueue

import (
	"sync"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/internal/uring"
	"github.com/momentics/hioload-aio/logging"
)

// Options configures an IoQueue.
type Options struct {
	// Entries is the ring capacity, a power of two in [1, 4096].
	Entries uint32
	// SQPoll requests kernel-side submission queue polling.
	SQPoll bool
}

// DefaultOptions returns the standard queue configuration.
func DefaultOptions() Options {
	return Options{Entries: 1024}
}

// completer is the record stored in the completer map while an operation
// is in flight. complete runs on the loop goroutine, exactly once, unless
// the completer was dropped first.
type completer interface {
	complete(res api.Result)
}

// callbackCompleter owns a one-shot completion handler. refs pins heap
// records (msghdr, iovec, timespec) the kernel may still address.
type callbackCompleter struct {
	fn   func(api.Result)
	refs []any
}

func (c *callbackCompleter) complete(res api.Result) {
	if c.fn != nil {
		c.fn(res)
	}
}

// opCompleter borrows the awaiter record of a parked Operation.
type opCompleter struct {
	op *Operation
}

func (c *opCompleter) complete(res api.Result) {
	op := c.op
	op.res = res
	close(op.done)
}

// Handle identifies one issued operation. It is a cheap value: it does not
// own the operation and is safe to copy.
type Handle struct {
	q  *IoQueue
	id api.OperationID
}

// Valid reports whether the handle refers to a live operation.
func (h Handle) Valid() bool { return h.q != nil && !h.id.Reserved() }

// ID returns the operation id.
func (h Handle) ID() api.OperationID { return h.id }

// Cancel submits an asynchronous cancellation for the operation. With
// dropHandler the registered completer is removed first, so no user code
// runs for the operation regardless of how the race between cancellation
// and natural completion resolves.
func (h Handle) Cancel(dropHandler bool) {
	if h.Valid() {
		h.q.Cancel(h, dropHandler)
	}
}

// IoQueue drives one io_uring instance.
type IoQueue struct {
	mu         sync.Mutex
	ring       *uring.Ring
	completers *completerMap
	nextID     uint64
	// lastSQE is the most recently prepared entry within the current
	// issue call; linked timeouts attach to it. Cleared at the top of
	// every loop iteration: once entries are flushed their flags can no
	// longer be mutated.
	lastSQE *uring.SQE
}

// New creates an IoQueue with the given options. Ring setup failure or a
// missing kernel feature is fatal: the error is logged and the process
// terminates.
func New(opts Options) *IoQueue {
	if opts.Entries == 0 {
		opts.Entries = DefaultOptions().Entries
	}
	ring, err := uring.New(opts.Entries, opts.SQPoll)
	if err != nil {
		logging.Fatalf("could not create io_uring: %v", err)
	}
	return &IoQueue{
		ring:       ring,
		completers: newCompleterMap(int(opts.Entries)),
	}
}

// Size returns the number of in-flight operations.
func (q *IoQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.completers.len()
}

// Capacity returns the ring capacity.
func (q *IoQueue) Capacity() int { return int(q.ring.Entries()) }

// Release tears the ring down. Only call after Run has returned.
func (q *IoQueue) Release() error {
	return q.ring.Close()
}

func (q *IoQueue) nextOpID() api.OperationID {
	// Just skip the magic values.
	if api.OperationID(q.nextID).Reserved() {
		q.nextID = 0
	}
	id := api.OperationID(q.nextID)
	q.nextID++
	return id
}

// issueLocked finalizes a prepared SQE under q.mu: stamp user_data, store
// the completer, remember the entry for timeout linking. flush publishes
// the entries to the kernel before the lock is released.
func (q *IoQueue) issueLocked(sqe *uring.SQE, c completer, flush bool) Handle {
	if sqe == nil {
		logging.Warnf("io_uring full")
		return Handle{q: q, id: api.OpInvalid}
	}
	id := q.nextOpID()
	sqe.UserData = uint64(id)
	if c != nil {
		q.completers.insert(uint64(id), c)
	}
	q.lastSQE = sqe
	if flush {
		q.flushLocked()
	}
	return Handle{q: q, id: id}
}

// issueIgnoredLocked finalizes a sidecar entry whose completion must be
// discarded (link timeouts, cancellations).
func (q *IoQueue) issueIgnoredLocked(sqe *uring.SQE, flush bool) bool {
	if sqe == nil {
		logging.Warnf("io_uring full")
		return false
	}
	sqe.UserData = uint64(api.OpIgnore)
	if flush {
		q.flushLocked()
	}
	return true
}

func (q *IoQueue) flushLocked() {
	if _, err := q.ring.Submit(); err != nil {
		logging.Errorf("error submitting SQEs: %v", err)
	}
}

func (q *IoQueue) issue(prepare func() *uring.SQE, c completer) Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.issueLocked(prepare(), c, true)
}

// newOperation issues an operation with a continuation completer and
// returns the awaiter. A full submission queue surfaces as an operation
// that is already complete with EAGAIN, so callers can simply retry.
func (q *IoQueue) newOperation(prepare func() *uring.SQE, refs ...any) *Operation {
	op := &Operation{done: make(chan struct{}), refs: refs}
	q.mu.Lock()
	h := q.issueLocked(prepare(), &opCompleter{op: op}, true)
	q.mu.Unlock()
	op.handle = h
	if !h.Valid() {
		op.failIssue()
	}
	return op
}

// Cancel submits an asynchronous cancellation for the given operation.
// With dropHandler the completer is removed and cleared first: subsequent
// completion of the target becomes a no-op. Cancellation itself is
// asynchronous and races with natural completion; the target may still
// complete successfully.
func (q *IoQueue) Cancel(h Handle, dropHandler bool) {
	if !h.Valid() {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelLocked(h, dropHandler)
}

func (q *IoQueue) cancelLocked(h Handle, dropHandler bool) {
	if dropHandler {
		if c := q.completers.remove(uint64(h.id)); c != nil {
			if oc, ok := c.(*opCompleter); ok {
				oc.op.dropLocked()
			}
		}
	}
	q.issueIgnoredLocked(q.ring.PrepareAsyncCancel(uint64(h.id)), true)
}

// Run dispatches completions until no operation is in flight. Exactly one
// completer ownership transfer happens per non-ignored completion entry;
// ignored entries are consumed without touching the map.
func (q *IoQueue) Run() {
	for {
		q.mu.Lock()
		if q.completers.len() == 0 {
			q.mu.Unlock()
			return
		}
		q.lastSQE = nil
		// Flush anything still pending; the submission side of the ring
		// is only ever touched under q.mu.
		q.flushLocked()
		q.mu.Unlock()

		cqe, err := q.ring.WaitCQE(1)
		if err != nil {
			logging.Errorf("error entering io_uring: %v", err)
			continue
		}
		if cqe == nil {
			continue
		}
		if cqe.UserData != uint64(api.OpIgnore) {
			q.mu.Lock()
			c := q.completers.remove(cqe.UserData)
			q.mu.Unlock()
			if c != nil {
				// Outside q.mu: callback completers may issue again.
				c.complete(api.Result(cqe.Res))
			}
		}
		q.ring.AdvanceCQ(1)
	}
}

// File: task/wait.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Combinators joining several awaitables: WaitAll resumes the caller when
// every child finished, WaitAny when the first one does.

package task

import "context"

// Awaitable is anything with a completion signal: operations, tasks,
// other combinators.
type Awaitable interface {
	Done() <-chan struct{}
}

// WaitAll blocks until every awaitable has finished. Each child is awaited
// by its own spawned task, so temporaries handed in stay referenced for
// the join's lifetime.
func WaitAll(awaitables ...Awaitable) {
	pending := make(chan struct{}, len(awaitables))
	for _, aw := range awaitables {
		aw := aw
		Spawn(func() {
			<-aw.Done()
			pending <- struct{}{}
		})
	}
	for range awaitables {
		<-pending
	}
}

// WaitAllContext is WaitAll bounded by ctx. The children are not cancelled
// on early return; callers holding cancellable children drop them
// themselves.
func WaitAllContext(ctx context.Context, awaitables ...Awaitable) error {
	all := make(chan struct{})
	go func() {
		WaitAll(awaitables...)
		close(all)
	}()
	select {
	case <-all:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAny blocks until the first awaitable finishes and returns its index.
// The remaining children keep running; WaitAny does not cancel them.
func WaitAny(awaitables ...Awaitable) int {
	winner := make(chan int, len(awaitables))
	for i, aw := range awaitables {
		i, aw := i, aw
		Spawn(func() {
			<-aw.Done()
			winner <- i
		})
	}
	return <-winner
}

// WaitAnyContext is WaitAny bounded by ctx; -1 is returned when ctx wins.
func WaitAnyContext(ctx context.Context, awaitables ...Awaitable) (int, error) {
	winner := make(chan int, len(awaitables))
	for i, aw := range awaitables {
		i, aw := i, aw
		Spawn(func() {
			<-aw.Done()
			winner <- i
		})
	}
	select {
	case idx := <-winner:
		return idx, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// File: api/result.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Result is the outcome of a single ring operation: a non-negative byte
// count / descriptor, or a negated errno.

package api

import "syscall"

// Result carries the raw completion value of one ring operation.
// Non-negative values are byte counts, new file descriptors or zero;
// negative values are the negation of a POSIX error number.
type Result int64

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r >= 0 }

// Value returns the non-negative completion value. Reading the value of a
// failed result is a programming error and panics.
func (r Result) Value() int {
	if r < 0 {
		panic("api: Value called on failed Result")
	}
	return int(r)
}

// Errno returns the error number of a failed result, 0 otherwise.
func (r Result) Errno() syscall.Errno {
	if r >= 0 {
		return 0
	}
	return syscall.Errno(-r)
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r >= 0 {
		return nil
	}
	return syscall.Errno(-r)
}

// Canceled reports whether the operation completed with the kernel
// cancellation code, either through an async cancel or a linked timeout.
func (r Result) Canceled() bool { return r.Errno() == syscall.ECANCELED }

// File: api/errors.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Common error values used across the library.

package api

import "fmt"

var (
	// ErrRingFull is reported when the submission queue has no free entry.
	ErrRingFull = fmt.Errorf("submission queue full")
	// ErrCanceled is reported when an operation completed with the kernel
	// cancellation code, through an async cancel or a linked timeout.
	ErrCanceled = fmt.Errorf("operation canceled")
)

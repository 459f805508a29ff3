// File: api/operation.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Operation identifiers shared between the ring binding and the event loop.
// The id doubles as the user_data cookie stamped on every submission entry.

package api

// OperationID identifies one in-flight ring operation.
type OperationID uint64

const (
	// OpInvalid marks a default-constructed handle; no operation.
	OpInvalid OperationID = 1<<64 - 2
	// OpIgnore marks submissions whose completion must be discarded,
	// such as linked-timeout sidecars and the cancellation entries
	// themselves.
	OpIgnore OperationID = 1<<64 - 1
)

// Reserved reports whether id is one of the two magic values.
func (id OperationID) Reserved() bool { return id == OpInvalid || id == OpIgnore }

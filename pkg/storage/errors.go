// Package storage defines the error taxonomy and the store contract shared by
// the relational adapter and the Redis cluster adapter.
package storage

import "errors"

var (
	// ErrNotFound indicates that no record exists for the given id.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail indicates an email collision within a single store.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrNotReady is returned while the cluster adapter has not reached its
	// ready state (still discovering, degraded, or permanently failed).
	ErrNotReady = errors.New("cluster adapter not ready")

	// ErrClusterUnavailable is returned once the reconnect-and-retry budget
	// for a command has been exhausted.
	ErrClusterUnavailable = errors.New("cluster unavailable")
)

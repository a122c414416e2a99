package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cache operations.
// Use errors.Is() to check for these specific error conditions.
var (
	// ErrNotFound is returned when a cache key doesn't exist or has expired.
	// This is not considered a fatal error - callers should handle cache misses gracefully.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when attempting to use a closed cache.
	ErrClosed = errors.New("cache: store closed")

	// ErrInvalidTTL is returned when a TTL value is negative.
	ErrInvalidTTL = errors.New("cache: invalid TTL")
)

// ConnectionError represents a cache connection error.
// These errors may be transient and could be retried.
type ConnectionError struct {
	Op      string // Operation that failed (e.g., "dial", "ping")
	Address string // Cache server address
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cache connection error: %s failed for %s: %v", e.Op, e.Address, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a new connection error.
func NewConnectionError(op, address string, err error) *ConnectionError {
	return &ConnectionError{
		Op:      op,
		Address: address,
		Err:     err,
	}
}

// OperationError represents a failed store operation (Get, Set, Delete).
type OperationError struct {
	Op  string // Operation that failed (e.g., "get", "set")
	Key string // Cache key involved in the operation
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("cache operation error: %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new operation error.
func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

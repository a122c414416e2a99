package transport

import (
	"errors"
	"fmt"
	"time"
)

// ClientError represents different types of transport errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of transport error
type ErrorType string

const (
	NetworkError    ErrorType = "network"
	TimeoutError    ErrorType = "timeout"
	HostError       ErrorType = "host"
	ValidationError ErrorType = "validation"
)

// networkError represents network-related errors
type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType {
	return NetworkError
}

func (e *networkError) Unwrap() error {
	return e.wrapped
}

// timeoutError represents timeout-related errors
type timeoutError struct {
	message string
	timeout time.Duration
	wrapped error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType {
	return TimeoutError
}

func (e *timeoutError) Unwrap() error {
	return e.wrapped
}

// hostError is a failure reported by a host binding rather than the network.
type hostError struct {
	message string
	status  int32
	wrapped error
}

func (e *hostError) Error() string {
	msg := fmt.Sprintf("host error: %s", e.message)
	if e.status != 0 {
		msg = fmt.Sprintf("%s (host status: %d)", msg, e.status)
	}
	if e.wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *hostError) Type() ErrorType {
	return HostError
}

func (e *hostError) Unwrap() error {
	return e.wrapped
}

// HostStatus returns the status code reported by the host, or 0.
func (e *hostError) HostStatus() int32 {
	return e.status
}

// validationError represents request validation errors
type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{
		message: message,
		wrapped: wrapped,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, timeout time.Duration, wrapped error) ClientError {
	return &timeoutError{
		message: message,
		timeout: timeout,
		wrapped: wrapped,
	}
}

// NewHostError creates a new host binding error. status is the host's own
// status code, or 0 when the host call itself failed.
func NewHostError(message string, status int32, wrapped error) ClientError {
	return &hostError{
		message: message,
		status:  status,
		wrapped: wrapped,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{
		message: message,
		field:   field,
	}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// HostStatus extracts the host status code from a host error.
func HostStatus(err error) (int32, bool) {
	var he *hostError
	if errors.As(err, &he) {
		return he.HostStatus(), true
	}
	return 0, false
}

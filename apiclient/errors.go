package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrMockNotFound is returned in mock mode when the mock table has no
	// handler for the call's method.
	ErrMockNotFound = errors.New("apiclient: no mock handler for method")

	// ErrInvalidMethod is returned when Call receives an empty method.
	ErrInvalidMethod = errors.New("apiclient: method cannot be empty")
)

// HookError describes a hook that returned an error or panicked. It is
// logged and counted but never returned from Call.
type HookError struct {
	Hook     string
	Err      error
	Panicked bool
}

func (e *HookError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("hook %s panicked: %v", e.Hook, e.Err)
	}
	return fmt.Sprintf("hook %s failed: %v", e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

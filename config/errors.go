package config

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories reported by ConfigError
const (
	CategoryMissing     = "missing"
	CategoryInvalid     = "invalid"
	CategoryUnavailable = "unavailable"
)

// ConfigError represents a configuration error with actionable guidance.
// Configuration errors are raised while building a client and are never
// produced by an individual call.
//
//nolint:revive // ConfigError is intentionally named for clarity in external API usage
type ConfigError struct {
	Category string   // "missing", "invalid", "unavailable"
	Field    string   // config field path (e.g., "client.transport")
	Message  string   // user-friendly error message (lowercase)
	Action   string   // actionable instruction (lowercase)
	Details  []string // additional details or examples
	Err      error    // underlying cause, if any
}

// Error implements the error interface with lowercase formatting.
func (e *ConfigError) Error() string {
	var parts []string

	if e.Category != "" {
		parts = append(parts, fmt.Sprintf("config_%s:", e.Category))
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	if len(e.Details) > 0 {
		parts = append(parts, strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("(%v)", e.Err))
	}

	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewMissingFieldError creates an error for a required missing configuration field.
func NewMissingFieldError(field, envVar, yamlPath string) *ConfigError {
	return &ConfigError{
		Category: CategoryMissing,
		Field:    field,
		Message:  "required",
		Action:   fmt.Sprintf("set %s env var or add %s to config.yaml", envVar, yamlPath),
	}
}

// NewInvalidFieldError creates an error for an invalid configuration value.
func NewInvalidFieldError(field, message string, validOptions []string) *ConfigError {
	err := &ConfigError{
		Category: CategoryInvalid,
		Field:    field,
		Message:  message,
	}
	if len(validOptions) > 0 {
		err.Action = fmt.Sprintf("must be one of: %s", strings.Join(validOptions, ", "))
	}
	return err
}

// NewUnavailableError reports a configured feature whose runtime dependency is absent,
// such as a host binding selected outside of its host environment.
func NewUnavailableError(field, message string, cause error) *ConfigError {
	return &ConfigError{
		Category: CategoryUnavailable,
		Field:    field,
		Message:  message,
		Err:      cause,
	}
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

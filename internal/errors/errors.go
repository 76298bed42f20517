// Package errors defines the stable error taxonomy for the command-routing
// layer. Every failure that crosses a package boundary carries one of these
// codes so the envelope builder and callers can react without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// UnknownCommand indicates the command is not in the fixed command set
	UnknownCommand ErrorCode = "UNKNOWN_COMMAND"
	// MissingParameter indicates a required request field is absent
	MissingParameter ErrorCode = "MISSING_PARAMETER"
	// InvalidParameter indicates a request field has an unusable value
	InvalidParameter ErrorCode = "INVALID_PARAMETER"
	// EngineFailure indicates the external analysis engine call failed
	// or returned malformed data
	EngineFailure ErrorCode = "ENGINE_FAILURE"
	// HostCapabilityAbsent indicates a registration pipeline step could not
	// resolve or use the host environment
	HostCapabilityAbsent ErrorCode = "HOST_CAPABILITY_ABSENT"
	// InternalError indicates an unexpected failure inside this layer
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// LensError represents a varlens error with code, message, and details
type LensError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error          // Underlying error (not exported to JSON)
}

// New creates a new LensError
func New(code ErrorCode, message string, cause error) *LensError {
	return &LensError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *LensError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LensError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *LensError) WithDetails(details map[string]any) *LensError {
	e.Details = details
	return e
}

// WithDetail adds a single detail entry to the error
func (e *LensError) WithDetail(key string, value any) *LensError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewUnknownCommand creates an UNKNOWN_COMMAND error carrying the sorted
// list of valid commands under details.available
func NewUnknownCommand(command string, available []string) *LensError {
	sorted := make([]string, len(available))
	copy(sorted, available)
	sort.Strings(sorted)

	return New(UnknownCommand,
		fmt.Sprintf("unknown command %q, available: %s", command, strings.Join(sorted, ", ")),
		nil,
	).WithDetails(map[string]any{
		"command":   command,
		"available": sorted,
	})
}

// NewMissingParameter creates a MISSING_PARAMETER error naming the field
func NewMissingParameter(field string) *LensError {
	return New(MissingParameter,
		fmt.Sprintf("required parameter %q is missing", field),
		nil,
	).WithDetail("parameter", field)
}

// NewInvalidParameter creates an INVALID_PARAMETER error naming the field
// and the rejected value
func NewInvalidParameter(field string, value any, reason string) *LensError {
	return New(InvalidParameter,
		fmt.Sprintf("invalid value for parameter %q: %s", field, reason),
		nil,
	).WithDetails(map[string]any{
		"parameter": field,
		"value":     value,
	})
}

// NewEngineFailure creates an ENGINE_FAILURE error wrapping the engine's error
func NewEngineFailure(operation string, cause error) *LensError {
	return New(EngineFailure,
		fmt.Sprintf("engine operation %q failed", operation),
		cause,
	).WithDetail("operation", operation)
}

// NewHostCapabilityAbsent creates a HOST_CAPABILITY_ABSENT error for a
// registration pipeline step
func NewHostCapabilityAbsent(step string, cause error) *LensError {
	return New(HostCapabilityAbsent,
		fmt.Sprintf("host integration step %q unavailable", step),
		cause,
	).WithDetail("step", step)
}

// NewInternal creates an INTERNAL_ERROR for unexpected failures
func NewInternal(message string, cause error) *LensError {
	return New(InternalError, message, cause)
}

// AsLensError extracts a *LensError from an error chain.
// Returns nil and false when the chain carries no LensError.
func AsLensError(err error) (*LensError, bool) {
	var le *LensError
	if stderrors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or InternalError when err is not
// a LensError
func CodeOf(err error) ErrorCode {
	if le, ok := AsLensError(err); ok {
		return le.Code
	}
	return InternalError
}

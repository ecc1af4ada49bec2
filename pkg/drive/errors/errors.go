// Package errors provides error types and error codes for the drive package.
// This is a leaf package with no internal dependencies, designed to be imported
// by both the drive service and the metadata store implementations without
// causing circular imports.
//
// Import graph: errors <- drive <- store implementations
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred.
type ErrorCode int

const (
	// ErrNotFound indicates the referenced folder or file does not exist.
	ErrNotFound ErrorCode = iota + 1

	// ErrInvalidName indicates an empty or whitespace-only name.
	ErrInvalidName

	// ErrInvalidMove indicates a move that would make a folder its own ancestor.
	ErrInvalidMove

	// ErrCorruptHierarchy indicates an ancestor walk hit a dangling parent
	// or exceeded the folder count bound (a cycle).
	ErrCorruptHierarchy

	// ErrUpstreamFailure indicates the blob store or identity provider failed
	// or timed out. The underlying cause is attached.
	ErrUpstreamFailure

	// ErrAlreadyExists indicates a record with the same id is already stored.
	// Store-internal: the service always allocates fresh ids.
	ErrAlreadyExists

	// ErrNotEmpty indicates a folder still has children.
	// Store-internal: recursive delete removes children first.
	ErrNotEmpty

	// ErrPermissionDenied indicates the caller may not touch the record,
	// either because it is the root folder or because they do not own it.
	ErrPermissionDenied
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrNotFound:
		return "NotFound"
	case ErrInvalidName:
		return "InvalidName"
	case ErrInvalidMove:
		return "InvalidMove"
	case ErrCorruptHierarchy:
		return "CorruptHierarchy"
	case ErrUpstreamFailure:
		return "UpstreamFailure"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrNotEmpty:
		return "NotEmpty"
	case ErrPermissionDenied:
		return "PermissionDenied"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// DriveError represents a drive error with an error code.
type DriveError struct {
	Code    ErrorCode
	Message string
	ID      string
	Cause   error
}

// Error implements the error interface.
func (e *DriveError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ID != "" {
		msg = fmt.Sprintf("%s (id: %s)", msg, e.ID)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *DriveError) Unwrap() error {
	return e.Cause
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewNotFoundError creates a NotFound error.
// kind is "folder", "file" or "upload".
func NewNotFoundError(id, kind string) *DriveError {
	return &DriveError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", kind),
		ID:      id,
	}
}

// NewInvalidNameError creates an InvalidName error.
func NewInvalidNameError(name string) *DriveError {
	return &DriveError{
		Code:    ErrInvalidName,
		Message: fmt.Sprintf("invalid name %q: name must not be empty", name),
	}
}

// NewInvalidMoveError creates an InvalidMove error for moving id under target.
func NewInvalidMoveError(id, target, reason string) *DriveError {
	return &DriveError{
		Code:    ErrInvalidMove,
		Message: fmt.Sprintf("cannot move into %s: %s", target, reason),
		ID:      id,
	}
}

// NewCorruptHierarchyError creates a CorruptHierarchy error.
func NewCorruptHierarchyError(id, message string) *DriveError {
	return &DriveError{
		Code:    ErrCorruptHierarchy,
		Message: message,
		ID:      id,
	}
}

// NewUpstreamError wraps a blob store or identity provider failure.
func NewUpstreamError(operation string, cause error) *DriveError {
	return &DriveError{
		Code:    ErrUpstreamFailure,
		Message: fmt.Sprintf("%s failed", operation),
		Cause:   cause,
	}
}

// NewAlreadyExistsError creates an AlreadyExists error.
func NewAlreadyExistsError(id string) *DriveError {
	return &DriveError{
		Code:    ErrAlreadyExists,
		Message: "already exists",
		ID:      id,
	}
}

// NewNotEmptyError creates a NotEmpty error.
func NewNotEmptyError(id string) *DriveError {
	return &DriveError{
		Code:    ErrNotEmpty,
		Message: "folder not empty",
		ID:      id,
	}
}

// NewPermissionDeniedError creates a PermissionDenied error.
func NewPermissionDeniedError(id, reason string) *DriveError {
	return &DriveError{
		Code:    ErrPermissionDenied,
		Message: reason,
		ID:      id,
	}
}

// ============================================================================
// Error Type Checking Helpers
// ============================================================================

// CodeOf returns the code of the first DriveError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var driveErr *DriveError
	if errors.As(err, &driveErr) {
		return driveErr.Code, true
	}
	return 0, false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsNotFoundError returns true if the error is a NotFound error.
func IsNotFoundError(err error) bool {
	return hasCode(err, ErrNotFound)
}

// IsInvalidNameError returns true if the error is an InvalidName error.
func IsInvalidNameError(err error) bool {
	return hasCode(err, ErrInvalidName)
}

// IsInvalidMoveError returns true if the error is an InvalidMove error.
func IsInvalidMoveError(err error) bool {
	return hasCode(err, ErrInvalidMove)
}

// IsCorruptHierarchyError returns true if the error is a CorruptHierarchy error.
func IsCorruptHierarchyError(err error) bool {
	return hasCode(err, ErrCorruptHierarchy)
}

// IsUpstreamError returns true if the error is an UpstreamFailure error.
func IsUpstreamError(err error) bool {
	return hasCode(err, ErrUpstreamFailure)
}

// IsAlreadyExistsError returns true if the error is an AlreadyExists error.
func IsAlreadyExistsError(err error) bool {
	return hasCode(err, ErrAlreadyExists)
}

// IsNotEmptyError returns true if the error is a NotEmpty error.
func IsNotEmptyError(err error) bool {
	return hasCode(err, ErrNotEmpty)
}

// IsPermissionDeniedError returns true if the error is a PermissionDenied error.
func IsPermissionDeniedError(err error) bool {
	return hasCode(err, ErrPermissionDenied)
}

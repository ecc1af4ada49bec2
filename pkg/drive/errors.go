package drive

import (
	"github.com/marmos91/dittodrive/pkg/drive/errors"
)

// DriveError is re-exported from the errors package.
type DriveError = errors.DriveError

// ErrorCode is re-exported from the errors package.
type ErrorCode = errors.ErrorCode

// Re-exported error codes.
const (
	ErrNotFound         = errors.ErrNotFound
	ErrInvalidName      = errors.ErrInvalidName
	ErrInvalidMove      = errors.ErrInvalidMove
	ErrCorruptHierarchy = errors.ErrCorruptHierarchy
	ErrUpstreamFailure  = errors.ErrUpstreamFailure
	ErrAlreadyExists    = errors.ErrAlreadyExists
	ErrNotEmpty         = errors.ErrNotEmpty
	ErrPermissionDenied = errors.ErrPermissionDenied
)

// Re-exported checkers.
var (
	IsNotFoundError         = errors.IsNotFoundError
	IsInvalidNameError      = errors.IsInvalidNameError
	IsInvalidMoveError      = errors.IsInvalidMoveError
	IsCorruptHierarchyError = errors.IsCorruptHierarchyError
	IsUpstreamError         = errors.IsUpstreamError
	IsPermissionDeniedError = errors.IsPermissionDeniedError
)

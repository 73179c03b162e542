package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a record was not found in the local store
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input rejected before any mutation
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure (e.g. writes in reader mode)
	ForbiddenError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Is lets errors.Is match the typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("already exists")
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrStorage        = errors.New("storage failure")
	ErrQuotaExceeded  = errors.New("storage quota exceeded")
	ErrTooLarge       = errors.New("payload too large")
	ErrEncoding       = errors.New("attachment encoding failed")
	ErrDecoding       = errors.New("attachment decoding failed")
	ErrOrphanedModule = errors.New("module references a missing book")
	ErrRemote         = errors.New("remote operation failed")
)

// ConflictError represents a record conflict with details about the existing record
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of record (book, module)
	ResourceID   string // ID of the existing/conflicting record
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// StorageError wraps a failure of a durable medium (primary store or backup medium).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error        { return e.Err }
func (e *StorageError) StatusCode() int      { return http.StatusInternalServerError }
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError returns nil when err is nil so callers can wrap unconditionally.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// EncodingError indicates an attachment source could not be fully read.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string        { return fmt.Sprintf("encode attachment: %v", e.Err) }
func (e *EncodingError) Unwrap() error        { return e.Err }
func (e *EncodingError) StatusCode() int      { return http.StatusUnprocessableEntity }
func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// DecodingError indicates an attachment payload is not valid base64.
// Offset is the position in the cleaned payload where decoding stopped.
type DecodingError struct {
	Offset int64
	Err    error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decode attachment at offset %d: %v", e.Offset, e.Err)
}
func (e *DecodingError) Unwrap() error        { return e.Err }
func (e *DecodingError) StatusCode() int      { return http.StatusUnprocessableEntity }
func (e *DecodingError) Is(target error) bool { return target == ErrDecoding }

// OrphanedModuleError is returned when a module write references a book that does not exist.
type OrphanedModuleError struct {
	ModuleID int64
	BookID   int64
}

func (e *OrphanedModuleError) Error() string {
	if e.ModuleID == 0 {
		return fmt.Sprintf("module references missing book %d", e.BookID)
	}
	return fmt.Sprintf("module %d references missing book %d", e.ModuleID, e.BookID)
}
func (e *OrphanedModuleError) StatusCode() int { return http.StatusUnprocessableEntity }

// Is matches both ErrOrphanedModule and ErrValidation
func (e *OrphanedModuleError) Is(target error) bool {
	return target == ErrOrphanedModule || target == ErrValidation
}

// RemoteError wraps a failure talking to the remote document database.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string        { return fmt.Sprintf("remote %s: %v", e.Op, e.Err) }
func (e *RemoteError) Unwrap() error        { return e.Err }
func (e *RemoteError) StatusCode() int      { return http.StatusBadGateway }
func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// NewRemoteError returns nil when err is nil.
func NewRemoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}

package storage

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-bim/pkg/bim"
)

// Common sentinel errors
var (
	ErrVertexNotFound   = errors.New("vertex not found")
	ErrStoreClosed      = errors.New("store is closed")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrWALAppendFailed  = errors.New("WAL append failed")
	ErrMarshalFailed    = errors.New("marshal failed")
)

// StorageError provides structured error information for storage operations.
type StorageError struct {
	Op      string // Operation that failed (e.g., "upsert_vertex", "neighbors")
	Entity  string // Entity type (e.g., "vertex", "edge", "WAL")
	ID      string // Vertex id or edge key, if applicable
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	subject := e.Entity
	if e.ID != "" {
		subject = fmt.Sprintf("%s %q", e.Entity, e.ID)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, subject, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, subject, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building StorageErrors.
type ErrorBuilder struct {
	err StorageError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StorageError{Op: op}}
}

// Vertex sets the entity to "vertex" with the given id.
func (b *ErrorBuilder) Vertex(id string) *ErrorBuilder {
	b.err.Entity = "vertex"
	b.err.ID = id
	return b
}

// Edge sets the entity to "edge" with the given key.
func (b *ErrorBuilder) Edge(key bim.EdgeKey) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = key.String()
	return b
}

// Store sets the entity to "store".
func (b *ErrorBuilder) Store() *ErrorBuilder {
	b.err.Entity = "store"
	return b
}

// WAL sets the entity to "WAL".
func (b *ErrorBuilder) WAL() *ErrorBuilder {
	b.err.Entity = "WAL"
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed StorageError.
func (b *ErrorBuilder) Build() *StorageError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// Convenience functions for common error patterns

// VertexNotFoundError creates a vertex not found error.
func VertexNotFoundError(op, id string) error {
	return NewError(op).Vertex(id).Cause(ErrVertexNotFound).Err()
}

// ClosedError reports an operation on a closed store.
func ClosedError(op string) error {
	return NewError(op).Store().Cause(ErrStoreClosed).Err()
}

// UnavailableError wraps a backend failure so callers can match ErrStoreUnavailable.
func UnavailableError(op string, cause error) error {
	return NewError(op).Store().Cause(fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)).Err()
}

// WALError creates a WAL operation error.
func WALError(op string, cause error) error {
	return NewError(op).WAL().Cause(fmt.Errorf("%w: %w", ErrWALAppendFailed, cause)).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrVertexNotFound)
}

// IsClosed returns true if the error indicates the store is closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrStoreClosed)
}

// IsUnavailable returns true if the backend could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

package storage

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// these (or ErrStorageClosed) under errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrNoActiveTransaction = errors.New("no active transaction")
	ErrInvariantViolation  = errors.New("invariant violated")
	ErrTransactionTerminal = errors.New("transaction has already been committed or rolled back")
)

// Specific sentinel errors
var (
	ErrNodeNotFound         = fmt.Errorf("node %w", ErrNotFound)
	ErrRelationshipNotFound = fmt.Errorf("relationship %w", ErrNotFound)
	ErrPropertyNotFound     = fmt.Errorf("property %w", ErrNotFound)
	ErrIndexEntryNotFound   = fmt.Errorf("index entry %w", ErrNotFound)

	ErrDanglingRelationships = fmt.Errorf("node has dangling relationships: %w", ErrInvariantViolation)
	ErrMissingEndpoint       = fmt.Errorf("relationship endpoint does not exist: %w", ErrInvariantViolation)
	ErrIndexedEntityMissing  = fmt.Errorf("indexed entity does not exist: %w", ErrInvariantViolation)

	ErrStorageClosed           = errors.New("storage is closed")
	ErrRollbackOnly            = errors.New("transaction was marked rollback-only by a nested scope")
	ErrMultipleHits            = errors.New("more than one index hit")
	ErrInvalidRelationshipType = errors.New("invalid relationship type")
	ErrInvalidPropertyKey      = errors.New("invalid property key")
	ErrInvalidValue            = errors.New("invalid property value")
)

// StorageError provides structured error information for storage operations.
type StorageError struct {
	Op      string // Operation that failed (e.g., "DeleteNode", "Commit")
	Entity  string // Entity type (e.g., "node", "relationship", "index")
	ID      uint64 // Entity ID (if applicable)
	Field   string // Property key or index name
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.ID != 0 {
		if e.Field != "" {
			return fmt.Sprintf("%s %s %d (field %s): %v", e.Op, e.Entity, e.ID, e.Field, e.Cause)
		}
		return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s %s (field %s): %v", e.Op, e.Entity, e.Field, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
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

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id uint64) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Relationship sets the entity to "relationship" with the given ID.
func (b *ErrorBuilder) Relationship(id uint64) *ErrorBuilder {
	b.err.Entity = "relationship"
	b.err.ID = id
	return b
}

// Entity sets the entity from a kind and ID.
func (b *ErrorBuilder) Entity(kind EntityKind, id uint64) *ErrorBuilder {
	b.err.Entity = kind.String()
	b.err.ID = id
	return b
}

// Index sets the entity to "index" with the given index name.
func (b *ErrorBuilder) Index(name string) *ErrorBuilder {
	b.err.Entity = "index"
	b.err.Field = name
	return b
}

// Transaction sets the entity to "transaction".
func (b *ErrorBuilder) Transaction(id uint64) *ErrorBuilder {
	b.err.Entity = "transaction"
	b.err.ID = id
	return b
}

// Field sets the field name for property operations.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
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

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(op string, nodeID uint64) error {
	return NewError(op).Node(nodeID).Cause(ErrNodeNotFound).Err()
}

// RelationshipNotFoundError creates a relationship not found error.
func RelationshipNotFoundError(op string, relID uint64) error {
	return NewError(op).Relationship(relID).Cause(ErrRelationshipNotFound).Err()
}

func entityNotFoundError(op string, kind EntityKind, id uint64) error {
	if kind == KindRelationship {
		return RelationshipNotFoundError(op, id)
	}
	return NodeNotFoundError(op, id)
}

// IsNotFound returns true if the error is any not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvariantViolation returns true if a commit was rejected by an integrity check.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsClosed returns true if the error indicates the storage is closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrStorageClosed)
}

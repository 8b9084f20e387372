package elm

import (
	"errors"
	"fmt"

	sqldialect "github.com/folkelib/elm/dialect/sql"
	"github.com/folkelib/elm/query"
	"github.com/folkelib/elm/schema"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("elm: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns zero or multiple results.
	ErrNotSingular = errors.New("elm: entity not singular")

	// ErrDialectMismatch is returned when a prepared query compiled for one
	// dialect is executed on a connection of another.
	ErrDialectMismatch = errors.New("elm: prepared query dialect mismatch")
)

// Construction errors of the schema and query packages.
type (
	UnmappedTypeError          = schema.UnmappedTypeError
	MappingAlreadyBuiltError   = schema.MappingAlreadyBuiltError
	UnregisteredTableError     = query.UnregisteredTableError
	UnresolvedJoinError        = query.UnresolvedJoinError
	UnsupportedExpressionError = query.UnsupportedExpressionError
	ClauseOrderError           = query.ClauseOrderError
	ArgumentError              = query.ArgumentError
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("elm: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("elm: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a query expects a singular result
// but receives multiple results.
type NotSingularError struct {
	label string
	count int
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	if e.count >= 0 {
		return fmt.Sprintf("elm: %s not singular (got %d results, expected 1)", e.label, e.count)
	}
	return fmt.Sprintf("elm: %s not singular", e.label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Label returns the entity label.
func (e *NotSingularError) Label() string {
	return e.label
}

// Count returns the number of results, or -1 if unknown.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError for the given entity type.
func NewNotSingularError(label string) *NotSingularError {
	return &NotSingularError{label: label, count: -1}
}

// NewNotSingularErrorWithCount returns a new NotSingularError with the result count.
func NewNotSingularErrorWithCount(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// NotLoadedError is returned when a reference holds only its key and the
// referenced row was not found by LoadReference.
type NotLoadedError struct {
	property string
	key      any
}

// Error returns the error string.
func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("elm: reference %q (key=%v) could not be loaded", e.property, e.key)
}

// NewNotLoadedError returns a new NotLoadedError for the given reference property.
func NewNotLoadedError(property string, key any) *NotLoadedError {
	return &NotLoadedError{property: property, key: key}
}

// IsNotLoaded returns true if the error is a NotLoadedError.
func IsNotLoaded(err error) bool {
	if err == nil {
		return false
	}
	var e *NotLoadedError
	return errors.As(err, &e)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	Kind sqldialect.Constraint
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("elm: %s constraint failed: %v", e.Kind, e.wrap)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// constraint wraps err in a ConstraintError when the driver reports a
// constraint violation. The driver error stays reachable with errors.As.
func constraint(err error) error {
	if k := sqldialect.ConstraintOf(err); k != sqldialect.NoConstraint {
		return ConstraintError{Kind: k, wrap: err}
	}
	return err
}

// QueryError wraps a query error with additional context.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "list", "count", "exists")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("elm: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("elm: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a mutation error with additional context.
type MutationError struct {
	Entity string // Entity type being mutated
	Op     string // Operation (e.g., "insert", "update", "delete")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("elm: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}

// IsUnmappedType reports whether err is an UnmappedTypeError.
func IsUnmappedType(err error) bool { return schema.IsUnmappedType(err) }

// IsMappingAlreadyBuilt reports whether err is a MappingAlreadyBuiltError.
func IsMappingAlreadyBuilt(err error) bool { return schema.IsMappingAlreadyBuilt(err) }

// IsUnregisteredTable reports whether err is an UnregisteredTableError.
func IsUnregisteredTable(err error) bool { return query.IsUnregisteredTable(err) }

// IsUnresolvedJoin reports whether err is an UnresolvedJoinError.
func IsUnresolvedJoin(err error) bool { return query.IsUnresolvedJoin(err) }

// IsUnsupportedExpression reports whether err is an UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool { return query.IsUnsupportedExpression(err) }

// IsClauseOrder reports whether err is a ClauseOrderError.
func IsClauseOrder(err error) bool { return query.IsClauseOrder(err) }

// IsArgumentError reports whether err is an ArgumentError.
func IsArgumentError(err error) bool { return query.IsArgumentError(err) }

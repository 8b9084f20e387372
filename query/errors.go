package query

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below.
var (
	// ErrUnregisteredTable is returned when an expression names a table
	// the query never brought into scope.
	ErrUnregisteredTable = errors.New("query: table not registered")

	// ErrUnresolvedJoin is returned when a reference hop is used outside
	// the projection without having been joined.
	ErrUnresolvedJoin = errors.New("query: reference not joined")

	// ErrUnsupportedExpression is returned for expressions the compiler
	// cannot translate.
	ErrUnsupportedExpression = errors.New("query: unsupported expression")

	// ErrClauseOrder is returned when builder clauses are called out of order.
	ErrClauseOrder = errors.New("query: clause out of order")

	// ErrArgumentCount is returned when a prepared query is executed with
	// the wrong number of arguments.
	ErrArgumentCount = errors.New("query: wrong argument count")
)

// UnregisteredTableError is returned when a variable or the query root
// is used before it was brought into the query.
type UnregisteredTableError struct {
	Table string
}

// Error returns the error string.
func (e *UnregisteredTableError) Error() string {
	return fmt.Sprintf("query: table %s is not part of the query", e.Table)
}

// Is reports whether the target is ErrUnregisteredTable.
func (e *UnregisteredTableError) Is(err error) bool {
	return err == ErrUnregisteredTable
}

// IsUnregisteredTable returns true if the error is an UnregisteredTableError.
func IsUnregisteredTable(err error) bool {
	var e *UnregisteredTableError
	return errors.As(err, &e)
}

// UnresolvedJoinError is returned when a member path crosses a reference
// that was not registered in the projection or joined.
type UnresolvedJoinError struct {
	Path string
}

// Error returns the error string.
func (e *UnresolvedJoinError) Error() string {
	return fmt.Sprintf("query: reference %q is not joined", e.Path)
}

// Is reports whether the target is ErrUnresolvedJoin.
func (e *UnresolvedJoinError) Is(err error) bool {
	return err == ErrUnresolvedJoin
}

// IsUnresolvedJoin returns true if the error is an UnresolvedJoinError.
func IsUnresolvedJoin(err error) bool {
	var e *UnresolvedJoinError
	return errors.As(err, &e)
}

// UnsupportedExpressionError is returned for expression shapes that have
// no SQL translation.
type UnsupportedExpressionError struct {
	Expr string
}

// Error returns the error string.
func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("query: unsupported expression: %s", e.Expr)
}

// Is reports whether the target is ErrUnsupportedExpression.
func (e *UnsupportedExpressionError) Is(err error) bool {
	return err == ErrUnsupportedExpression
}

// IsUnsupportedExpression returns true if the error is an UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool {
	var e *UnsupportedExpressionError
	return errors.As(err, &e)
}

func unsupported(format string, args ...any) error {
	return &UnsupportedExpressionError{Expr: fmt.Sprintf(format, args...)}
}

// ClauseOrderError is returned when a clause is added after a later clause,
// or before the FROM clause it depends on.
type ClauseOrderError struct {
	Clause string
	// After is the clause already present, or FROM when it is missing.
	After string
}

// Error returns the error string.
func (e *ClauseOrderError) Error() string {
	if e.After == "FROM" {
		return fmt.Sprintf("query: %s requires FROM", e.Clause)
	}
	return fmt.Sprintf("query: %s after %s", e.Clause, e.After)
}

// Is reports whether the target is ErrClauseOrder.
func (e *ClauseOrderError) Is(err error) bool {
	return err == ErrClauseOrder
}

// IsClauseOrder returns true if the error is a ClauseOrderError.
func IsClauseOrder(err error) bool {
	var e *ClauseOrderError
	return errors.As(err, &e)
}

// ArgumentError is returned when the runtime arguments of a prepared
// query do not match its parameter slots.
type ArgumentError struct {
	Want, Got int
}

// Error returns the error string.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("query: want %d arguments, got %d", e.Want, e.Got)
}

// Is reports whether the target is ErrArgumentCount.
func (e *ArgumentError) Is(err error) bool {
	return err == ErrArgumentCount
}

// IsArgumentError returns true if the error is an ArgumentError.
func IsArgumentError(err error) bool {
	var e *ArgumentError
	return errors.As(err, &e)
}

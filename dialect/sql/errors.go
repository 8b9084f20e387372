package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Constraint is the kind of integrity constraint a driver error reports.
type Constraint int

// Constraint kinds.
const (
	NoConstraint Constraint = iota
	UniqueConstraint
	ForeignKeyConstraint
	CheckConstraint
	NotNullConstraint
)

// String returns the constraint kind name.
func (c Constraint) String() string {
	switch c {
	case UniqueConstraint:
		return "unique"
	case ForeignKeyConstraint:
		return "foreign key"
	case CheckConstraint:
		return "check"
	case NotNullConstraint:
		return "not null"
	default:
		return "none"
	}
}

// PostgreSQL SQLSTATE codes of class 23.
var pgConstraints = map[string]Constraint{
	"23505": UniqueConstraint,
	"23503": ForeignKeyConstraint,
	"23514": CheckConstraint,
	"23502": NotNullConstraint,
}

// MySQL error numbers.
var mysqlConstraints = map[uint16]Constraint{
	1062: UniqueConstraint,
	1451: ForeignKeyConstraint, // cannot delete or update a parent row
	1452: ForeignKeyConstraint, // cannot add or update a child row
	3819: CheckConstraint,
	1048: NotNullConstraint,
}

// SQLite extended result codes.
var sqliteConstraints = map[int]Constraint{
	2067: UniqueConstraint, // SQLITE_CONSTRAINT_UNIQUE
	1555: UniqueConstraint, // SQLITE_CONSTRAINT_PRIMARYKEY
	787:  ForeignKeyConstraint,
	275:  CheckConstraint,
	1299: NotNullConstraint,
}

// sqliteCoder is implemented by modernc.org/sqlite errors.
type sqliteCoder interface {
	Code() int
}

// ConstraintOf classifies a driver error. The error is inspected through
// its wrap chain and never modified.
func ConstraintOf(err error) Constraint {
	if err == nil {
		return NoConstraint
	}
	var (
		myErr *mysql.MySQLError
		pqErr *pq.Error
		pgErr *pgconn.PgError
	)
	switch {
	case errors.As(err, &myErr):
		return mysqlConstraints[myErr.Number]
	case errors.As(err, &pqErr):
		return pgConstraints[string(pqErr.Code)]
	case errors.As(err, &pgErr):
		return pgConstraints[pgErr.Code]
	}
	if e, ok := asError[sqliteCoder](err); ok {
		if c, ok := sqliteConstraints[e.Code()]; ok {
			return c
		}
	}
	// Drivers without typed errors still carry the engine message.
	msg := err.Error()
	switch {
	case containsAny(msg, "Error 1062", "violates unique constraint", "UNIQUE constraint failed"):
		return UniqueConstraint
	case containsAny(msg, "Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"):
		return ForeignKeyConstraint
	case containsAny(msg, "Error 3819", "violates check constraint", "CHECK constraint failed"):
		return CheckConstraint
	case containsAny(msg, "violates not-null constraint", "NOT NULL constraint failed"):
		return NotNullConstraint
	}
	return NoConstraint
}

// IsConstraintError reports whether the error resulted from a database
// constraint violation.
func IsConstraintError(err error) bool {
	return ConstraintOf(err) != NoConstraint
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness
// constraint violation, e.g. a duplicate value in a unique index.
func IsUniqueConstraintError(err error) bool {
	return ConstraintOf(err) == UniqueConstraint
}

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key
// constraint violation, e.g. the parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return ConstraintOf(err) == ForeignKeyConstraint
}

// IsCheckConstraintError reports if the error resulted from a check constraint violation.
func IsCheckConstraintError(err error) bool {
	return ConstraintOf(err) == CheckConstraint
}

// asError extracts an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package dialect

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for elm clients.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}

// Syntax is the lexical surface of a database dialect: how identifiers
// are quoted and how positional parameters are written.
type Syntax interface {
	// Name returns the dialect name, one of the constants above for the
	// built-in syntaxes.
	Name() string
	// QuoteIdentifier quotes a table, alias or column name.
	QuoteIdentifier(name string) string
	// Placeholder returns the parameter marker for the zero-based index.
	Placeholder(index int) string
}

// Concatenator is implemented by syntaxes that concatenate strings with
// a function call rather than the standard || operator.
type Concatenator interface {
	Concat(parts ...string) string
}

// Returner is implemented by syntaxes that support INSERT ... RETURNING.
type Returner interface {
	Returning() bool
}

// Concat joins already rendered SQL fragments with the syntax's string
// concatenation.
func Concat(s Syntax, parts ...string) string {
	if c, ok := s.(Concatenator); ok {
		return c.Concat(parts...)
	}
	return strings.Join(parts, " || ")
}

// SupportsReturning reports whether the syntax can return generated keys
// from an INSERT statement.
func SupportsReturning(s Syntax) bool {
	r, ok := s.(Returner)
	return ok && r.Returning()
}

type (
	mysqlSyntax    struct{}
	postgresSyntax struct{}
	sqliteSyntax   struct{}
)

func (mysqlSyntax) Name() string { return MySQL }

func (mysqlSyntax) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlSyntax) Placeholder(int) string { return "?" }

func (mysqlSyntax) Concat(parts ...string) string {
	return "CONCAT(" + strings.Join(parts, ", ") + ")"
}

func (postgresSyntax) Name() string { return Postgres }

func (postgresSyntax) QuoteIdentifier(name string) string { return pq.QuoteIdentifier(name) }

func (postgresSyntax) Placeholder(index int) string { return "$" + strconv.Itoa(index+1) }

func (postgresSyntax) Returning() bool { return true }

func (sqliteSyntax) Name() string { return SQLite }

func (sqliteSyntax) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder uses the $NNN form, which both modernc and mattn drivers
// bind by ordinal.
func (sqliteSyntax) Placeholder(index int) string { return "$" + strconv.Itoa(index+1) }

// Built-in syntaxes.
var (
	MySQLSyntax    Syntax = mysqlSyntax{}
	PostgresSyntax Syntax = postgresSyntax{}
	SQLiteSyntax   Syntax = sqliteSyntax{}
)

// SyntaxOf returns the built-in syntax of the named dialect. Driver names
// with a dialect prefix, like "sqlite3" or "postgres-otel", are accepted.
func SyntaxOf(name string) (Syntax, error) {
	switch {
	case strings.HasPrefix(name, MySQL):
		return MySQLSyntax, nil
	case strings.HasPrefix(name, Postgres), name == "pgx":
		return PostgresSyntax, nil
	case strings.HasPrefix(name, SQLite):
		return SQLiteSyntax, nil
	default:
		return nil, fmt.Errorf("dialect: unsupported dialect %q", name)
	}
}

// Package dialect defines the boundary between elm and a database: the
// Driver that executes statements and the Syntax that shapes them.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL, through lib/pq or pgx stdlib
//   - MySQL: MySQL/MariaDB, through go-sql-driver/mysql
//   - SQLite: SQLite, through modernc.org/sqlite
//
// # Dialect Constants
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Syntax
//
// The query compiler never writes a quote or a parameter marker itself.
// It asks the Syntax of the target dialect:
//
//	s, _ := dialect.SyntaxOf(dialect.Postgres)
//	s.QuoteIdentifier("FakeClass") // "FakeClass"
//	s.Placeholder(0)               // $1
//
// Syntaxes may also implement Concatenator (MySQL's CONCAT) and Returner
// (Postgres' INSERT ... RETURNING).
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The database/sql implementation lives in dialect/sql.
package dialect

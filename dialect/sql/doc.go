// Package sql implements dialect.Driver on top of database/sql.
//
// # Drivers
//
//	drv, err := sql.Open(dialect.SQLite, "file:app.db?_pragma=foreign_keys(1)")
//	conn, err := elm.Open(drv)
//
// OpenDB wraps an existing *sql.DB. The driver name selects the dialect;
// "pgx" (jackc/pgx stdlib) is treated as Postgres.
//
// # Session Variables
//
// WithVar attaches variables to a context. Every statement executed with
// that context first runs SET on a pinned connection, and the variables
// are reset before the connection returns to the pool:
//
//	ctx = sql.WithVar(ctx, "search_path", "tenant_42")
//
// # Statistics and Logging
//
// StatsDriver counts statements and reports slow ones; DebugDriver logs
// every statement through log/slog.
//
// # Constraint Errors
//
// ConstraintOf classifies MySQL, PostgreSQL (lib/pq and pgx) and SQLite
// errors without changing them:
//
//	if sql.IsUniqueConstraintError(err) { ... }
package sql

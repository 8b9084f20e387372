// Package elm maps Go structs to SQL tables and runs typed queries over a
// dialect.Driver.
//
// A Conn ties a driver to a schema registry and the dialect syntax:
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	conn, err := elm.Open(drv, elm.WithLogger(logger))
//
//	posts, err := elm.Select[Post](conn).
//		All().AllOf(query.F("Author")).
//		From().
//		LeftJoin(query.F("Author")).
//		Where(query.F("Title").StartsWith("Go")).
//		OrderBy(query.F("Id")).
//		List(ctx)
//
// References that are not joined come back as stubs holding only their
// key; LoadReference fills them. Collections are never read with the
// primary rows and load through LoadCollection.
package elm

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/folkelib/elm/dialect"
	sqldialect "github.com/folkelib/elm/dialect/sql"
	"github.com/folkelib/elm/query"
	"github.com/folkelib/elm/schema"
)

// Conn executes statements on a driver. It is safe for concurrent use when
// the driver is.
type Conn struct {
	drv    dialect.Driver
	eq     dialect.ExecQuerier
	syntax dialect.Syntax
	reg    *schema.Registry
	log    *slog.Logger
}

// Option configures a Conn.
type Option func(*Conn)

// WithRegistry sets the schema registry. By default each Conn has its own.
func WithRegistry(reg *schema.Registry) Option {
	return func(c *Conn) {
		c.reg = reg
	}
}

// WithLogger sets the logger compiled statements are logged to at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) {
		c.log = logger
	}
}

// WithSyntax overrides the syntax derived from the driver dialect.
func WithSyntax(syn dialect.Syntax) Option {
	return func(c *Conn) {
		c.syntax = syn
	}
}

// Open returns a Conn over drv.
func Open(drv dialect.Driver, opts ...Option) (*Conn, error) {
	c := &Conn{drv: drv, eq: drv}
	for _, opt := range opts {
		opt(c)
	}
	if c.syntax == nil {
		syn, err := dialect.SyntaxOf(drv.Dialect())
		if err != nil {
			return nil, fmt.Errorf("elm: %w", err)
		}
		c.syntax = syn
	}
	if c.reg == nil {
		c.reg = schema.NewRegistry()
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// Registry returns the schema registry of the connection.
func (c *Conn) Registry() *schema.Registry { return c.reg }

// Syntax returns the dialect syntax statements are compiled for.
func (c *Conn) Syntax() dialect.Syntax { return c.syntax }

// Driver returns the underlying driver.
func (c *Conn) Driver() dialect.Driver { return c.drv }

// Close closes the underlying driver.
func (c *Conn) Close() error { return c.drv.Close() }

// Tx is a Conn whose statements run in a transaction.
type Tx struct {
	*Conn
	tx dialect.Tx
}

// Tx starts a transaction. Statements built from the returned Tx run in it.
func (c *Conn) Tx(ctx context.Context) (*Tx, error) {
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("elm: starting a transaction: %w", err)
	}
	cc := *c
	cc.eq = tx
	return &Tx{Conn: &cc, tx: tx}, nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error { return tx.tx.Commit() }

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error { return tx.tx.Rollback() }

func (c *Conn) query(ctx context.Context, sql string, args []any) (*sqldialect.Rows, error) {
	c.log.DebugContext(ctx, "elm: query", "sql", sql, "args", args)
	rows := &sqldialect.Rows{}
	if err := c.eq.Query(ctx, sql, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Conn) exec(ctx context.Context, sql string, args []any) (sqldialect.Result, error) {
	c.log.DebugContext(ctx, "elm: exec", "sql", sql, "args", args)
	var res sqldialect.Result
	if err := c.eq.Exec(ctx, sql, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// list runs a compiled SELECT and materializes at most limit rows of t, or
// all rows when limit is zero.
func (c *Conn) list(ctx context.Context, comp *query.Compiled, args []any, t reflect.Type, limit int) ([]reflect.Value, error) {
	m, err := newMaterializer(comp, t)
	if err != nil {
		return nil, err
	}
	rows, err := c.query(ctx, comp.SQL, args)
	if err != nil {
		return nil, err
	}
	return m.scan(rows, limit)
}

// typeName is the label of T in errors.
func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

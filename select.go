package elm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/folkelib/elm/dialect"
	"github.com/folkelib/elm/query"
	"github.com/folkelib/elm/schema"
)

// Selector is a typed SELECT over the table of T. Clause methods follow
// SQL order and return the selector for chaining; the first error is
// reported by the terminal call. A Selector is not safe for concurrent use.
type Selector[T any] struct {
	conn *Conn
	syn  dialect.Syntax
	s    *query.Select
}

// Select starts a query over the table of T on conn.
func Select[T any](conn *Conn) *Selector[T] {
	return &Selector[T]{conn: conn, syn: conn.syntax, s: query.NewSelect(conn.reg, reflect.TypeFor[T]())}
}

// NewSelector starts a query that is only rendered, never executed.
func NewSelector[T any](reg *schema.Registry, syn dialect.Syntax) *Selector[T] {
	return &Selector[T]{syn: syn, s: query.NewSelect(reg, reflect.TypeFor[T]())}
}

// Query returns the underlying statement.
func (s *Selector[T]) Query() *query.Select { return s.s }

// Sub starts a subquery over the table of t sharing the aliases of s.
func (s *Selector[T]) Sub(t reflect.Type) *query.Select { return s.s.Sub(t) }

// Distinct selects distinct rows.
func (s *Selector[T]) Distinct() *Selector[T] { s.s.Distinct(); return s }

// Values adds expressions to the projection.
func (s *Selector[T]) Values(exprs ...query.Expr) *Selector[T] { s.s.Values(exprs...); return s }

// All projects every column of T.
func (s *Selector[T]) All() *Selector[T] { s.s.All(); return s }

// AllOf projects every column of a joined reference or variable.
func (s *Selector[T]) AllOf(target query.Expr) *Selector[T] { s.s.AllOf(target); return s }

// Max projects MAX(e).
func (s *Selector[T]) Max(e query.Expr) *Selector[T] { return s.Values(query.Max(e)) }

// Min projects MIN(e).
func (s *Selector[T]) Min(e query.Expr) *Selector[T] { return s.Values(query.Min(e)) }

// Sum projects SUM(e).
func (s *Selector[T]) Sum(e query.Expr) *Selector[T] { return s.Values(query.Sum(e)) }

// Avg projects AVG(e).
func (s *Selector[T]) Avg(e query.Expr) *Selector[T] { return s.Values(query.Avg(e)) }

// CountOf projects COUNT(e).
func (s *Selector[T]) CountOf(e query.Expr) *Selector[T] { return s.Values(query.Count(e)) }

// CountAll projects COUNT(*).
func (s *Selector[T]) CountAll() *Selector[T] { return s.Values(query.CountAll()) }

// From adds the FROM clause naming the table of T.
func (s *Selector[T]) From() *Selector[T] { s.s.From(); return s }

// Join adds an INNER JOIN of a reference path or a variable.
func (s *Selector[T]) Join(target query.Expr) *Selector[T] { s.s.Join(target); return s }

// LeftJoin adds a LEFT JOIN of a reference path or a variable.
func (s *Selector[T]) LeftJoin(target query.Expr) *Selector[T] { s.s.LeftJoin(target); return s }

// On sets the condition of the last join.
func (s *Selector[T]) On(pred query.Expr) *Selector[T] { s.s.On(pred); return s }

// Where adds a predicate, combined with AND.
func (s *Selector[T]) Where(pred query.Expr) *Selector[T] { s.s.Where(pred); return s }

// Or adds a predicate, combined with OR.
func (s *Selector[T]) Or(pred query.Expr) *Selector[T] { s.s.Or(pred); return s }

// WhereSub adds a parenthesized group of predicates, combined with AND.
func (s *Selector[T]) WhereSub(fn func(*query.Cond)) *Selector[T] { s.s.WhereSub(fn); return s }

// OrSub adds a parenthesized group of predicates, combined with OR.
func (s *Selector[T]) OrSub(fn func(*query.Cond)) *Selector[T] { s.s.OrSub(fn); return s }

// GroupBy adds GROUP BY expressions.
func (s *Selector[T]) GroupBy(exprs ...query.Expr) *Selector[T] { s.s.GroupBy(exprs...); return s }

// OrderBy adds an ascending sort.
func (s *Selector[T]) OrderBy(e query.Expr) *Selector[T] { s.s.OrderBy(e); return s }

// OrderByDesc adds a descending sort.
func (s *Selector[T]) OrderByDesc(e query.Expr) *Selector[T] { s.s.OrderByDesc(e); return s }

// Limit sets the maximum number of rows.
func (s *Selector[T]) Limit(n int) *Selector[T] { s.s.Limit(n); return s }

// Offset sets the number of rows skipped.
func (s *Selector[T]) Offset(n int) *Selector[T] { s.s.Offset(n); return s }

// Page selects the zero-based page of the given size.
func (s *Selector[T]) Page(page, size int) *Selector[T] { s.s.Page(page, size); return s }

// Build compiles the statement for the selector's dialect.
func (s *Selector[T]) Build() (*query.Compiled, error) {
	return s.s.Build(s.syn)
}

// SQL returns the statement text and its arguments.
func (s *Selector[T]) SQL(args ...any) (string, []any, error) {
	c, err := s.Build()
	if err != nil {
		return "", nil, err
	}
	argv, err := c.Args(args...)
	if err != nil {
		return "", nil, err
	}
	return c.SQL, argv, nil
}

// List returns every matching row. args fill the Arg slots of the query.
func (s *Selector[T]) List(ctx context.Context, args ...any) ([]*T, error) {
	return s.rows(ctx, "list", 0, args)
}

// First returns the first row, or a NotFoundError.
func (s *Selector[T]) First(ctx context.Context, args ...any) (*T, error) {
	vs, err := s.rows(ctx, "first", 1, args)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, NewNotFoundError(s.label())
	}
	return vs[0], nil
}

// Single returns the only row. It fails with a NotFoundError when there
// is none and a NotSingularError when there are more.
func (s *Selector[T]) Single(ctx context.Context, args ...any) (*T, error) {
	v, err := s.SingleOrDefault(ctx, args...)
	if err == nil && v == nil {
		err = NewNotFoundError(s.label())
	}
	return v, err
}

// SingleOrDefault returns the only row, or nil when there is none.
func (s *Selector[T]) SingleOrDefault(ctx context.Context, args ...any) (*T, error) {
	vs, err := s.rows(ctx, "single", 2, args)
	switch {
	case err != nil:
		return nil, err
	case len(vs) > 1:
		return nil, NewNotSingularError(s.label())
	case len(vs) == 0:
		return nil, nil
	}
	return vs[0], nil
}

// Count returns the number of rows the query selects.
func (s *Selector[T]) Count(ctx context.Context, args ...any) (int, error) {
	c, argv, err := s.compile(args)
	if err != nil {
		return 0, NewQueryError(s.label(), "count", err)
	}
	q := "SELECT COUNT(*) FROM (" + c.SQL + ") AS " + s.syn.QuoteIdentifier("c")
	n, err := scalar[int](ctx, s.conn, q, argv)
	if err != nil {
		return 0, NewQueryError(s.label(), "count", err)
	}
	return n, nil
}

// Exists reports whether the query selects at least one row.
func (s *Selector[T]) Exists(ctx context.Context, args ...any) (bool, error) {
	c, argv, err := s.compile(args)
	if err != nil {
		return false, NewQueryError(s.label(), "exists", err)
	}
	q := "SELECT 1 FROM (" + c.SQL + ") AS " + s.syn.QuoteIdentifier("c") + " LIMIT 1"
	_, err = scalar[int](ctx, s.conn, q, argv)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	}
	return false, NewQueryError(s.label(), "exists", err)
}

// Scalar returns the first column of the first row, as in
//
//	n, err := elm.Scalar[int](ctx, elm.Select[Post](conn).CountAll().From())
//
// A NULL value yields the zero V; no row yields a NotFoundError.
func Scalar[V, T any](ctx context.Context, s *Selector[T], args ...any) (V, error) {
	var zero V
	c, argv, err := s.compile(args)
	if err != nil {
		return zero, NewQueryError(s.label(), "scalar", err)
	}
	v, err := scalar[V](ctx, s.conn, c.SQL, argv)
	if err != nil && !IsNotFound(err) {
		err = NewQueryError(s.label(), "scalar", err)
	}
	return v, err
}

func (s *Selector[T]) compile(args []any) (*query.Compiled, []any, error) {
	if s.conn == nil {
		return nil, nil, fmt.Errorf("elm: selector of %s has no connection", s.label())
	}
	c, err := s.Build()
	if err != nil {
		return nil, nil, err
	}
	argv, err := c.Args(args...)
	if err != nil {
		return nil, nil, err
	}
	return c, argv, nil
}

func (s *Selector[T]) rows(ctx context.Context, op string, limit int, args []any) ([]*T, error) {
	c, argv, err := s.compile(args)
	if err != nil {
		return nil, NewQueryError(s.label(), op, err)
	}
	return list[T](ctx, s.conn, c, argv, op, limit)
}

func (s *Selector[T]) label() string { return typeName(reflect.TypeFor[T]()) }

// list materializes a compiled query as T values.
func list[T any](ctx context.Context, conn *Conn, c *query.Compiled, args []any, op string, limit int) ([]*T, error) {
	vs, err := conn.list(ctx, c, args, reflect.TypeFor[T](), limit)
	if err != nil {
		return nil, NewQueryError(typeName(reflect.TypeFor[T]()), op, err)
	}
	out := make([]*T, len(vs))
	for i, v := range vs {
		out[i] = v.Interface().(*T)
	}
	return out, nil
}

// scalar runs q and reads the first column of the first row into V.
func scalar[V any](ctx context.Context, conn *Conn, q string, args []any) (V, error) {
	var zero V
	rows, err := conn.query(ctx, q, args)
	if err != nil {
		return zero, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, NewNotFoundError(typeName(reflect.TypeFor[V]()))
	}
	cols, err := rows.Columns()
	if err != nil {
		return zero, err
	}
	var v *V
	dest := make([]any, len(cols))
	dest[0] = &v
	for i := 1; i < len(dest); i++ {
		dest[i] = new(any)
	}
	if err := rows.Scan(dest...); err != nil {
		return zero, err
	}
	if v == nil {
		return zero, rows.Err()
	}
	return *v, rows.Err()
}

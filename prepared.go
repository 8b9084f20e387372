package elm

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/folkelib/elm/query"
)

// Prepared is a query whose shape is fixed: it is built and compiled once,
// on first execution, and later executions only bind the values of its
// Arg slots. A Prepared is safe for concurrent use.
//
//	var byTitle = elm.Prepare(func(s *elm.Selector[Post]) {
//		s.From().Where(query.F("Title").Eq(query.Arg(0)))
//	})
//
//	posts, err := byTitle.List(ctx, conn, "hello")
type Prepared[T any] struct {
	configure func(*Selector[T])

	once     sync.Once
	compiled *query.Compiled
	err      error
}

// Prepare returns a prepared query configured by fn. fn runs once, on the
// first execution, with a fresh selector.
func Prepare[T any](fn func(*Selector[T])) *Prepared[T] {
	return &Prepared[T]{configure: fn}
}

// Compile returns the compiled statement, compiling it for conn on the
// first call. A statement compiled for another dialect is an error.
func (p *Prepared[T]) Compile(conn *Conn) (*query.Compiled, error) {
	p.once.Do(func() {
		s := Select[T](conn)
		p.configure(s)
		p.compiled, p.err = s.Build()
		if p.err == nil {
			conn.log.Debug("elm: prepared", "entity", s.label(), "sql", p.compiled.SQL)
		}
	})
	if p.err != nil {
		return nil, p.err
	}
	if name := conn.syntax.Name(); p.compiled.Dialect != name {
		return nil, fmt.Errorf("%w: compiled for %s, executed on %s", ErrDialectMismatch, p.compiled.Dialect, name)
	}
	return p.compiled, nil
}

// SQL returns the statement text and the arguments bound from args.
func (p *Prepared[T]) SQL(conn *Conn, args ...any) (string, []any, error) {
	c, err := p.Compile(conn)
	if err != nil {
		return "", nil, err
	}
	argv, err := c.Args(args...)
	if err != nil {
		return "", nil, err
	}
	return c.SQL, argv, nil
}

// List returns every matching row.
func (p *Prepared[T]) List(ctx context.Context, conn *Conn, args ...any) ([]*T, error) {
	return p.rows(ctx, conn, "list", 0, args)
}

// First returns the first row, or a NotFoundError.
func (p *Prepared[T]) First(ctx context.Context, conn *Conn, args ...any) (*T, error) {
	vs, err := p.rows(ctx, conn, "first", 1, args)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, NewNotFoundError(p.label())
	}
	return vs[0], nil
}

// Single returns the only row, failing when there is none or more than one.
func (p *Prepared[T]) Single(ctx context.Context, conn *Conn, args ...any) (*T, error) {
	v, err := p.SingleOrDefault(ctx, conn, args...)
	if err == nil && v == nil {
		err = NewNotFoundError(p.label())
	}
	return v, err
}

// SingleOrDefault returns the only row, or nil when there is none.
func (p *Prepared[T]) SingleOrDefault(ctx context.Context, conn *Conn, args ...any) (*T, error) {
	vs, err := p.rows(ctx, conn, "single", 2, args)
	switch {
	case err != nil:
		return nil, err
	case len(vs) > 1:
		return nil, NewNotSingularError(p.label())
	case len(vs) == 0:
		return nil, nil
	}
	return vs[0], nil
}

func (p *Prepared[T]) rows(ctx context.Context, conn *Conn, op string, limit int, args []any) ([]*T, error) {
	c, err := p.Compile(conn)
	if err != nil {
		return nil, NewQueryError(p.label(), op, err)
	}
	argv, err := c.Args(args...)
	if err != nil {
		return nil, NewQueryError(p.label(), op, err)
	}
	return list[T](ctx, conn, c, argv, op, limit)
}

func (p *Prepared[T]) label() string { return typeName(reflect.TypeFor[T]()) }

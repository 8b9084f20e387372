package query_test

import (
	"reflect"
	"testing"

	"github.com/folkelib/elm/dialect"
	"github.com/folkelib/elm/query"
	"github.com/folkelib/elm/schema"

	"github.com/stretchr/testify/require"
)

type FakeParentClass struct {
	Id   int
	Name string
}

func (p *FakeParentClass) EntityID() int64 { return int64(p.Id) }

type FakeChildClass struct {
	Id     int
	Value  string
	Parent *FakeParentClass
}

func (c *FakeChildClass) EntityID() int64 { return int64(c.Id) }

type FakeClass struct {
	Id    int
	Text  string
	Value int
	Child *FakeChildClass
}

func (c *FakeClass) EntityID() int64 { return int64(c.Id) }

type Author struct {
	Id   int
	Name string
}

func (a *Author) EntityID() int64 { return int64(a.Id) }

type Blog struct {
	Id    int
	Title string
	Posts []*Post `elm:",join=Author"`
}

func (b *Blog) EntityID() int64 { return int64(b.Id) }

type Post struct {
	Id     int
	Title  string
	Blog   *Blog
	Author *Author
}

func (p *Post) EntityID() int64 { return int64(p.Id) }

var (
	fakeClass = reflect.TypeFor[FakeClass]()
	fakeChild = reflect.TypeFor[FakeChildClass]()
)

func newSelect() *query.Select {
	return query.NewSelect(schema.NewRegistry(), fakeClass)
}

// build compiles s for Postgres and returns the SQL and arguments.
func build(t *testing.T, s *query.Select, args ...any) (string, []any) {
	t.Helper()
	c, err := s.Build(dialect.PostgresSyntax)
	require.NoError(t, err)
	bound, err := c.Args(args...)
	require.NoError(t, err)
	return c.SQL, bound
}

package elm_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/folkelib/elm"
	sqldialect "github.com/folkelib/elm/dialect/sql"
)

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

type Token struct {
	Id    uuid.UUID `elm:",key"`
	Scope string
}

// mockConn returns a connection of the named dialect over sqlmock with
// exact query matching.
func mockConn(t *testing.T, name string) (*elm.Conn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	conn, err := elm.Open(sqldialect.OpenDB(name, db))
	require.NoError(t, err)
	return conn, mock
}

package elm_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folkelib/elm"
	"github.com/folkelib/elm/dialect"
	sqldialect "github.com/folkelib/elm/dialect/sql"
	"github.com/folkelib/elm/query"
	"github.com/folkelib/elm/schema"
)

const postJoinAuthor = `SELECT "t"."Id", "t"."Title", "t"."Blog_id", "t"."Author_id", "t1"."Id", "t1"."Name" ` +
	`FROM "Post" AS "t" LEFT JOIN "Author" AS "t1" ON "t"."Author_id" = "t1"."Id" WHERE "t"."Id" > $1`

var postColumns = []string{"Id", "Title", "Blog_id", "Author_id", "Id", "Name"}

func postsWithAuthor(conn *elm.Conn) *elm.Selector[Post] {
	return elm.Select[Post](conn).
		All().AllOf(query.F("Author")).
		From().
		LeftJoin(query.F("Author")).
		Where(query.F("Id").Gt(0))
}

func TestOpen(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn, err := elm.Open(sqldialect.OpenDB("pgx", db))
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, conn.Syntax().Name())
	assert.NotNil(t, conn.Registry())

	reg := schema.NewRegistry()
	conn, err = elm.Open(sqldialect.OpenDB("mysql", db), elm.WithRegistry(reg), elm.WithSyntax(dialect.SQLiteSyntax))
	require.NoError(t, err)
	assert.Same(t, reg, conn.Registry())
	assert.Equal(t, dialect.SQLite, conn.Syntax().Name())

	_, err = elm.Open(sqldialect.OpenDB("oracle", db))
	require.Error(t, err)
}

func TestSelectList(t *testing.T) {
	conn, mock := mockConn(t, dialect.Postgres)
	mock.ExpectQuery(postJoinAuthor).
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow(1, "first", 10, 2, 2, "ann").
			AddRow(2, "second", nil, nil, nil, nil))

	posts, err := postsWithAuthor(conn).List(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, 1, posts[0].Id)
	assert.Equal(t, "first", posts[0].Title)
	assert.Equal(t, &Blog{Id: 10}, posts[0].Blog, "unjoined reference is a key stub")
	assert.Equal(t, &Author{Id: 2, Name: "ann"}, posts[0].Author)

	assert.Equal(t, "second", posts[1].Title)
	assert.Nil(t, posts[1].Blog)
	assert.Nil(t, posts[1].Author, "left join miss with a null key")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectJoinedVariable(t *testing.T) {
	conn, mock := mockConn(t, dialect.Postgres)
	var author Author
	sel := elm.Select[Post](conn).
		Values(query.F("Id"), query.F("Title"), query.V(&author).F("Name")).
		From().
		Join(query.V(&author)).On(query.F("Author").Eq(query.V(&author)))
	sql, args, err := sel.SQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "t"."Id", "t"."Title", "t1"."Name" FROM "Post" AS "t" INNER JOIN "Author" AS "t1" ON "t"."Author_id" = "t1"."Id"`, sql)
	assert.Empty(t, args)

	mock.ExpectQuery(sql).WillReturnRows(sqlmock.NewRows([]string{"Id", "Title", "Name"}).AddRow(3, "third", "bob"))
	posts, err := sel.List(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, &Author{Name: "bob"}, posts[0].Author, "variable linked through ON is attached")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSingle(t *testing.T) {
	ctx := context.Background()
	conn, mock := mockConn(t, dialect.Postgres)
	mock.ExpectQuery(postJoinAuthor).WithArgs(0).WillReturnRows(sqlmock.NewRows(postColumns))
	_, err := postsWithAuthor(conn).Single(ctx)
	require.Error(t, err)
	assert.True(t, elm.IsNotFound(err))

	mock.ExpectQuery(postJoinAuthor).WithArgs(0).WillReturnRows(sqlmock.NewRows(postColumns))
	p, err := postsWithAuthor(conn).SingleOrDefault(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	mock.ExpectQuery(postJoinAuthor).WithArgs(0).WillReturnRows(sqlmock.NewRows(postColumns).
		AddRow(1, "a", nil, nil, nil, nil).
		AddRow(2, "b", nil, nil, nil, nil))
	_, err = postsWithAuthor(conn).Single(ctx)
	require.Error(t, err)
	assert.True(t, elm.IsNotSingular(err))

	mock.ExpectQuery(postJoinAuthor).WithArgs(0).WillReturnRows(sqlmock.NewRows(postColumns).
		AddRow(1, "a", nil, nil, nil, nil).
		AddRow(2, "b", nil, nil, nil, nil))
	p, err = postsWithAuthor(conn).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAndExists(t *testing.T) {
	ctx := context.Background()
	conn, mock := mockConn(t, dialect.MySQL)
	inner := "SELECT `t`.`Id`, `t`.`Name` FROM `Author` AS `t` WHERE `t`.`Name` LIKE ?"
	mock.ExpectQuery("SELECT COUNT(*) FROM (" + inner + ") AS `c`").
		WithArgs("a%").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(4))
	mock.ExpectQuery("SELECT 1 FROM (" + inner + ") AS `c` LIMIT 1").
		WithArgs("b%").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	sel := func() *elm.Selector[Author] {
		return elm.Select[Author](conn).From().Where(query.F("Name").StartsWith(query.Arg(0)))
	}
	n, err := sel().Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	ok, err := sel().Exists(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScalar(t *testing.T) {
	ctx := context.Background()
	conn, mock := mockConn(t, dialect.Postgres)
	mock.ExpectQuery(`SELECT MAX("t"."Id") FROM "Post" AS "t"`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectQuery(`SELECT COUNT(*) FROM "Post" AS "t" WHERE "t"."Blog_id" = $1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	highest, err := elm.Scalar[int](ctx, elm.Select[Post](conn).Max(query.F("Id")).From())
	require.NoError(t, err)
	assert.Zero(t, highest, "NULL aggregate is the zero value")

	n, err := elm.Scalar[int64](ctx, elm.Select[Post](conn).CountAll().From().Where(query.F("Blog").Eq(&Blog{Id: 3})))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrors(t *testing.T) {
	ctx := context.Background()
	conn, mock := mockConn(t, dialect.Postgres)

	_, err := elm.Select[Post](conn).Where(query.F("Id").Eq(1)).List(ctx)
	require.Error(t, err)
	assert.True(t, elm.IsQueryError(err))
	assert.True(t, elm.IsClauseOrder(err))

	_, err = elm.Select[Post](conn).Values(query.F("Title")).From().Where(query.F("Author.Name").Eq("x")).List(ctx)
	assert.True(t, elm.IsUnresolvedJoin(err))

	_, err = elm.Select[Post](conn).From().Where(query.F("Id").Eq(query.Arg(0))).List(ctx)
	assert.True(t, elm.IsArgumentError(err))

	_, err = elm.Select[Post](conn).Values(query.CountAll()).From().List(ctx)
	require.Error(t, err, "a projection without columns cannot be materialized")

	_, err = elm.Select[string](conn).From().List(ctx)
	assert.True(t, elm.IsUnmappedType(err))

	driverErr := errors.New("connection reset")
	mock.ExpectQuery(`SELECT "t"."Id", "t"."Name" FROM "Author" AS "t"`).WillReturnError(driverErr)
	_, err = elm.Select[Author](conn).From().List(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, driverErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReturning(t *testing.T) {
	conn, mock := mockConn(t, dialect.Postgres)
	mock.ExpectQuery(`INSERT INTO "Post" ("Title", "Blog_id", "Author_id") VALUES ($1, $2, $3) RETURNING "Id"`).
		WithArgs("hello", 3, nil).
		WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(int64(7)))

	p := &Post{Title: "hello", Blog: &Blog{Id: 3}}
	require.NoError(t, elm.Create(context.Background(), conn, p))
	assert.Equal(t, 7, p.Id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLastInsertID(t *testing.T) {
	conn, mock := mockConn(t, dialect.MySQL)
	mock.ExpectExec("INSERT INTO `Author` (`Name`) VALUES (?)").
		WithArgs("ann").
		WillReturnResult(sqlmock.NewResult(5, 1))

	a := &Author{Name: "ann"}
	require.NoError(t, elm.Create(context.Background(), conn, a))
	assert.Equal(t, 5, a.Id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUUID(t *testing.T) {
	conn, mock := mockConn(t, dialect.Postgres)
	mock.ExpectExec(`INSERT INTO "Token" ("Id", "Scope") VALUES ($1, $2)`).
		WithArgs(sqlmock.AnyArg(), "read").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tok := &Token{Scope: "read"}
	require.NoError(t, elm.Create(context.Background(), conn, tok))
	assert.NotZero(t, tok.Id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMutations(t *testing.T) {
	ctx := context.Background()
	conn, mock := mockConn(t, dialect.SQLite)
	mock.ExpectExec(`UPDATE "Post" SET "Title" = $1, "Blog_id" = $2, "Author_id" = $3 WHERE "Id" = $4`).
		WithArgs("renamed", nil, 2, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "Post" SET "Title" = "Title" || $1 WHERE "Blog_id" = $2`).
		WithArgs("!", 3).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM "Post" WHERE "Id" = $1`).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "Post" WHERE "Author_id" IS NULL OR "Title" = $1`).
		WithArgs("").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, elm.Save(ctx, conn, &Post{Id: 9, Title: "renamed", Author: &Author{Id: 2}}))

	n, err := elm.Update[Post](conn).
		Set("Title", query.F("Title").Concat(query.Val("!"))).
		Where(query.F("Blog").Eq(&Blog{Id: 3})).
		Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, elm.Remove(ctx, conn, &Post{Id: 9}))

	n, err = elm.Delete[Post](conn).Where(query.F("Author").IsNull()).Or(query.F("Title").Eq("")).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = elm.Update[Post](conn).Where(query.F("Id").Eq(1)).Exec(ctx)
	require.Error(t, err)
	assert.True(t, elm.IsMutationError(err))
	assert.True(t, elm.IsUnsupportedExpression(err))
}

func TestPrepared(t *testing.T) {
	var calls atomic.Int32
	byTitle := elm.Prepare(func(s *elm.Selector[Post]) {
		calls.Add(1)
		s.Values(query.F("Id")).From().Where(query.F("Title").Contains(query.Arg(0)))
	})
	conn, mock := mockConn(t, dialect.Postgres)

	var wg sync.WaitGroup
	sqls := make([]string, 8)
	for i := range sqls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqls[i], _, _ = byTitle.SQL(conn, "x")
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, calls.Load())
	for _, s := range sqls {
		assert.Equal(t, `SELECT "t"."Id" FROM "Post" AS "t" WHERE "t"."Title" LIKE $1`, s)
	}

	ctx := context.Background()
	mock.ExpectQuery(sqls[0]).WithArgs("%go%").WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(1))
	mock.ExpectQuery(sqls[0]).WithArgs("%sql%").WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(2).AddRow(3))
	posts, err := byTitle.List(ctx, conn, "go")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	posts, err = byTitle.List(ctx, conn, "sql")
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = byTitle.List(ctx, conn)
	assert.True(t, elm.IsArgumentError(err))

	other, _ := mockConn(t, dialect.MySQL)
	_, _, err = byTitle.SQL(other, "x")
	assert.ErrorIs(t, err, elm.ErrDialectMismatch)
	assert.EqualValues(t, 1, calls.Load())
}

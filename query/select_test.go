package query_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/folkelib/elm/dialect"
	"github.com/folkelib/elm/query"
	"github.com/folkelib/elm/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeColumns = `"t"."Id", "t"."Text", "t"."Value", "t"."Child_id"`

func TestSelectAll(t *testing.T) {
	sql, args := build(t, newSelect().All().From())
	assert.Equal(t, `SELECT `+fakeColumns+` FROM "FakeClass" AS "t"`, sql)
	assert.Empty(t, args)

	// An empty projection selects every column.
	sql, _ = build(t, newSelect().From())
	assert.Equal(t, `SELECT `+fakeColumns+` FROM "FakeClass" AS "t"`, sql)
}

func TestSelectValuesWithJoin(t *testing.T) {
	s := newSelect().
		Values(query.F("Id"), query.F("Text"), query.F("Child.Value")).
		From().
		LeftJoin(query.F("Child"))
	sql, _ := build(t, s)
	assert.Equal(t, `SELECT "t"."Id", "t"."Text", "t1"."Value" FROM "FakeClass" AS "t" `+
		`LEFT JOIN "FakeChildClass" AS "t1" ON "t"."Child_id" = "t1"."Id"`, sql)
}

func TestSelectPathOf(t *testing.T) {
	s := newSelect().
		Values(query.P(func(x *FakeClass) any { return &x.Child.Value })).
		From().
		Join(query.P(func(x *FakeClass) any { return x.Child }))
	sql, _ := build(t, s)
	assert.Equal(t, `SELECT "t1"."Value" FROM "FakeClass" AS "t" `+
		`INNER JOIN "FakeChildClass" AS "t1" ON "t"."Child_id" = "t1"."Id"`, sql)
}

func TestSelectMultiHop(t *testing.T) {
	s := newSelect().
		Values(query.F("Child.Parent.Name")).
		From().
		LeftJoin(query.F("Child")).
		LeftJoin(query.F("Child.Parent"))
	sql, _ := build(t, s)
	assert.Equal(t, `SELECT "t2"."Name" FROM "FakeClass" AS "t" `+
		`LEFT JOIN "FakeChildClass" AS "t1" ON "t"."Child_id" = "t1"."Id" `+
		`LEFT JOIN "FakeParentClass" AS "t2" ON "t1"."Parent_id" = "t2"."Id"`, sql)
}

func TestSelectWhere(t *testing.T) {
	sql, args := build(t, newSelect().All().From().Where(query.F("Text").Eq("Test")))
	assert.Equal(t, `SELECT `+fakeColumns+` FROM "FakeClass" AS "t" WHERE "t"."Text" = $1`, sql)
	assert.Equal(t, []any{"Test"}, args)
}

func TestSelectWhereGroups(t *testing.T) {
	s := newSelect().All().From().
		Where(query.F("Text").Eq("a")).
		WhereSub(func(c *query.Cond) {
			c.Where(query.F("Text").Eq("b")).Or(query.F("Text").Eq("c"))
		})
	sql, args := build(t, s)
	assert.Equal(t, `SELECT `+fakeColumns+` FROM "FakeClass" AS "t" `+
		`WHERE "t"."Text" = $1 AND ("t"."Text" = $2 OR "t"."Text" = $3)`, sql)
	assert.Equal(t, []any{"a", "b", "c"}, args)

	s = newSelect().Values(query.F("Id")).From().
		Where(query.F("Text").Eq("a")).
		Or(query.F("Text").Eq("b")).
		Where(query.F("Value").Eq(1))
	sql, _ = build(t, s)
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" `+
		`WHERE ("t"."Text" = $1 OR "t"."Text" = $2) AND "t"."Value" = $3`, sql)

	s = newSelect().Values(query.F("Id")).From().
		Where(query.F("Value").Eq(1)).
		OrSub(func(c *query.Cond) {
			c.Where(query.F("Text").Eq("a")).
				WhereSub(func(c *query.Cond) { c.Where(query.F("Value").Gt(2)).Or(query.F("Value").Lt(0)) })
		})
	sql, _ = build(t, s)
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" `+
		`WHERE "t"."Value" = $1 OR ("t"."Text" = $2 AND ("t"."Value" > $3 OR "t"."Value" < $4))`, sql)
}

func TestSelectReferenceKeyWithoutJoin(t *testing.T) {
	sql, args := build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Child.Id").Eq(3)))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Child_id" = $1`, sql)
	assert.Equal(t, []any{3}, args)
}

func TestSelectEntityComparison(t *testing.T) {
	child := &FakeChildClass{Id: 5}
	sql, args := build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Child").Eq(query.V(&child))))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Child_id" = $1`, sql)
	assert.Equal(t, []any{5}, args)

	// Entity literals compare by key too.
	_, args = build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Child").Eq(child)))
	assert.Equal(t, []any{5}, args)

	// A variable member that is not a table is read when bound.
	sql, args = build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Text").Eq(query.V(&child).F("Id"))))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Text" = $1`, sql)
	assert.Equal(t, []any{5}, args)
}

func TestSelectNullComparison(t *testing.T) {
	sql, args := build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Child").Eq(nil)))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Child_id" IS NULL`, sql)
	assert.Empty(t, args)

	var child *FakeChildClass
	sql, args = build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Child").Eq(query.V(&child))))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Child_id" IS NULL`, sql)
	assert.Empty(t, args)

	sql, _ = build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Child").Neq(query.V(&child))))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Child_id" IS NOT NULL`, sql)

	sql, _ = build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Text").IsNull().Or(query.F("Text").NotNull())))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Text" IS NULL OR "t"."Text" IS NOT NULL`, sql)
}

func TestSelectJoinedVariable(t *testing.T) {
	var child *FakeChildClass
	s := newSelect().
		All().
		AllOf(query.V(&child)).
		From().
		Join(query.V(&child)).On(query.F("Child").Eq(query.V(&child))).
		Where(query.V(&child).F("Value").Eq("x"))
	c, err := s.Build(dialect.PostgresSyntax)
	require.NoError(t, err)
	assert.Equal(t, `SELECT `+fakeColumns+`, "t1"."Id", "t1"."Value", "t1"."Parent_id" FROM "FakeClass" AS "t" `+
		`INNER JOIN "FakeChildClass" AS "t1" ON "t"."Child_id" = "t1"."Id" WHERE "t1"."Value" = $1`, c.SQL)

	// The ON condition links the variable to the foreign key it matches.
	ref := c.Fields[len(c.Fields)-1].Table
	require.NotNil(t, ref.Parent)
	assert.True(t, ref.Parent.IsRoot())
	assert.Equal(t, "Child", ref.Via.PropertyName)
	assert.Equal(t, &child, ref.Var)

	// Comparing the joined variable to nil tests its key.
	s = newSelect().Values(query.F("Id")).From().
		LeftJoin(query.V(&child)).On(query.V(&child).Eq(query.F("Child"))).
		Where(query.V(&child).Eq(nil))
	sql, _ := build(t, s)
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" LEFT JOIN "FakeChildClass" AS "t1" `+
		`ON "t1"."Id" = "t"."Child_id" WHERE "t1"."Id" IS NULL`, sql)
}

func TestSelectPatterns(t *testing.T) {
	tests := []struct {
		name string
		pred query.Term
		want string
	}{
		{"Contains", query.F("Text").Contains("oo"), "%oo%"},
		{"StartsWith", query.F("Text").StartsWith("oo"), "oo%"},
		{"EndsWith", query.F("Text").EndsWith("oo"), "%oo"},
		{"Like", query.F("Text").Like("o_o"), "o_o"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := build(t, newSelect().Values(query.F("Id")).From().Where(tt.pred))
			assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Text" LIKE $1`, sql)
			assert.Equal(t, []any{tt.want}, args)
		})
	}

	s := newSelect().Values(query.F("Id")).From().LeftJoin(query.F("Child")).Where(query.F("Text").Contains(query.F("Child.Value")))
	sql, _ := build(t, s)
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" LEFT JOIN "FakeChildClass" AS "t1" ON "t"."Child_id" = "t1"."Id" `+
		`WHERE "t"."Text" LIKE '%' || "t1"."Value" || '%'`, sql)
	c, err := s.Build(dialect.MySQLSyntax)
	require.NoError(t, err)
	assert.Equal(t, "SELECT `t`.`Id` FROM `FakeClass` AS `t` LEFT JOIN `FakeChildClass` AS `t1` ON `t`.`Child_id` = `t1`.`Id` "+
		"WHERE `t`.`Text` LIKE CONCAT('%', `t1`.`Value`, '%')", c.SQL)
}

func TestSelectIn(t *testing.T) {
	sql, args := build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Id").In(1, 2, 3)))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Id" IN ($1, $2, $3)`, sql)
	assert.Equal(t, []any{1, 2, 3}, args)

	_, args = build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Id").In([]int{4, 5})))
	assert.Equal(t, []any{4, 5}, args)

	sql, _ = build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Id").In()))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE 1 = 0`, sql)

	sql, _ = build(t, newSelect().Values(query.F("Id")).From().Where(query.F("Value").Between(1, 9)))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Value" BETWEEN $1 AND $2`, sql)
}

func TestSelectPrecedence(t *testing.T) {
	tests := []struct {
		name string
		pred query.Term
		want string
		args []any
	}{
		{"ArithmeticGroup", query.F("Value").Add(1).Mul(2).Gt(10), `("t"."Value" + $1) * $2 > $3`, []any{1, 2, 10}},
		{"ArithmeticPlain", query.F("Value").Mul(2).Add(1).Gt(10), `"t"."Value" * $1 + $2 > $3`, []any{2, 1, 10}},
		{"RightOperand", query.F("Value").Sub(query.F("Value").Sub(1)).Eq(0), `"t"."Value" - ("t"."Value" - $1) = $2`, []any{1, 0}},
		{"NotOr", query.Not(query.F("Text").Eq("a").Or(query.F("Text").Eq("b"))), `NOT ("t"."Text" = $1 OR "t"."Text" = $2)`, []any{"a", "b"}},
		{"AndOfOr", query.F("Value").Eq(1).Or(query.F("Value").Eq(2)).And(query.F("Text").Eq("c")), `("t"."Value" = $1 OR "t"."Value" = $2) AND "t"."Text" = $3`, []any{1, 2, "c"}},
		{"OrOfAnd", query.Or(query.And(query.F("Value").Eq(1), query.F("Text").Eq("a")), query.F("Value").Eq(2)), `"t"."Value" = $1 AND "t"."Text" = $2 OR "t"."Value" = $3`, []any{1, "a", 2}},
		{"Negate", query.F("Value").Neg().Lt(query.F("Value").Mod(3)), `-"t"."Value" < "t"."Value" % $1`, []any{3}},
		{"Group", query.Term{Expr: query.Group{X: query.F("Value").Eq(1)}}.And(query.F("Value").Neq(2)), `("t"."Value" = $1) AND "t"."Value" <> $2`, []any{1, 2}},
		{
			"Nested",
			query.Or(
				query.F("Value").Add(1).Mul(2).Eq(3),
				query.And(
					query.F("Text").Contains(query.F("Text").Concat("x")),
					query.F("Value").Between(4, 5),
					query.F("Text").In("a", "b"),
				),
			),
			`("t"."Value" + $1) * $2 = $3 OR "t"."Text" LIKE '%' || ("t"."Text" || $4) || '%' ` +
				`AND "t"."Value" BETWEEN $5 AND $6 AND "t"."Text" IN ($7, $8)`,
			[]any{1, 2, 3, "x", 4, 5, "a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := build(t, newSelect().Values(query.F("Id")).From().Where(tt.pred))
			assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE `+tt.want, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestSelectDeterministic(t *testing.T) {
	sel := func() *query.Select {
		s := newSelect().Values(query.F("Id"), query.F("Child.Value")).From().LeftJoin(query.F("Child"))
		sub := s.Sub(fakeChild).Values(query.F("Id")).From().Where(query.F("Value").StartsWith("v"))
		return s.Where(query.F("Text").Eq("a").Or(query.F("Child").InSub(sub))).
			OrderByDesc(query.F("Value")).Limit(5)
	}
	sql1, args1 := build(t, sel())
	sql2, args2 := build(t, sel())
	assert.Equal(t, sql1, sql2)
	assert.Equal(t, args1, args2)
	assert.Equal(t, []any{"a", "v%"}, args1)
}

func TestSelectPredicateProjection(t *testing.T) {
	for _, pred := range []query.Term{query.F("Id").Eq(3), query.F("Id").Equals(3)} {
		sql, args := build(t, newSelect().Values(pred).From())
		assert.Equal(t, `SELECT "t"."Id" = $1 FROM "FakeClass" AS "t"`, sql)
		assert.Equal(t, []any{3}, args)
	}
}

func TestSelectAggregates(t *testing.T) {
	sql, _ := build(t, newSelect().Values(query.Max(query.F("Value"))).From())
	assert.Equal(t, `SELECT MAX("t"."Value") FROM "FakeClass" AS "t"`, sql)

	sql, _ = build(t, newSelect().Values(query.CountAll()).From().Where(query.F("Value").Gte(2)))
	assert.Equal(t, `SELECT COUNT(*) FROM "FakeClass" AS "t" WHERE "t"."Value" >= $1`, sql)

	s := newSelect().Values(query.F("Text"), query.Count(query.F("Id")), query.Sum(query.F("Value"))).From().GroupBy(query.F("Text"))
	c, err := s.Build(dialect.PostgresSyntax)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "t"."Text", COUNT("t"."Id"), SUM("t"."Value") FROM "FakeClass" AS "t" GROUP BY "t"."Text"`, c.SQL)
	assert.False(t, c.Fields[0].Computed())
	assert.True(t, c.Fields[1].Computed())
}

func TestSelectOrderAndLimit(t *testing.T) {
	s := newSelect().Values(query.F("Id")).From().OrderBy(query.F("Text")).OrderByDesc(query.F("Id")).Limit(10).Offset(20)
	sql, _ := build(t, s)
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" ORDER BY "t"."Text", "t"."Id" DESC LIMIT 10 OFFSET 20`, sql)

	sql, _ = build(t, newSelect().Values(query.F("Id")).From().Page(2, 25))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" LIMIT 25 OFFSET 50`, sql)

	sql, _ = build(t, newSelect().Distinct().Values(query.F("Text")).From())
	assert.Equal(t, `SELECT DISTINCT "t"."Text" FROM "FakeClass" AS "t"`, sql)
}

func TestSelectSubqueries(t *testing.T) {
	s := newSelect().All().From()
	sub := s.Sub(fakeChild).Values(query.F("Id")).From().Where(query.F("Value").Eq("x"))
	s.Where(query.Exists(sub)).Where(query.F("Value").Eq(1))
	sql, args := build(t, s)
	assert.Equal(t, `SELECT `+fakeColumns+` FROM "FakeClass" AS "t" `+
		`WHERE EXISTS (SELECT "t1"."Id" FROM "FakeChildClass" AS "t1" WHERE "t1"."Value" = $1) AND "t"."Value" = $2`, sql)
	assert.Equal(t, []any{"x", 1}, args)

	s = newSelect().Values(query.F("Id")).From()
	sub = s.Sub(fakeChild).Values(query.F("Id")).From().Where(query.F("Value").StartsWith("a"))
	sql, args = build(t, s.Where(query.F("Child").InSub(sub)))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" `+
		`WHERE "t"."Child_id" IN (SELECT "t1"."Id" FROM "FakeChildClass" AS "t1" WHERE "t1"."Value" LIKE $1)`, sql)
	assert.Equal(t, []any{"a%"}, args)

	s = newSelect().Values(query.F("Id")).From()
	sub = s.Sub(fakeChild).Values(query.Max(query.F("Id"))).From()
	sql, _ = build(t, s.Where(query.F("Child.Id").Eq(query.Sub(sub))))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" `+
		`WHERE "t"."Child_id" = (SELECT MAX("t1"."Id") FROM "FakeChildClass" AS "t1")`, sql)
}

func TestSelectCorrelatedSubquery(t *testing.T) {
	s := newSelect().Values(query.F("Id")).From()
	sub := s.Sub(fakeChild).Values(query.F("Id")).From().
		Where(query.F("Id").Eq(query.Outer("Child.Id")))
	sql, args := build(t, s.Where(query.Exists(sub)))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" `+
		`WHERE EXISTS (SELECT "t1"."Id" FROM "FakeChildClass" AS "t1" WHERE "t1"."Id" = "t"."Child_id")`, sql)
	assert.Empty(t, args)

	// Outer paths reach the tables joined by the enclosing query.
	s = newSelect().Values(query.F("Id")).From().Join(query.F("Child"))
	sub = s.Sub(fakeChild).Values(query.Count(query.F("Id"))).From().
		Where(query.F("Value").Eq(query.Outer("Child").F("Value")).And(query.F("Id").Neq(query.Outer("Child"))))
	sql, args = build(t, s.Where(query.F("Value").Lt(query.Sub(sub))))
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" INNER JOIN "FakeChildClass" AS "t1" ON "t"."Child_id" = "t1"."Id" `+
		`WHERE "t"."Value" < (SELECT COUNT("t2"."Id") FROM "FakeChildClass" AS "t2" `+
		`WHERE "t2"."Value" = "t1"."Value" AND "t2"."Id" <> "t"."Child_id")`, sql)
	assert.Empty(t, args)
}

func TestSelectForeignSubquery(t *testing.T) {
	other := query.NewSelect(schema.NewRegistry(), fakeChild).Values(query.F("Id")).From()
	_, err := newSelect().From().Where(query.Exists(other)).Build(dialect.PostgresSyntax)
	assert.True(t, query.IsUnsupportedExpression(err))
}

func TestSelectArgs(t *testing.T) {
	s := newSelect().Values(query.F("Id")).From().
		Where(query.F("Value").Gt(query.Arg(0))).
		Where(query.F("Text").Contains(query.Arg(1))).
		Where(query.F("Child").Eq(query.Arg(0)))
	c, err := s.Build(dialect.PostgresSyntax)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "t"."Id" FROM "FakeClass" AS "t" WHERE "t"."Value" > $1 AND "t"."Text" LIKE $2 AND "t"."Child_id" = $3`, c.SQL)
	assert.Equal(t, 2, c.Slots())

	args, err := c.Args(7, "ab")
	require.NoError(t, err)
	assert.Equal(t, []any{7, "%ab%", 7}, args)

	_, err = c.Args(7)
	var argErr *query.ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 2, argErr.Want)
	assert.Equal(t, 1, argErr.Got)
	assert.ErrorIs(t, err, query.ErrArgumentCount)

	// Entity arguments bind their key.
	args, err = c.Args(&FakeChildClass{Id: 4}, "x")
	require.NoError(t, err)
	assert.Equal(t, []any{4, "%x%", 4}, args)
}

func TestSelectMySQL(t *testing.T) {
	s := newSelect().Values(query.F("Id"), query.F("Child.Value")).From().
		Join(query.F("Child")).
		Where(query.F("Text").Eq("a")).
		Offset(5)
	c, err := s.Build(dialect.MySQLSyntax)
	require.NoError(t, err)
	assert.Equal(t, "SELECT `t`.`Id`, `t1`.`Value` FROM `FakeClass` AS `t` INNER JOIN `FakeChildClass` AS `t1` "+
		"ON `t`.`Child_id` = `t1`.`Id` WHERE `t`.`Text` = ? LIMIT 18446744073709551615 OFFSET 5", c.SQL)
	assert.Equal(t, dialect.MySQL, c.Dialect)
}

func TestSelectTableWithSchema(t *testing.T) {
	reg := schema.NewRegistry()
	require.NoError(t, schema.Configure(reg, func(m *schema.Mapper[FakeClass]) {
		m.ToTable("fakes", "app")
	}))
	c, err := query.NewSelect(reg, fakeClass).Values(query.F("Id")).From().Build(dialect.PostgresSyntax)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "t"."Id" FROM "app"."fakes" AS "t"`, c.SQL)
}

func TestSelectErrors(t *testing.T) {
	var child *FakeChildClass
	tests := []struct {
		name  string
		sel   func() *query.Select
		check func(error) bool
	}{
		{"UnjoinedProjection", func() *query.Select {
			return newSelect().Values(query.F("Child.Value")).From()
		}, query.IsUnresolvedJoin},
		{"UnjoinedWhere", func() *query.Select {
			return newSelect().From().Where(query.F("Child.Value").Eq("x"))
		}, query.IsUnresolvedJoin},
		{"JoinSkipsHop", func() *query.Select {
			return newSelect().From().Join(query.F("Child.Parent"))
		}, query.IsUnresolvedJoin},
		{"UnregisteredVariable", func() *query.Select {
			return newSelect().From().Join(query.V(&child).F("Parent"))
		}, query.IsUnregisteredTable},
		{"UnjoinedVariableProjection", func() *query.Select {
			return newSelect().All().AllOf(query.V(&child)).From()
		}, query.IsUnregisteredTable},
		{"OuterWithoutParent", func() *query.Select {
			return newSelect().From().Where(query.F("Id").Eq(query.Outer("Id")))
		}, query.IsUnsupportedExpression},
		{"OuterJoinMissing", func() *query.Select {
			sub := newSelect().From().Sub(fakeChild).From().
				Where(query.F("Value").Eq(query.Outer("Child.Value")))
			return sub
		}, query.IsUnresolvedJoin},
		{"JoinOuterMember", func() *query.Select {
			return newSelect().From().Sub(fakeChild).From().Join(query.Outer("Child"))
		}, query.IsUnsupportedExpression},
		{"VariableJoinWithoutOn", func() *query.Select {
			return newSelect().From().Join(query.V(&child))
		}, query.IsUnsupportedExpression},
		{"JoinedTwice", func() *query.Select {
			return newSelect().From().Join(query.F("Child")).Join(query.F("Child"))
		}, query.IsUnsupportedExpression},
		{"WhereBeforeFrom", func() *query.Select {
			return newSelect().Where(query.F("Id").Eq(1))
		}, query.IsClauseOrder},
		{"JoinAfterWhere", func() *query.Select {
			return newSelect().From().Where(query.F("Id").Eq(1)).Join(query.F("Child"))
		}, query.IsClauseOrder},
		{"ValuesAfterFrom", func() *query.Select {
			return newSelect().From().Values(query.F("Id"))
		}, query.IsClauseOrder},
		{"LimitBeforeOrder", func() *query.Select {
			return newSelect().From().Limit(1).OrderBy(query.F("Id"))
		}, query.IsClauseOrder},
		{"MissingFrom", func() *query.Select {
			return newSelect().Values(query.F("Id"))
		}, query.IsClauseOrder},
		{"UnknownFunction", func() *query.Select {
			return newSelect().From().Where(query.Fn("SOUNDEX", query.F("Text")).Eq("x"))
		}, query.IsUnsupportedExpression},
		{"Collection", func() *query.Select {
			return query.NewSelect(schema.NewRegistry(), reflect.TypeFor[Blog]()).Values(query.F("Posts")).From()
		}, query.IsUnsupportedExpression},
		{"UnknownProperty", func() *query.Select {
			return newSelect().Values(query.F("Missing")).From()
		}, func(err error) bool { return errors.Is(err, schema.ErrUnknownProperty) }},
		{"UnmappedType", func() *query.Select {
			return query.NewSelect(schema.NewRegistry(), reflect.TypeFor[int]()).From()
		}, schema.IsUnmappedType},
		{"BadPath", func() *query.Select {
			return newSelect().Values(query.P(func(x *FakeClass) any { return x.Value })).From()
		}, func(err error) bool { return err != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sel().Build(dialect.PostgresSyntax)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

// Package query compiles typed query expressions into parameterized SQL.
//
// A statement is built clause by clause, in SQL order, over the table of a
// mapped type. Expressions name properties of the query entity with F or
// P, capture variables with V, and runtime arguments with Arg:
//
//	s := query.NewSelect(reg, reflect.TypeFor[Post]()).
//		Values(query.F("Title"), query.F("Author.Name")).
//		From().
//		LeftJoin(query.F("Author")).
//		Where(query.F("Title").Contains(query.Arg(0))).
//		OrderByDesc(query.F("Id")).
//		Limit(10)
//	c, err := s.Build(dialect.PostgresSyntax)
//	args, err := c.Args("orm")
//
// Tables receive the aliases t, t1, t2 in the order they are first met,
// including tables of subqueries created with Sub. A path crossing a
// reference (Author.Name) registers the referenced table when it appears
// in the projection; in ON, WHERE, GROUP BY and ORDER BY the table must
// already be part of the query. Comparing an entity compares its key, and
// the key of a reference (Author.Id) is read from the foreign key without
// a join.
//
// A subquery refers to the enclosing query's entity with Outer, which
// makes it correlated: Outer("Child.Id") is the outer table's foreign key.
//
// Values and variables that are not tables are bound as parameters in
// the order they appear in the SQL text. Builders are not safe for
// concurrent use; a Compiled statement is immutable.
package query

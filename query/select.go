package query

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/folkelib/elm/dialect"
	"github.com/folkelib/elm/schema"
)

// clause is a position in the SELECT statement. Builder calls must not
// go back to an earlier clause.
type clause int

const (
	clauseSelect clause = iota
	clauseFrom
	clauseJoin
	clauseWhere
	clauseGroupBy
	clauseOrderBy
	clauseLimit
)

var clauseNames = [...]string{"SELECT", "FROM", "JOIN", "WHERE", "GROUP BY", "ORDER BY", "LIMIT"}

func (c clause) String() string { return clauseNames[c] }

type join struct {
	kind string
	ref  *TableRef
	on   node
}

type order struct {
	n    node
	desc bool
}

// Field is a projected column.
type Field struct {
	// Table and Column are nil for computed values.
	Table  *TableRef
	Column *schema.ColumnMapping
	node   node
}

// Computed reports whether the field is an expression rather than a column.
func (f Field) Computed() bool { return f.Column == nil }

// Select is a SELECT statement under construction. Clauses are added in
// SQL order; the first error is kept and returned by Build. A Select is
// not safe for concurrent use.
type Select struct {
	reg      *schema.Registry
	mapping  *schema.TypeMapping
	aliases  *Aliases
	scope    int
	parent   *Select
	root     *TableRef
	distinct bool
	fields   []Field
	from     bool
	joins    []*join
	where    node
	groupBy  []node
	orderBy  []order
	limit    *int
	offset   *int
	stage    clause
	err      error
}

// NewSelect returns a statement over the table of t.
func NewSelect(reg *schema.Registry, t reflect.Type) *Select {
	return newSelect(reg, t, NewAliases(), nil)
}

func newSelect(reg *schema.Registry, t reflect.Type, a *Aliases, parent *Select) *Select {
	s := &Select{reg: reg, aliases: a, scope: a.scope(), parent: parent}
	s.mapping, s.err = reg.Mapping(t)
	return s
}

// Sub returns a subquery over the table of t. It shares the alias
// namespace of s and is used through Exists, InSub or Sub.
func (s *Select) Sub(t reflect.Type) *Select {
	return newSelect(s.reg, t, s.aliases, s)
}

// Err returns the first error recorded by the builder.
func (s *Select) Err() error { return s.err }

// Mapping returns the mapping of the query entity.
func (s *Select) Mapping() *schema.TypeMapping { return s.mapping }

// Aliases returns the statement's alias allocator.
func (s *Select) Aliases() *Aliases { return s.aliases }

// Registry returns the registry the statement resolves types with.
func (s *Select) Registry() *schema.Registry { return s.reg }

// Distinct makes the statement SELECT DISTINCT.
func (s *Select) Distinct() *Select {
	if s.enter(clauseSelect) {
		s.distinct = true
	}
	return s
}

// Values adds expressions to the projection. Reference hops in the
// projection register the tables they reach; those must be joined.
func (s *Select) Values(exprs ...Expr) *Select {
	if !s.enter(clauseSelect) {
		return s
	}
	for _, e := range exprs {
		n, err := s.bind(e, project)
		if err != nil {
			return s.fail(err)
		}
		f := Field{node: n}
		if c, ok := n.(colNode); ok {
			f.Table, f.Column = c.ref, c.col
		}
		s.fields = append(s.fields, f)
	}
	return s
}

// All projects every column of the query entity.
func (s *Select) All() *Select { return s.AllOf(Root()) }

// AllOf projects every column of a table: a reference path such as
// F("Child"), or a captured variable.
func (s *Select) AllOf(target Expr) *Select {
	if !s.enter(clauseSelect) {
		return s
	}
	ref, err := s.table(target, project)
	if err != nil {
		return s.fail(err)
	}
	for _, c := range ref.Mapping.Columns {
		s.fields = append(s.fields, Field{Table: ref, Column: c, node: colNode{ref: ref, col: c}})
	}
	return s
}

// From adds the FROM clause for the query entity.
func (s *Select) From() *Select {
	if !s.enter(clauseFrom) {
		return s
	}
	if s.from {
		return s.fail(&ClauseOrderError{Clause: "FROM", After: "FROM"})
	}
	ref, err := s.rootTable(project)
	if err != nil {
		return s.fail(err)
	}
	ref.joined, s.from = true, true
	return s
}

// Join adds an INNER JOIN. The target is a reference path, whose ON
// condition is derived from the foreign key, or a captured variable,
// which needs On.
func (s *Select) Join(target Expr) *Select { return s.join("INNER JOIN", target) }

// LeftJoin adds a LEFT JOIN.
func (s *Select) LeftJoin(target Expr) *Select { return s.join("LEFT JOIN", target) }

func (s *Select) join(kind string, target Expr) *Select {
	if !s.enter(clauseJoin) {
		return s
	}
	ref, err := s.joinTarget(target)
	if err != nil {
		return s.fail(err)
	}
	if ref.joined {
		return s.fail(unsupported("%s joined twice", ref))
	}
	ref.joined = true
	s.joins = append(s.joins, &join{kind: kind, ref: ref})
	return s
}

func (s *Select) joinTarget(target Expr) (*TableRef, error) {
	switch e := unwrap(target).(type) {
	case invalid:
		return nil, e.err
	case Var:
		if e.Ptr == nil {
			return nil, unsupported("join of a nil variable")
		}
		return s.varTable(e, project)
	case Member:
		if e.Outer {
			return nil, unsupported("join of an outer member")
		}
		if len(e.Path) == 0 {
			if e.Root == nil {
				return nil, unsupported("join of the query entity")
			}
			return s.varTable(*e.Root, project)
		}
		ref, err := s.base(e.Root, resolve)
		if err != nil {
			return nil, err
		}
		last := len(e.Path) - 1
		for i := range e.Path {
			md := resolve
			if i == last {
				md = project
			}
			if ref, err = s.hop(ref, e.Path, i, md); err != nil {
				return nil, err
			}
			if i < last && !ref.joined {
				return nil, &UnresolvedJoinError{Path: ref.Path}
			}
		}
		return ref, nil
	}
	return nil, unsupported("join target %T", target)
}

// table resolves an entity-valued expression to its table.
func (s *Select) table(target Expr, md mode) (*TableRef, error) {
	switch e := unwrap(target).(type) {
	case invalid:
		return nil, e.err
	case Var:
		if e.Ptr == nil {
			return nil, unsupported("nil variable")
		}
		return s.varTable(e, md)
	case Member:
		if e.Outer {
			return nil, unsupported("table of an outer member")
		}
		ref, err := s.base(e.Root, md)
		if err != nil {
			return nil, err
		}
		for i := range e.Path {
			if ref, err = s.hop(ref, e.Path, i, md); err != nil {
				return nil, err
			}
		}
		return ref, nil
	}
	return nil, unsupported("table of %T", target)
}

// On sets the condition of the last join. An equality between a foreign
// key and a joined variable links the variable to the foreign key's table.
func (s *Select) On(pred Expr) *Select {
	if !s.enter(clauseJoin) {
		return s
	}
	if len(s.joins) == 0 {
		return s.fail(unsupported("ON without JOIN"))
	}
	j := s.joins[len(s.joins)-1]
	if j.on != nil {
		return s.fail(unsupported("second ON for %s", j.ref))
	}
	n, err := s.bind(pred, resolve)
	if err != nil {
		return s.fail(err)
	}
	j.on = n
	link(j.ref, n)
	return s
}

func link(ref *TableRef, n node) {
	if ref.Parent != nil {
		return
	}
	switch n := n.(type) {
	case groupNode:
		link(ref, n.x)
	case binNode:
		if n.op == OpAnd {
			link(ref, n.l)
			link(ref, n.r)
			return
		}
		l, lok := n.l.(colNode)
		r, rok := n.r.(colNode)
		if n.op != OpEq || !lok || !rok {
			return
		}
		for _, p := range [][2]colNode{{l, r}, {r, l}} {
			key, fk := p[0], p[1]
			if key.ref == ref && key.col == ref.Mapping.Key && fk.ref != ref && fk.col.Reference == ref.Mapping {
				ref.Parent, ref.Via = fk.ref, fk.col
				return
			}
		}
	}
}

// Where adds a predicate, combined with AND.
func (s *Select) Where(pred Expr) *Select { return s.cond(OpAnd, pred) }

// Or adds a predicate, combined with OR.
func (s *Select) Or(pred Expr) *Select { return s.cond(OpOr, pred) }

// WhereSub adds a parenthesized group built by fn, combined with AND.
func (s *Select) WhereSub(fn func(*Cond)) *Select { return s.group(OpAnd, fn) }

// OrSub adds a parenthesized group built by fn, combined with OR.
func (s *Select) OrSub(fn func(*Cond)) *Select { return s.group(OpOr, fn) }

func (s *Select) cond(op Op, pred Expr) *Select {
	if !s.enter(clauseWhere) {
		return s
	}
	n, err := s.bind(pred, resolve)
	if err != nil {
		return s.fail(err)
	}
	s.where = combine(s.where, op, n)
	return s
}

func (s *Select) group(op Op, fn func(*Cond)) *Select {
	if !s.enter(clauseWhere) {
		return s
	}
	c := &Cond{s: s}
	fn(c)
	if c.err != nil {
		return s.fail(c.err)
	}
	if c.n != nil {
		s.where = combine(s.where, op, groupNode{c.n})
	}
	return s
}

// Cond builds a parenthesized predicate group.
type Cond struct {
	s   *Select
	n   node
	err error
}

// Where adds a predicate to the group, combined with AND.
func (c *Cond) Where(pred Expr) *Cond { return c.add(OpAnd, pred) }

// Or adds a predicate to the group, combined with OR.
func (c *Cond) Or(pred Expr) *Cond { return c.add(OpOr, pred) }

// WhereSub nests a group, combined with AND.
func (c *Cond) WhereSub(fn func(*Cond)) *Cond { return c.nest(OpAnd, fn) }

// OrSub nests a group, combined with OR.
func (c *Cond) OrSub(fn func(*Cond)) *Cond { return c.nest(OpOr, fn) }

func (c *Cond) add(op Op, pred Expr) *Cond {
	if c.err != nil {
		return c
	}
	n, err := c.s.bind(pred, resolve)
	if err != nil {
		c.err = err
		return c
	}
	c.n = combine(c.n, op, n)
	return c
}

func (c *Cond) nest(op Op, fn func(*Cond)) *Cond {
	if c.err != nil {
		return c
	}
	sub := &Cond{s: c.s}
	fn(sub)
	switch {
	case sub.err != nil:
		c.err = sub.err
	case sub.n != nil:
		c.n = combine(c.n, op, groupNode{sub.n})
	}
	return c
}

func combine(acc node, op Op, n node) node {
	if acc == nil {
		return n
	}
	return binNode{op: op, l: acc, r: n}
}

// GroupBy adds GROUP BY expressions.
func (s *Select) GroupBy(exprs ...Expr) *Select {
	if !s.enter(clauseGroupBy) {
		return s
	}
	ns, err := s.bindAll(exprs, resolve)
	if err != nil {
		return s.fail(err)
	}
	s.groupBy = append(s.groupBy, ns...)
	return s
}

// OrderBy adds an ascending sort key.
func (s *Select) OrderBy(e Expr) *Select { return s.order(e, false) }

// OrderByDesc adds a descending sort key.
func (s *Select) OrderByDesc(e Expr) *Select { return s.order(e, true) }

func (s *Select) order(e Expr, desc bool) *Select {
	if !s.enter(clauseOrderBy) {
		return s
	}
	n, err := s.bind(e, resolve)
	if err != nil {
		return s.fail(err)
	}
	s.orderBy = append(s.orderBy, order{n: n, desc: desc})
	return s
}

// Limit sets the maximum number of rows.
func (s *Select) Limit(n int) *Select {
	if s.enter(clauseLimit) {
		if n < 0 {
			return s.fail(unsupported("negative limit %d", n))
		}
		s.limit = &n
	}
	return s
}

// Offset sets the number of rows skipped.
func (s *Select) Offset(n int) *Select {
	if s.enter(clauseLimit) {
		if n < 0 {
			return s.fail(unsupported("negative offset %d", n))
		}
		s.offset = &n
	}
	return s
}

// Page selects the zero-based page of the given size.
func (s *Select) Page(page, size int) *Select {
	return s.Limit(size).Offset(page * size)
}

func (s *Select) enter(c clause) bool {
	switch {
	case s.err != nil:
		return false
	case c < s.stage:
		s.err = &ClauseOrderError{Clause: c.String(), After: s.stage.String()}
		return false
	case c > clauseFrom && !s.from:
		s.err = &ClauseOrderError{Clause: c.String(), After: "FROM"}
		return false
	}
	s.stage = c
	return true
}

func (s *Select) fail(err error) *Select {
	if s.err == nil {
		s.err = err
	}
	return s
}

// Compiled is a statement rendered for one dialect.
type Compiled struct {
	SQL     string
	Params  []Parameter
	Fields  []Field
	Dialect string
	// Returning reports whether an INSERT returns the generated key as a row.
	Returning bool

	slots int
	reg   *schema.Registry
}

// Slots returns the number of runtime arguments the statement takes.
func (c *Compiled) Slots() int { return c.slots }

// Args returns the driver arguments: fixed values as bound, slots taken
// from args. Entities are converted to their key.
func (c *Compiled) Args(args ...any) ([]any, error) {
	if len(args) != c.slots {
		return nil, &ArgumentError{Want: c.slots, Got: len(args)}
	}
	out := make([]any, len(c.Params))
	for i, p := range c.Params {
		if p.Slot < 0 {
			out[i] = p.Value
			continue
		}
		v := dbValue(c.reg, args[p.Slot])
		if p.wrap != nil && v != nil {
			v = p.wrap(fmt.Sprint(v))
		}
		out[i] = v
	}
	return out, nil
}

func newCompiled(w *writer, reg *schema.Registry, fields []Field) *Compiled {
	c := &Compiled{SQL: w.String(), Params: w.params, Fields: fields, Dialect: w.syn.Name(), reg: reg}
	for _, p := range w.params {
		if p.Slot+1 > c.slots {
			c.slots = p.Slot + 1
		}
	}
	return c
}

// Build validates the statement and renders it.
func (s *Select) Build(syn dialect.Syntax) (*Compiled, error) {
	w := newWriter(syn, true)
	s.render(w)
	if w.err != nil {
		return nil, w.err
	}
	return newCompiled(w, s.reg, s.fields), nil
}

// check completes and validates the statement before rendering.
func (s *Select) check() error {
	if s.err != nil {
		return s.err
	}
	if !s.from {
		return &ClauseOrderError{Clause: "SELECT", After: "FROM"}
	}
	if len(s.fields) == 0 {
		for _, c := range s.mapping.Columns {
			s.fields = append(s.fields, Field{Table: s.root, Column: c, node: colNode{ref: s.root, col: c}})
		}
	}
	for _, r := range s.aliases.order {
		if r.owner != s || r.joined {
			continue
		}
		if r.Var != nil && r.Path == "" {
			return &UnregisteredTableError{Table: r.String()}
		}
		return &UnresolvedJoinError{Path: r.String()}
	}
	for _, j := range s.joins {
		if j.on != nil {
			continue
		}
		if j.ref.Parent == nil || j.ref.Mapping.Key == nil {
			return unsupported("join of %s needs ON", j.ref)
		}
		j.on = binNode{op: OpEq, l: colNode{ref: j.ref.Parent, col: j.ref.Via}, r: colNode{ref: j.ref, col: j.ref.Mapping.Key}}
	}
	return nil
}

func (s *Select) render(w *writer) {
	if err := s.check(); err != nil {
		w.fail(err)
		return
	}
	w.WriteString("SELECT ")
	if s.distinct {
		w.WriteString("DISTINCT ")
	}
	for i, f := range s.fields {
		if i > 0 {
			w.WriteString(", ")
		}
		w.node(f.node, 0)
	}
	w.WriteString(" FROM ")
	w.table(s.mapping)
	w.WriteString(" AS ")
	w.ident(s.root.Alias)
	for _, j := range s.joins {
		w.WriteString(" " + j.kind + " ")
		w.table(j.ref.Mapping)
		w.WriteString(" AS ")
		w.ident(j.ref.Alias)
		w.WriteString(" ON ")
		w.node(j.on, 0)
	}
	if s.where != nil {
		w.WriteString(" WHERE ")
		w.node(s.where, 0)
	}
	for i, g := range s.groupBy {
		if i == 0 {
			w.WriteString(" GROUP BY ")
		} else {
			w.WriteString(", ")
		}
		w.node(g, 0)
	}
	for i, o := range s.orderBy {
		if i == 0 {
			w.WriteString(" ORDER BY ")
		} else {
			w.WriteString(", ")
		}
		w.node(o.n, 0)
		if o.desc {
			w.WriteString(" DESC")
		}
	}
	w.limit(s.limit, s.offset)
}

func (w *writer) limit(limit, offset *int) {
	switch {
	case limit != nil:
		w.WriteString(" LIMIT " + strconv.Itoa(*limit))
		if offset != nil {
			w.WriteString(" OFFSET " + strconv.Itoa(*offset))
		}
	case offset != nil:
		switch w.syn.Name() {
		case dialect.MySQL:
			w.WriteString(" LIMIT 18446744073709551615")
		case dialect.SQLite:
			w.WriteString(" LIMIT -1")
		}
		w.WriteString(" OFFSET " + strconv.Itoa(*offset))
	}
}

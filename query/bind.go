package query

import (
	"database/sql/driver"
	"fmt"
	"reflect"

	"github.com/folkelib/elm/schema"
)

// mode controls how member paths find their tables. In the projection,
// reference hops register new tables; elsewhere they must already exist.
type mode int

const (
	project mode = iota
	resolve
)

// bind resolves an expression against the statement's tables.
func (s *Select) bind(e Expr, md mode) (node, error) {
	switch e := e.(type) {
	case Term:
		if e.Expr == nil {
			return nil, unsupported("empty term")
		}
		return s.bind(e.Expr, md)
	case invalid:
		return nil, e.err
	case Member:
		if e.Root != nil && e.Root.Ptr == nil {
			return nil, unsupported("member of a nil variable")
		}
		if e.Root != nil && !s.tableVar(*e.Root, md) {
			v, err := s.evalMember(e)
			if err != nil {
				return nil, err
			}
			return s.value(v), nil
		}
		return s.member(e, md)
	case Var:
		if e.Ptr == nil {
			return nil, unsupported("nil variable")
		}
		if !s.tableVar(e, md) {
			return s.value(reflect.ValueOf(e.Ptr).Elem().Interface()), nil
		}
		ref, err := s.varTable(e, md)
		if err != nil {
			return nil, err
		}
		return identity(ref)
	case Value:
		return s.value(e.V), nil
	case Param:
		return paramNode{Parameter{Slot: e.Index}}, nil
	case Binary:
		return s.binary(e, md)
	case Unary:
		x, err := s.bind(e.X, md)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case OpNot:
			return notNode{x}, nil
		case OpNeg:
			return negNode{x}, nil
		}
		return nil, unsupported("unary operator %s", e.Op)
	case Call:
		return s.call(e, md)
	case Group:
		x, err := s.bind(e.X, md)
		if err != nil {
			return nil, err
		}
		return groupNode{x}, nil
	case Subquery:
		sub, err := s.subquery(e)
		if err != nil {
			return nil, err
		}
		return subNode{sub}, nil
	case Star:
		return starNode{}, nil
	case nil:
		return nil, unsupported("nil expression")
	}
	return nil, unsupported("%T", e)
}

func (s *Select) binary(e Binary, md mode) (node, error) {
	if _, ok := opPrec[e.Op]; !ok {
		return nil, unsupported("binary operator %s", e.Op)
	}
	l, err := s.bind(e.L, md)
	if err != nil {
		return nil, err
	}
	r, err := s.bind(e.R, md)
	if err != nil {
		return nil, err
	}
	if e.Op == OpEq || e.Op == OpNeq {
		switch {
		case isNull(r):
			return nullNode{x: l, not: e.Op == OpNeq}, nil
		case isNull(l):
			return nullNode{x: r, not: e.Op == OpNeq}, nil
		}
	}
	return binNode{op: e.Op, l: l, r: r}, nil
}

func (s *Select) call(c Call, md mode) (node, error) {
	want := func(n int) error {
		if len(c.Args) != n {
			return unsupported("%s takes %d operands, got %d", c.Func, n, len(c.Args))
		}
		return nil
	}
	switch c.Func {
	case FuncEquals:
		if err := want(2); err != nil {
			return nil, err
		}
		return s.binary(Binary{Op: OpEq, L: c.Args[0], R: c.Args[1]}, md)
	case FuncLike, FuncContains, FuncStartsWith, FuncEndsWith:
		if err := want(2); err != nil {
			return nil, err
		}
		args, err := s.bindAll(c.Args, md)
		if err != nil {
			return nil, err
		}
		return likeNode{x: args[0], pattern: pattern(c.Func, args[1])}, nil
	case FuncBetween:
		if err := want(3); err != nil {
			return nil, err
		}
		args, err := s.bindAll(c.Args, md)
		if err != nil {
			return nil, err
		}
		return betweenNode{x: args[0], lo: args[1], hi: args[2]}, nil
	case FuncIn:
		if len(c.Args) == 0 {
			return nil, unsupported("In without operand")
		}
		x, err := s.bind(c.Args[0], md)
		if err != nil {
			return nil, err
		}
		if len(c.Args) == 2 {
			if e, ok := unwrap(c.Args[1]).(Subquery); ok {
				sub, err := s.subquery(e)
				if err != nil {
					return nil, err
				}
				return inNode{x: x, sub: sub}, nil
			}
		}
		if len(c.Args) == 1 {
			return litNode{sql: "1 = 0", prio: precCmp}, nil
		}
		list, err := s.bindAll(c.Args[1:], md)
		if err != nil {
			return nil, err
		}
		return inNode{x: x, list: list}, nil
	case FuncIsNull, FuncNotNull:
		if err := want(1); err != nil {
			return nil, err
		}
		x, err := s.bind(c.Args[0], md)
		if err != nil {
			return nil, err
		}
		return nullNode{x: x, not: c.Func == FuncNotNull}, nil
	case FuncExists:
		if err := want(1); err != nil {
			return nil, err
		}
		e, ok := unwrap(c.Args[0]).(Subquery)
		if !ok {
			return nil, unsupported("Exists of %T", c.Args[0])
		}
		sub, err := s.subquery(e)
		if err != nil {
			return nil, err
		}
		return existsNode{sub}, nil
	case FuncConcat:
		if len(c.Args) == 0 {
			return nil, unsupported("Concat without operands")
		}
		parts, err := s.bindAll(c.Args, md)
		if err != nil {
			return nil, err
		}
		return concatNode{parts}, nil
	case FuncMax, FuncMin, FuncSum, FuncAvg, FuncCount:
		if err := want(1); err != nil {
			return nil, err
		}
		args, err := s.bindAll(c.Args, md)
		if err != nil {
			return nil, err
		}
		return funcNode{name: c.Func, args: args}, nil
	}
	return nil, unsupported("function %q", string(c.Func))
}

func (s *Select) bindAll(es []Expr, md mode) ([]node, error) {
	out := make([]node, len(es))
	for i, e := range es {
		n, err := s.bind(e, md)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// pattern wraps the operand of Contains, StartsWith and EndsWith in %
// wildcards. Parameters are wrapped in Go; other operands in SQL.
func pattern(fn Func, n node) node {
	var before, after string
	switch fn {
	case FuncContains:
		before, after = "%", "%"
	case FuncStartsWith:
		after = "%"
	case FuncEndsWith:
		before = "%"
	default:
		return n
	}
	if p, ok := n.(paramNode); ok {
		wrap := func(v string) string { return before + v + after }
		switch {
		case p.p.Slot >= 0:
			p.p.wrap = wrap
		case p.p.Value != nil:
			p.p.Value = wrap(fmt.Sprint(p.p.Value))
		}
		return p
	}
	parts := make([]node, 0, 3)
	if before != "" {
		parts = append(parts, litNode{sql: "'%'", prio: precPrimary})
	}
	parts = append(parts, n)
	if after != "" {
		parts = append(parts, litNode{sql: "'%'", prio: precPrimary})
	}
	return concatNode{parts}
}

// member resolves a path to the column it ends on. A path ending on a
// reference resolves to the foreign key, and so does Ref.Key, which
// needs no join.
func (s *Select) member(m Member, md mode) (node, error) {
	if m.Outer {
		if s.parent == nil {
			return nil, unsupported("outer member %s outside a subquery", joinPath(m.Path))
		}
		return s.parent.member(Member{Path: m.Path}, resolve)
	}
	ref, err := s.base(m.Root, md)
	if err != nil {
		return nil, err
	}
	if len(m.Path) == 0 {
		return identity(ref)
	}
	last := len(m.Path) - 1
	for i := range last {
		if i == last-1 {
			if col, ok := ref.Mapping.Column(m.Path[i]); ok && col.Reference != nil &&
				col.Reference.Key != nil && col.Reference.Key.PropertyName == m.Path[last] {
				return colNode{ref: ref, col: col}, nil
			}
		}
		if ref, err = s.hop(ref, m.Path, i, md); err != nil {
			return nil, err
		}
	}
	col, err := column(ref.Mapping, m.Path[last])
	if err != nil {
		return nil, err
	}
	return colNode{ref: ref, col: col}, nil
}

// base returns the table a member path starts from.
func (s *Select) base(root *Var, md mode) (*TableRef, error) {
	if root == nil {
		return s.rootTable(md)
	}
	return s.varTable(*root, md)
}

// hop follows the reference property path[i] from ref.
func (s *Select) hop(ref *TableRef, path []string, i int, md mode) (*TableRef, error) {
	col, err := column(ref.Mapping, path[i])
	if err != nil {
		return nil, err
	}
	if col.Reference == nil {
		return nil, unsupported("%s.%s is not a reference", ref.Mapping, path[i])
	}
	k := refKey{scope: ref.key.scope, v: ref.key.v, path: joinPath(path[:i+1])}
	if r, ok := s.aliases.lookup(k); ok {
		return r, nil
	}
	if md == resolve {
		return nil, &UnresolvedJoinError{Path: k.path}
	}
	return s.aliases.register(k, col.Reference, func(r *TableRef) {
		r.Parent, r.Via, r.owner = ref, col, s
	}), nil
}

// rootTable returns the query entity's table, registering it in the
// projection.
func (s *Select) rootTable(md mode) (*TableRef, error) {
	if s.root != nil {
		return s.root, nil
	}
	if md == resolve {
		return nil, &UnregisteredTableError{Table: s.mapping.String()}
	}
	s.root = s.aliases.register(refKey{scope: s.scope}, s.mapping, func(r *TableRef) {
		r.root, r.owner = true, s
	})
	return s.root, nil
}

// varTable returns the table a captured variable stands for, registering
// it in the projection.
func (s *Select) varTable(v Var, md mode) (*TableRef, error) {
	k := refKey{v: v.Ptr}
	if r, ok := s.aliases.lookup(k); ok {
		return r, nil
	}
	t := reflect.TypeOf(v.Ptr)
	if md == resolve {
		return nil, &UnregisteredTableError{Table: t.Elem().String()}
	}
	m, err := s.reg.Mapping(t)
	if err != nil {
		return nil, err
	}
	return s.aliases.register(k, m, func(r *TableRef) { r.owner = s }), nil
}

// tableVar reports whether v stands for a table: it was registered, or
// it is an entity named in the projection.
func (s *Select) tableVar(v Var, md mode) bool {
	if _, ok := s.aliases.lookup(refKey{v: v.Ptr}); ok {
		return true
	}
	return md == project && s.reg.IsMapped(reflect.TypeOf(v.Ptr))
}

// evalMember reads a property path of a variable that is not a table.
func (s *Select) evalMember(m Member) (any, error) {
	v := reflect.ValueOf(m.Root.Ptr)
	for _, name := range m.Path {
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return nil, nil
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return nil, unsupported("property %s of %s", name, v.Type())
		}
		f := v.FieldByName(name)
		if !f.IsValid() {
			return nil, fmt.Errorf("%w %q on %s", schema.ErrUnknownProperty, name, v.Type())
		}
		v = f
	}
	return v.Interface(), nil
}

func (s *Select) subquery(e Subquery) (*Select, error) {
	switch {
	case e.S == nil:
		return nil, unsupported("nil subquery")
	case e.S.aliases != s.aliases:
		return nil, unsupported("subquery of %s was not created by Sub", e.S.mapping)
	case e.S.err != nil:
		return nil, e.S.err
	}
	return e.S, nil
}

func (s *Select) value(v any) node {
	return paramNode{Parameter{Value: dbValue(s.reg, v), Slot: -1}}
}

// dbValue converts a Go value to its database value: entities to their
// key, nil pointers to nil.
func dbValue(reg *schema.Registry, v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	if _, ok := v.(driver.Valuer); ok {
		return v
	}
	if t := rv.Type(); reg != nil && reg.IsMapped(t) {
		if m, err := reg.Mapping(t); err == nil {
			key, _ := m.KeyValue(rv)
			return key
		}
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func isNull(n node) bool {
	p, ok := n.(paramNode)
	return ok && p.p.Slot < 0 && p.p.Value == nil
}

func identity(ref *TableRef) (node, error) {
	if ref.Mapping.Key == nil {
		return nil, unsupported("%s has no key", ref.Mapping)
	}
	return colNode{ref: ref, col: ref.Mapping.Key}, nil
}

func column(m *schema.TypeMapping, property string) (*schema.ColumnMapping, error) {
	if c, ok := m.Column(property); ok {
		return c, nil
	}
	if _, ok := m.Collection(property); ok {
		return nil, unsupported("collection %s.%s in expression", m, property)
	}
	return nil, fmt.Errorf("%w %q on %s", schema.ErrUnknownProperty, property, m)
}

func unwrap(e Expr) Expr {
	for {
		t, ok := e.(Term)
		if !ok {
			return e
		}
		e = t.Expr
	}
}

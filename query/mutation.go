package query

import (
	"reflect"

	"github.com/folkelib/elm/dialect"
	"github.com/folkelib/elm/schema"
)

// Mutations address a single table and render unqualified column names.
// Their predicates cannot cross references.

type assignment struct {
	col *schema.ColumnMapping
	n   node
}

type assignments []assignment

func (as *assignments) set(col *schema.ColumnMapping, n node) {
	for i := range *as {
		if (*as)[i].col == col {
			(*as)[i].n = n
			return
		}
	}
	*as = append(*as, assignment{col: col, n: n})
}

// entityValue returns the struct value of v, checking it is of type m.
func entityValue(m *schema.TypeMapping, v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return rv, unsupported("nil %s", m)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Type() != m.Type {
		return rv, unsupported("%T is not a %s", v, m)
	}
	return rv, nil
}

func table(reg *schema.Registry, t reflect.Type) *Select {
	return NewSelect(reg, t).From()
}

// Insert is an INSERT statement.
type Insert struct {
	s    *Select
	sets assignments
}

// NewInsert returns an INSERT into the table of t.
func NewInsert(reg *schema.Registry, t reflect.Type) *Insert {
	return &Insert{s: table(reg, t)}
}

// Entity sets every writable column from v. Automatic keys are skipped
// and references are stored by key.
func (i *Insert) Entity(v any) *Insert {
	if i.s.err != nil {
		return i
	}
	rv, err := entityValue(i.s.mapping, v)
	if err != nil {
		i.s.fail(err)
		return i
	}
	for _, c := range i.s.mapping.Columns {
		if !c.Readonly {
			i.sets.set(c, i.s.value(c.Value(rv)))
		}
	}
	return i
}

// Set sets the value of a property. v may be an expression.
func (i *Insert) Set(property string, v any) *Insert {
	if n, col, err := i.s.assign(property, v); err != nil {
		i.s.fail(err)
	} else {
		i.sets.set(col, n)
	}
	return i
}

// Build renders the statement. With syntaxes supporting RETURNING, an
// automatic key is returned as a row.
func (i *Insert) Build(syn dialect.Syntax) (*Compiled, error) {
	if i.s.err != nil {
		return nil, i.s.err
	}
	m := i.s.mapping
	w := newWriter(syn, false)
	w.WriteString("INSERT INTO ")
	w.table(m)
	switch {
	case len(i.sets) > 0:
		w.WriteString(" (")
		for j, a := range i.sets {
			if j > 0 {
				w.WriteString(", ")
			}
			w.ident(a.col.ColumnName)
		}
		w.WriteString(") VALUES (")
		for j, a := range i.sets {
			if j > 0 {
				w.WriteString(", ")
			}
			w.node(a.n, 0)
		}
		w.WriteString(")")
	case syn.Name() == dialect.MySQL:
		w.WriteString(" () VALUES ()")
	default:
		w.WriteString(" DEFAULT VALUES")
	}
	returning := m.Key != nil && m.Key.IsAutomatic && dialect.SupportsReturning(syn)
	if returning {
		w.WriteString(" RETURNING ")
		w.ident(m.Key.ColumnName)
	}
	c := newCompiled(w, i.s.reg, nil)
	c.Returning = returning
	return c, nil
}

// Update is an UPDATE statement.
type Update struct {
	s    *Select
	sets assignments
}

// NewUpdate returns an UPDATE of the table of t.
func NewUpdate(reg *schema.Registry, t reflect.Type) *Update {
	return &Update{s: table(reg, t)}
}

// Set assigns a property. v may be an expression over the same row,
// as in Set("Value", F("Value").Add(1)).
func (u *Update) Set(property string, v any) *Update {
	if n, col, err := u.s.assign(property, v); err != nil {
		u.s.fail(err)
	} else {
		u.sets.set(col, n)
	}
	return u
}

// Entity assigns every writable column from v and restricts the update
// to v's key.
func (u *Update) Entity(v any) *Update {
	if u.s.err != nil {
		return u
	}
	m := u.s.mapping
	rv, err := entityValue(m, v)
	if err == nil && m.Key == nil {
		err = unsupported("%s has no key", m)
	}
	if err != nil {
		u.s.fail(err)
		return u
	}
	for _, c := range m.Columns {
		if !c.Readonly && !c.IsKey {
			u.sets.set(c, u.s.value(c.Value(rv)))
		}
	}
	u.s.Where(Root().Eq(Val(keyOf(m, rv))))
	return u
}

// Where adds a predicate, combined with AND.
func (u *Update) Where(pred Expr) *Update {
	u.s.Where(pred)
	return u
}

// Or adds a predicate, combined with OR.
func (u *Update) Or(pred Expr) *Update {
	u.s.Or(pred)
	return u
}

// Build renders the statement.
func (u *Update) Build(syn dialect.Syntax) (*Compiled, error) {
	if u.s.err != nil {
		return nil, u.s.err
	}
	if len(u.sets) == 0 {
		return nil, unsupported("UPDATE of %s without SET", u.s.mapping)
	}
	w := newWriter(syn, false)
	w.WriteString("UPDATE ")
	w.table(u.s.mapping)
	w.WriteString(" SET ")
	for i, a := range u.sets {
		if i > 0 {
			w.WriteString(", ")
		}
		w.ident(a.col.ColumnName)
		w.WriteString(" = ")
		w.node(a.n, 0)
	}
	u.s.renderWhere(w)
	return newCompiled(w, u.s.reg, nil), nil
}

// Delete is a DELETE statement.
type Delete struct {
	s *Select
}

// NewDelete returns a DELETE from the table of t.
func NewDelete(reg *schema.Registry, t reflect.Type) *Delete {
	return &Delete{s: table(reg, t)}
}

// Entity restricts the delete to v's key.
func (d *Delete) Entity(v any) *Delete {
	if d.s.err != nil {
		return d
	}
	m := d.s.mapping
	rv, err := entityValue(m, v)
	if err == nil && m.Key == nil {
		err = unsupported("%s has no key", m)
	}
	if err != nil {
		d.s.fail(err)
		return d
	}
	d.s.Where(Root().Eq(Val(keyOf(m, rv))))
	return d
}

// Where adds a predicate, combined with AND.
func (d *Delete) Where(pred Expr) *Delete {
	d.s.Where(pred)
	return d
}

// Or adds a predicate, combined with OR.
func (d *Delete) Or(pred Expr) *Delete {
	d.s.Or(pred)
	return d
}

// Build renders the statement.
func (d *Delete) Build(syn dialect.Syntax) (*Compiled, error) {
	if d.s.err != nil {
		return nil, d.s.err
	}
	w := newWriter(syn, false)
	w.WriteString("DELETE FROM ")
	w.table(d.s.mapping)
	d.s.renderWhere(w)
	return newCompiled(w, d.s.reg, nil), nil
}

// assign binds the value of a SET or VALUES entry.
func (s *Select) assign(property string, v any) (node, *schema.ColumnMapping, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	col, err := column(s.mapping, property)
	if err != nil {
		return nil, nil, err
	}
	n, err := s.bind(toExpr(v), resolve)
	if err != nil {
		return nil, nil, err
	}
	return n, col, nil
}

func (s *Select) renderWhere(w *writer) {
	if s.where != nil {
		w.WriteString(" WHERE ")
		w.node(s.where, 0)
	}
}

// keyOf returns the key value of the struct rv.
func keyOf(m *schema.TypeMapping, rv reflect.Value) any {
	return rv.FieldByIndex(m.Key.Index).Interface()
}

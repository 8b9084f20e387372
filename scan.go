package elm

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"

	sqldialect "github.com/folkelib/elm/dialect/sql"
	"github.com/folkelib/elm/query"
	"github.com/folkelib/elm/schema"
)

var scannerType = reflect.TypeFor[sql.Scanner]()

// materializer turns rows of a compiled SELECT into object graphs rooted
// at the FROM table. Each table of the projection gets one object per row.
type materializer struct {
	fields []query.Field
	root   *query.TableRef
	// refs lists the projected tables and their ancestors, every table
	// after the one holding its foreign key.
	refs []*query.TableRef
}

func newMaterializer(c *query.Compiled, t reflect.Type) (*materializer, error) {
	m := &materializer{fields: c.Fields}
	seen := make(map[*query.TableRef]bool)
	var add func(r *query.TableRef)
	add = func(r *query.TableRef) {
		if seen[r] {
			return
		}
		seen[r] = true
		if r.Parent != nil {
			add(r.Parent)
		}
		m.refs = append(m.refs, r)
	}
	for _, f := range c.Fields {
		if f.Computed() {
			continue
		}
		add(f.Table)
	}
	for _, r := range m.refs {
		if r.IsRoot() {
			m.root = r
			break
		}
	}
	switch {
	case m.root == nil:
		return nil, fmt.Errorf("elm: projection selects no column of %s", t)
	case m.root.Mapping.Type != t:
		return nil, fmt.Errorf("elm: projection is rooted at %s, not %s", m.root.Mapping.Type, t)
	}
	return m, nil
}

// scan reads at most limit rows, or all when limit is zero, and closes rows.
func (m *materializer) scan(rows *sqldialect.Rows, limit int) (_ []reflect.Value, err error) {
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()
	var out []reflect.Value
	for rows.Next() {
		dest := m.dest()
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("elm: scanning row: %w", err)
		}
		out = append(out, m.row(dest))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, rows.Err()
}

// dest allocates the scan destinations of one row. Columns scan into a
// pointer to their value type so that NULL is observable.
func (m *materializer) dest() []any {
	dest := make([]any, len(m.fields))
	for i, f := range m.fields {
		if f.Computed() {
			dest[i] = new(any)
			continue
		}
		t := f.Column.ValueType()
		if t.Kind() == reflect.Pointer || reflect.PointerTo(t).Implements(scannerType) {
			dest[i] = reflect.New(t).Interface()
		} else {
			dest[i] = reflect.New(reflect.PointerTo(t)).Interface()
		}
	}
	return dest
}

// row assembles the objects of one scanned row and returns the root.
func (m *materializer) row(dest []any) reflect.Value {
	objs := make(map[*query.TableRef]reflect.Value, len(m.refs))
	obj := func(r *query.TableRef) reflect.Value {
		o, ok := objs[r]
		if !ok {
			o = r.Mapping.New()
			objs[r] = o
		}
		return o
	}
	present := make(map[*query.TableRef]bool, len(m.refs))
	for i, f := range m.fields {
		if f.Computed() {
			continue
		}
		v, null := value(dest[i], f.Column)
		if !null {
			present[f.Table] = true
		}
		fv := obj(f.Table).Elem().FieldByIndex(f.Column.Index)
		if ref := f.Column.Reference; ref != nil {
			if !null {
				fv.Set(stub(ref, v))
			}
			continue
		}
		fv.Set(v)
	}
	for i := len(m.refs) - 1; i >= 0; i-- {
		r := m.refs[i]
		if r == m.root || r.Parent == nil || r.Via == nil || !present[r] {
			continue
		}
		present[r.Parent] = true
		child := obj(r)
		fv := obj(r.Parent).Elem().FieldByIndex(r.Via.Index)
		if key := r.Mapping.Key; key != nil && !fv.IsNil() {
			if k := child.Elem().FieldByIndex(key.Index); k.IsZero() {
				k.Set(fv.Elem().FieldByIndex(key.Index))
			}
		}
		fv.Set(child)
	}
	return obj(m.root)
}

// value returns the scanned value of c as its field type and whether
// the column was NULL.
func value(d any, c *schema.ColumnMapping) (reflect.Value, bool) {
	v := reflect.ValueOf(d).Elem()
	t := c.ValueType()
	if v.Type() == t {
		if t.Kind() == reflect.Pointer {
			return v, v.IsNil()
		}
		if valuer, ok := v.Interface().(driver.Valuer); ok {
			dv, err := valuer.Value()
			return v, err == nil && dv == nil
		}
		return v, false
	}
	if v.IsNil() {
		return reflect.Zero(t), true
	}
	return v.Elem(), false
}

// stub returns a new entity of m holding only the key.
func stub(m *schema.TypeMapping, key reflect.Value) reflect.Value {
	s := m.New()
	s.Elem().FieldByIndex(m.Key.Index).Set(key)
	return s
}

// isStub reports whether the entity v has only its key set.
func isStub(m *schema.TypeMapping, v reflect.Value) bool {
	if v.IsNil() {
		return false
	}
	e := v.Elem()
	for _, c := range m.Columns {
		if !c.IsKey && !e.FieldByIndex(c.Index).IsZero() {
			return false
		}
	}
	return true
}

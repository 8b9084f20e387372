package elm

import (
	"context"
	"fmt"
	"reflect"

	"golang.org/x/sync/errgroup"

	"github.com/folkelib/elm/query"
	"github.com/folkelib/elm/schema"
)

// LoadCollection fills the collection property of every owner with one
// query over the element table, filtered by the owners' keys. Owners
// without elements get an empty slice. The elements' reference to the
// owner is set to the owner itself.
func LoadCollection[T any](ctx context.Context, conn *Conn, owners []*T, property string) error {
	label := typeName(reflect.TypeFor[T]())
	m, err := conn.reg.Mapping(reflect.TypeFor[T]())
	if err != nil {
		return NewQueryError(label, "load "+property, err)
	}
	cm, ok := m.Collection(property)
	if !ok {
		return NewQueryError(label, "load "+property, fmt.Errorf("%w %q on %s", schema.ErrUnknownProperty, property, m))
	}
	var keys []any
	for _, o := range owners {
		if k, ok := m.KeyValue(reflect.ValueOf(o)); ok {
			keys = append(keys, k)
		}
	}
	if keys = distinct(keys); len(keys) == 0 {
		return nil
	}
	c, err := query.CollectionSelect(conn.reg, cm, keys...).Build(conn.syntax)
	if err != nil {
		return NewQueryError(label, "load "+property, err)
	}
	args, err := c.Args()
	if err != nil {
		return NewQueryError(label, "load "+property, err)
	}
	elems, err := conn.list(ctx, c, args, cm.Elem.Type, 0)
	if err != nil {
		return NewQueryError(label, "load "+property, err)
	}
	groups := GroupByKey(elems, func(e reflect.Value) any {
		return cm.ForeignKey.Value(e.Elem())
	})
	for _, o := range owners {
		ov := reflect.ValueOf(o)
		k, ok := m.KeyValue(ov)
		if !ok {
			continue
		}
		group := groups[k]
		field := ov.Elem().FieldByIndex(cm.Index)
		items := reflect.MakeSlice(field.Type(), 0, len(group))
		for _, e := range group {
			e.Elem().FieldByIndex(cm.ForeignKey.Index).Set(ov)
			if cm.ElemPointer {
				items = reflect.Append(items, e)
			} else {
				items = reflect.Append(items, e.Elem())
			}
		}
		field.Set(items)
	}
	return nil
}

// LoadCollections loads several collection properties of the owners
// concurrently, one query per property.
func LoadCollections[T any](ctx context.Context, conn *Conn, owners []*T, properties ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range properties {
		g.Go(func() error {
			return LoadCollection(ctx, conn, owners, p)
		})
	}
	return g.Wait()
}

// LoadReference replaces the key-only stubs held by the reference
// property of the owners with the referenced rows, read in one query.
// A stub whose row does not exist fails with a NotLoadedError.
func LoadReference[T any](ctx context.Context, conn *Conn, owners []*T, property string) error {
	label := typeName(reflect.TypeFor[T]())
	m, err := conn.reg.Mapping(reflect.TypeFor[T]())
	if err != nil {
		return NewQueryError(label, "load "+property, err)
	}
	col, ok := m.Column(property)
	if !ok || col.Reference == nil {
		return NewQueryError(label, "load "+property, fmt.Errorf("%w: %q on %s is not a reference", schema.ErrUnknownProperty, property, m))
	}
	ref := col.Reference
	var (
		fields []reflect.Value
		keys   []any
	)
	for _, o := range owners {
		if o == nil {
			continue
		}
		f := reflect.ValueOf(o).Elem().FieldByIndex(col.Index)
		if !isStub(ref, f) {
			continue
		}
		k, _ := ref.KeyValue(f)
		fields = append(fields, f)
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	want := distinct(append([]any(nil), keys...))
	c, err := query.NewSelect(conn.reg, ref.Type).From().Where(query.Root().In(want...)).Build(conn.syntax)
	if err != nil {
		return NewQueryError(label, "load "+property, err)
	}
	args, err := c.Args()
	if err != nil {
		return NewQueryError(label, "load "+property, err)
	}
	rows, err := conn.list(ctx, c, args, ref.Type, 0)
	if err != nil {
		return NewQueryError(label, "load "+property, err)
	}
	loaded, found := OrderByKeys(want, rows, func(v reflect.Value) any {
		k, _ := ref.KeyValue(v)
		return k
	})
	at := make(map[any]int, len(want))
	for i, k := range want {
		at[k] = i
	}
	for i, f := range fields {
		j := at[keys[i]]
		if !found[j] {
			return NewNotLoadedError(property, keys[i])
		}
		f.Set(loaded[j])
	}
	return nil
}

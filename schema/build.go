package schema

import (
	"database/sql"
	"fmt"
	"reflect"
	"slices"
)

// builder builds one wave of mappings: the requested type and every
// unpublished type it references. Mappings under construction are kept
// in pending so that cycles resolve to the same pointer.
type builder struct {
	r           *Registry
	pending     map[reflect.Type]*TypeMapping
	collections []*pendingCollection
}

type pendingCollection struct {
	owner *TypeMapping
	c     *CollectionMapping
	fk    string
}

func (b *builder) build(t reflect.Type) (*TypeMapping, error) {
	m, err := b.mapping(t)
	if err != nil {
		return nil, err
	}
	for _, pc := range b.collections {
		if err := pc.resolve(); err != nil {
			return nil, err
		}
	}
	for _, pm := range b.pending {
		pm.index()
	}
	return m, nil
}

func (b *builder) mapping(t reflect.Type) (*TypeMapping, error) {
	if m, ok := b.r.mappings[t]; ok {
		return m, nil
	}
	if m, ok := b.pending[t]; ok {
		return m, nil
	}
	if !b.r.mappable(t) {
		return nil, &UnmappedTypeError{Type: t}
	}
	cfg := b.r.configs[t]
	m := &TypeMapping{Type: t}
	b.pending[t] = m

	pt := reflect.PointerTo(t)
	zero := reflect.New(t).Interface()
	switch {
	case cfg != nil && cfg.table != "":
		m.TableName = cfg.table
	case pt.Implements(tablerType):
		m.TableName = zero.(Tabler).TableName()
	default:
		m.TableName = b.r.naming.TableName(t.Name())
	}
	switch {
	case cfg != nil && cfg.schema != "":
		m.TableSchema = cfg.schema
	case pt.Implements(schemerType):
		m.TableSchema = zero.(Schemer).TableSchema()
	}

	var conventionKey, taggedKey *ColumnMapping
	if err := b.fields(m, t, nil, cfg, &conventionKey, &taggedKey); err != nil {
		return nil, err
	}
	key := taggedKey
	if key == nil && pt.Implements(entityType) {
		key = conventionKey
	}
	if cfg != nil && cfg.key != "" {
		i := slices.IndexFunc(m.Columns, func(c *ColumnMapping) bool { return c.PropertyName == cfg.key })
		if i < 0 {
			return nil, unknownProperty(t, cfg.key)
		}
		key = m.Columns[i]
	}
	if key != nil {
		m.Key = key
		key.IsKey = true
		if isInteger(key.Type) {
			key.IsAutomatic = true
		}
	}
	for _, c := range m.Columns {
		c.Readonly = c.IsAutomatic
	}
	return m, nil
}

func (b *builder) fields(m *TypeMapping, t reflect.Type, prefix []int, cfg *typeConfig, conventionKey, taggedKey **ColumnMapping) error {
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		index := append(slices.Clone(prefix), i)
		tag, err := parseTag(f.Tag.Get(b.r.tagKey))
		if err != nil {
			return fmt.Errorf("schema: %s.%s: %w", t, f.Name, err)
		}
		cc := cfg.column(f.Name)
		if tag.skip || (cc != nil && cc.ignore) {
			continue
		}
		ft := f.Type

		if f.Anonymous && ft.Kind() == reflect.Struct {
			if err := b.fields(m, ft, index, cfg, conventionKey, taggedKey); err != nil {
				return err
			}
			continue
		}

		if ft.Kind() == reflect.Slice {
			if elem, ptr, ok := collectionElem(ft); ok {
				em, err := b.mapping(elem)
				if err != nil {
					return err
				}
				c := &CollectionMapping{
					PropertyName: f.Name,
					Index:        index,
					Elem:         em,
					ElemPointer:  ptr,
					Joins:        tag.joins,
				}
				m.Collections = append(m.Collections, c)
				b.collections = append(b.collections, &pendingCollection{owner: m, c: c, fk: tag.fk})
				continue
			}
		}

		c := &ColumnMapping{
			PropertyName: f.Name,
			Type:         ft,
			Index:        index,
			MaxLength:    tag.maxLength,
			IndexName:    tag.index,
			IsAutomatic:  tag.auto,
			OnDelete:     tag.onDelete,
			OnUpdate:     tag.onUpdate,
		}
		switch {
		case ft.Kind() == reflect.Struct && b.r.mappable(ft):
			return fmt.Errorf("schema: %s.%s: reference to %s must be a pointer", t, f.Name, ft)
		case ft.Kind() == reflect.Pointer && b.r.mappable(ft.Elem()):
			ref, err := b.mapping(ft.Elem())
			if err != nil {
				return err
			}
			c.Reference = ref
			c.Nullable = true
		case ft.Kind() == reflect.Pointer:
			c.Nullable = true
		default:
			c.Nullable = tag.nullable || isNullType(ft)
		}
		switch {
		case tag.name != "":
			c.ColumnName = tag.name
		case c.Reference != nil:
			c.ColumnName = b.r.naming.ForeignKeyName(f.Name)
		default:
			c.ColumnName = b.r.naming.ColumnName(f.Name)
		}
		if cc != nil {
			cc.apply(c)
		}
		if tag.key && *taggedKey == nil {
			*taggedKey = c
		}
		if (f.Name == "Id" || f.Name == "ID") && *conventionKey == nil {
			*conventionKey = c
		}
		m.Columns = append(m.Columns, c)
	}
	return nil
}

// resolve finds the element column referencing the owner.
func (pc *pendingCollection) resolve() error {
	elem := pc.c.Elem
	for _, col := range elem.Columns {
		if col.Reference != pc.owner {
			continue
		}
		if pc.fk == "" || col.PropertyName == pc.fk {
			pc.c.ForeignKey = col
			break
		}
	}
	if pc.c.ForeignKey == nil {
		if pc.fk != "" {
			return fmt.Errorf("schema: %s.%s: %w", pc.owner.Type, pc.c.PropertyName, unknownProperty(elem.Type, pc.fk))
		}
		return fmt.Errorf("schema: %s.%s: %s has no reference to %s", pc.owner.Type, pc.c.PropertyName, elem.Type, pc.owner.Type)
	}
	for _, j := range pc.c.Joins {
		i := slices.IndexFunc(elem.Columns, func(c *ColumnMapping) bool { return c.PropertyName == j })
		if i < 0 || elem.Columns[i].Reference == nil {
			return fmt.Errorf("schema: %s.%s: join %q is not a reference of %s", pc.owner.Type, pc.c.PropertyName, j, elem.Type)
		}
	}
	return nil
}

// collectionElem reports whether a slice type holds entities.
func collectionElem(t reflect.Type) (reflect.Type, bool, bool) {
	elem, ptr := t.Elem(), false
	if elem.Kind() == reflect.Pointer {
		elem, ptr = elem.Elem(), true
	}
	if elem.Kind() != reflect.Struct || !reflect.PointerTo(elem).Implements(entityType) {
		return nil, false, false
	}
	return elem, ptr, true
}

var scannerType = reflect.TypeFor[sql.Scanner]()

// isNullType matches sql.NullString and friends: scanners with a Valid flag.
func isNullType(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || !reflect.PointerTo(t).Implements(scannerType) {
		return false
	}
	f, ok := t.FieldByName("Valid")
	return ok && f.Type.Kind() == reflect.Bool
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

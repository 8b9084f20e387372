package schema

import (
	"fmt"
	"reflect"
)

// typeConfig holds the overrides recorded for a type before its mapping
// is built. They win over tags and conventions.
type typeConfig struct {
	table   string
	schema  string
	key     string
	columns map[string]*columnConfig
}

type columnConfig struct {
	name      string
	maxLength int
	nullable  bool
	ignore    bool
}

func (c *typeConfig) column(property string) *columnConfig {
	if c == nil {
		return nil
	}
	return c.columns[property]
}

func (c *typeConfig) columnOf(property string) *columnConfig {
	if c.columns == nil {
		c.columns = make(map[string]*columnConfig)
	}
	cc, ok := c.columns[property]
	if !ok {
		cc = &columnConfig{}
		c.columns[property] = cc
	}
	return cc
}

func (c *typeConfig) merge(o *typeConfig) {
	if o.table != "" {
		c.table = o.table
	}
	if o.schema != "" {
		c.schema = o.schema
	}
	if o.key != "" {
		c.key = o.key
	}
	for p, oc := range o.columns {
		cc := c.columnOf(p)
		if oc.name != "" {
			cc.name = oc.name
		}
		if oc.maxLength != 0 {
			cc.maxLength = oc.maxLength
		}
		cc.nullable = cc.nullable || oc.nullable
		cc.ignore = cc.ignore || oc.ignore
	}
}

func (cc *columnConfig) apply(c *ColumnMapping) {
	if cc.name != "" {
		c.ColumnName = cc.name
	}
	if cc.maxLength != 0 {
		c.MaxLength = cc.maxLength
	}
	if cc.nullable {
		c.Nullable = true
	}
}

// configure records overrides for t. It fails once t is built.
func (r *Registry) configure(t reflect.Type, cfg *typeConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built(t) {
		return &MappingAlreadyBuiltError{Type: t}
	}
	if cur, ok := r.configs[t]; ok {
		cur.merge(cfg)
		return nil
	}
	r.configs[t] = cfg
	return nil
}

// Mapper records mapping overrides for T.
//
//	err := schema.Configure(reg, func(m *schema.Mapper[Widget]) {
//	    m.ToTable("widgets", "inventory")
//	    m.HasKey("Code")
//	    m.Property("Label").HasColumnName("label").HasMaxLength(64)
//	})
type Mapper[T any] struct {
	typ reflect.Type
	cfg *typeConfig
	err error
}

// Configure records the overrides made by fn for T. It must be called
// before T's mapping is first used; afterwards it fails with a
// MappingAlreadyBuiltError. Configuring a type makes it mappable.
func Configure[T any](r *Registry, fn func(*Mapper[T])) error {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return &UnmappedTypeError{Type: t}
	}
	m := &Mapper[T]{typ: t, cfg: &typeConfig{}}
	fn(m)
	if m.err != nil {
		return m.err
	}
	return r.configure(t, m.cfg)
}

// ToTable sets the table name and, optionally, its schema.
func (m *Mapper[T]) ToTable(name string, schema ...string) *Mapper[T] {
	m.cfg.table = name
	if len(schema) > 0 {
		m.cfg.schema = schema[0]
	}
	return m
}

// HasKey makes the named property the key.
func (m *Mapper[T]) HasKey(property string) *Mapper[T] {
	if m.check(property) {
		m.cfg.key = property
	}
	return m
}

// HasKeyOf makes the selected property the key:
//
//	m.HasKeyOf(func(w *Widget) any { return &w.Code })
func (m *Mapper[T]) HasKeyOf(sel func(*T) any) *Mapper[T] {
	if p, ok := m.selected(sel); ok {
		m.cfg.key = p
	}
	return m
}

// Property returns the overrides of the named property.
func (m *Mapper[T]) Property(name string) *PropertyMapper[T] {
	if !m.check(name) {
		return &PropertyMapper[T]{m: m, c: &columnConfig{}}
	}
	return &PropertyMapper[T]{m: m, c: m.cfg.columnOf(name)}
}

// PropertyOf returns the overrides of the selected property.
func (m *Mapper[T]) PropertyOf(sel func(*T) any) *PropertyMapper[T] {
	p, ok := m.selected(sel)
	if !ok {
		return &PropertyMapper[T]{m: m, c: &columnConfig{}}
	}
	return &PropertyMapper[T]{m: m, c: m.cfg.columnOf(p)}
}

func (m *Mapper[T]) check(property string) bool {
	if _, ok := m.typ.FieldByName(property); !ok {
		m.fail(unknownProperty(m.typ, property))
		return false
	}
	return true
}

func (m *Mapper[T]) selected(sel func(*T) any) (string, bool) {
	path, err := PathOf(sel)
	if err != nil {
		m.fail(err)
		return "", false
	}
	if len(path) != 1 {
		m.fail(fmt.Errorf("schema: %s: selector must address a direct property, got %v", m.typ, path))
		return "", false
	}
	return path[0], true
}

func (m *Mapper[T]) fail(err error) {
	if m.err == nil {
		m.err = err
	}
}

// PropertyMapper records overrides of a single property.
type PropertyMapper[T any] struct {
	m *Mapper[T]
	c *columnConfig
}

// HasColumnName sets the column name.
func (p *PropertyMapper[T]) HasColumnName(name string) *PropertyMapper[T] {
	p.c.name = name
	return p
}

// HasMaxLength sets the maximum length of the column.
func (p *PropertyMapper[T]) HasMaxLength(n int) *PropertyMapper[T] {
	p.c.maxLength = n
	return p
}

// IsNullable marks the column nullable.
func (p *PropertyMapper[T]) IsNullable() *PropertyMapper[T] {
	p.c.nullable = true
	return p
}

// Ignore excludes the property from the mapping.
func (p *PropertyMapper[T]) Ignore() *Mapper[T] {
	p.c.ignore = true
	return p.m
}

package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Entity marks a struct stored in its own table and identified by an
// integer key. The Id (or ID) field of an Entity is its key by convention.
type Entity interface {
	EntityID() int64
}

// Tabler marks a struct as mapped and names its table.
type Tabler interface {
	TableName() string
}

// Schemer sets the schema of a mapped table.
type Schemer interface {
	TableSchema() string
}

// Model is an embeddable Entity with an automatic int64 key.
type Model struct {
	Id int64
}

// EntityID implements Entity.
func (m *Model) EntityID() int64 { return m.Id }

// ReferentialAction is the action taken on a foreign key when the
// referenced row is deleted or updated.
type ReferentialAction string

// Referential actions.
const (
	NoAction   ReferentialAction = "NO ACTION"
	Restrict   ReferentialAction = "RESTRICT"
	Cascade    ReferentialAction = "CASCADE"
	SetNull    ReferentialAction = "SET NULL"
	SetDefault ReferentialAction = "SET DEFAULT"
)

// ParseReferentialAction parses an action name. Case, underscores and
// spaces are ignored, so "set_null", "SetNull" and "SET NULL" are equal.
func ParseReferentialAction(s string) (ReferentialAction, error) {
	norm := strings.NewReplacer("_", "", " ", "", "-", "").Replace(strings.ToLower(s))
	switch norm {
	case "":
		return "", nil
	case "noaction":
		return NoAction, nil
	case "restrict":
		return Restrict, nil
	case "cascade":
		return Cascade, nil
	case "setnull":
		return SetNull, nil
	case "setdefault":
		return SetDefault, nil
	}
	return "", fmt.Errorf("schema: unknown referential action %q", s)
}

// TypeMapping describes how a struct type maps to a table.
// It is immutable once returned by a Registry.
type TypeMapping struct {
	Type        reflect.Type
	TableName   string
	TableSchema string
	// Key is the identity column, nil if the type has none.
	Key *ColumnMapping
	// Columns are in field declaration order, embedded structs flattened.
	Columns     []*ColumnMapping
	Collections []*CollectionMapping

	columns     map[string]*ColumnMapping
	collections map[string]*CollectionMapping
}

// Column returns the column mapped from the named property.
func (m *TypeMapping) Column(property string) (*ColumnMapping, bool) {
	c, ok := m.columns[property]
	return c, ok
}

// Collection returns the collection mapped from the named property.
func (m *TypeMapping) Collection(property string) (*CollectionMapping, bool) {
	c, ok := m.collections[property]
	return c, ok
}

// New allocates a zero value of the mapped type and returns a pointer to it.
func (m *TypeMapping) New() reflect.Value {
	return reflect.New(m.Type)
}

// KeyValue returns the key of the given struct or pointer to struct.
// It reports false if the type has no key or v is a nil pointer.
func (m *TypeMapping) KeyValue(v reflect.Value) (any, bool) {
	if m.Key == nil {
		return nil, false
	}
	v, ok := indirect(v)
	if !ok || v.Type() != m.Type {
		return nil, false
	}
	return v.FieldByIndex(m.Key.Index).Interface(), true
}

// String returns the Go type name.
func (m *TypeMapping) String() string {
	return m.Type.String()
}

func (m *TypeMapping) index() {
	m.columns = make(map[string]*ColumnMapping, len(m.Columns))
	for _, c := range m.Columns {
		m.columns[c.PropertyName] = c
	}
	m.collections = make(map[string]*CollectionMapping, len(m.Collections))
	for _, c := range m.Collections {
		m.collections[c.PropertyName] = c
	}
}

// ColumnMapping describes a struct field stored in a column.
type ColumnMapping struct {
	PropertyName string
	ColumnName   string
	Type         reflect.Type
	// Index is the reflect field index path from the owning struct.
	Index       []int
	Nullable    bool
	MaxLength   int
	IndexName   string
	IsKey       bool
	IsAutomatic bool
	// Readonly columns are never written by INSERT or UPDATE.
	Readonly bool
	// Reference is the mapping of the referenced type when the column is a
	// foreign key. The field is then a pointer to that type.
	Reference *TypeMapping
	OnDelete  ReferentialAction
	OnUpdate  ReferentialAction
}

// ValueType returns the type of the column's database value: the key
// type of the referenced mapping for a foreign key, the field type otherwise.
func (c *ColumnMapping) ValueType() reflect.Type {
	if c.Reference != nil && c.Reference.Key != nil {
		return c.Reference.Key.Type
	}
	return c.Type
}

// Value returns the database value of the column for the struct v: the
// referenced key for a foreign key (nil when the reference is nil), nil
// for a nil pointer, the field value otherwise.
func (c *ColumnMapping) Value(v reflect.Value) any {
	f := v.FieldByIndex(c.Index)
	if c.Reference != nil {
		key, _ := c.Reference.KeyValue(f)
		return key
	}
	if f.Kind() == reflect.Pointer && f.IsNil() {
		return nil
	}
	return f.Interface()
}

// CollectionMapping describes a one-to-many property: a slice of the
// element entity, loaded through the element's foreign key to the owner.
type CollectionMapping struct {
	PropertyName string
	Index        []int
	// Elem is the mapping of the element type.
	Elem *TypeMapping
	// ElemPointer reports whether the slice holds pointers.
	ElemPointer bool
	// ForeignKey is the element column referencing the owner.
	ForeignKey *ColumnMapping
	// Joins are element reference properties loaded with the collection.
	Joins []string
}

func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

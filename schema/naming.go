package schema

import "github.com/go-openapi/inflect"

// Naming derives table and column names from Go names when no explicit
// name is configured.
type Naming interface {
	TableName(typeName string) string
	ColumnName(propertyName string) string
	// ForeignKeyName names the column holding the key of a reference.
	ForeignKeyName(propertyName string) string
}

// IdentityNaming keeps Go names: table FakeClass, column Text, foreign
// key Child_id.
type IdentityNaming struct{}

// TableName implements Naming.
func (IdentityNaming) TableName(typeName string) string { return typeName }

// ColumnName implements Naming.
func (IdentityNaming) ColumnName(propertyName string) string { return propertyName }

// ForeignKeyName implements Naming.
func (IdentityNaming) ForeignKeyName(propertyName string) string { return propertyName + "_id" }

// SnakeNaming converts names to snake_case: table fake_class (or
// fake_classes when Plural is set), column text, foreign key child_id.
type SnakeNaming struct {
	Plural bool
}

// TableName implements Naming.
func (n SnakeNaming) TableName(typeName string) string {
	name := inflect.Underscore(typeName)
	if n.Plural {
		name = inflect.Pluralize(name)
	}
	return name
}

// ColumnName implements Naming.
func (SnakeNaming) ColumnName(propertyName string) string { return inflect.Underscore(propertyName) }

// ForeignKeyName implements Naming.
func (SnakeNaming) ForeignKeyName(propertyName string) string {
	return inflect.Underscore(propertyName) + "_id"
}

// NamingOf returns the naming strategy registered under name: "" or
// "identity", "snake" and "snake_plural".
func NamingOf(name string) (Naming, bool) {
	switch name {
	case "", "identity":
		return IdentityNaming{}, true
	case "snake":
		return SnakeNaming{}, true
	case "snake_plural":
		return SnakeNaming{Plural: true}, true
	}
	return nil, false
}

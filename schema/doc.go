// Package schema maps Go structs to database tables.
//
// A Registry builds a TypeMapping per struct type on first use, by
// reflection, and caches it for the life of the registry:
//
//	type FakeClass struct {
//	    Id    int
//	    Text  string `elm:",maxlen=255"`
//	    Value *int
//	    Child *FakeChildClass `elm:",ondelete=cascade"`
//	}
//
//	func (c *FakeClass) EntityID() int64 { return int64(c.Id) }
//
//	reg := schema.NewRegistry()
//	m, err := schema.MappingOf[FakeClass](reg)
//	// m.TableName == "FakeClass", m.Key.ColumnName == "Id"
//
// # Rules
//
//   - A struct is mapped if it implements Entity or Tabler, has a field
//     tagged key, or was configured explicitly.
//   - The key is the field tagged key, else the Id (or ID) field of an
//     Entity. Integer keys are automatic and read-only.
//   - A pointer to a mapped struct is a reference, stored in a foreign key
//     column named Property_id.
//   - A pointer to anything else, or a sql.Null* style scanner, is nullable.
//   - A slice of (pointers to) Entity values is a collection. It is loaded
//     on demand through the element's reference to the owner.
//   - Embedded structs are flattened.
//
// # Tags
//
//	`elm:"-"`                          skip the field
//	`elm:"name,key,nullable,maxlen=N"` column name and options
//	`elm:",index=ix_name"`             index name
//	`elm:",ondelete=cascade,onupdate=restrict"`
//	`elm:",fk=Owner,join=Author"`      collection foreign key and joins
//
// # Overrides
//
// Configure and YAML descriptors override tags and conventions. They must
// run before the mapping is first used:
//
//	schema.Configure(reg, func(m *schema.Mapper[Widget]) {
//	    m.ToTable("widgets").HasKey("Code")
//	    m.Property("Label").HasColumnName("label")
//	})
package schema

package query

import (
	"github.com/folkelib/elm/schema"
)

// CollectionSelect selects the elements of a collection belonging to the
// given owner keys, with the collection's join references loaded.
func CollectionSelect(reg *schema.Registry, c *schema.CollectionMapping, ownerKeys ...any) *Select {
	s := NewSelect(reg, c.Elem.Type).All()
	for _, j := range c.Joins {
		s.AllOf(F(j))
	}
	s.From()
	for _, j := range c.Joins {
		s.LeftJoin(F(j))
	}
	fk := F(c.ForeignKey.PropertyName)
	if len(ownerKeys) == 1 {
		s.Where(fk.Eq(Val(ownerKeys[0])))
	} else {
		s.Where(fk.In(ownerKeys...))
	}
	if c.Elem.Key != nil {
		s.OrderBy(F(c.Elem.Key.PropertyName))
	}
	return s
}

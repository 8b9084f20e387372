package query_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/folkelib/elm/dialect"
	"github.com/folkelib/elm/query"
	"github.com/folkelib/elm/schema"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

type builder interface {
	Build(dialect.Syntax) (*query.Compiled, error)
}

func TestGoldenStatements(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, reg *schema.Registry) builder
	}{
		{"join", func(t *testing.T, reg *schema.Registry) builder {
			return query.NewSelect(reg, fakeClass).
				Values(query.F("Id"), query.F("Child.Value"), query.F("Child.Parent.Name")).
				From().
				LeftJoin(query.F("Child")).
				Join(query.F("Child.Parent")).
				Where(query.F("Text").StartsWith("ab")).
				OrderByDesc(query.F("Id")).
				Limit(5)
		}},
		{"collection", func(t *testing.T, reg *schema.Registry) builder {
			m, err := schema.MappingOf[Blog](reg)
			require.NoError(t, err)
			posts, _ := m.Collection("Posts")
			return query.CollectionSelect(reg, posts, 1, 2)
		}},
		{"insert", func(t *testing.T, reg *schema.Registry) builder {
			return query.NewInsert(reg, reflect.TypeFor[Post]()).Entity(&Post{Title: "hello", Blog: &Blog{Id: 3}})
		}},
		{"update", func(t *testing.T, reg *schema.Registry) builder {
			return query.NewUpdate(reg, fakeClass).
				Set("Value", query.F("Value").Add(1)).
				Set("Text", "x").
				Where(query.F("Id").Eq(3))
		}},
		{"delete", func(t *testing.T, reg *schema.Registry) builder {
			return query.NewDelete(reg, fakeClass).
				Where(query.F("Text").Contains("q")).
				Or(query.F("Child.Id").Eq(2))
		}},
		{"offset", func(t *testing.T, reg *schema.Registry) builder {
			return query.NewSelect(reg, fakeClass).Values(query.F("Id")).From().OrderBy(query.F("Id")).Offset(10)
		}},
	}
	syntaxes := []dialect.Syntax{dialect.MySQLSyntax, dialect.PostgresSyntax, dialect.SQLiteSyntax}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		for _, syn := range syntaxes {
			name := tt.name + "_" + syn.Name()
			t.Run(name, func(t *testing.T) {
				c, err := tt.build(t, schema.NewRegistry()).Build(syn)
				require.NoError(t, err)
				args, err := c.Args()
				require.NoError(t, err)
				g.Assert(t, name, []byte(fmt.Sprintf("%s\n%v\n", c.SQL, args)))
			})
		}
	}
}

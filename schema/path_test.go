package schema_test

import (
	"testing"

	"github.com/folkelib/elm/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathOf(t *testing.T) {
	tests := []struct {
		name string
		sel  func(*FakeClass) any
		want []string
	}{
		{"Field", func(x *FakeClass) any { return &x.Text }, []string{"Text"}},
		{"FirstField", func(x *FakeClass) any { return &x.Id }, []string{"Id"}},
		{"Reference", func(x *FakeClass) any { return x.Child }, []string{"Child"}},
		{"ReferenceAddress", func(x *FakeClass) any { return &x.Child }, []string{"Child"}},
		{"Hop", func(x *FakeClass) any { return &x.Child.Value }, []string{"Child", "Value"}},
		{"HopKey", func(x *FakeClass) any { return &x.Child.Id }, []string{"Child", "Id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := schema.PathOf(tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathOfSelfReference(t *testing.T) {
	got, err := schema.PathOf(func(n *Node) any { return &n.Parent.Parent.Label })
	require.NoError(t, err)
	assert.Equal(t, []string{"Parent", "Parent", "Label"}, got)
}

func TestPathOfEmbedded(t *testing.T) {
	got, err := schema.PathOf(func(w *Widget) any { return &w.Id })
	require.NoError(t, err)
	assert.Equal(t, []string{"Id"}, got)
}

func TestPathOfErrors(t *testing.T) {
	_, err := schema.PathOf(func(*FakeClass) any { return nil })
	assert.Error(t, err)
	_, err = schema.PathOf(func(x *FakeClass) any { return x.Value })
	assert.Error(t, err)
	other := 0
	_, err = schema.PathOf(func(*FakeClass) any { return &other })
	assert.Error(t, err)
}

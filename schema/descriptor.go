package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"
)

// Descriptor is a YAML document of mapping overrides, keyed by Go type name:
//
//	types:
//	  Widget:
//	    table: widgets
//	    schema: inventory
//	    key: Code
//	    columns:
//	      Label: {name: label, maxLength: 64}
type Descriptor struct {
	Types map[string]TypeDescriptor `yaml:"types"`
}

// TypeDescriptor holds the overrides of one type.
type TypeDescriptor struct {
	Table   string                      `yaml:"table"`
	Schema  string                      `yaml:"schema"`
	Key     string                      `yaml:"key"`
	Columns map[string]ColumnDescriptor `yaml:"columns"`
}

// ColumnDescriptor holds the overrides of one property.
type ColumnDescriptor struct {
	Name      string `yaml:"name"`
	MaxLength int    `yaml:"maxLength"`
	Nullable  bool   `yaml:"nullable"`
	Ignore    bool   `yaml:"ignore"`
}

// ParseDescriptor decodes a YAML descriptor. Unknown keys are rejected.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	d := &Descriptor{}
	if err := dec.Decode(d); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("schema: parse descriptor: %w", err)
	}
	return d, nil
}

// LoadDescriptor reads and parses a YAML descriptor file.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read descriptor: %w", err)
	}
	return ParseDescriptor(data)
}

// Apply records the overrides of every type named in the descriptor.
// Samples are values (or pointers) of the types to configure; a type
// named in the descriptor without a matching sample is an error.
func (d *Descriptor) Apply(r *Registry, samples ...any) error {
	byName := make(map[string]reflect.Type, len(samples))
	for _, s := range samples {
		t := structType(reflect.TypeOf(s))
		if t == nil || t.Kind() != reflect.Struct {
			return &UnmappedTypeError{Type: t}
		}
		byName[t.Name()] = t
	}
	for _, name := range slices.Sorted(maps.Keys(d.Types)) {
		t, ok := byName[name]
		if !ok {
			return fmt.Errorf("schema: descriptor names unknown type %q", name)
		}
		cfg, err := d.Types[name].config(t)
		if err != nil {
			return err
		}
		if err := r.configure(t, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (td TypeDescriptor) config(t reflect.Type) (*typeConfig, error) {
	cfg := &typeConfig{table: td.Table, schema: td.Schema, key: td.Key}
	if td.Key != "" {
		if _, ok := t.FieldByName(td.Key); !ok {
			return nil, unknownProperty(t, td.Key)
		}
	}
	for p, cd := range td.Columns {
		if _, ok := t.FieldByName(p); !ok {
			return nil, unknownProperty(t, p)
		}
		*cfg.columnOf(p) = columnConfig{
			name:      cd.Name,
			maxLength: cd.MaxLength,
			nullable:  cd.Nullable,
			ignore:    cd.Ignore,
		}
	}
	return cfg, nil
}

package schema

import (
	"context"
	"reflect"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry builds and caches type mappings. It is safe for concurrent
// use: a mapping is built once, under the registry lock, and published
// together with every mapping it references.
type Registry struct {
	naming Naming
	tagKey string

	mu       sync.RWMutex
	mappings map[reflect.Type]*TypeMapping
	configs  map[reflect.Type]*typeConfig
}

// Option configures a Registry.
type Option func(*Registry)

// WithNaming sets the naming strategy. Default is IdentityNaming.
func WithNaming(n Naming) Option {
	return func(r *Registry) {
		r.naming = n
	}
}

// WithTagKey sets the struct tag key read by the registry. Default is "elm".
func WithTagKey(key string) Option {
	return func(r *Registry) {
		r.tagKey = key
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		naming:   IdentityNaming{},
		tagKey:   "elm",
		mappings: make(map[reflect.Type]*TypeMapping),
		configs:  make(map[reflect.Type]*typeConfig),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Naming returns the naming strategy of the registry.
func (r *Registry) Naming() Naming { return r.naming }

// Mapping returns the mapping of t, building it on first use. Pointer
// types are dereferenced.
func (r *Registry) Mapping(t reflect.Type) (*TypeMapping, error) {
	t = structType(t)
	r.mu.RLock()
	m, ok := r.mappings[t]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.mappings[t]; ok {
		return m, nil
	}
	b := &builder{r: r, pending: make(map[reflect.Type]*TypeMapping)}
	m, err := b.build(t)
	if err != nil {
		return nil, err
	}
	for pt, pm := range b.pending {
		r.mappings[pt] = pm
	}
	return m, nil
}

// MappingOf returns the mapping of T.
func MappingOf[T any](r *Registry) (*TypeMapping, error) {
	return r.Mapping(reflect.TypeFor[T]())
}

// IsMapped reports whether t is, or can be, mapped to a table.
func (r *Registry) IsMapped(t reflect.Type) bool {
	t = structType(t)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.mappings[t]; ok {
		return true
	}
	return r.mappable(t)
}

// AddMapping registers a mapping built by hand. It fails if the type
// already has a mapping.
func (r *Registry) AddMapping(m *TypeMapping) error {
	if m == nil || m.Type == nil || m.Type.Kind() != reflect.Struct {
		var t reflect.Type
		if m != nil {
			t = m.Type
		}
		return &UnmappedTypeError{Type: t}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mappings[m.Type]; ok {
		return &MappingAlreadyBuiltError{Type: m.Type}
	}
	m.index()
	r.mappings[m.Type] = m
	return nil
}

// ColumnName returns the column name of a property of t.
func (r *Registry) ColumnName(t reflect.Type, property string) (string, error) {
	m, err := r.Mapping(t)
	if err != nil {
		return "", err
	}
	c, ok := m.Column(property)
	if !ok {
		return "", unknownProperty(m.Type, property)
	}
	return c.ColumnName, nil
}

// Key returns the key column of t, nil if the type has no key.
func (r *Registry) Key(t reflect.Type) (*ColumnMapping, error) {
	m, err := r.Mapping(t)
	if err != nil {
		return nil, err
	}
	return m.Key, nil
}

// Warm builds the mappings of the given types concurrently and returns the
// first error.
func (r *Registry) Warm(ctx context.Context, types ...reflect.Type) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range types {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := r.Mapping(t)
			return err
		})
	}
	return g.Wait()
}

// built reports whether t is published. It must be called with r.mu held.
func (r *Registry) built(t reflect.Type) bool {
	_, ok := r.mappings[t]
	return ok
}

// mappable reports whether t can be mapped. It must be called with r.mu held.
func (r *Registry) mappable(t reflect.Type) bool {
	if t == nil || t.Kind() != reflect.Struct {
		return false
	}
	if _, ok := r.configs[t]; ok {
		return true
	}
	pt := reflect.PointerTo(t)
	if pt.Implements(entityType) || pt.Implements(tablerType) {
		return true
	}
	return r.hasKeyTag(t)
}

func (r *Registry) hasKeyTag(t reflect.Type) bool {
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, err := parseTag(f.Tag.Get(r.tagKey)); err == nil && tag.key {
			return true
		}
	}
	return false
}

var (
	entityType  = reflect.TypeFor[Entity]()
	tablerType  = reflect.TypeFor[Tabler]()
	schemerType = reflect.TypeFor[Schemer]()
)

func structType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

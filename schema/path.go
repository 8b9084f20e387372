package schema

import (
	"errors"
	"fmt"
	"reflect"
)

// maxProbeDepth bounds how many reference hops a selector may follow.
const maxProbeDepth = 4

// PathOf returns the property path addressed by a selector:
//
//	schema.PathOf(func(x *FakeClass) any { return &x.Child.Value }) // [Child Value]
//	schema.PathOf(func(x *FakeClass) any { return x.Child })        // [Child]
//
// The selector runs once against a probe value whose references are
// allocated, and the returned pointer is matched against the probe's
// field addresses. It must return the address of a field, or a reference
// field itself.
func PathOf[T any](sel func(*T) any) ([]string, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: cannot select a path on %s", t)
	}
	probe := reflect.New(t)
	allocate(probe.Elem(), 0)
	got := reflect.ValueOf(sel(probe.Interface().(*T)))
	if !got.IsValid() || got.Kind() != reflect.Pointer || got.IsNil() {
		return nil, errors.New("schema: selector must return a field address or a reference")
	}
	path, ok := search(probe.Elem(), got, 0)
	if !ok {
		return nil, fmt.Errorf("schema: selector result does not address a field of %s", t)
	}
	return path, nil
}

// allocate fills nil pointers to structs so that selectors can walk them.
func allocate(v reflect.Value, depth int) {
	if depth > maxProbeDepth {
		return
	}
	for i := range v.NumField() {
		f := v.Field(i)
		if !v.Type().Field(i).IsExported() {
			continue
		}
		switch {
		case f.Kind() == reflect.Pointer && f.Type().Elem().Kind() == reflect.Struct:
			f.Set(reflect.New(f.Type().Elem()))
			allocate(f.Elem(), depth+1)
		case f.Kind() == reflect.Struct && v.Type().Field(i).Anonymous:
			allocate(f, depth)
		}
	}
}

func search(v reflect.Value, target reflect.Value, depth int) ([]string, bool) {
	addr := target.Pointer()
	for i := range v.NumField() {
		sf := v.Type().Field(i)
		if !sf.IsExported() {
			continue
		}
		f := v.Field(i)
		if target.Type().Elem() == f.Type() && f.Addr().Pointer() == addr {
			return []string{sf.Name}, true
		}
		switch {
		case f.Kind() == reflect.Pointer && !f.IsNil() && f.Type().Elem().Kind() == reflect.Struct:
			if f.Type() == target.Type() && f.Pointer() == addr {
				return []string{sf.Name}, true
			}
			if depth < maxProbeDepth {
				if rest, ok := search(f.Elem(), target, depth+1); ok {
					return append([]string{sf.Name}, rest...), true
				}
			}
		case f.Kind() == reflect.Struct && sf.Anonymous:
			if rest, ok := search(f, target, depth); ok {
				return rest, true
			}
		}
	}
	return nil, false
}

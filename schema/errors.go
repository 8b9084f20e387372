package schema

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors matched by the typed errors below.
var (
	// ErrUnmappedType is returned for types that cannot be mapped to a table.
	ErrUnmappedType = errors.New("schema: type is not mapped")

	// ErrMappingAlreadyBuilt is returned when a mapping is changed after
	// it was built and published.
	ErrMappingAlreadyBuilt = errors.New("schema: mapping already built")

	// ErrUnknownProperty is returned for property names the type does not have.
	ErrUnknownProperty = errors.New("schema: unknown property")
)

// UnmappedTypeError is returned when a mapping is requested for a type
// that is not a mappable struct.
type UnmappedTypeError struct {
	Type reflect.Type
}

// Error returns the error string.
func (e *UnmappedTypeError) Error() string {
	return fmt.Sprintf("schema: type %s is not mapped", typeName(e.Type))
}

// Is reports whether the target is ErrUnmappedType.
func (e *UnmappedTypeError) Is(err error) bool {
	return err == ErrUnmappedType
}

// IsUnmappedType returns true if the error is an UnmappedTypeError.
func IsUnmappedType(err error) bool {
	var e *UnmappedTypeError
	return errors.As(err, &e)
}

// MappingAlreadyBuiltError is returned when a type is configured or added
// after its mapping was built.
type MappingAlreadyBuiltError struct {
	Type reflect.Type
}

// Error returns the error string.
func (e *MappingAlreadyBuiltError) Error() string {
	return fmt.Sprintf("schema: mapping of %s already built", typeName(e.Type))
}

// Is reports whether the target is ErrMappingAlreadyBuilt.
func (e *MappingAlreadyBuiltError) Is(err error) bool {
	return err == ErrMappingAlreadyBuilt
}

// IsMappingAlreadyBuilt returns true if the error is a MappingAlreadyBuiltError.
func IsMappingAlreadyBuilt(err error) bool {
	var e *MappingAlreadyBuiltError
	return errors.As(err, &e)
}

func unknownProperty(t reflect.Type, property string) error {
	return fmt.Errorf("%w %q on %s", ErrUnknownProperty, property, typeName(t))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

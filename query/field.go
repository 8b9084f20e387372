package query

import (
	"cmp"
	"time"
)

// StringField is a typed handle on a string property path.
//
// Usage:
//
//	var Text = query.StringField("Text")
//	sel.Where(Text.Contains("foo"))
type StringField string

// Name returns the property path.
func (f StringField) Name() string { return string(f) }

// Term returns the untyped term of the field.
func (f StringField) Term() Term { return F(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField) EQ(v string) Term { return f.Term().Eq(Val(v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField) NEQ(v string) Term { return f.Term().Neq(Val(v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField) In(vs ...string) Term { return f.Term().In(anys(vs)...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f StringField) NotIn(vs ...string) Term { return Not(f.In(vs...)) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f StringField) GT(v string) Term { return f.Term().Gt(Val(v)) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f StringField) GTE(v string) Term { return f.Term().Gte(Val(v)) }

// LT returns a predicate that checks if the field is less than the given value.
func (f StringField) LT(v string) Term { return f.Term().Lt(Val(v)) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f StringField) LTE(v string) Term { return f.Term().Lte(Val(v)) }

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) Term { return f.Term().Contains(Val(v)) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) Term { return f.Term().StartsWith(Val(v)) }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) Term { return f.Term().EndsWith(Val(v)) }

// Like returns a predicate that matches the field against a LIKE pattern.
func (f StringField) Like(pattern string) Term { return f.Term().Like(Val(pattern)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField) IsNull() Term { return f.Term().IsNull() }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField) NotNull() Term { return f.Term().NotNull() }

// OrderedField is a typed handle on a property path of an ordered type.
type OrderedField[V cmp.Ordered] string

// Numeric field handles.
type (
	IntField     = OrderedField[int]
	Int64Field   = OrderedField[int64]
	Float64Field = OrderedField[float64]
)

// Name returns the property path.
func (f OrderedField[V]) Name() string { return string(f) }

// Term returns the untyped term of the field.
func (f OrderedField[V]) Term() Term { return F(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f OrderedField[V]) EQ(v V) Term { return f.Term().Eq(Val(v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f OrderedField[V]) NEQ(v V) Term { return f.Term().Neq(Val(v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f OrderedField[V]) In(vs ...V) Term { return f.Term().In(anys(vs)...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f OrderedField[V]) NotIn(vs ...V) Term { return Not(f.In(vs...)) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f OrderedField[V]) GT(v V) Term { return f.Term().Gt(Val(v)) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f OrderedField[V]) GTE(v V) Term { return f.Term().Gte(Val(v)) }

// LT returns a predicate that checks if the field is less than the given value.
func (f OrderedField[V]) LT(v V) Term { return f.Term().Lt(Val(v)) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f OrderedField[V]) LTE(v V) Term { return f.Term().Lte(Val(v)) }

// Between returns a predicate that checks if the field is within [lo, hi].
func (f OrderedField[V]) Between(lo, hi V) Term { return f.Term().Between(Val(lo), Val(hi)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f OrderedField[V]) IsNull() Term { return f.Term().IsNull() }

// NotNull returns a predicate that checks if the field is not NULL.
func (f OrderedField[V]) NotNull() Term { return f.Term().NotNull() }

// BoolField is a typed handle on a bool property path.
type BoolField string

// Name returns the property path.
func (f BoolField) Name() string { return string(f) }

// Term returns the untyped term of the field.
func (f BoolField) Term() Term { return F(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f BoolField) EQ(v bool) Term { return f.Term().Eq(Val(v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f BoolField) NEQ(v bool) Term { return f.Term().Neq(Val(v)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f BoolField) IsNull() Term { return f.Term().IsNull() }

// NotNull returns a predicate that checks if the field is not NULL.
func (f BoolField) NotNull() Term { return f.Term().NotNull() }

// TimeField is a typed handle on a time.Time property path.
type TimeField string

// Name returns the property path.
func (f TimeField) Name() string { return string(f) }

// Term returns the untyped term of the field.
func (f TimeField) Term() Term { return F(string(f)) }

// EQ returns a predicate that checks if the field equals the given value.
func (f TimeField) EQ(v time.Time) Term { return f.Term().Eq(Val(v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f TimeField) NEQ(v time.Time) Term { return f.Term().Neq(Val(v)) }

// GT returns a predicate that checks if the field is after the given time.
func (f TimeField) GT(v time.Time) Term { return f.Term().Gt(Val(v)) }

// GTE returns a predicate that checks if the field is not before the given time.
func (f TimeField) GTE(v time.Time) Term { return f.Term().Gte(Val(v)) }

// LT returns a predicate that checks if the field is before the given time.
func (f TimeField) LT(v time.Time) Term { return f.Term().Lt(Val(v)) }

// LTE returns a predicate that checks if the field is not after the given time.
func (f TimeField) LTE(v time.Time) Term { return f.Term().Lte(Val(v)) }

// Between returns a predicate that checks if the field is within [lo, hi].
func (f TimeField) Between(lo, hi time.Time) Term { return f.Term().Between(Val(lo), Val(hi)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f TimeField) IsNull() Term { return f.Term().IsNull() }

// NotNull returns a predicate that checks if the field is not NULL.
func (f TimeField) NotNull() Term { return f.Term().NotNull() }

// RefField is a typed handle on a reference property to T. Entities are
// compared by key.
type RefField[T any] string

// Name returns the property path.
func (f RefField[T]) Name() string { return string(f) }

// Term returns the untyped term of the field.
func (f RefField[T]) Term() Term { return F(string(f)) }

// F returns a property of the referenced entity; the reference must be
// joined unless the property is its key.
func (f RefField[T]) F(property string) Term { return F(string(f) + "." + property) }

// EQ returns a predicate that checks if the field references v. A nil v
// checks for NULL.
func (f RefField[T]) EQ(v *T) Term { return f.Term().Eq(Val(v)) }

// NEQ returns a predicate that checks if the field does not reference v.
func (f RefField[T]) NEQ(v *T) Term { return f.Term().Neq(Val(v)) }

// In returns a predicate that checks if the field references one of vs.
func (f RefField[T]) In(vs ...*T) Term { return f.Term().In(anys(vs)...) }

// IsNull returns a predicate that checks if the field is NULL.
func (f RefField[T]) IsNull() Term { return f.Term().IsNull() }

// NotNull returns a predicate that checks if the field is not NULL.
func (f RefField[T]) NotNull() Term { return f.Term().NotNull() }

func anys[V any](vs []V) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

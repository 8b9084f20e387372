package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/folkelib/elm/schema"
)

// Expr is a node of a query expression. The node set is closed: the
// compiler handles exactly the types declared in this package.
type Expr interface {
	expr()
}

type (
	// Member is a property path rooted at the query entity, or at a
	// captured variable when Root is set. An empty path is the entity itself.
	// Outer roots the path at the entity of the enclosing query.
	Member struct {
		Root  *Var
		Outer bool
		Path  []string
	}

	// Var is a captured variable, identified by its address. A variable
	// joined into the query stands for that table; otherwise its current
	// value is bound as a parameter.
	Var struct {
		Ptr any
	}

	// Value is a literal, always bound as a parameter.
	Value struct {
		V any
	}

	// Param is a runtime argument slot of a prepared query.
	Param struct {
		Index int
	}

	// Binary applies an infix operator.
	Binary struct {
		Op   Op
		L, R Expr
	}

	// Unary applies a prefix operator.
	Unary struct {
		Op Op
		X  Expr
	}

	// Call applies a function or predicate method.
	Call struct {
		Func Func
		Args []Expr
	}

	// Group is a parenthesized predicate.
	Group struct {
		X Expr
	}

	// Subquery is a nested SELECT sharing the alias namespace of its parent.
	Subquery struct {
		S *Select
	}

	// Star is the * of COUNT(*).
	Star struct{}

	// invalid carries a construction error to the compiler.
	invalid struct {
		err error
	}
)

func (Member) expr()   {}
func (Var) expr()      {}
func (Value) expr()    {}
func (Param) expr()    {}
func (Binary) expr()   {}
func (Unary) expr()    {}
func (Call) expr()     {}
func (Group) expr()    {}
func (Subquery) expr() {}
func (Star) expr()     {}
func (invalid) expr()  {}

// Op is an operator of Binary and Unary nodes.
type Op int

// Operators.
const (
	OpEq Op = iota + 1
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNot
	OpNeg
)

var opText = map[Op]string{
	OpEq:  "=",
	OpNeq: "<>",
	OpLt:  "<",
	OpLte: "<=",
	OpGt:  ">",
	OpGte: ">=",
	OpAnd: "AND",
	OpOr:  "OR",
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpNot: "NOT",
	OpNeg: "-",
}

// String returns the SQL spelling of the operator.
func (o Op) String() string {
	if s, ok := opText[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Func names a function of Call nodes.
type Func string

// Functions understood by the compiler.
const (
	FuncEquals     Func = "Equals"
	FuncLike       Func = "Like"
	FuncContains   Func = "Contains"
	FuncStartsWith Func = "StartsWith"
	FuncEndsWith   Func = "EndsWith"
	FuncBetween    Func = "Between"
	FuncIn         Func = "In"
	FuncIsNull     Func = "IsNull"
	FuncNotNull    Func = "NotNull"
	FuncExists     Func = "Exists"
	FuncConcat     Func = "Concat"
	FuncMax        Func = "MAX"
	FuncMin        Func = "MIN"
	FuncSum        Func = "SUM"
	FuncAvg        Func = "AVG"
	FuncCount      Func = "COUNT"
)

// Term wraps an expression with the fluent operator methods.
type Term struct {
	Expr
}

// F returns the dotted property path of the query entity:
//
//	query.F("Text")        // t.Text
//	query.F("Child.Value") // t1.Value, t1 being the Child table
func F(path string) Term {
	if path == "" {
		return Term{Member{}}
	}
	return Term{Member{Path: strings.Split(path, ".")}}
}

// Outer returns a property path of the enclosing query's entity, for
// correlated subqueries. Its tables must already be part of that query.
//
//	sub := s.Sub(childType).Values(query.F("Id")).From().
//		Where(query.F("Id").Eq(query.Outer("Child.Id")))
func Outer(path string) Term {
	if path == "" {
		return Term{Member{Outer: true}}
	}
	return Term{Member{Outer: true, Path: strings.Split(path, ".")}}
}

// P returns the property path selected on T:
//
//	query.P(func(x *FakeClass) any { return &x.Child.Value })
func P[T any](sel func(*T) any) Term {
	path, err := schema.PathOf(sel)
	if err != nil {
		return Term{invalid{err}}
	}
	return Term{Member{Path: path}}
}

// Root returns the query entity itself.
func Root() Term { return Term{Member{}} }

// V captures the variable ptr points to.
func V(ptr any) Term {
	if v := reflect.ValueOf(ptr); !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return Term{invalid{fmt.Errorf("query: V expects a non-nil pointer, got %T", ptr)}}
	}
	return Term{Var{Ptr: ptr}}
}

// Val returns a literal bound as a parameter.
func Val(v any) Term { return Term{Value{V: v}} }

// Arg returns the runtime argument slot i of a prepared query.
func Arg(i int) Term {
	if i < 0 {
		return Term{invalid{fmt.Errorf("query: negative argument index %d", i)}}
	}
	return Term{Param{Index: i}}
}

// Fn calls a function by name. Only the Func constants are supported;
// other names fail to compile.
func Fn(name Func, args ...any) Term {
	return Term{Call{Func: name, Args: exprs(args)}}
}

// And combines predicates with AND.
func And(preds ...Expr) Term { return fold(OpAnd, preds) }

// Or combines predicates with OR.
func Or(preds ...Expr) Term { return fold(OpOr, preds) }

// Not negates a predicate.
func Not(pred Expr) Term { return Term{Unary{Op: OpNot, X: pred}} }

// Max returns MAX(x).
func Max(x Expr) Term { return Term{Call{Func: FuncMax, Args: []Expr{x}}} }

// Min returns MIN(x).
func Min(x Expr) Term { return Term{Call{Func: FuncMin, Args: []Expr{x}}} }

// Sum returns SUM(x).
func Sum(x Expr) Term { return Term{Call{Func: FuncSum, Args: []Expr{x}}} }

// Avg returns AVG(x).
func Avg(x Expr) Term { return Term{Call{Func: FuncAvg, Args: []Expr{x}}} }

// Count returns COUNT(x).
func Count(x Expr) Term { return Term{Call{Func: FuncCount, Args: []Expr{x}}} }

// CountAll returns COUNT(*).
func CountAll() Term { return Count(Star{}) }

// Exists returns EXISTS (sub).
func Exists(sub *Select) Term { return Term{Call{Func: FuncExists, Args: []Expr{Subquery{S: sub}}}} }

// Concat concatenates string expressions with the dialect's operator.
func Concat(parts ...any) Term { return Term{Call{Func: FuncConcat, Args: exprs(parts)}} }

// Sub wraps a subquery used as a scalar value.
func Sub(s *Select) Term { return Term{Subquery{S: s}} }

// F extends a member path: query.V(&child).F("Value").
func (t Term) F(path string) Term {
	parts := strings.Split(path, ".")
	switch e := t.Expr.(type) {
	case Var:
		return Term{Member{Root: &e, Path: parts}}
	case Member:
		return Term{Member{Root: e.Root, Outer: e.Outer, Path: append(append([]string(nil), e.Path...), parts...)}}
	}
	return Term{invalid{fmt.Errorf("query: %T has no properties", t.Expr)}}
}

// Eq returns t = v. Comparing to nil yields IS NULL.
func (t Term) Eq(v any) Term { return t.binary(OpEq, v) }

// Equals is Eq spelled as a method call.
func (t Term) Equals(v any) Term { return t.call(FuncEquals, v) }

// Neq returns t <> v. Comparing to nil yields IS NOT NULL.
func (t Term) Neq(v any) Term { return t.binary(OpNeq, v) }

// Lt returns t < v.
func (t Term) Lt(v any) Term { return t.binary(OpLt, v) }

// Lte returns t <= v.
func (t Term) Lte(v any) Term { return t.binary(OpLte, v) }

// Gt returns t > v.
func (t Term) Gt(v any) Term { return t.binary(OpGt, v) }

// Gte returns t >= v.
func (t Term) Gte(v any) Term { return t.binary(OpGte, v) }

// And returns t AND v.
func (t Term) And(v Expr) Term { return t.binary(OpAnd, v) }

// Or returns t OR v.
func (t Term) Or(v Expr) Term { return t.binary(OpOr, v) }

// Not returns NOT t.
func (t Term) Not() Term { return Not(t) }

// Add returns t + v.
func (t Term) Add(v any) Term { return t.binary(OpAdd, v) }

// Sub returns t - v.
func (t Term) Sub(v any) Term { return t.binary(OpSub, v) }

// Mul returns t * v.
func (t Term) Mul(v any) Term { return t.binary(OpMul, v) }

// Div returns t / v.
func (t Term) Div(v any) Term { return t.binary(OpDiv, v) }

// Mod returns t % v.
func (t Term) Mod(v any) Term { return t.binary(OpMod, v) }

// Neg returns -t.
func (t Term) Neg() Term { return Term{Unary{Op: OpNeg, X: t}} }

// Like returns t LIKE pattern, the pattern used as given.
func (t Term) Like(pattern any) Term { return t.call(FuncLike, pattern) }

// Contains returns t LIKE %v%.
func (t Term) Contains(v any) Term { return t.call(FuncContains, v) }

// StartsWith returns t LIKE v%.
func (t Term) StartsWith(v any) Term { return t.call(FuncStartsWith, v) }

// EndsWith returns t LIKE %v.
func (t Term) EndsWith(v any) Term { return t.call(FuncEndsWith, v) }

// Between returns t BETWEEN lo AND hi.
func (t Term) Between(lo, hi any) Term { return t.call(FuncBetween, lo, hi) }

// In returns t IN (vs...). A single slice argument is expanded.
func (t Term) In(vs ...any) Term {
	if len(vs) == 1 {
		if rv := reflect.ValueOf(vs[0]); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			vs = make([]any, rv.Len())
			for i := range vs {
				vs[i] = rv.Index(i).Interface()
			}
		}
	}
	return t.call(FuncIn, vs...)
}

// InSub returns t IN (sub).
func (t Term) InSub(sub *Select) Term { return t.call(FuncIn, Subquery{S: sub}) }

// IsNull returns t IS NULL.
func (t Term) IsNull() Term { return t.call(FuncIsNull) }

// NotNull returns t IS NOT NULL.
func (t Term) NotNull() Term { return t.call(FuncNotNull) }

// Concat returns t concatenated with parts.
func (t Term) Concat(parts ...any) Term {
	return Term{Call{Func: FuncConcat, Args: append([]Expr{t}, exprs(parts)...)}}
}

func (t Term) binary(op Op, v any) Term {
	return Term{Binary{Op: op, L: t, R: toExpr(v)}}
}

func (t Term) call(fn Func, args ...any) Term {
	return Term{Call{Func: fn, Args: append([]Expr{t}, exprs(args)...)}}
}

func fold(op Op, preds []Expr) Term {
	if len(preds) == 0 {
		return Term{invalid{fmt.Errorf("query: %s of no predicates", op)}}
	}
	e := preds[0]
	for _, p := range preds[1:] {
		e = Binary{Op: op, L: e, R: p}
	}
	return Term{e}
}

// toExpr lifts a Go value into an expression. Expressions are kept as is.
func toExpr(v any) Expr {
	switch v := v.(type) {
	case Expr:
		if v == nil {
			return Value{}
		}
		return v
	case *Select:
		return Subquery{S: v}
	default:
		return Value{V: v}
	}
}

func exprs(vs []any) []Expr {
	out := make([]Expr, len(vs))
	for i, v := range vs {
		out[i] = toExpr(v)
	}
	return out
}

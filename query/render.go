package query

import (
	"strings"

	"github.com/folkelib/elm/dialect"
	"github.com/folkelib/elm/schema"
)

// Operator precedence, lowest first. A child is parenthesized when its
// precedence is lower than its position requires.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCmp
	precAdd
	precMul
	precUnary
	precPrimary
)

var opPrec = map[Op]int{
	OpOr:  precOr,
	OpAnd: precAnd,
	OpEq:  precCmp,
	OpNeq: precCmp,
	OpLt:  precCmp,
	OpLte: precCmp,
	OpGt:  precCmp,
	OpGte: precCmp,
	OpAdd: precAdd,
	OpSub: precAdd,
	OpMul: precMul,
	OpDiv: precMul,
	OpMod: precMul,
}

// node is a bound expression: names resolved to table columns, values
// turned into parameters.
type node interface {
	prec() int
	render(w *writer)
}

type (
	colNode struct {
		ref *TableRef
		col *schema.ColumnMapping
	}
	paramNode struct {
		p Parameter
	}
	litNode struct {
		sql  string
		prio int
	}
	binNode struct {
		op   Op
		l, r node
	}
	notNode    struct{ x node }
	negNode    struct{ x node }
	groupNode  struct{ x node }
	likeNode   struct{ x, pattern node }
	concatNode struct{ parts []node }
	nullNode   struct {
		x   node
		not bool
	}
	betweenNode struct{ x, lo, hi node }
	inNode      struct {
		x    node
		list []node
		sub  *Select
	}
	funcNode struct {
		name Func
		args []node
	}
	starNode   struct{}
	subNode    struct{ s *Select }
	existsNode struct{ s *Select }
)

func (colNode) prec() int     { return precPrimary }
func (paramNode) prec() int   { return precPrimary }
func (n litNode) prec() int   { return n.prio }
func (n binNode) prec() int   { return opPrec[n.op] }
func (notNode) prec() int     { return precNot }
func (negNode) prec() int     { return precUnary }
func (groupNode) prec() int   { return precPrimary }
func (likeNode) prec() int    { return precCmp }
func (concatNode) prec() int  { return precAdd }
func (nullNode) prec() int    { return precCmp }
func (betweenNode) prec() int { return precCmp }
func (inNode) prec() int      { return precCmp }
func (funcNode) prec() int    { return precPrimary }
func (starNode) prec() int    { return precPrimary }
func (subNode) prec() int     { return precPrimary }
func (existsNode) prec() int  { return precPrimary }

func (n colNode) render(w *writer) { w.column(n.ref, n.col) }

func (n paramNode) render(w *writer) { w.param(n.p) }

func (n litNode) render(w *writer) { w.WriteString(n.sql) }

func (n binNode) render(w *writer) {
	p := opPrec[n.op]
	left, right := p, p+1
	switch n.op {
	case OpAnd, OpOr:
		right = p
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		left = p + 1
	}
	w.node(n.l, left)
	w.WriteString(" " + n.op.String() + " ")
	w.node(n.r, right)
}

func (n notNode) render(w *writer) {
	w.WriteString("NOT ")
	w.node(n.x, precNot)
}

func (n negNode) render(w *writer) {
	w.WriteString("-")
	w.node(n.x, precPrimary)
}

func (n groupNode) render(w *writer) {
	w.WriteString("(")
	w.node(n.x, 0)
	w.WriteString(")")
}

func (n likeNode) render(w *writer) {
	w.node(n.x, precAdd)
	w.WriteString(" LIKE ")
	w.node(n.pattern, precAdd)
}

func (n concatNode) render(w *writer) {
	parts := make([]string, len(n.parts))
	for i, p := range n.parts {
		parts[i] = w.fragment(func() { w.node(p, precMul) })
	}
	w.WriteString(dialect.Concat(w.syn, parts...))
}

func (n nullNode) render(w *writer) {
	w.node(n.x, precAdd)
	if n.not {
		w.WriteString(" IS NOT NULL")
	} else {
		w.WriteString(" IS NULL")
	}
}

func (n betweenNode) render(w *writer) {
	w.node(n.x, precAdd)
	w.WriteString(" BETWEEN ")
	w.node(n.lo, precAdd)
	w.WriteString(" AND ")
	w.node(n.hi, precAdd)
}

func (n inNode) render(w *writer) {
	w.node(n.x, precAdd)
	w.WriteString(" IN (")
	if n.sub != nil {
		n.sub.render(w)
	} else {
		for i, v := range n.list {
			if i > 0 {
				w.WriteString(", ")
			}
			w.node(v, 0)
		}
	}
	w.WriteString(")")
}

func (n funcNode) render(w *writer) {
	w.WriteString(string(n.name) + "(")
	for i, a := range n.args {
		if i > 0 {
			w.WriteString(", ")
		}
		w.node(a, 0)
	}
	w.WriteString(")")
}

func (starNode) render(w *writer) { w.WriteString("*") }

func (n subNode) render(w *writer) {
	w.WriteString("(")
	n.s.render(w)
	w.WriteString(")")
}

func (n existsNode) render(w *writer) {
	w.WriteString("EXISTS (")
	n.s.render(w)
	w.WriteString(")")
}

// Parameter is a bound value of a compiled statement.
type Parameter struct {
	// Value is the value fixed at compile time, unused for slots.
	Value any
	// Slot is the runtime argument index, -1 for fixed values.
	Slot int

	wrap func(string) string
}

// writer accumulates SQL text and the parameters in emission order.
type writer struct {
	buf     *strings.Builder
	syn     dialect.Syntax
	params  []Parameter
	qualify bool
	err     error
}

func newWriter(syn dialect.Syntax, qualify bool) *writer {
	return &writer{buf: &strings.Builder{}, syn: syn, qualify: qualify}
}

func (w *writer) WriteString(s string) {
	w.buf.WriteString(s)
}

func (w *writer) String() string { return w.buf.String() }

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) ident(name string) {
	w.buf.WriteString(w.syn.QuoteIdentifier(name))
}

func (w *writer) table(m *schema.TypeMapping) {
	if m.TableSchema != "" {
		w.ident(m.TableSchema)
		w.buf.WriteByte('.')
	}
	w.ident(m.TableName)
}

func (w *writer) column(ref *TableRef, col *schema.ColumnMapping) {
	if w.qualify {
		w.ident(ref.Alias)
		w.buf.WriteByte('.')
	}
	w.ident(col.ColumnName)
}

func (w *writer) param(p Parameter) {
	w.buf.WriteString(w.syn.Placeholder(len(w.params)))
	w.params = append(w.params, p)
}

func (w *writer) node(n node, prio int) {
	if n.prec() < prio {
		w.buf.WriteByte('(')
		n.render(w)
		w.buf.WriteByte(')')
		return
	}
	n.render(w)
}

// fragment renders into a separate buffer, sharing the parameter list.
func (w *writer) fragment(f func()) string {
	saved := w.buf
	w.buf = &strings.Builder{}
	f()
	s := w.buf.String()
	w.buf = saved
	return s
}

package query

import (
	"strconv"
	"strings"

	"github.com/folkelib/elm/schema"
)

// TableRef is a table occurrence in a statement.
type TableRef struct {
	// Alias is unique within the statement and its subqueries.
	Alias   string
	Mapping *schema.TypeMapping
	// Parent is the table holding the foreign key that leads here, and
	// Via that foreign key. Both are nil for roots and unlinked variables.
	Parent *TableRef
	Via    *schema.ColumnMapping
	// Var is the captured variable pointer the table stands for, if any.
	Var any
	// Path is the reference hop path from Parent's root ("Child.Parent").
	Path string

	key    refKey
	root   bool
	joined bool
	owner  *Select
}

// IsRoot reports whether the table is the FROM table of its statement.
func (r *TableRef) IsRoot() bool { return r.root }

// Joined reports whether the table is in the FROM or JOIN clauses.
func (r *TableRef) Joined() bool { return r.joined }

func (r *TableRef) String() string {
	if r.Path != "" {
		return r.Mapping.String() + " (" + r.Path + ")"
	}
	return r.Mapping.String()
}

// refKey identifies a table occurrence. Query-entity paths are keyed by the
// statement scope; variables by their address, across scopes.
type refKey struct {
	scope int
	v     any
	path  string
}

// Aliases allocates table aliases in first-seen order: t, t1, t2 and so on.
// A statement and its subqueries share one allocator. Aliases is not safe
// for concurrent use; builders are single-goroutine.
type Aliases struct {
	refs   map[refKey]*TableRef
	order  []*TableRef
	scopes int
}

// NewAliases returns an empty allocator.
func NewAliases() *Aliases {
	return &Aliases{refs: make(map[refKey]*TableRef)}
}

// Refs returns the registered tables in allocation order.
func (a *Aliases) Refs() []*TableRef {
	return append([]*TableRef(nil), a.order...)
}

// Len returns the number of allocated aliases.
func (a *Aliases) Len() int { return len(a.order) }

func (a *Aliases) scope() int {
	a.scopes++
	return a.scopes
}

func (a *Aliases) lookup(k refKey) (*TableRef, bool) {
	r, ok := a.refs[k]
	return r, ok
}

// register returns the table for k, allocating the next alias the first
// time k is seen.
func (a *Aliases) register(k refKey, m *schema.TypeMapping, init func(*TableRef)) *TableRef {
	if r, ok := a.refs[k]; ok {
		return r
	}
	r := &TableRef{Alias: aliasName(len(a.order)), Mapping: m, Path: k.path, key: k}
	if k.path == "" {
		r.Var = k.v
	}
	if init != nil {
		init(r)
	}
	a.refs[k] = r
	a.order = append(a.order, r)
	return r
}

func aliasName(n int) string {
	if n == 0 {
		return "t"
	}
	return "t" + strconv.Itoa(n)
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}

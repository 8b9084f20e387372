package elm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/folkelib/elm/dialect"
	"github.com/folkelib/elm/query"
)

var uuidType = reflect.TypeFor[uuid.UUID]()

// Inserter is a typed INSERT into the table of T.
type Inserter[T any] struct {
	conn *Conn
	ins  *query.Insert
}

// Insert starts an INSERT into the table of T.
func Insert[T any](conn *Conn) *Inserter[T] {
	return &Inserter[T]{conn: conn, ins: query.NewInsert(conn.reg, reflect.TypeFor[T]())}
}

// Entity sets every writable column from v.
func (i *Inserter[T]) Entity(v *T) *Inserter[T] { i.ins.Entity(v); return i }

// Set sets the value of a property.
func (i *Inserter[T]) Set(property string, v any) *Inserter[T] { i.ins.Set(property, v); return i }

// Exec runs the statement and returns the number of inserted rows.
func (i *Inserter[T]) Exec(ctx context.Context) (int64, error) {
	return run[T](ctx, i.conn, "insert", i.ins)
}

// Updater is a typed UPDATE of the table of T.
type Updater[T any] struct {
	conn *Conn
	upd  *query.Update
}

// Update starts an UPDATE of the table of T.
func Update[T any](conn *Conn) *Updater[T] {
	return &Updater[T]{conn: conn, upd: query.NewUpdate(conn.reg, reflect.TypeFor[T]())}
}

// Set assigns a property. v may be an expression over the row.
func (u *Updater[T]) Set(property string, v any) *Updater[T] { u.upd.Set(property, v); return u }

// Where adds a predicate, combined with AND.
func (u *Updater[T]) Where(pred query.Expr) *Updater[T] { u.upd.Where(pred); return u }

// Or adds a predicate, combined with OR.
func (u *Updater[T]) Or(pred query.Expr) *Updater[T] { u.upd.Or(pred); return u }

// Exec runs the statement and returns the number of affected rows.
func (u *Updater[T]) Exec(ctx context.Context) (int64, error) {
	return run[T](ctx, u.conn, "update", u.upd)
}

// Deleter is a typed DELETE from the table of T.
type Deleter[T any] struct {
	conn *Conn
	del  *query.Delete
}

// Delete starts a DELETE from the table of T.
func Delete[T any](conn *Conn) *Deleter[T] {
	return &Deleter[T]{conn: conn, del: query.NewDelete(conn.reg, reflect.TypeFor[T]())}
}

// Where adds a predicate, combined with AND.
func (d *Deleter[T]) Where(pred query.Expr) *Deleter[T] { d.del.Where(pred); return d }

// Or adds a predicate, combined with OR.
func (d *Deleter[T]) Or(pred query.Expr) *Deleter[T] { d.del.Or(pred); return d }

// Exec runs the statement and returns the number of deleted rows.
func (d *Deleter[T]) Exec(ctx context.Context) (int64, error) {
	return run[T](ctx, d.conn, "delete", d.del)
}

// statement is implemented by query.Insert, query.Update and query.Delete.
type statement interface {
	Build(dialect.Syntax) (*query.Compiled, error)
}

// run compiles and executes a mutation.
func run[T any](ctx context.Context, conn *Conn, op string, b statement) (int64, error) {
	label := typeName(reflect.TypeFor[T]())
	c, err := b.Build(conn.syntax)
	if err != nil {
		return 0, NewMutationError(label, op, err)
	}
	args, err := c.Args()
	if err != nil {
		return 0, NewMutationError(label, op, err)
	}
	res, err := conn.exec(ctx, c.SQL, args)
	if err != nil {
		return 0, NewMutationError(label, op, constraint(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewMutationError(label, op, err)
	}
	return n, nil
}

// Create inserts v. A zero uuid.UUID key is generated before the insert,
// and an automatic key is read back into v.
func Create[T any](ctx context.Context, conn *Conn, v *T) error {
	label := typeName(reflect.TypeFor[T]())
	if v == nil {
		return NewMutationError(label, "create", fmt.Errorf("elm: nil %s", label))
	}
	m, err := conn.reg.Mapping(reflect.TypeFor[T]())
	if err != nil {
		return NewMutationError(label, "create", err)
	}
	rv := reflect.ValueOf(v).Elem()
	var key reflect.Value
	if m.Key != nil {
		key = rv.FieldByIndex(m.Key.Index)
		if key.Type() == uuidType && key.IsZero() {
			key.Set(reflect.ValueOf(uuid.New()))
		}
	}
	c, err := query.NewInsert(conn.reg, m.Type).Entity(v).Build(conn.syntax)
	if err != nil {
		return NewMutationError(label, "create", err)
	}
	args, err := c.Args()
	if err != nil {
		return NewMutationError(label, "create", err)
	}
	if c.Returning {
		id, err := scalar[any](ctx, conn, c.SQL, args)
		if err != nil {
			return NewMutationError(label, "create", constraint(err))
		}
		return setKey(key, id)
	}
	res, err := conn.exec(ctx, c.SQL, args)
	if err != nil {
		return NewMutationError(label, "create", constraint(err))
	}
	if m.Key == nil || !m.Key.IsAutomatic {
		return nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return NewMutationError(label, "create", err)
	}
	return setKey(key, id)
}

// setKey stores a generated integer key.
func setKey(key reflect.Value, id any) error {
	rv := reflect.ValueOf(id)
	switch {
	case !rv.IsValid():
		return fmt.Errorf("elm: no key returned")
	case rv.CanInt() && key.CanInt():
		key.SetInt(rv.Int())
	case rv.CanInt() && key.CanUint():
		key.SetUint(uint64(rv.Int()))
	case rv.CanUint() && key.CanUint():
		key.SetUint(rv.Uint())
	case rv.Type().ConvertibleTo(key.Type()):
		key.Set(rv.Convert(key.Type()))
	default:
		return fmt.Errorf("elm: cannot store key %T in %s", id, key.Type())
	}
	return nil
}

// Save updates the writable columns of v by key.
func Save[T any](ctx context.Context, conn *Conn, v *T) error {
	u := query.NewUpdate(conn.reg, reflect.TypeFor[T]()).Entity(v)
	_, err := run[T](ctx, conn, "save", u)
	return err
}

// Remove deletes v by key.
func Remove[T any](ctx context.Context, conn *Conn, v *T) error {
	d := query.NewDelete(conn.reg, reflect.TypeFor[T]()).Entity(v)
	_, err := run[T](ctx, conn, "remove", d)
	return err
}

// Get returns the entity with the given key, or a NotFoundError.
func Get[T any](ctx context.Context, conn *Conn, key any) (*T, error) {
	v, err := Select[T](conn).From().Where(query.Root().Eq(query.Val(key))).SingleOrDefault(ctx)
	if err == nil && v == nil {
		err = NewNotFoundErrorWithID(typeName(reflect.TypeFor[T]()), key)
	}
	return v, err
}

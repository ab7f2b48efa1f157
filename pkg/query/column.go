package query

import (
	sq "github.com/Masterminds/squirrel"
)

type op int

const (
	opEq op = iota
	opNe
	opLt
	opGt
	opLe
	opGe
	opIn
	opIsNull
	opIsNotNull
)

var opSQL = map[op]string{
	opEq: "=",
	opNe: "<>",
	opLt: "<",
	opGt: ">",
	opLe: "<=",
	opGe: ">=",
}

// Condition is one predicate on one column. Conditions passed to the same
// Where call, or to successive calls, are joined with AND.
type Condition struct {
	column string
	op     op
	value  any
	values []any
}

func (c Condition) sqlizer(d Dialect) sq.Sqlizer {
	col := d.Quote(c.column)
	switch c.op {
	case opIn:
		// squirrel renders an empty list as (1=0)
		return sq.Eq{col: c.values}
	case opIsNull:
		return sq.Eq{col: nil}
	case opIsNotNull:
		return sq.NotEq{col: nil}
	}
	// sq.Expr keeps slice-typed values ([]byte, json.RawMessage) as one
	// argument instead of expanding them into an IN list
	return sq.Expr(col+" "+opSQL[c.op]+" ?", c.value)
}

// OrderTerm is one ORDER BY entry.
type OrderTerm struct {
	column string
	desc   bool
}

func (o OrderTerm) sql(d Dialect) string {
	if o.desc {
		return d.Quote(o.column) + " DESC"
	}
	return d.Quote(o.column) + " ASC"
}

// Named is anything that names a column. Every Column[T] satisfies it.
type Named interface {
	Name() string
}

// Column is a typed reference to a table column. T is the column's
// non-nullable Go type, so comparisons only accept values of that type.
type Column[T any] struct {
	name string
}

// NewColumn returns a typed column reference.
func NewColumn[T any](name string) Column[T] {
	return Column[T]{name: name}
}

// Name returns the column name.
func (c Column[T]) Name() string { return c.name }

func (c Column[T]) cmp(o op, v T) Condition {
	return Condition{column: c.name, op: o, value: v}
}

// Eq is column = v.
func (c Column[T]) Eq(v T) Condition { return c.cmp(opEq, v) }

// Ne is column <> v.
func (c Column[T]) Ne(v T) Condition { return c.cmp(opNe, v) }

// Lt is column < v.
func (c Column[T]) Lt(v T) Condition { return c.cmp(opLt, v) }

// Gt is column > v.
func (c Column[T]) Gt(v T) Condition { return c.cmp(opGt, v) }

// Le is column <= v.
func (c Column[T]) Le(v T) Condition { return c.cmp(opLe, v) }

// Ge is column >= v.
func (c Column[T]) Ge(v T) Condition { return c.cmp(opGe, v) }

// In is column IN (vs...). An empty list matches no rows.
func (c Column[T]) In(vs ...T) Condition {
	values := make([]any, len(vs))
	for i, v := range vs {
		values[i] = v
	}
	return Condition{column: c.name, op: opIn, values: values}
}

// IsNull is column IS NULL.
func (c Column[T]) IsNull() Condition {
	return Condition{column: c.name, op: opIsNull}
}

// IsNotNull is column IS NOT NULL.
func (c Column[T]) IsNotNull() Condition {
	return Condition{column: c.name, op: opIsNotNull}
}

// Asc orders by the column ascending.
func (c Column[T]) Asc() OrderTerm { return OrderTerm{column: c.name} }

// Desc orders by the column descending.
func (c Column[T]) Desc() OrderTerm { return OrderTerm{column: c.name, desc: true} }

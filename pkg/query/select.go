package query

import (
	"fmt"
)

// Table is the query surface every generated table type implements.
type Table interface {
	Name() string
	Columns() []string
	PrimaryKey() []string
}

// SelectBuilder constructs a parameterized SELECT using a fluent API.
// Each method mutates the builder and returns it.
type SelectBuilder struct {
	dialect Dialect
	table   string
	columns []string
	where   []Condition
	order   []OrderTerm
	limit   *uint64
	offset  *uint64
}

// Select starts a builder over table. With no columns it selects *.
func Select(d Dialect, table string, columns ...string) *SelectBuilder {
	return &SelectBuilder{dialect: d, table: table, columns: columns}
}

// From starts a builder selecting every column of t in declaration order.
func From(d Dialect, t Table) *SelectBuilder {
	return Select(d, t.Name(), t.Columns()...)
}

// Columns narrows the projection to cols.
func (b *SelectBuilder) Columns(cols ...Named) *SelectBuilder {
	b.columns = b.columns[:0:0]
	for _, c := range cols {
		b.columns = append(b.columns, c.Name())
	}
	return b
}

// Where adds conditions, all joined with AND.
func (b *SelectBuilder) Where(conds ...Condition) *SelectBuilder {
	b.where = append(b.where, conds...)
	return b
}

// OrderBy appends ORDER BY terms.
func (b *SelectBuilder) OrderBy(terms ...OrderTerm) *SelectBuilder {
	b.order = append(b.order, terms...)
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n uint64) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip.
func (b *SelectBuilder) Offset(n uint64) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the SQL string and its arguments.
func (b *SelectBuilder) Build() (string, []any, error) {
	if !b.dialect.Valid() {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownDialect, b.dialect)
	}
	if b.table == "" {
		return "", nil, fmt.Errorf("query: select without table")
	}

	cols := []string{"*"}
	if len(b.columns) > 0 {
		cols = make([]string, len(b.columns))
		for i, c := range b.columns {
			cols[i] = b.dialect.Quote(c)
		}
	}

	q := b.dialect.builder().Select(cols...).From(b.dialect.Quote(b.table))
	for _, c := range b.where {
		q = q.Where(c.sqlizer(b.dialect))
	}
	for _, o := range b.order {
		q = q.OrderBy(o.sql(b.dialect))
	}
	if b.limit != nil {
		q = q.Limit(*b.limit)
	}
	if b.offset != nil {
		q = q.Offset(*b.offset)
	}
	return q.ToSql()
}

// Insert builds a single-row INSERT binding values to columns in order.
func Insert(d Dialect, table string, columns []string, values []any) (string, []any, error) {
	if !d.Valid() {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownDialect, d)
	}
	if len(columns) != len(values) {
		return "", nil, fmt.Errorf("query: insert into %s: %d columns but %d values", table, len(columns), len(values))
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}
	return d.builder().Insert(d.Quote(table)).Columns(quoted...).Values(values...).ToSql()
}

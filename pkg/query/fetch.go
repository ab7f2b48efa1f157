package query

import (
	"context"
	"database/sql"
	"fmt"
)

// Queryer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Record is implemented by generated record pointers. ScanTargets returns
// one pointer per column in table column order.
type Record interface {
	ScanTargets() []any
}

// All runs b and scans every row into a new R. The builder must select
// all of R's columns in order, which From and the generated Select do.
func All[R any, P interface {
	*R
	Record
}](ctx context.Context, q Queryer, b *SelectBuilder) ([]R, error) {
	stmt, args, err := b.Build()
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", b.table, err)
	}
	defer rows.Close()

	var out []R
	for rows.Next() {
		var r R
		if err := rows.Scan(P(&r).ScanTargets()...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", b.table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", b.table, err)
	}
	return out, nil
}

// One runs b with LIMIT 1 and scans the first row. It returns
// sql.ErrNoRows (wrapped) when nothing matches.
func One[R any, P interface {
	*R
	Record
}](ctx context.Context, q Queryer, b *SelectBuilder) (R, error) {
	var zero R
	rs, err := All[R, P](ctx, q, b.Limit(1))
	if err != nil {
		return zero, err
	}
	if len(rs) == 0 {
		return zero, fmt.Errorf("query %s: %w", b.table, sql.ErrNoRows)
	}
	return rs[0], nil
}

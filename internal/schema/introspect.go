package schema

import (
	"context"
	"fmt"
	"sort"

	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/errs"
)

// Introspect builds the full SchemaInfo through the Catalog.
//
// Catalog result order is never trusted: tables, columns, keys and indexes
// are sorted here so repeated runs against an unchanged schema yield the
// same SchemaInfo.
func Introspect(ctx context.Context, c Catalog, dialect database.Driver, name string) (*SchemaInfo, error) {
	exists, err := c.SchemaExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check schema %q: %w", name, err)
	}
	if !exists {
		return nil, errs.Newf(errs.ErrKindSchemaNotFound, "schema %q does not exist", name)
	}

	tables, err := c.ListTables(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list tables in %q: %w", name, err)
	}
	sort.Strings(tables)

	info := &SchemaInfo{Name: name, Dialect: dialect}
	for i, table := range tables {
		if i > 0 && tables[i-1] == table {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "schema %q lists table %q twice", name, table)
		}

		ti, err := c.InspectTable(ctx, name, table)
		if err != nil {
			return nil, fmt.Errorf("inspect table %s.%s: %w", name, table, err)
		}
		if err := normalizeTable(ti); err != nil {
			return nil, err
		}
		info.Tables = append(info.Tables, ti)
	}
	info.reindex()

	fkCols, err := c.ListForeignKeys(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys in %q: %w", name, err)
	}
	for _, fk := range GroupForeignKeys(fkCols) {
		t, ok := info.index[fk.Table]
		if !ok {
			// constraint on a table filtered out of ListTables (views, partitions)
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, fk)
	}

	return info, nil
}

// normalizeTable sorts a freshly inspected table and enforces column
// name uniqueness.
func normalizeTable(t *TableInfo) error {
	if len(t.Columns) == 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "table %q has no columns", t.Name)
	}

	sort.SliceStable(t.Columns, func(i, j int) bool {
		return t.Columns[i].Position < t.Columns[j].Position
	})

	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if seen[col.Name] {
			return errs.Newf(errs.ErrKindInvalidInput, "table %q has duplicate column %q", t.Name, col.Name)
		}
		seen[col.Name] = true
	}

	for _, pk := range t.PrimaryKey {
		if !seen[pk] {
			return errs.Newf(errs.ErrKindInvalidInput, "table %q: primary key column %q not found", t.Name, pk)
		}
	}

	sort.Slice(t.Indexes, func(i, j int) bool {
		return t.Indexes[i].Name < t.Indexes[j].Name
	})
	return nil
}

// GroupForeignKeys folds per-column rows into one ForeignKey per
// (table, constraint), ordered by table then constraint name, with columns
// in key order.
func GroupForeignKeys(rows []ForeignKeyColumn) []ForeignKey {
	sorted := append([]ForeignKeyColumn(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Position < b.Position
	})

	var out []ForeignKey
	for _, r := range sorted {
		n := len(out)
		if n == 0 || out[n-1].Table != r.Table || out[n-1].Name != r.Name {
			out = append(out, ForeignKey{Name: r.Name, Table: r.Table, RefTable: r.RefTable})
			n++
		}
		out[n-1].Columns = append(out[n-1].Columns, r.Column)
		out[n-1].RefColumns = append(out[n-1].RefColumns, r.RefColumn)
	}
	return out
}

// GroupIndexes folds per-column rows into one Index per name, ordered by
// name, with columns in index order.
func GroupIndexes(rows []IndexColumn) []Index {
	sorted := append([]IndexColumn(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Position < sorted[j].Position
	})

	var out []Index
	for _, r := range sorted {
		n := len(out)
		if n == 0 || out[n-1].Name != r.Name {
			out = append(out, Index{Name: r.Name, Unique: r.Unique})
			n++
		}
		out[n-1].Columns = append(out[n-1].Columns, r.Column)
	}
	return out
}

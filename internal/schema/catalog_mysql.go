package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/schemagen/internal/database"
)

// MySQLCatalog implements Catalog for MySQL using information_schema.
// On MySQL a schema is a database.
type MySQLCatalog struct {
	db database.DB
}

// NewMySQLCatalog creates a new MySQL catalog reader
func NewMySQLCatalog(db database.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

// SchemaExists checks information_schema.schemata
func (m *MySQLCatalog) SchemaExists(ctx context.Context, schema string) (bool, error) {
	const q = `
		SELECT COUNT(*)
		FROM information_schema.schemata
		WHERE schema_name = ?`

	var n int
	if err := m.db.QueryRow(ctx, q, schema).Scan(&n); err != nil {
		return false, fmt.Errorf("schema exists check: %w", err)
	}
	return n > 0, nil
}

// ListTables returns all user-defined table names in the given database
func (m *MySQLCatalog) ListTables(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := m.db.Query(ctx, q, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return database.ScanStrings(rows)
}

// InspectTable returns column details, primary key and indexes for a single table
func (m *MySQLCatalog) InspectTable(ctx context.Context, schema, table string) (*TableInfo, error) {
	info := &TableInfo{Name: table}

	const qComment = `
		SELECT table_comment
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?`
	if err := m.db.QueryRow(ctx, qComment, schema, table).Scan(&info.Comment); err != nil {
		return nil, fmt.Errorf("table comment: %w", err)
	}

	cols, err := m.columns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	info.Columns = cols

	const qPK = `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema    = ?
		  AND table_name      = ?
		  AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`
	rows, err := m.db.Query(ctx, qPK, schema, table)
	if err != nil {
		return nil, fmt.Errorf("primary key of %s.%s: %w", schema, table, err)
	}
	if info.PrimaryKey, err = database.ScanStrings(rows); err != nil {
		return nil, fmt.Errorf("scan primary key: %w", err)
	}

	idx, err := m.indexes(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	info.Indexes = GroupIndexes(idx)

	return info, nil
}

func (m *MySQLCatalog) columns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	const q = `
		SELECT
			c.column_name,
			c.data_type,
			c.column_type,
			c.is_nullable = 'YES' AS is_nullable,
			c.column_default,
			c.ordinal_position,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.extra,
			c.column_comment
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position`

	rows, err := m.db.Query(ctx, q, schema, table)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var extra string
		if err := rows.Scan(
			&col.Name,
			&col.DataType,
			&col.ColumnType,
			&col.Nullable,
			&col.Default,
			&col.Position,
			&col.MaxLength,
			&col.Precision,
			&col.Scale,
			&extra,
			&col.Comment,
		); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.DataType = strings.ToLower(col.DataType)
		col.ColumnType = strings.ToLower(col.ColumnType)
		col.Unsigned = strings.Contains(col.ColumnType, "unsigned")
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

func (m *MySQLCatalog) indexes(ctx context.Context, schema, table string) ([]IndexColumn, error) {
	const q = `
		SELECT index_name, non_unique = 0, column_name, seq_in_index
		FROM information_schema.statistics
		WHERE table_schema = ?
		  AND table_name   = ?
		  AND index_name  <> 'PRIMARY'
		  AND column_name IS NOT NULL
		ORDER BY index_name, seq_in_index`

	rows, err := m.db.Query(ctx, q, schema, table)
	if err != nil {
		return nil, fmt.Errorf("indexes of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var out []IndexColumn
	for rows.Next() {
		var ic IndexColumn
		if err := rows.Scan(&ic.Name, &ic.Unique, &ic.Column, &ic.Position); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		out = append(out, ic)
	}
	return out, rows.Err()
}

// ListForeignKeys returns all FK columns in the database
func (m *MySQLCatalog) ListForeignKeys(ctx context.Context, schema string) ([]ForeignKeyColumn, error) {
	const q = `
		SELECT
			kcu.constraint_name,
			kcu.table_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			kcu.ordinal_position
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
		  AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`

	rows, err := m.db.Query(ctx, q, schema)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []ForeignKeyColumn
	for rows.Next() {
		var fk ForeignKeyColumn
		if err := rows.Scan(&fk.Name, &fk.Table, &fk.Column, &fk.RefTable, &fk.RefColumn, &fk.Position); err != nil {
			return nil, fmt.Errorf("scan fk: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

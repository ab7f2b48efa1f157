package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/schemagen/internal/database"
)

// PgCatalog implements Catalog for PostgreSQL using information_schema,
// falling back to pg_catalog where information_schema has no answer
// (index definitions, key column order, comments).
type PgCatalog struct {
	db database.DB
}

// NewPgCatalog creates a new Postgres catalog reader
func NewPgCatalog(db database.DB) *PgCatalog {
	return &PgCatalog{db: db}
}

// SchemaExists checks information_schema.schemata
func (p *PgCatalog) SchemaExists(ctx context.Context, schema string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.schemata
			WHERE schema_name = $1
		)`

	var exists bool
	if err := p.db.QueryRow(ctx, q, schema).Scan(&exists); err != nil {
		return false, fmt.Errorf("schema exists check: %w", err)
	}
	return exists, nil
}

// ListTables returns all user-defined table names in the given schema
func (p *PgCatalog) ListTables(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := p.db.Query(ctx, q, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return database.ScanStrings(rows)
}

// InspectTable returns column details, primary key and indexes for a single table
func (p *PgCatalog) InspectTable(ctx context.Context, schema, table string) (*TableInfo, error) {
	info := &TableInfo{Name: table}

	const qComment = `
		SELECT COALESCE(obj_description(format('%I.%I', $1::text, $2::text)::regclass, 'pg_class'), '')`
	if err := p.db.QueryRow(ctx, qComment, schema, table).Scan(&info.Comment); err != nil {
		return nil, fmt.Errorf("table comment: %w", err)
	}

	cols, err := p.columns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	info.Columns = cols

	const qPK = `
		SELECT kcu.column_name::text
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema    = kcu.table_schema
		 AND tc.table_name      = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema    = $1
		  AND tc.table_name      = $2
		ORDER BY kcu.ordinal_position`
	rows, err := p.db.Query(ctx, qPK, schema, table)
	if err != nil {
		return nil, fmt.Errorf("primary key of %s.%s: %w", schema, table, err)
	}
	if info.PrimaryKey, err = database.ScanStrings(rows); err != nil {
		return nil, fmt.Errorf("scan primary key: %w", err)
	}

	idx, err := p.indexes(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	info.Indexes = GroupIndexes(idx)

	return info, nil
}

func (p *PgCatalog) columns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	const q = `
		SELECT
			c.column_name::text,
			c.data_type::text,
			c.udt_name::text,
			c.is_nullable = 'YES'                       AS is_nullable,
			c.column_default::text,
			c.ordinal_position::int,
			c.character_maximum_length::bigint,
			c.numeric_precision::bigint,
			c.numeric_scale::bigint,
			(c.is_identity = 'YES'
			  OR COALESCE(c.column_default, '') LIKE 'nextval(%') AS auto_increment,
			COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass,
			                         c.ordinal_position::int), '') AS comment
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := p.db.Query(ctx, q, schema, table)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
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
			&col.AutoIncrement,
			&col.Comment,
		); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

func (p *PgCatalog) indexes(ctx context.Context, schema, table string) ([]IndexColumn, error) {
	const q = `
		SELECT i.relname::text, ix.indisunique, a.attname::text, k.ord::int
		FROM pg_catalog.pg_index ix
		JOIN pg_catalog.pg_class t     ON t.oid = ix.indrelid
		JOIN pg_catalog.pg_class i     ON i.oid = ix.indexrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = $1
		  AND t.relname = $2
		  AND NOT ix.indisprimary`

	rows, err := p.db.Query(ctx, q, schema, table)
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

// ListForeignKeys returns all FK columns in the schema
func (p *PgCatalog) ListForeignKeys(ctx context.Context, schema string) ([]ForeignKeyColumn, error) {
	const q = `
		SELECT
			con.conname::text,
			cl.relname::text,
			a.attname::text,
			rcl.relname::text,
			ra.attname::text,
			k.ord::int
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class cl     ON cl.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n  ON n.oid = cl.relnamespace
		JOIN pg_catalog.pg_class rcl    ON rcl.oid = con.confrelid
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refattnum, ord)
		JOIN pg_catalog.pg_attribute a  ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		JOIN pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refattnum
		WHERE con.contype = 'f'
		  AND n.nspname = $1`

	rows, err := p.db.Query(ctx, q, schema)
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

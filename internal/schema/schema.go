package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/errs"
)

// Catalog is the per-engine view of the system catalog. Implementations
// only run queries; ordering, grouping and validation happen in Introspect.
type Catalog interface {
	// SchemaExists reports whether the named schema (a database on MySQL) exists.
	SchemaExists(ctx context.Context, schema string) (bool, error)

	// ListTables returns all base tables in the schema.
	ListTables(ctx context.Context, schema string) ([]string, error)

	// InspectTable returns columns, primary key, indexes and comment of one table.
	InspectTable(ctx context.Context, schema, table string) (*TableInfo, error)

	// ListForeignKeys returns one entry per referencing column across the schema.
	ListForeignKeys(ctx context.Context, schema string) ([]ForeignKeyColumn, error)
}

// ForeignKeyColumn is one row of a (possibly composite) foreign key.
type ForeignKeyColumn struct {
	Name      string
	Table     string
	Column    string
	RefTable  string
	RefColumn string
	Position  int
}

// IndexColumn is one row of a (possibly composite) index.
type IndexColumn struct {
	Name     string
	Unique   bool
	Column   string
	Position int
}

// NewCatalog returns the catalog reader matching db's dialect.
func NewCatalog(db database.DB) (Catalog, error) {
	switch db.Dialect() {
	case database.DriverMySQL:
		return NewMySQLCatalog(db), nil
	case database.DriverPostgres:
		return NewPgCatalog(db), nil
	default:
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("no catalog reader for driver %q", db.Dialect()))
	}
}

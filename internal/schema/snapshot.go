package schema

import (
	"context"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/schemagen/internal/errs"
)

// StaticCatalog serves a schema that was described earlier, typically a
// snapshot written by `schemagen inspect`. It lets generation run without
// a database.
type StaticCatalog struct {
	info *SchemaInfo
}

// NewStaticCatalog returns a Catalog over info.
func NewStaticCatalog(info *SchemaInfo) *StaticCatalog {
	return &StaticCatalog{info: info}
}

func (s *StaticCatalog) SchemaExists(ctx context.Context, schema string) (bool, error) {
	return schema == s.info.Name, nil
}

func (s *StaticCatalog) ListTables(ctx context.Context, schema string) ([]string, error) {
	return s.info.TableNames(), nil
}

// InspectTable returns a copy of the table without its foreign keys; those
// come back through ListForeignKeys like from a live catalog.
func (s *StaticCatalog) InspectTable(ctx context.Context, schema, table string) (*TableInfo, error) {
	t, ok := s.info.Table(table)
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not in snapshot", table)
	}
	cp := *t
	cp.Columns = append([]ColumnInfo(nil), t.Columns...)
	cp.PrimaryKey = append([]string(nil), t.PrimaryKey...)
	cp.Indexes = append([]Index(nil), t.Indexes...)
	cp.ForeignKeys = nil
	return &cp, nil
}

func (s *StaticCatalog) ListForeignKeys(ctx context.Context, schema string) ([]ForeignKeyColumn, error) {
	var rows []ForeignKeyColumn
	for _, t := range s.info.Tables {
		for _, fk := range t.ForeignKeys {
			if len(fk.Columns) != len(fk.RefColumns) {
				return nil, errs.Newf(errs.ErrKindInvalidInput, "foreign key %s on %s: %d columns reference %d", fk.Name, t.Name, len(fk.Columns), len(fk.RefColumns))
			}
			for i := range fk.Columns {
				rows = append(rows, ForeignKeyColumn{
					Name:      fk.Name,
					Table:     t.Name,
					Column:    fk.Columns[i],
					RefTable:  fk.RefTable,
					RefColumn: fk.RefColumns[i],
					Position:  i + 1,
				})
			}
		}
	}
	return rows, nil
}

// ReadSnapshot decodes a SchemaInfo written as YAML.
func ReadSnapshot(r io.Reader) (*SchemaInfo, error) {
	var info SchemaInfo
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&info); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "decode schema snapshot", err)
	}
	if info.Name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "schema snapshot has no name")
	}
	if !info.Dialect.Valid() {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "schema snapshot has unsupported dialect %q", info.Dialect)
	}
	info.reindex()
	if len(info.index) != len(info.Tables) {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "schema snapshot %q lists a table twice", info.Name)
	}
	return &info, nil
}

// WriteSnapshot encodes info as YAML.
func WriteSnapshot(w io.Writer, info *SchemaInfo) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(info); err != nil {
		return err
	}
	return enc.Close()
}

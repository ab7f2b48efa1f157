package schema

import "github.com/koustreak/schemagen/internal/database"

// ColumnInfo describes a single column in a table
type ColumnInfo struct {
	Name          string  `yaml:"name"`
	DataType      string  `yaml:"data_type"`             // mysql: int, varchar, decimal…; postgres: integer, numeric…
	ColumnType    string  `yaml:"column_type,omitempty"` // full type: "int(10) unsigned", "tinyint(1)", udt_name on postgres
	Nullable      bool    `yaml:"nullable"`
	Default       *string `yaml:"default,omitempty"` // nil if no default
	Position      int     `yaml:"position"`
	MaxLength     *int64  `yaml:"max_length,omitempty"` // nil for non-char types
	Precision     *int64  `yaml:"precision,omitempty"`
	Scale         *int64  `yaml:"scale,omitempty"`
	Unsigned      bool    `yaml:"unsigned,omitempty"`
	AutoIncrement bool    `yaml:"auto_increment,omitempty"`
	Comment       string  `yaml:"comment,omitempty"`
}

// ForeignKey describes a reference from Table to RefTable. Tables are
// referenced by name only; resolve them through SchemaInfo.Table.
type ForeignKey struct {
	Name       string   `yaml:"name"`
	Table      string   `yaml:"table"`
	Columns    []string `yaml:"columns"`
	RefTable   string   `yaml:"ref_table"`
	RefColumns []string `yaml:"ref_columns"`
}

// Index describes a secondary index. The primary key is not listed here.
type Index struct {
	Name    string   `yaml:"name"`
	Unique  bool     `yaml:"unique"`
	Columns []string `yaml:"columns"`
}

// TableInfo describes a table and its columns
type TableInfo struct {
	Name        string       `yaml:"name"`
	Comment     string       `yaml:"comment,omitempty"`
	Columns     []ColumnInfo `yaml:"columns"`
	PrimaryKey  []string     `yaml:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys,omitempty"`
	Indexes     []Index      `yaml:"indexes,omitempty"`
}

// Column returns the column with the given name.
func (t *TableInfo) Column(name string) (*ColumnInfo, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// IsPrimaryKey reports whether column is part of the primary key.
func (t *TableInfo) IsPrimaryKey(column string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == column {
			return true
		}
	}
	return false
}

// SchemaInfo is the full introspected database schema.
// Tables are sorted by name; index maps names back to them.
type SchemaInfo struct {
	Name    string          `yaml:"name"`
	Dialect database.Driver `yaml:"dialect"`
	Tables  []*TableInfo    `yaml:"tables"`

	index map[string]*TableInfo
}

// Table looks a table up by name.
func (s *SchemaInfo) Table(name string) (*TableInfo, bool) {
	if s.index == nil {
		s.reindex()
	}
	t, ok := s.index[name]
	return t, ok
}

// TableNames returns table names in schema order.
func (s *SchemaInfo) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

func (s *SchemaInfo) reindex() {
	s.index = make(map[string]*TableInfo, len(s.Tables))
	for _, t := range s.Tables {
		s.index[t.Name] = t
	}
}

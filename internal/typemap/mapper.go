package typemap

import (
	"sort"
	"strings"

	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/errs"
	"github.com/koustreak/schemagen/internal/schema"
)

// Mapper maps columns of one dialect to Go types.
type Mapper struct {
	dialect   database.Driver
	overrides map[string]Kind
}

// New creates a Mapper. overrides maps "table.column" to a kind name
// (see Kinds) and takes precedence over the native type.
func New(dialect database.Driver, overrides map[string]string) (*Mapper, error) {
	if !dialect.Valid() {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported dialect %q", dialect)
	}

	m := &Mapper{dialect: dialect, overrides: make(map[string]Kind, len(overrides))}
	for key, target := range overrides {
		if strings.Count(key, ".") != 1 || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "override key %q must be table.column", key)
		}
		k := Kind(strings.ToLower(strings.TrimSpace(target)))
		if _, ok := kinds[k]; !ok {
			return nil, errs.Newf(errs.ErrKindUnsupportedType,
				"override %s: unknown target type %q (known: %s)", key, target, strings.Join(Kinds(), ", "))
		}
		m.overrides[key] = k
	}
	return m, nil
}

// Dialect returns the dialect the mapper was built for.
func (m *Mapper) Dialect() database.Driver { return m.dialect }

// Map returns the Go type for col of table.
func (m *Mapper) Map(table string, col schema.ColumnInfo) (GoType, error) {
	if k, ok := m.overrides[table+"."+col.Name]; ok {
		return Resolve(k, col.Nullable)
	}

	var (
		k  Kind
		ok bool
	)
	switch m.dialect {
	case database.DriverMySQL:
		k, ok = mysqlKind(col)
	case database.DriverPostgres:
		k, ok = postgresKind(col)
	}
	if !ok {
		native := col.ColumnType
		if native == "" {
			native = col.DataType
		}
		return GoType{}, errs.Newf(errs.ErrKindUnsupportedType,
			"%s.%s: unsupported %s type %q", table, col.Name, m.dialect, native)
	}
	return Resolve(k, col.Nullable)
}

// MapTable maps every column of t in column order.
func (m *Mapper) MapTable(t *schema.TableInfo) ([]GoType, error) {
	out := make([]GoType, len(t.Columns))
	for i, col := range t.Columns {
		gt, err := m.Map(t.Name, col)
		if err != nil {
			return nil, err
		}
		out[i] = gt
	}
	return out, nil
}

var mysqlTypes = map[string]Kind{
	"bool":       KindBool,
	"boolean":    KindBool,
	"smallint":   KindInt16,
	"mediumint":  KindInt32,
	"int":        KindInt32,
	"integer":    KindInt32,
	"bigint":     KindInt64,
	"decimal":    KindDecimal,
	"numeric":    KindDecimal,
	"dec":        KindDecimal,
	"fixed":      KindDecimal,
	"float":      KindFloat32,
	"double":     KindFloat64,
	"real":       KindFloat64,
	"char":       KindString,
	"varchar":    KindString,
	"tinytext":   KindString,
	"text":       KindString,
	"mediumtext": KindString,
	"longtext":   KindString,
	"enum":       KindString,
	"set":        KindString,
	"json":       KindJSON,
	"binary":     KindBytes,
	"varbinary":  KindBytes,
	"tinyblob":   KindBytes,
	"blob":       KindBytes,
	"mediumblob": KindBytes,
	"longblob":   KindBytes,
	"bit":        KindBytes,
	"date":       KindDate,
	"time":       KindTime,
	"datetime":   KindDateTime,
	"timestamp":  KindTimestamp,
	"year":       KindInt16,
}

var unsignedOf = map[Kind]Kind{
	KindInt8:  KindUint8,
	KindInt16: KindUint16,
	KindInt32: KindUint32,
	KindInt64: KindUint64,
}

func mysqlKind(col schema.ColumnInfo) (Kind, bool) {
	dt := strings.ToLower(col.DataType)
	ct := strings.ToLower(col.ColumnType)

	var k Kind
	switch {
	case dt == "tinyint" && strings.HasPrefix(ct, "tinyint(1)") && !col.Unsigned:
		return KindBool, true
	case dt == "tinyint":
		k = KindInt8
	default:
		var ok bool
		if k, ok = mysqlTypes[dt]; !ok {
			return "", false
		}
	}

	if col.Unsigned || strings.Contains(ct, "unsigned") {
		if u, ok := unsignedOf[k]; ok && dt != "year" {
			k = u
		}
	}
	return k, true
}

var postgresTypes = map[string]Kind{
	"boolean":                     KindBool,
	"smallint":                    KindInt16,
	"integer":                     KindInt32,
	"bigint":                      KindInt64,
	"numeric":                     KindDecimal,
	"real":                        KindFloat32,
	"double precision":            KindFloat64,
	"character":                   KindString,
	"character varying":           KindString,
	"text":                        KindString,
	"xml":                         KindString,
	"bytea":                       KindBytes,
	"json":                        KindJSON,
	"jsonb":                       KindJSON,
	"uuid":                        KindUUID,
	"date":                        KindDate,
	"time without time zone":      KindTime,
	"timestamp without time zone": KindDateTime,
	"timestamp with time zone":    KindTimestamp,
}

func postgresKind(col schema.ColumnInfo) (Kind, bool) {
	k, ok := postgresTypes[strings.ToLower(col.DataType)]
	return k, ok
}

// SupportedTypes lists the native data types a dialect maps without an
// override, sorted.
func SupportedTypes(dialect database.Driver) []string {
	var src map[string]Kind
	switch dialect {
	case database.DriverMySQL:
		src = mysqlTypes
	case database.DriverPostgres:
		src = postgresTypes
	default:
		return nil
	}
	out := make([]string, 0, len(src)+1)
	for t := range src {
		out = append(out, t)
	}
	if dialect == database.DriverMySQL {
		out = append(out, "tinyint")
	}
	sort.Strings(out)
	return out
}

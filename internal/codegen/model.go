package codegen

import (
	"fmt"
	"go/token"
	"sort"
	"strings"

	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/errs"
	"github.com/koustreak/schemagen/internal/schema"
	"github.com/koustreak/schemagen/internal/typemap"
)

// SharedFile holds the schema-level declarations.
const SharedFile = "schemagen.go"

const importQuery = "github.com/koustreak/schemagen/pkg/query"

// Methods on generated types; column fields must not shadow them.
var (
	recordReserved  = map[string]bool{"ScanTargets": true, "Values": true}
	surfaceReserved = map[string]bool{"Name": true, "Columns": true, "PrimaryKey": true, "Select": true, "Insert": true}
	packageReserved = map[string]bool{"Schema": true, "Dialect": true, "Tables": true}
)

// Model is everything the templates need. It is plain data: building it
// is where naming and type decisions happen, rendering only formats it.
type Model struct {
	Package string
	Schema  string
	Dialect database.Driver
	Tables  []Table
}

// Table is one generated artifact.
type Table struct {
	Name        string // database table name
	Record      string // UserAccount
	Surface     string // UserAccountTable
	Var         string // UserAccountT
	File        string // user_account.go
	Comment     string
	Fields      []Field
	PrimaryKey  []string
	ForeignKeys []schema.ForeignKey
	Imports     []string
}

// Field is one column of a table.
type Field struct {
	Column      string
	Name        string // record field
	SurfaceName string // query surface field
	Type        string
	Base        string
	Comment     string
}

// DialectConst is the pkg/query constant for the model's dialect.
func (m *Model) DialectConst() string {
	if m.Dialect == database.DriverPostgres {
		return "query.Postgres"
	}
	return "query.MySQL"
}

// BuildModel maps every column of info and assigns Go names. Tables keep
// schema order. Name collisions are errors, never silently renamed.
func BuildModel(info *schema.SchemaInfo, mapper *typemap.Mapper, pkg string) (*Model, error) {
	if !token.IsIdentifier(pkg) || pkg == "_" {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "package name %q is not a valid Go identifier", pkg)
	}

	m := &Model{Package: pkg, Schema: info.Name, Dialect: info.Dialect}
	owners := make(map[string]string) // package-level identifier or file → table
	claim := func(ident, table string) error {
		if packageReserved[ident] {
			return errs.Newf(errs.ErrKindInvalidInput, "table %q: generated name %s is reserved", table, ident)
		}
		if prev, ok := owners[ident]; ok {
			return errs.Newf(errs.ErrKindInvalidInput, "tables %q and %q both generate %s", prev, table, ident)
		}
		owners[ident] = table
		return nil
	}

	for _, t := range info.Tables {
		gt, err := buildTable(t, mapper)
		if err != nil {
			return nil, err
		}
		for _, ident := range []string{gt.Record, gt.Surface, gt.Var, "file " + gt.File} {
			if err := claim(ident, t.Name); err != nil {
				return nil, err
			}
		}
		m.Tables = append(m.Tables, gt)
	}
	return m, nil
}

func buildTable(t *schema.TableInfo, mapper *typemap.Mapper) (Table, error) {
	record := GoName(t.Name)
	gt := Table{
		Name:        t.Name,
		Record:      record,
		Surface:     record + "Table",
		Var:         record + "T",
		File:        FileName(t.Name),
		Comment:     oneLine(t.Comment),
		PrimaryKey:  t.PrimaryKey,
		ForeignKeys: t.ForeignKeys,
	}

	mapped, err := mapper.MapTable(t)
	if err != nil {
		return Table{}, err
	}

	imports := map[string]bool{importQuery: true}
	seenField := make(map[string]string)
	seenSurface := make(map[string]string)
	for i, col := range t.Columns {
		if strings.ContainsAny(col.Name, "`\x00") {
			return Table{}, errs.Newf(errs.ErrKindInvalidInput,
				"table %q: column name %q cannot appear in a struct tag", t.Name, col.Name)
		}
		base := GoName(col.Name)
		f := Field{
			Column:      col.Name,
			Name:        escapeReserved(base, recordReserved),
			SurfaceName: escapeReserved(base, surfaceReserved),
			Type:        mapped[i].Name,
			Base:        mapped[i].Base,
			Comment:     oneLine(col.Comment),
		}
		if prev, ok := seenField[f.Name]; ok {
			return Table{}, errs.Newf(errs.ErrKindInvalidInput,
				"table %q: columns %q and %q both map to field %s", t.Name, prev, col.Name, f.Name)
		}
		if prev, ok := seenSurface[f.SurfaceName]; ok {
			return Table{}, errs.Newf(errs.ErrKindInvalidInput,
				"table %q: columns %q and %q both map to column %s", t.Name, prev, col.Name, f.SurfaceName)
		}
		seenField[f.Name] = col.Name
		seenSurface[f.SurfaceName] = col.Name

		if mapped[i].Import != "" {
			imports[mapped[i].Import] = true
		}
		gt.Fields = append(gt.Fields, f)
	}

	for imp := range imports {
		gt.Imports = append(gt.Imports, imp)
	}
	sort.Strings(gt.Imports)
	return gt, nil
}

// oneLine flattens a database comment so it can sit in a // comment.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// describeFK renders a foreign key for a doc comment.
func describeFK(fk schema.ForeignKey) string {
	return fmt.Sprintf("%s (%s) references %s (%s)",
		fk.Name, strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "))
}

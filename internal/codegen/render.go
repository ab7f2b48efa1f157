// Package codegen turns an introspected schema into Go source.
//
// BuildModel does the naming and type decisions; Render is a pure
// data-to-text transform over the resulting Model. Output depends only on
// the Model, so an unchanged schema always renders byte-identical files.
package codegen

import (
	"bytes"
	"embed"
	"go/format"
	"strconv"
	"text/template"

	"github.com/koustreak/schemagen/internal/emit"
	"github.com/koustreak/schemagen/internal/errs"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"quote": strconv.Quote,
	"fk":    describeFK,
}).ParseFS(templateFS, "templates/*.tmpl"))

// Header starts every generated file.
const Header = "// Code generated by schemagen. DO NOT EDIT."

type tableData struct {
	Package string
	Table   Table
}

// Render produces one artifact per table plus the shared file, ordered
// as Model.Tables with the shared file last.
func Render(m *Model) ([]emit.Artifact, error) {
	out := make([]emit.Artifact, 0, len(m.Tables)+1)
	for _, t := range m.Tables {
		src, err := RenderTable(m.Package, t)
		if err != nil {
			return nil, err
		}
		out = append(out, emit.Artifact{Path: t.File, Content: src})
	}

	shared, err := execute("shared.go.tmpl", m)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindEmitFailed, "render "+SharedFile, err)
	}
	return append(out, emit.Artifact{Path: SharedFile, Content: shared}), nil
}

// RenderTable renders the artifact of a single table.
func RenderTable(pkg string, t Table) ([]byte, error) {
	src, err := execute("table.go.tmpl", tableData{Package: pkg, Table: t})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindEmitFailed, "render table "+t.Name, err)
	}
	return src, nil
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes())
}

// Package typemap decides which Go type represents each database column.
//
// The mapping is total over the native types listed in this package and
// fails with errs.ErrKindUnsupportedType for anything else; it never falls
// back to a lossy default. Fixed-point numbers always become
// decimal.Decimal, and zone-aware timestamps (time.Time) are kept distinct
// from zone-naive ones (types.LocalDateTime).
package typemap

import (
	"fmt"
	"sort"
)

// Kind is the semantic target of a column, independent of nullability.
type Kind string

const (
	KindBool      Kind = "bool"
	KindInt8      Kind = "int8"
	KindInt16     Kind = "int16"
	KindInt32     Kind = "int32"
	KindInt64     Kind = "int64"
	KindUint8     Kind = "uint8"
	KindUint16    Kind = "uint16"
	KindUint32    Kind = "uint32"
	KindUint64    Kind = "uint64"
	KindFloat32   Kind = "float32"
	KindFloat64   Kind = "float64"
	KindDecimal   Kind = "decimal"
	KindString    Kind = "string"
	KindBytes     Kind = "bytes"
	KindJSON      Kind = "json"
	KindUUID      Kind = "uuid"
	KindDate      Kind = "date"      // zone-naive calendar date
	KindTime      Kind = "time"      // zone-naive wall clock time
	KindDateTime  Kind = "datetime"  // zone-naive date and time
	KindTimestamp Kind = "timestamp" // zone-aware instant
)

// Import paths referenced by generated code.
const (
	ImportTime    = "time"
	ImportJSON    = "encoding/json"
	ImportDecimal = "github.com/shopspring/decimal"
	ImportUUID    = "github.com/google/uuid"
	ImportTypes   = "github.com/koustreak/schemagen/pkg/types"
)

// GoType is the Go representation chosen for one column.
type GoType struct {
	Kind Kind

	// Name is the field type in the generated record, e.g. "*time.Time".
	Name string

	// Base is the non-nullable form used to parameterize query columns.
	Base string

	// Import is the package Name and Base need, empty for builtins.
	Import string

	Nullable bool
}

type kindSpec struct {
	base     string
	nullable string
	imp      string
}

var kinds = map[Kind]kindSpec{
	KindBool:      {"bool", "*bool", ""},
	KindInt8:      {"int8", "*int8", ""},
	KindInt16:     {"int16", "*int16", ""},
	KindInt32:     {"int32", "*int32", ""},
	KindInt64:     {"int64", "*int64", ""},
	KindUint8:     {"uint8", "*uint8", ""},
	KindUint16:    {"uint16", "*uint16", ""},
	KindUint32:    {"uint32", "*uint32", ""},
	KindUint64:    {"uint64", "*uint64", ""},
	KindFloat32:   {"float32", "*float32", ""},
	KindFloat64:   {"float64", "*float64", ""},
	KindDecimal:   {"decimal.Decimal", "decimal.NullDecimal", ImportDecimal},
	KindString:    {"string", "*string", ""},
	KindBytes:     {"[]byte", "[]byte", ""},
	KindJSON:      {"json.RawMessage", "*json.RawMessage", ImportJSON},
	KindUUID:      {"uuid.UUID", "uuid.NullUUID", ImportUUID},
	KindDate:      {"types.LocalDate", "*types.LocalDate", ImportTypes},
	KindTime:      {"types.LocalTime", "*types.LocalTime", ImportTypes},
	KindDateTime:  {"types.LocalDateTime", "*types.LocalDateTime", ImportTypes},
	KindTimestamp: {"time.Time", "*time.Time", ImportTime},
}

// Resolve returns the GoType for a kind and nullability.
func Resolve(k Kind, nullable bool) (GoType, error) {
	spec, ok := kinds[k]
	if !ok {
		return GoType{}, fmt.Errorf("unknown kind %q", k)
	}
	name := spec.base
	if nullable {
		name = spec.nullable
	}
	return GoType{
		Kind:     k,
		Name:     name,
		Base:     spec.base,
		Import:   spec.imp,
		Nullable: nullable,
	}, nil
}

// Kinds lists every kind name, sorted. Used to validate overrides.
func Kinds() []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

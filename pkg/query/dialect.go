// Package query is the runtime imported by schemagen output. It turns typed
// column conditions into parameterized SQL through squirrel; values are
// always bound as placeholders and never interpolated into the statement.
//
// Usage (generated code):
//
//	sql, args, err := dbgen.UserAccountT.Select(query.MySQL).
//	    Where(dbgen.UserAccountT.Email.Eq("a@example.com")).
//	    OrderBy(dbgen.UserAccountT.ID.Desc()).
//	    Limit(20).
//	    Build()
package query

import (
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect selects identifier quoting and placeholder style.
type Dialect string

const (
	// MySQL uses `backtick` identifiers and ? placeholders.
	MySQL Dialect = "mysql"

	// Postgres uses "double-quoted" identifiers and $1, $2, … placeholders.
	Postgres Dialect = "postgres"
)

// ErrUnknownDialect is returned when building for a dialect other than
// MySQL or Postgres.
var ErrUnknownDialect = errors.New("query: unknown dialect")

// Valid reports whether d is a supported dialect.
func (d Dialect) Valid() bool {
	return d == MySQL || d == Postgres
}

// Quote returns name as a quoted identifier, doubling embedded quotes.
func (d Dialect) Quote(name string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d Dialect) builder() sq.StatementBuilderType {
	if d == Postgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

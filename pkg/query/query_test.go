package query

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID    int64
	Email string
	Note  *string
}

func (a *account) ScanTargets() []any { return []any{&a.ID, &a.Email, &a.Note} }

type accountTable struct {
	ID    Column[int64]
	Email Column[string]
	Note  Column[string]
}

var accounts = accountTable{
	ID:    NewColumn[int64]("id"),
	Email: NewColumn[string]("email"),
	Note:  NewColumn[string]("note"),
}

func (accountTable) Name() string         { return "user_account" }
func (accountTable) Columns() []string    { return []string{"id", "email", "note"} }
func (accountTable) PrimaryKey() []string { return []string{"id"} }

func TestSelect_MySQL(t *testing.T) {
	stmt, args, err := From(MySQL, accounts).
		Where(accounts.Email.Eq("a@example.com"), accounts.ID.Gt(10)).
		OrderBy(accounts.ID.Desc()).
		Limit(20).
		Offset(40).
		Build()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT `id`, `email`, `note` FROM `user_account` WHERE `email` = ? AND `id` > ? ORDER BY `id` DESC LIMIT 20 OFFSET 40",
		stmt)
	assert.Equal(t, []any{"a@example.com", int64(10)}, args)
}

func TestSelect_Postgres(t *testing.T) {
	stmt, args, err := From(Postgres, accounts).
		Where(accounts.ID.In(1, 2, 3)).
		Where(accounts.Note.IsNull()).
		OrderBy(accounts.Email.Asc()).
		Build()
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "id", "email", "note" FROM "user_account" WHERE "id" IN ($1,$2,$3) AND "note" IS NULL ORDER BY "email" ASC`,
		stmt)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, args)
}

func TestSelect_Operators(t *testing.T) {
	tests := []struct {
		cond Condition
		want string
	}{
		{accounts.ID.Eq(1), "`id` = ?"},
		{accounts.ID.Ne(1), "`id` <> ?"},
		{accounts.ID.Lt(1), "`id` < ?"},
		{accounts.ID.Gt(1), "`id` > ?"},
		{accounts.ID.Le(1), "`id` <= ?"},
		{accounts.ID.Ge(1), "`id` >= ?"},
		{accounts.Note.IsNotNull(), "`note` IS NOT NULL"},
		{accounts.ID.In(), "(1=0)"},
	}
	for _, tt := range tests {
		stmt, _, err := Select(MySQL, "t").Where(tt.cond).Build()
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM `t` WHERE "+tt.want, stmt)
	}
}

func TestSelect_SliceValueIsOneArgument(t *testing.T) {
	payload := NewColumn[json.RawMessage]("payload")

	stmt, args, err := Select(MySQL, "events").Where(payload.Eq(json.RawMessage(`{"a":1}`))).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `events` WHERE `payload` = ?", stmt)
	require.Len(t, args, 1)
}

func TestSelect_ValuesNeverInterpolated(t *testing.T) {
	hostile := "x' OR '1'='1"
	stmt, args, err := From(MySQL, accounts).Where(accounts.Email.Eq(hostile)).Build()
	require.NoError(t, err)
	assert.NotContains(t, stmt, hostile)
	assert.Equal(t, []any{hostile}, args)
}

func TestSelect_Columns(t *testing.T) {
	stmt, _, err := From(Postgres, accounts).Columns(accounts.Email).Build()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "email" FROM "user_account"`, stmt)
}

func TestSelect_Errors(t *testing.T) {
	_, _, err := Select("oracle", "t").Build()
	assert.ErrorIs(t, err, ErrUnknownDialect)

	_, _, err = Select(MySQL, "").Build()
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "`we``ird`", MySQL.Quote("we`ird"))
	assert.Equal(t, `"we""ird"`, Postgres.Quote(`we"ird`))
}

func TestInsert(t *testing.T) {
	stmt, args, err := Insert(Postgres, "user_account", accounts.Columns(), []any{int64(1), "a@example.com", nil})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "user_account" ("id","email","note") VALUES ($1,$2,$3)`, stmt)
	assert.Len(t, args, 3)

	_, _, err = Insert(MySQL, "user_account", accounts.Columns(), []any{1})
	assert.Error(t, err)
}

// cannedDriver answers every query with the same rows.
type cannedDriver struct {
	columns []string
	rows    [][]driver.Value
	lastSQL *string
}

func (d cannedDriver) Open(string) (driver.Conn, error) { return cannedConn{d}, nil }

type cannedConn struct{ d cannedDriver }

func (c cannedConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c cannedConn) Close() error                        { return nil }
func (c cannedConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c cannedConn) QueryContext(_ context.Context, q string, _ []driver.NamedValue) (driver.Rows, error) {
	*c.d.lastSQL = q
	return &cannedRows{columns: c.d.columns, rows: c.d.rows}, nil
}

type cannedRows struct {
	columns []string
	rows    [][]driver.Value
}

func (r *cannedRows) Columns() []string { return r.columns }
func (r *cannedRows) Close() error      { return nil }
func (r *cannedRows) Next(dest []driver.Value) error {
	if len(r.rows) == 0 {
		return io.EOF
	}
	copy(dest, r.rows[0])
	r.rows = r.rows[1:]
	return nil
}

var cannedSeq atomic.Int32

func openCanned(t *testing.T, rows [][]driver.Value) (*sql.DB, *string) {
	t.Helper()
	var last string
	name := fmt.Sprintf("canned%d", cannedSeq.Add(1))
	sql.Register(name, cannedDriver{columns: []string{"id", "email", "note"}, rows: rows, lastSQL: &last})
	db, err := sql.Open(name, "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, &last
}

func TestAll(t *testing.T) {
	db, last := openCanned(t, [][]driver.Value{
		{int64(1), "a@example.com", nil},
		{int64(2), "b@example.com", "vip"},
	})

	got, err := All[account](context.Background(), db, From(MySQL, accounts).OrderBy(accounts.ID.Asc()))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Nil(t, got[0].Note)
	require.NotNil(t, got[1].Note)
	assert.Equal(t, "vip", *got[1].Note)
	assert.Contains(t, *last, "ORDER BY `id` ASC")
}

func TestOne(t *testing.T) {
	db, last := openCanned(t, [][]driver.Value{{int64(7), "c@example.com", nil}})

	got, err := One[account](context.Background(), db, From(MySQL, accounts).Where(accounts.ID.Eq(7)))
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", got.Email)
	assert.Contains(t, *last, "LIMIT 1")

	empty, _ := openCanned(t, nil)
	_, err = One[account](context.Background(), empty, From(MySQL, accounts))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

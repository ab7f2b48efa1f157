package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/emit"
	"github.com/koustreak/schemagen/internal/errs"
	"github.com/koustreak/schemagen/internal/schema"
)

type fakeDB struct {
	database.DB
	closed int
}

func (f *fakeDB) Dialect() database.Driver { return database.DriverMySQL }
func (f *fakeDB) Close()                   { f.closed++ }

type memCatalog struct {
	exists bool
	tables map[string]*schema.TableInfo
}

func (c *memCatalog) SchemaExists(ctx context.Context, name string) (bool, error) {
	return c.exists, nil
}

func (c *memCatalog) ListTables(ctx context.Context, name string) ([]string, error) {
	var out []string
	for n := range c.tables {
		out = append(out, n)
	}
	return out, nil
}

func (c *memCatalog) InspectTable(ctx context.Context, name, table string) (*schema.TableInfo, error) {
	t := *c.tables[table]
	t.Columns = append([]schema.ColumnInfo(nil), t.Columns...)
	return &t, nil
}

func (c *memCatalog) ListForeignKeys(ctx context.Context, name string) ([]schema.ForeignKeyColumn, error) {
	return nil, nil
}

func springCatalog() *memCatalog {
	return &memCatalog{
		exists: true,
		tables: map[string]*schema.TableInfo{
			"user_account": {
				Name: "user_account",
				Columns: []schema.ColumnInfo{
					{Name: "id", DataType: "int", Position: 1},
					{Name: "email", DataType: "varchar", Position: 2},
					{Name: "created_at", DataType: "timestamp", Nullable: true, Position: 3},
				},
				PrimaryKey: []string{"id"},
			},
			"legacy_orders": {
				Name:    "legacy_orders",
				Columns: []schema.ColumnInfo{{Name: "id", DataType: "bigint", Position: 1}},
			},
		},
	}
}

type harness struct {
	runner  *Runner
	db      *fakeDB
	catalog *memCatalog
	states  []State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{db: &fakeDB{}, catalog: springCatalog()}
	h.runner = NewRunner(ConnectorFunc(func(ctx context.Context, cfg database.Config) (database.DB, error) {
		return h.db, nil
	}), emit.New(nil), nil)
	h.runner.newCatalog = func(database.DB) (schema.Catalog, error) { return h.catalog, nil }
	h.runner.OnState(func(s State) { h.states = append(h.states, s) })
	return h
}

func options(out string) Options {
	cfg := database.DefaultConfig()
	cfg.Database = "spring"
	return Options{Database: *cfg, OutputDir: out, Package: "dbgen"}
}

func TestGenerate_HappyPath(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "dbgen")

	res, err := h.runner.Generate(context.Background(), options(out))
	require.NoError(t, err)

	assert.Equal(t, []State{StateIdle, StateIntrospecting, StateMapping, StateEmitting, StateDone}, h.states)
	assert.Equal(t, StateDone, h.runner.State())
	assert.Equal(t, 1, h.db.closed)
	require.NotNil(t, res.Manifest)
	assert.Len(t, res.Manifest.Files, 3)

	for _, f := range []string{"legacy_orders.go", "user_account.go", "schemagen.go", emit.ManifestFile} {
		_, err := os.Stat(filepath.Join(out, f))
		assert.NoError(t, err, f)
	}
}

func TestGenerate_DroppedTable(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "dbgen")

	_, err := h.runner.Generate(context.Background(), options(out))
	require.NoError(t, err)

	delete(h.catalog.tables, "legacy_orders")
	_, err = h.runner.Generate(context.Background(), options(out))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(out, "legacy_orders.go"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(out, "user_account.go"))
	assert.NoError(t, err)
}

func TestGenerate_Idempotent(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "dbgen")

	first, err := h.runner.Generate(context.Background(), options(out))
	require.NoError(t, err)
	second, err := h.runner.Generate(context.Background(), options(out))
	require.NoError(t, err)

	assert.Equal(t, first.Manifest, second.Manifest)
	assert.Equal(t, first.Artifacts, second.Artifacts)
}

func TestGenerate_SchemaNotFound(t *testing.T) {
	h := newHarness(t)
	h.catalog.exists = false
	out := filepath.Join(t.TempDir(), "dbgen")

	_, err := h.runner.Generate(context.Background(), options(out))
	require.Error(t, err)
	assert.True(t, errs.IsSchemaNotFound(err))
	assert.Equal(t, StateFailed, h.runner.State())
	assert.Equal(t, []State{StateIdle, StateIntrospecting, StateFailed}, h.states)
	assert.Equal(t, 1, h.db.closed)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerate_ConnectionFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.connector = ConnectorFunc(func(ctx context.Context, cfg database.Config) (database.DB, error) {
		return nil, errs.New(errs.ErrKindConnectionFailed, "cannot connect to "+cfg.Target())
	})

	_, err := h.runner.Generate(context.Background(), options(t.TempDir()))
	assert.True(t, errs.IsConnectionFailed(err))
	assert.Contains(t, err.Error(), "127.0.0.1:3306")
	assert.Equal(t, StateFailed, h.runner.State())
}

func TestGenerate_ExplicitSchemaConnection(t *testing.T) {
	tests := []struct {
		name   string
		driver database.Driver
		dsn    string
		want   string
	}{
		{"mysql opens without a default database", database.DriverMySQL, "", ""},
		{"mysql dsn is used as given", database.DriverMySQL, "root@tcp(127.0.0.1:3306)/spring", "spring"},
		{"postgres keeps the database", database.DriverPostgres, "", "spring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			var got database.Config
			h.runner.connector = ConnectorFunc(func(ctx context.Context, cfg database.Config) (database.DB, error) {
				got = cfg
				return h.db, nil
			})

			opts := options(filepath.Join(t.TempDir(), "dbgen"))
			opts.Database.Driver = tt.driver
			opts.Database.DSN = tt.dsn
			opts.Schema = "billing"

			_, err := h.runner.Generate(context.Background(), opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Database)
			assert.Equal(t, "spring", opts.Database.Database)
		})
	}
}

func TestGenerate_UnsupportedTypeLeavesOutputUntouched(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "dbgen")

	_, err := h.runner.Generate(context.Background(), options(out))
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(out, emit.ManifestFile))
	require.NoError(t, err)

	h.catalog.tables["places"] = &schema.TableInfo{
		Name:    "places",
		Columns: []schema.ColumnInfo{{Name: "geo", DataType: "point", Position: 1}},
	}
	h.states = nil
	_, err = h.runner.Generate(context.Background(), options(out))
	require.Error(t, err)
	assert.True(t, errs.IsUnsupportedType(err))
	assert.Contains(t, err.Error(), "places.geo")
	assert.Equal(t, []State{StateIdle, StateIntrospecting, StateMapping, StateFailed}, h.states)
	assert.Equal(t, 2, h.db.closed)

	after, err := os.ReadFile(filepath.Join(out, emit.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGenerate_OverrideFixesUnsupportedType(t *testing.T) {
	h := newHarness(t)
	h.catalog.tables["places"] = &schema.TableInfo{
		Name:    "places",
		Columns: []schema.ColumnInfo{{Name: "geo", DataType: "point", Position: 1}},
	}
	opts := options(filepath.Join(t.TempDir(), "dbgen"))
	opts.Overrides = map[string]string{"places.geo": "bytes"}

	_, err := h.runner.Generate(context.Background(), opts)
	assert.NoError(t, err)
}

func TestRender_DoesNotWrite(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "dbgen")

	res, err := h.runner.Render(context.Background(), options(out))
	require.NoError(t, err)
	assert.Len(t, res.Artifacts, 3)
	assert.Nil(t, res.Manifest)

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestInspect(t *testing.T) {
	h := newHarness(t)

	info, err := h.runner.Inspect(context.Background(), options(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy_orders", "user_account"}, info.TableNames())
	assert.Equal(t, []State{StateIdle, StateIntrospecting, StateDone}, h.states)
}

func TestOptions_Validate(t *testing.T) {
	opts := options("out")
	require.NoError(t, opts.Validate())

	noSchema := opts
	noSchema.Database.Database = ""
	assert.True(t, errs.IsInvalidInput(noSchema.Validate()))

	noSchema.Schema = "other"
	assert.NoError(t, noSchema.Validate())

	badDriver := opts
	badDriver.Database.Driver = "sqlite"
	assert.True(t, errs.IsInvalidInput(badDriver.Validate()))

	h := newHarness(t)
	_, err := h.runner.Generate(context.Background(), options(""))
	assert.True(t, errs.IsInvalidInput(err))
	assert.Equal(t, 0, h.db.closed)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "introspecting", StateIntrospecting.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestGenerate_FromSnapshot(t *testing.T) {
	h := newHarness(t)
	h.runner.connector = ConnectorFunc(func(ctx context.Context, cfg database.Config) (database.DB, error) {
		t.Fatal("snapshot runs must not connect")
		return nil, nil
	})
	snap := &schema.SchemaInfo{
		Name:    "offline",
		Dialect: database.DriverMySQL,
		Tables:  []*schema.TableInfo{h.catalog.tables["user_account"]},
	}
	opts := Options{Snapshot: snap, OutputDir: filepath.Join(t.TempDir(), "dbgen"), Package: "dbgen"}

	res, err := h.runner.Generate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "offline", res.Manifest.Schema)
	assert.Equal(t, "mysql", res.Manifest.Dialect)
	assert.Equal(t, []string{"user_account"}, res.Schema.TableNames())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/errs"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: env(nil)})
	require.NoError(t, err)

	assert.Equal(t, database.DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "127.0.0.1:3306", cfg.Database.Address())
	assert.Equal(t, "spring", cfg.Database.Database)
	assert.Equal(t, "root", cfg.Database.User)
	assert.Equal(t, "sinty", cfg.Database.Password)
	assert.Equal(t, "internal/dbgen", cfg.OutputDir)
	assert.Equal(t, "dbgen", cfg.Package)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PostgresDefaultPort(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: env(map[string]string{EnvDriver: "Postgres"})})
	require.NoError(t, err)
	assert.Equal(t, database.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "127.0.0.1:5432", cfg.Database.Address())
}

func TestLoad_Environment(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: env(map[string]string{
		EnvHost:           "db.internal",
		EnvPort:           "3307",
		EnvName:           "shop",
		EnvUser:           "gen",
		EnvPassword:       "secret",
		EnvConnectTimeout: "5",
		EnvReadTimeout:    "1m30s",
		EnvOutputDir:      "gen/shop",
		EnvPackage:        "shop",
		EnvLogLevel:       "debug",
		EnvLogFormat:      "json",
		EnvMinioUseSSL:    "true",
		EnvMinioBucket:    "artifacts",
	})})
	require.NoError(t, err)

	assert.Equal(t, "db.internal:3307", cfg.Database.Address())
	assert.Equal(t, "shop", cfg.Database.Database)
	assert.Equal(t, "gen", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 90*time.Second, cfg.Database.ReadTimeout)
	assert.Equal(t, "gen/shop", cfg.OutputDir)
	assert.Equal(t, "shop", cfg.Package)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Store.UseSSL)
	assert.Equal(t, "artifacts", cfg.Store.DefaultBucket)

	opts := cfg.Options()
	assert.Equal(t, "shop", opts.Package)
	assert.Equal(t, "db.internal", opts.Database.Host)
}

func TestLoad_BadEnvironment(t *testing.T) {
	for key, val := range map[string]string{
		EnvPort:           "three",
		EnvConnectTimeout: "soon",
		EnvReadTimeout:    "-5",
		EnvMinioUseSSL:    "maybe",
	} {
		_, err := Load(LoadOptions{Lookup: env(map[string]string{key: val})})
		require.Error(t, err, key)
		assert.True(t, errs.IsInvalidInput(err), key)
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "schemagen.yaml", `
database:
  driver: postgres
  host: pg.local
  name: app
  read_timeout: 45s
schema: public
output:
  dir: internal/appdb
  package: appdb
overrides:
  users.status: string
log:
  level: warn
publish:
  bucket: codegen
  prefix: appdb/v1
serve:
  addr: 127.0.0.1:9000
`)
	cfg, err := Load(LoadOptions{File: path, Lookup: env(nil)})
	require.NoError(t, err)

	assert.Equal(t, database.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "pg.local:5432", cfg.Database.Address())
	assert.Equal(t, "app", cfg.Database.Database)
	assert.Equal(t, 45*time.Second, cfg.Database.ReadTimeout)
	assert.Equal(t, "public", cfg.Schema)
	assert.Equal(t, "internal/appdb", cfg.OutputDir)
	assert.Equal(t, "appdb", cfg.Package)
	assert.Equal(t, map[string]string{"users.status": "string"}, cfg.Overrides)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "codegen", cfg.Store.DefaultBucket)
	assert.Equal(t, "appdb/v1", cfg.Prefix)
	assert.Equal(t, "127.0.0.1:9000", cfg.ServeAddr)

	// untouched keys keep their defaults
	assert.Equal(t, "root", cfg.Database.User)
}

func TestLoad_YAMLUnknownKey(t *testing.T) {
	path := writeFile(t, "schemagen.yaml", "database:\n  hostname: x\n")
	_, err := Load(LoadOptions{File: path, Lookup: env(nil)})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestLoad_MissingYAMLFile(t *testing.T) {
	_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "nope.yaml"), Lookup: env(nil)})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestLoad_EmptyYAMLFile(t *testing.T) {
	path := writeFile(t, "schemagen.yaml", "")
	cfg, err := Load(LoadOptions{File: path, Lookup: env(nil)})
	require.NoError(t, err)
	assert.Equal(t, "spring", cfg.Database.Database)
}

func TestLoad_Precedence(t *testing.T) {
	file := writeFile(t, "schemagen.yaml", "database:\n  name: from_file\n  user: file_user\n  host: file.host\n")
	envFile := writeFile(t, ".env", "DB_NAME=from_dotenv\nDB_USER=dotenv_user\n")

	cfg, err := Load(LoadOptions{
		File:    file,
		EnvFile: envFile,
		Lookup:  env(map[string]string{EnvName: "from_env"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.Database.Database)
	assert.Equal(t, "dotenv_user", cfg.Database.User)
	assert.Equal(t, "file.host", cfg.Database.Host)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	cfg, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), ".env"), Lookup: env(nil)})
	require.NoError(t, err)
	assert.Equal(t, "spring", cfg.Database.Database)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"driver": func(c *Config) { c.Database.Driver = "sqlite" },
		"port":   func(c *Config) { c.Database.Port = 70000 },
		"host":   func(c *Config) { c.Database.Host = "" },
		"level":  func(c *Config) { c.Log.Level = "loud" },
		"format": func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.True(t, errs.IsInvalidInput(cfg.Validate()))
		})
	}

	cfg := Default()
	cfg.Database.Host = ""
	cfg.Database.DSN = "root:pw@tcp(db:3306)/spring"
	assert.NoError(t, cfg.Validate())
}

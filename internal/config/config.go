// Package config assembles the settings of one schemagen invocation.
//
// Sources, lowest precedence first:
//
//	defaults → YAML file → .env file → process environment → CLI flags
//
// Flags are applied by the CLI on top of the Config returned by Load.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/errs"
	"github.com/koustreak/schemagen/internal/filestore"
	"github.com/koustreak/schemagen/internal/logger"
	"github.com/koustreak/schemagen/internal/pipeline"
)

// Environment variables read by Load.
const (
	EnvDriver         = "DB_DRIVER"
	EnvHost           = "DB_HOST"
	EnvPort           = "DB_PORT"
	EnvName           = "DB_NAME"
	EnvUser           = "DB_USER"
	EnvPassword       = "DB_PASS"
	EnvSSLMode        = "DB_SSLMODE"
	EnvDSN            = "DB_DSN"
	EnvConnectTimeout = "DB_CONNECT_TIMEOUT"
	EnvReadTimeout    = "DB_READ_TIMEOUT"
	EnvSchema         = "GEN_SCHEMA"
	EnvOutputDir      = "GEN_OUTPUT_DIR"
	EnvPackage        = "GEN_PACKAGE"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
	EnvMinioEndpoint  = "MINIO_ENDPOINT"
	EnvMinioAccessKey = "MINIO_ACCESS_KEY"
	EnvMinioSecretKey = "MINIO_SECRET_KEY"
	EnvMinioUseSSL    = "MINIO_USE_SSL"
	EnvMinioRegion    = "MINIO_REGION"
	EnvMinioBucket    = "MINIO_BUCKET"
	EnvPublishPrefix  = "PUBLISH_PREFIX"
	EnvServeAddr      = "SERVE_ADDR"
)

// Config is everything a command needs.
type Config struct {
	Database database.Config

	// Schema overrides Database.Database as the introspected schema.
	Schema string

	OutputDir string
	Package   string

	// Overrides maps "table.column" to a type kind name.
	Overrides map[string]string

	Log logger.Config

	Store filestore.Config
	// Prefix is the object key prefix artifacts are published under.
	Prefix string

	ServeAddr string
}

// Default returns the built-in settings. Port 0 means the driver's
// well-known port.
func Default() *Config {
	db := database.DefaultConfig()
	db.Port = 0
	db.Database = "spring"
	db.Password = "sinty"

	// a generator run stays quiet unless something needs attention
	logCfg := logger.DefaultConfig()
	logCfg.Level = "warn"

	return &Config{
		Database:  *db,
		OutputDir: "internal/dbgen",
		Package:   "dbgen",
		Log:       *logCfg,
		Store: filestore.Config{
			Provider: filestore.ProviderMinIO,
			Endpoint: "localhost:9000",
		},
		Prefix:    "dbgen",
		ServeAddr: ":8089",
	}
}

// Options converts the config into pipeline input.
func (c *Config) Options() pipeline.Options {
	return pipeline.Options{
		Database:  c.Database,
		Schema:    c.Schema,
		OutputDir: c.OutputDir,
		Package:   c.Package,
		Overrides: c.Overrides,
	}
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if !c.Database.Driver.Valid() {
		return errs.Newf(errs.ErrKindInvalidInput, "%s: unsupported driver %q (want mysql or postgres)", EnvDriver, c.Database.Driver)
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return errs.Newf(errs.ErrKindInvalidInput, "%s: port %d out of range", EnvPort, c.Database.Port)
	}
	if c.Database.DSN == "" && c.Database.Host == "" {
		return errs.Newf(errs.ErrKindInvalidInput, "%s: host is empty", EnvHost)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, EnvLogLevel, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return errs.Newf(errs.ErrKindInvalidInput, "%s: unknown format %q (want json or console)", EnvLogFormat, c.Log.Format)
	}
	return nil
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// File is a YAML config file. Empty skips it; a named file must exist.
	File string

	// EnvFile is a dotenv file. A missing file is not an error.
	EnvFile string

	// Lookup reads the process environment. Nil means os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// Load builds a Config from defaults, the YAML file, the env file and the
// environment, in that order.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		raw, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "read config file "+opts.File, err)
		}
		if err := cfg.applyYAML(raw); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "parse config file "+opts.File, err)
		}
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		m, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "read env file "+opts.EnvFile, err)
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig is the on-disk YAML layout. Pointers distinguish absent keys
// from zero values.
type fileConfig struct {
	Database struct {
		Driver         *string `yaml:"driver"`
		Host           *string `yaml:"host"`
		Port           *int    `yaml:"port"`
		Name           *string `yaml:"name"`
		User           *string `yaml:"user"`
		Password       *string `yaml:"password"`
		SSLMode        *string `yaml:"sslmode"`
		DSN            *string `yaml:"dsn"`
		ConnectTimeout *string `yaml:"connect_timeout"`
		ReadTimeout    *string `yaml:"read_timeout"`
	} `yaml:"database"`

	Schema *string `yaml:"schema"`

	Output struct {
		Dir     *string `yaml:"dir"`
		Package *string `yaml:"package"`
	} `yaml:"output"`

	Overrides map[string]string `yaml:"overrides"`

	Log struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"log"`

	Publish struct {
		Endpoint  *string `yaml:"endpoint"`
		AccessKey *string `yaml:"access_key"`
		SecretKey *string `yaml:"secret_key"`
		UseSSL    *bool   `yaml:"use_ssl"`
		Region    *string `yaml:"region"`
		Bucket    *string `yaml:"bucket"`
		Prefix    *string `yaml:"prefix"`
	} `yaml:"publish"`

	Serve struct {
		Addr *string `yaml:"addr"`
	} `yaml:"serve"`
}

func (c *Config) applyYAML(raw []byte) error {
	var f fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	db := &c.Database
	if f.Database.Driver != nil {
		db.Driver = database.Driver(strings.ToLower(*f.Database.Driver))
	}
	setString(&db.Host, f.Database.Host)
	if f.Database.Port != nil {
		db.Port = *f.Database.Port
	}
	setString(&db.Database, f.Database.Name)
	setString(&db.User, f.Database.User)
	setString(&db.Password, f.Database.Password)
	setString(&db.SSLMode, f.Database.SSLMode)
	setString(&db.DSN, f.Database.DSN)
	if f.Database.ConnectTimeout != nil {
		d, err := parseDuration(*f.Database.ConnectTimeout)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "database.connect_timeout", err)
		}
		db.ConnectTimeout = d
	}
	if f.Database.ReadTimeout != nil {
		d, err := parseDuration(*f.Database.ReadTimeout)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "database.read_timeout", err)
		}
		db.ReadTimeout = d
	}

	setString(&c.Schema, f.Schema)
	setString(&c.OutputDir, f.Output.Dir)
	setString(&c.Package, f.Output.Package)
	if len(f.Overrides) > 0 {
		c.Overrides = f.Overrides
	}
	setString(&c.Log.Level, f.Log.Level)
	setString(&c.Log.Format, f.Log.Format)

	setString(&c.Store.Endpoint, f.Publish.Endpoint)
	setString(&c.Store.AccessKey, f.Publish.AccessKey)
	setString(&c.Store.SecretKey, f.Publish.SecretKey)
	if f.Publish.UseSSL != nil {
		c.Store.UseSSL = *f.Publish.UseSSL
	}
	setString(&c.Store.Region, f.Publish.Region)
	setString(&c.Store.DefaultBucket, f.Publish.Bucket)
	setString(&c.Prefix, f.Publish.Prefix)
	setString(&c.ServeAddr, f.Serve.Addr)
	return nil
}

func (c *Config) applyEnv(env func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := env(key); ok {
			*dst = v
		}
	}

	if v, ok := env(EnvDriver); ok {
		c.Database.Driver = database.Driver(strings.ToLower(v))
	}
	str(EnvHost, &c.Database.Host)
	if v, ok := env(EnvPort); ok {
		port, err := cast.ToIntE(v)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, EnvPort, err)
		}
		c.Database.Port = port
	}
	str(EnvName, &c.Database.Database)
	str(EnvUser, &c.Database.User)
	str(EnvPassword, &c.Database.Password)
	str(EnvSSLMode, &c.Database.SSLMode)
	str(EnvDSN, &c.Database.DSN)
	for key, dst := range map[string]*time.Duration{
		EnvConnectTimeout: &c.Database.ConnectTimeout,
		EnvReadTimeout:    &c.Database.ReadTimeout,
	} {
		if v, ok := env(key); ok {
			d, err := parseDuration(v)
			if err != nil {
				return errs.Wrap(errs.ErrKindInvalidInput, key, err)
			}
			*dst = d
		}
	}

	str(EnvSchema, &c.Schema)
	str(EnvOutputDir, &c.OutputDir)
	str(EnvPackage, &c.Package)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvLogFormat, &c.Log.Format)

	str(EnvMinioEndpoint, &c.Store.Endpoint)
	str(EnvMinioAccessKey, &c.Store.AccessKey)
	str(EnvMinioSecretKey, &c.Store.SecretKey)
	if v, ok := env(EnvMinioUseSSL); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, EnvMinioUseSSL, err)
		}
		c.Store.UseSSL = b
	}
	str(EnvMinioRegion, &c.Store.Region)
	str(EnvMinioBucket, &c.Store.DefaultBucket)
	str(EnvPublishPrefix, &c.Prefix)
	str(EnvServeAddr, &c.ServeAddr)
	return nil
}

// parseDuration accepts Go durations ("1m30s") and bare integers, which
// are seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := cast.ToInt64E(s); err == nil {
		if n < 0 {
			return 0, errs.Newf(errs.ErrKindInvalidInput, "negative duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := cast.ToDurationE(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errs.Newf(errs.ErrKindInvalidInput, "negative duration %q", s)
	}
	return d, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

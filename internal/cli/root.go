// Package cli implements the schemagen command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/koustreak/schemagen/internal/config"
	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/errs"
	"github.com/koustreak/schemagen/internal/filestore"
	"github.com/koustreak/schemagen/internal/filestore/minio"
	"github.com/koustreak/schemagen/internal/logger"
	"github.com/koustreak/schemagen/internal/pipeline"
	"github.com/koustreak/schemagen/internal/schema"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// flagValues holds the raw global flags. Only flags the user set are
// applied over the loaded config.
type flagValues struct {
	driver    string
	host      string
	port      int
	db        string
	user      string
	password  string
	dsn       string
	schema    string
	out       string
	pkg       string
	logLevel  string
	logFormat string
	overrides map[string]string
	from      string
}

// app is the state shared by all subcommands of one invocation.
type app struct {
	configFile string
	envFile    string
	flags      flagValues

	cfg *config.Config
	log *logger.Logger

	// hooks replaced by tests
	lookup    func(string) (string, bool)
	connector pipeline.Connector
	openStore func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error)
}

func newApp() *app {
	return &app{
		openStore: func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
			return minio.New(ctx, cfg)
		},
	}
}

// NewRootCmd returns the schemagen command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "schemagen",
		Short: "Generate typed Go database access code from a live schema",
		Long: fmt.Sprintf(`schemagen introspects a MySQL or PostgreSQL schema and emits a typed Go
package: one record and one query surface per table.

Version: %s@%s %s %s

Configuration is read from defaults, --config, the .env file, the
environment (DB_HOST, DB_NAME, DB_USER, DB_PASS, ...) and flags, in
increasing precedence.`, Version, GitCommit, platform(), BuildDate),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "YAML config file")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file; ignored when missing")
	pf.StringVar(&a.flags.driver, "driver", "", "database driver: mysql or postgres (DB_DRIVER)")
	pf.StringVar(&a.flags.host, "host", "", "database host (DB_HOST)")
	pf.IntVar(&a.flags.port, "port", 0, "database port (DB_PORT)")
	pf.StringVar(&a.flags.db, "db", "", "database name (DB_NAME)")
	pf.StringVar(&a.flags.user, "user", "", "database user (DB_USER)")
	pf.StringVar(&a.flags.password, "password", "", "database password (DB_PASS)")
	pf.StringVar(&a.flags.dsn, "dsn", "", "driver DSN; wins over the individual connection flags (DB_DSN)")
	pf.StringVar(&a.flags.schema, "schema", "", "schema to introspect; defaults to the database name (GEN_SCHEMA)")
	pf.StringVar(&a.flags.out, "out", "", "output directory (GEN_OUTPUT_DIR)")
	pf.StringVar(&a.flags.pkg, "package", "", "generated package name (GEN_PACKAGE)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "console or json (LOG_FORMAT)")
	pf.StringToStringVar(&a.flags.overrides, "override", nil, "force a column type, e.g. --override users.status=string")
	pf.StringVar(&a.flags.from, "from", "", "read the schema from a snapshot written by inspect instead of a database")

	root.AddCommand(
		newGenerateCmd(a),
		newInspectCmd(a),
		newCheckCmd(a),
		newPublishCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoadOptions{
		File:    a.configFile,
		EnvFile: a.envFile,
		Lookup:  a.lookup,
	})
	if err != nil {
		return err
	}
	a.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	cfg.Log.Output = cmd.ErrOrStderr()
	a.cfg = cfg
	a.log = logger.New(&cfg.Log)
	logger.SetGlobal(a.log)
	a.log.With().
		Str("command", cmd.Name()).
		Str("target", cfg.Database.Target()).
		Logger().
		Debug("configuration loaded")
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	f := a.flags
	if set("driver") {
		cfg.Database.Driver = database.Driver(f.driver)
	}
	if set("host") {
		cfg.Database.Host = f.host
	}
	if set("port") {
		cfg.Database.Port = f.port
	}
	if set("db") {
		cfg.Database.Database = f.db
	}
	if set("user") {
		cfg.Database.User = f.user
	}
	if set("password") {
		cfg.Database.Password = f.password
	}
	if set("dsn") {
		cfg.Database.DSN = f.dsn
	}
	if set("schema") {
		cfg.Schema = f.schema
	}
	if set("out") {
		cfg.OutputDir = f.out
	}
	if set("package") {
		cfg.Package = f.pkg
	}
	if set("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if set("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if set("override") {
		if cfg.Overrides == nil {
			cfg.Overrides = map[string]string{}
		}
		for k, v := range f.overrides {
			cfg.Overrides[k] = v
		}
	}
}

// options returns the pipeline input, loading the --from snapshot if any.
func (a *app) options() (pipeline.Options, error) {
	opts := a.cfg.Options()
	if a.flags.from == "" {
		return opts, nil
	}
	f, err := os.Open(a.flags.from)
	if err != nil {
		return opts, errs.Wrap(errs.ErrKindInvalidInput, "open snapshot", err)
	}
	defer f.Close()
	snap, err := schema.ReadSnapshot(f)
	if err != nil {
		return opts, err
	}
	opts.Snapshot = snap
	return opts, nil
}

func (a *app) runner() *pipeline.Runner {
	return pipeline.NewRunner(a.connector, nil, a.log)
}

// platform returns the OS/architecture combination.
func platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "schemagen: %v\n", err)
		return 1
	}
	return 0
}

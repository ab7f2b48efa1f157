// Package pipeline drives one generation run:
//
//	Idle → Introspecting → Mapping → Emitting → Done
//
// Any failure moves the run to Failed. The database connection is held
// only while introspecting and is closed on every exit path.
package pipeline

import (
	"context"
	"fmt"

	"github.com/koustreak/schemagen/internal/codegen"
	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/emit"
	"github.com/koustreak/schemagen/internal/errs"
	"github.com/koustreak/schemagen/internal/logger"
	"github.com/koustreak/schemagen/internal/schema"
	"github.com/koustreak/schemagen/internal/typemap"
)

// State is a pipeline stage.
type State int

const (
	StateIdle State = iota
	StateIntrospecting
	StateMapping
	StateEmitting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIntrospecting:
		return "introspecting"
	case StateMapping:
		return "mapping"
	case StateEmitting:
		return "emitting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options is the explicit input of one run.
type Options struct {
	Database database.Config

	// Schema is the schema to introspect. Empty means Database.Database.
	Schema string

	OutputDir string
	Package   string

	// Overrides maps "table.column" to a typemap kind name.
	Overrides map[string]string

	// Snapshot, when set, is introspected instead of a live database and
	// Database is ignored.
	Snapshot *schema.SchemaInfo
}

func (o Options) schemaName() string {
	if o.Snapshot != nil {
		return o.Snapshot.Name
	}
	if o.Schema != "" {
		return o.Schema
	}
	return o.Database.Database
}

// Validate checks the options a run cannot start without.
func (o Options) Validate() error {
	if o.Snapshot == nil && !o.Database.Driver.Valid() {
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported driver %q", o.Database.Driver)
	}
	if o.schemaName() == "" {
		return errs.New(errs.ErrKindInvalidInput, "no schema to introspect: set DB_NAME")
	}
	if o.Package == "" {
		return errs.New(errs.ErrKindInvalidInput, "no output package name")
	}
	return nil
}

// Result is what a run produced.
type Result struct {
	Schema    *schema.SchemaInfo
	Model     *codegen.Model
	Artifacts []emit.Artifact

	// Manifest is set only when the run committed to disk.
	Manifest *emit.Manifest
}

// Source describes the generation for its manifest.
func (r *Result) Source() emit.Source {
	return emit.Source{
		Schema:  r.Schema.Name,
		Dialect: string(r.Schema.Dialect),
		Package: r.Model.Package,
	}
}

// Runner executes runs. A Runner is not safe for concurrent use; each run
// starts from Idle.
type Runner struct {
	connector  Connector
	emitter    *emit.Emitter
	log        *logger.Logger
	newCatalog func(database.DB) (schema.Catalog, error)

	state   State
	observe func(State)
}

// NewRunner creates a Runner. A nil connector dials real databases and a
// nil emitter writes to the OS filesystem.
func NewRunner(c Connector, e *emit.Emitter, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	if c == nil {
		c = DriverConnector
	}
	if e == nil {
		e = emit.New(log)
	}
	return &Runner{connector: c, emitter: e, log: log, newCatalog: schema.NewCatalog}
}

// OnState registers fn to be called on every transition.
func (r *Runner) OnState(fn func(State)) {
	r.observe = fn
}

// State returns the state the last run reached.
func (r *Runner) State() State {
	return r.state
}

func (r *Runner) enter(s State) {
	r.state = s
	r.log.With().Str("state", s.String()).Logger().Debug("pipeline state")
	if r.observe != nil {
		r.observe(s)
	}
}

// fail moves to Failed and returns err unchanged.
func (r *Runner) fail(err error) error {
	stage := r.state
	r.enter(StateFailed)
	r.log.ErrorWith("generation failed", err, map[string]interface{}{
		"kind":  errs.KindOf(err).String(),
		"stage": stage.String(),
	})
	return err
}

// Inspect introspects the schema only.
func (r *Runner) Inspect(ctx context.Context, opts Options) (*schema.SchemaInfo, error) {
	r.enter(StateIdle)
	if err := opts.Validate(); err != nil {
		return nil, r.fail(err)
	}
	info, err := r.introspect(ctx, opts)
	if err != nil {
		return nil, r.fail(err)
	}
	r.enter(StateDone)
	return info, nil
}

// Render introspects, maps and renders without touching the output
// directory.
func (r *Runner) Render(ctx context.Context, opts Options) (*Result, error) {
	r.enter(StateIdle)
	res, err := r.render(ctx, opts)
	if err != nil {
		return nil, r.fail(err)
	}
	r.enter(StateDone)
	return res, nil
}

// Generate runs the whole pipeline and commits the result to
// opts.OutputDir.
func (r *Runner) Generate(ctx context.Context, opts Options) (*Result, error) {
	r.enter(StateIdle)
	if opts.OutputDir == "" {
		return nil, r.fail(errs.New(errs.ErrKindInvalidInput, "no output directory"))
	}

	res, err := r.render(ctx, opts)
	if err != nil {
		return nil, r.fail(err)
	}

	if res.Manifest, err = r.emitter.Commit(opts.OutputDir, res.Source(), res.Artifacts); err != nil {
		return nil, r.fail(err)
	}

	r.enter(StateDone)
	r.log.With().
		Str("schema", res.Schema.Name).
		Int("tables", len(res.Schema.Tables)).
		Str("dir", opts.OutputDir).
		Logger().
		Info("generation complete")
	return res, nil
}

// render covers Introspecting through the rendering half of Emitting.
func (r *Runner) render(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	info, err := r.introspect(ctx, opts)
	if err != nil {
		return nil, err
	}

	r.enter(StateMapping)
	mapper, err := typemap.New(info.Dialect, opts.Overrides)
	if err != nil {
		return nil, err
	}
	model, err := codegen.BuildModel(info, mapper, opts.Package)
	if err != nil {
		return nil, err
	}

	r.enter(StateEmitting)
	artifacts, err := codegen.Render(model)
	if err != nil {
		return nil, err
	}
	return &Result{Schema: info, Model: model, Artifacts: artifacts}, nil
}

// connectConfig is the connection used for introspection. A MySQL
// connection opened for an explicit schema names no default database, so a
// schema the default database does not cover can still be read.
func (o Options) connectConfig() database.Config {
	cfg := o.Database
	if o.Schema != "" && cfg.Driver == database.DriverMySQL && cfg.DSN == "" {
		cfg.Database = ""
	}
	return cfg
}

func (r *Runner) introspect(ctx context.Context, opts Options) (*schema.SchemaInfo, error) {
	r.enter(StateIntrospecting)

	if snap := opts.Snapshot; snap != nil {
		return schema.Introspect(ctx, schema.NewStaticCatalog(snap), snap.Dialect, snap.Name)
	}

	db, err := r.connector.Connect(ctx, opts.connectConfig())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	catalog, err := r.newCatalog(db)
	if err != nil {
		return nil, err
	}

	name := opts.schemaName()
	info, err := schema.Introspect(ctx, catalog, db.Dialect(), name)
	if err != nil {
		return nil, err
	}
	r.log.With().
		Str("schema", name).
		Int("tables", len(info.Tables)).
		Logger().
		Info("schema introspected")
	return info, nil
}

// Run is a one-shot Generate with the default connector and emitter.
func Run(ctx context.Context, opts Options, log *logger.Logger) (*Result, error) {
	return NewRunner(nil, nil, log).Generate(ctx, opts)
}

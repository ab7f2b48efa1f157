package pipeline

import (
	"context"

	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/database/mysql"
	"github.com/koustreak/schemagen/internal/database/postgres"
	"github.com/koustreak/schemagen/internal/errs"
)

// Connector opens the single connection a run introspects through. The
// run owns the returned DB and closes it.
type Connector interface {
	Connect(ctx context.Context, cfg database.Config) (database.DB, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, cfg database.Config) (database.DB, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, cfg database.Config) (database.DB, error) {
	return f(ctx, cfg)
}

// DriverConnector dials MySQL or PostgreSQL according to cfg.Driver.
var DriverConnector Connector = ConnectorFunc(func(ctx context.Context, cfg database.Config) (database.DB, error) {
	switch cfg.Driver {
	case database.DriverMySQL:
		db, err := mysql.New(ctx, &cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	case database.DriverPostgres:
		db, err := postgres.New(ctx, &cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported driver %q", cfg.Driver)
})

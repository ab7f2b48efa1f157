package database

import "github.com/koustreak/schemagen/internal/errs"

// ConnectError wraps a failure to open the introspection connection. A
// missing database and a denied grant keep their kind; every other failure,
// including a connect timeout, means the server could not be reached.
func ConnectError(cfg *Config, err error) error {
	kind := errs.KindOf(err)
	switch kind {
	case errs.ErrKindSchemaNotFound, errs.ErrKindPermissionDenied:
	default:
		kind = errs.ErrKindConnectionFailed
	}
	return errs.Wrap(kind, "cannot connect to "+cfg.Target(), err)
}

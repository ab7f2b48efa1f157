package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koustreak/schemagen/internal/errs"
)

func TestConnectError(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name  string
		cause error
		want  errs.ErrKind
	}{
		{"connect timeout", errs.Wrap(errs.ErrKindTimeout, "ping failed", context.DeadlineExceeded), errs.ErrKindConnectionFailed},
		{"refused", errs.Wrap(errs.ErrKindConnectionFailed, "ping failed", errors.New("connection refused")), errs.ErrKindConnectionFailed},
		{"unclassified", errors.New("tls: handshake failure"), errs.ErrKindConnectionFailed},
		{"query failed", errs.New(errs.ErrKindQueryFailed, "ping failed"), errs.ErrKindConnectionFailed},
		{"unknown database", errs.New(errs.ErrKindSchemaNotFound, "unknown database 'shop'"), errs.ErrKindSchemaNotFound},
		{"denied", errs.New(errs.ErrKindPermissionDenied, "access denied"), errs.ErrKindPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ConnectError(cfg, tt.cause)
			assert.Equal(t, tt.want, errs.KindOf(err))
			assert.Contains(t, err.Error(), "cannot connect to mysql://root@127.0.0.1:3306")
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

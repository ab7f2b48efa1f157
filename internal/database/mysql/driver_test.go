package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/schemagen/internal/database"
	"github.com/koustreak/schemagen/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	cfg := &database.Config{
		Driver:         database.DriverMySQL,
		Host:           "127.0.0.1",
		Port:           3306,
		User:           "root",
		Password:       "sinty",
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    30 * time.Second,
	}

	dsn := BuildDSN(cfg)

	parsed, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "root", parsed.User)
	assert.Equal(t, "sinty", parsed.Passwd)
	assert.Equal(t, "127.0.0.1:3306", parsed.Addr)
	assert.Equal(t, "", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
	assert.Equal(t, 30*time.Second, parsed.ReadTimeout)
}

func TestBuildDSN_ExplicitWins(t *testing.T) {
	cfg := &database.Config{DSN: "u:p@tcp(db:3306)/x", Host: "ignored"}
	assert.Equal(t, "u:p@tcp(db:3306)/x", BuildDSN(cfg))
}

func TestBuildDSN_DefaultPort(t *testing.T) {
	parsed, err := gomysql.ParseDSN(BuildDSN(&database.Config{Driver: database.DriverMySQL, Host: "db"}))
	require.NoError(t, err)
	assert.Equal(t, "db:3306", parsed.Addr)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"wrapped cancel", fmt.Errorf("x: %w", context.Canceled), errs.ErrKindTimeout},
		{"no rows", sql.ErrNoRows, errs.ErrKindNotFound},
		{"auth", &gomysql.MySQLError{Number: 1045, Message: "Access denied"}, errs.ErrKindConnectionFailed},
		{"unknown db", &gomysql.MySQLError{Number: 1049, Message: "Unknown database 'x'"}, errs.ErrKindSchemaNotFound},
		{"table grant", &gomysql.MySQLError{Number: 1142, Message: "SELECT command denied"}, errs.ErrKindPermissionDenied},
		{"syntax", &gomysql.MySQLError{Number: 1064, Message: "syntax"}, errs.ErrKindQueryFailed},
		{"bad conn", gomysql.ErrInvalidConn, errs.ErrKindConnectionFailed},
		{"network", errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, mapError(nil, "op"))
}

func TestMapError_KeepsServerMessage(t *testing.T) {
	got := mapError(&gomysql.MySQLError{Number: 1049, Message: "Unknown database 'spring'"}, "ping failed")
	assert.Contains(t, got.Error(), "Unknown database 'spring'")
}

func TestNew_UnreachableHostIsConnectionFailure(t *testing.T) {
	cfg := database.DefaultConfig()
	cfg.Host = "10.255.255.1" // non-routable: the dial hangs until the connect timeout
	cfg.ConnectTimeout = 200 * time.Millisecond

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err), "got %s", errs.KindOf(err))
	assert.Contains(t, err.Error(), "cannot connect to mysql://root@10.255.255.1:3306")
}

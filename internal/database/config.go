package database

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Driver identifies the database engine.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Valid reports whether d names a supported engine.
func (d Driver) Valid() bool {
	return d == DriverPostgres || d == DriverMySQL
}

// DefaultPort returns the engine's well-known TCP port.
func (d Driver) DefaultPort() int {
	if d == DriverPostgres {
		return 5432
	}
	return 3306
}

// Config holds everything needed to open the single introspection connection.
// Drivers build their native DSN from it; DSN, when set, wins over the
// individual fields.
type Config struct {
	Driver Driver

	Host     string
	Port     int
	User     string
	Password string

	// Database is the database the connection is opened against. For MySQL
	// it may be left empty: the introspected schema is passed explicitly.
	Database string

	// SSLMode is passed to Postgres as sslmode; ignored by MySQL.
	SSLMode string

	// DSN overrides the fields above when non-empty.
	DSN string

	// Timeouts handed to the driver, not enforced by schemagen itself.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// DefaultConfig returns connection settings matching a local development
// MySQL server.
func DefaultConfig() *Config {
	return &Config{
		Driver:         DriverMySQL,
		Host:           "127.0.0.1",
		Port:           3306,
		User:           "root",
		SSLMode:        "disable",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// Address returns host:port, falling back to the driver's default port.
func (c *Config) Address() string {
	port := c.Port
	if port == 0 {
		port = c.Driver.DefaultPort()
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Target describes the connection for error messages without the password.
func (c *Config) Target() string {
	return fmt.Sprintf("%s://%s@%s", c.Driver, c.User, c.Address())
}

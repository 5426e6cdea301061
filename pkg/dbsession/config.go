package dbsession

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Supported database/sql driver names
const (
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite3"
)

// MaxOpenConns is the pool ceiling for every session. Scenarios share one
// backing store, so a session never holds more than one connection.
const MaxOpenConns = 1

const (
	defaultSQLServerPort = 1433
	defaultIdleTimeout   = 30 * time.Second
)

// Config holds the fixed connection parameters consumed by the Factory
type Config struct {
	Driver                 string        `json:"driver" mapstructure:"driver"`
	Host                   string        `json:"host" mapstructure:"host"`
	Port                   int           `json:"port" mapstructure:"port"`
	User                   string        `json:"user" mapstructure:"user"`
	Password               string        `json:"password" mapstructure:"password"`
	Database               string        `json:"database" mapstructure:"database"`
	Path                   string        `json:"path" mapstructure:"path"` // sqlite3 database file
	IdleTimeout            time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
	Encrypt                bool          `json:"encrypt" mapstructure:"encrypt"`
	TrustServerCertificate bool          `json:"trust_server_certificate" mapstructure:"trust_server_certificate"`
}

// DefaultConfig returns the connection parameters of a local QuizPractice install
func DefaultConfig() Config {
	return Config{
		Driver:      DriverSQLServer,
		Host:        "localhost",
		Port:        defaultSQLServerPort,
		User:        "sa",
		Password:    "123",
		Database:    "Quiz_Practice",
		IdleTimeout: defaultIdleTimeout,
	}
}

// DSN builds the data source name for the configured driver
func (c Config) DSN() (string, error) {
	switch c.Driver {
	case DriverSQLServer:
		if c.Host == "" {
			return "", fmt.Errorf("host is required for driver %s", c.Driver)
		}
		port := c.Port
		if port == 0 {
			port = defaultSQLServerPort
		}

		query := url.Values{}
		query.Set("database", c.Database)
		if c.Encrypt {
			query.Set("encrypt", "true")
		} else {
			query.Set("encrypt", "disable")
		}
		query.Set("TrustServerCertificate", strconv.FormatBool(c.TrustServerCertificate))

		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.User, c.Password),
			Host:     net.JoinHostPort(c.Host, strconv.Itoa(port)),
			RawQuery: query.Encode(),
		}
		return u.String(), nil

	case DriverSQLite:
		if c.Path == "" {
			return "", fmt.Errorf("path is required for driver %s", c.Driver)
		}
		// escape the path so '?' or '#' in a file name cannot inject options
		query := url.Values{}
		query.Set("_busy_timeout", "5000")
		query.Set("_foreign_keys", "1")
		return "file:" + (&url.URL{Path: c.Path}).EscapedPath() + "?" + query.Encode(), nil

	default:
		return "", fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

func (c Config) idleTimeout() time.Duration {
	if c.IdleTimeout <= 0 {
		return defaultIdleTimeout
	}
	return c.IdleTimeout
}

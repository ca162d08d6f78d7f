package store

import (
	"fmt"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite3" }

// NormalizeDSN rewrites the legacy "bare filename" connection string
// into the driver's file: URL form; ":memory:" and already-prefixed
// DSNs pass through unchanged.
func (sqliteDialect) NormalizeDSN(uri string) string {
	switch {
	case uri == ":memory:":
		return uri
	case strings.Contains(uri, "://"):
		return uri
	case strings.HasPrefix(uri, "file:"):
		return uri
	default:
		return fmt.Sprintf("file:%s", uri)
	}
}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) AutoIncrementPK(col string) string {
	return fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT", col)
}

func (sqliteDialect) JSONType() string { return "TEXT" }

// NewSQLiteEngine opens (creating if absent) an embedded single-file
// store using the pure-Go ncruces/go-sqlite3 driver. This is the
// default backend: no connection pool is applied.
func NewSQLiteEngine(cfg Config) (*Engine, error) {
	return open(sqliteDialect{}, cfg)
}

package store

import (
	"fmt"

	_ "github.com/lib/pq"
)

type postgresDialect struct{}

func (postgresDialect) Name() string               { return "postgres" }
func (postgresDialect) DriverName() string          { return "postgres" }
func (postgresDialect) NormalizeDSN(uri string) string { return uri }
func (postgresDialect) Placeholder(i int) string    { return fmt.Sprintf("$%d", i) }

func (postgresDialect) AutoIncrementPK(col string) string {
	return fmt.Sprintf("%s SERIAL PRIMARY KEY", col)
}

func (postgresDialect) JSONType() string { return "JSONB" }

// NewPostgresEngine opens a networked Postgres backend via lib/pq and
// applies the configured connection pool.
func NewPostgresEngine(cfg Config) (*Engine, error) {
	return open(postgresDialect{}, cfg)
}

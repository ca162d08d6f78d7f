package store

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string                  { return "mysql" }
func (mysqlDialect) DriverName() string             { return "mysql" }
func (mysqlDialect) NormalizeDSN(uri string) string { return uri }
func (mysqlDialect) Placeholder(int) string         { return "?" }

func (mysqlDialect) AutoIncrementPK(col string) string {
	return fmt.Sprintf("%s BIGINT AUTO_INCREMENT PRIMARY KEY", col)
}

func (mysqlDialect) JSONType() string { return "JSON" }

// NewMySQLEngine opens a networked MySQL/MariaDB backend via
// go-sql-driver/mysql and applies the configured connection pool.
func NewMySQLEngine(cfg Config) (*Engine, error) {
	return open(mysqlDialect{}, cfg)
}

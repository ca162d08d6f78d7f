package store

import (
	"database/sql"
	"time"
)

// applyPool applies the configured pool sizing to a networked backend.
// Per §4.2, the embedded single-file backend (sqlite) takes no pooling
// — it serialises writes internally via Engine's own mutex instead.
func applyPool(db *sql.DB, dialect Dialect, cfg Config) {
	if dialect.Name() == "sqlite" {
		db.SetMaxOpenConns(1)
		return
	}

	size := cfg.PoolSize
	if size == 0 {
		size = 5
	}
	overflow := cfg.PoolOverflow
	if overflow == 0 {
		overflow = 10
	}
	recycle := cfg.PoolRecycleSecs
	if recycle == 0 {
		recycle = 3600
	}

	db.SetMaxOpenConns(int(size + overflow))
	db.SetMaxIdleConns(int(size))
	db.SetConnMaxLifetime(time.Duration(recycle) * time.Second)
}

package store

import (
	"database/sql"
	"fmt"

	"github.com/kittclouds/mnemokit/internal/kgerrors"
)

// ensureColumns detects the additive sim_day/sim_hour pair on each
// table and ALTERs them in when attaching to a pre-existing store
// built before round-mode support was added. Schema creation is
// otherwise idempotent via "IF NOT EXISTS"; this covers the one case
// that isn't expressible that way.
func ensureColumns(db *sql.DB, dialect Dialect) error {
	wanted := map[string][]string{
		"kg_nodes": {"sim_day", "sim_hour"},
		"kg_edges": {"sim_day", "sim_hour"},
		"kg_logs":  {"sim_day", "sim_hour"},
	}
	for table, cols := range wanted {
		existing, err := existingColumns(db, dialect, table)
		if err != nil {
			return err
		}
		for _, col := range cols {
			if existing[col] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s INTEGER", table, col)
			if _, err := db.Exec(stmt); err != nil {
				return kgerrors.Storage("ensure_columns", err)
			}
		}
	}
	return nil
}

func existingColumns(db *sql.DB, dialect Dialect, table string) (map[string]bool, error) {
	cols := map[string]bool{}
	var rows *sql.Rows
	var err error

	switch dialect.Name() {
	case "sqlite":
		rows, err = db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			return nil, kgerrors.Storage("ensure_columns_introspect", err)
		}
		defer rows.Close()
		for rows.Next() {
			var cid int
			var name, ctype string
			var notnull, pk int
			var dflt sql.NullString
			if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
				return nil, kgerrors.Storage("ensure_columns_scan", err)
			}
			cols[name] = true
		}
	default:
		rows, err = db.Query(
			fmt.Sprintf("SELECT column_name FROM information_schema.columns WHERE table_name = %s", dialect.Placeholder(1)),
			table,
		)
		if err != nil {
			return nil, kgerrors.Storage("ensure_columns_introspect", err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, kgerrors.Storage("ensure_columns_scan", err)
			}
			cols[name] = true
		}
	}
	return cols, rows.Err()
}

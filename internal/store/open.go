package store

import "strings"

// Open dispatches to the right backend constructor by inspecting
// cfg.StoreURI's scheme: "postgres(ql)://" and "mysql://" select their
// networked engines, anything else (a bare filename, "sqlite://", or
// "file:") is treated as the embedded single-file backend.
func Open(cfg Config) (*Engine, error) {
	switch {
	case strings.HasPrefix(cfg.StoreURI, "postgres://"), strings.HasPrefix(cfg.StoreURI, "postgresql://"):
		return NewPostgresEngine(cfg)
	case strings.HasPrefix(cfg.StoreURI, "mysql://"):
		return NewMySQLEngine(cfg)
	default:
		return NewSQLiteEngine(cfg)
	}
}

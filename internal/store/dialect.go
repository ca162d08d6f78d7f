package store

// Dialect isolates the handful of SQL differences between backends so
// a single engine implementation can drive all three: placeholder
// syntax, the autoincrement column definition, and the JSON column
// type. Everything else — table shape, indexes, query structure — is
// shared.
type Dialect interface {
	// Name identifies the dialect for logging and error messages.
	Name() string

	// DriverName is the database/sql driver name registered by this
	// dialect's blank import.
	DriverName() string

	// NormalizeDSN rewrites a legacy bare filename into this dialect's
	// connection-string form. Non-file dialects return uri unchanged.
	NormalizeDSN(uri string) string

	// Placeholder returns the parameter marker for the i-th (1-based)
	// bound argument in a query.
	Placeholder(i int) string

	// AutoIncrementPK returns the column definition for a single-column
	// auto-incrementing integer primary key named col.
	AutoIncrementPK(col string) string

	// JSONType returns the column type used to store a JSON document.
	JSONType() string
}

// placeholders renders n sequential placeholders for dialect d,
// comma-joined, e.g. "?, ?, ?" or "$1, $2, $3".
func placeholders(d Dialect, n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		out += d.Placeholder(i)
	}
	return out
}

// Package store persists content security checks in SQLite.
//
// # Drivers
//
// Two database/sql drivers are linked in:
//
//   - "sqlite": modernc.org/sqlite, pure Go (default)
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//
// Busy timeout and WAL mode are passed in the DSN so every pooled
// connection uses them.
//
// # Basic Usage
//
//	st, err := store.Open(&cfg.Store, store.WithMetrics(collector))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	res, err := st.Store(ctx, result.Checks)
//
//	records, err := st.Query(ctx, &store.Filter{
//	    Process:       logline.Child,
//	    ExternalTypes: []policytype.Type{policytype.Script},
//	})
//
// # Deduplication
//
// Every record carries a digest: the SHA-256 of the RFC 8785 canonical JSON
// of the check, including its source and line. With dedupe enabled,
// re-extracting a file that has already been stored inserts nothing.
//
// # Schema
//
// The schema is created on first use and tracked in the schema_version
// table. Absent values are stored as NULL; list fields are JSON arrays.
package store

package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the check database schema.
// Nullable columns hold absent values; list columns hold JSON arrays.
const Schema = `
CREATE TABLE IF NOT EXISTS checks (
    id TEXT PRIMARY KEY,
    digest TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,

    -- Location of the begin marker
    source TEXT NOT NULL,
    line INTEGER NOT NULL,
    process_type TEXT NOT NULL,

    channel_uri TEXT,
    http_method TEXT,
    loading_principal TEXT,
    triggering_principal TEXT,
    principal_to_inherit TEXT,
    redirect_chain TEXT,
    internal_content_policy_type TEXT NOT NULL,
    external_content_policy_type TEXT NOT NULL,
    upgrade_insecure_requests INTEGER NOT NULL,
    initial_security_checks_done INTEGER NOT NULL,
    allow_deprecated_system_requests INTEGER NOT NULL,
    csp TEXT,
    security_flags TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_checks_digest ON checks(digest);
CREATE INDEX IF NOT EXISTS idx_checks_recorded_at ON checks(recorded_at);
CREATE INDEX IF NOT EXISTS idx_checks_source ON checks(source, line);
CREATE INDEX IF NOT EXISTS idx_checks_external_type ON checks(external_content_policy_type);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const columns = `id, digest, recorded_at, source, line, process_type,
	channel_uri, http_method, loading_principal, triggering_principal, principal_to_inherit,
	redirect_chain, internal_content_policy_type, external_content_policy_type,
	upgrade_insecure_requests, initial_security_checks_done, allow_deprecated_system_requests,
	csp, security_flags`

const insertCheck = `INSERT INTO checks (` + columns + `)
	SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

const dedupeClause = ` WHERE NOT EXISTS (SELECT 1 FROM checks WHERE digest = ?)`

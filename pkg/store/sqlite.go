package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/csm/principal"
	"mercator-hq/csmlog/pkg/telemetry/metrics"
	"mercator-hq/csmlog/pkg/telemetry/tracing"
)

// Supported database/sql driver names.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Record is a stored check with its storage metadata.
type Record struct {
	ID         string                      `json:"id"`
	Digest     string                      `json:"digest"`
	RecordedAt time.Time                   `json:"recorded_at"`
	Check      *check.ContentSecurityCheck `json:"check"`
}

// Result summarizes one Store call.
type Result struct {
	Inserted int
	Skipped  int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.With("component", "store.sqlite")
		}
	}
}

// WithMetrics records writes and the stored record count.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Store) { s.metrics = c }
}

// WithTracer wraps writes and queries in child spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

// WithClock overrides the time source used for RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store persists checks in SQLite.
type Store struct {
	db      *sql.DB
	config  *config.StoreConfig
	driver  string
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	now     func() time.Time
}

// Open opens or creates the database described by cfg and applies the
// schema.
func Open(cfg *config.StoreConfig, opts ...Option) (*Store, error) {
	if cfg == nil {
		cfg = &config.Default().Store
	}

	s := &Store{
		config: cfg,
		driver: cfg.Driver,
		logger: slog.Default().With("component", "store.sqlite"),
		now:    time.Now,
	}
	if s.driver == "" {
		s.driver = DriverSQLite
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.driver != DriverSQLite && s.driver != DriverSQLite3 {
		return nil, NewStorageError(s.driver, "open", fmt.Errorf("unsupported driver %q", s.driver))
	}

	if cfg.Path != MemoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, NewStorageError(s.driver, "open", err)
			}
		}
	}

	db, err := sql.Open(s.driver, s.dsn())
	if err != nil {
		return nil, NewStorageError(s.driver, "open", err)
	}

	// Every connection to ":memory:" is a separate database.
	if cfg.Path == MemoryPath {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	s.db = db

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("SQLite store initialized",
		"path", cfg.Path,
		"driver", s.driver,
		"wal_mode", cfg.WALMode,
		"dedupe", cfg.Dedupe,
	)

	return s, nil
}

// dsn appends the busy timeout and journal mode in the syntax of the
// selected driver so that every pooled connection gets them.
func (s *Store) dsn() string {
	params := url.Values{}
	busy := s.config.BusyTimeout.Milliseconds()

	switch s.driver {
	case DriverSQLite3:
		if busy > 0 {
			params.Set("_busy_timeout", fmt.Sprint(busy))
		}
		if s.config.WALMode && s.config.Path != MemoryPath {
			params.Set("_journal_mode", "WAL")
		}
	default:
		if busy > 0 {
			params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		}
		if s.config.WALMode && s.config.Path != MemoryPath {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	}

	if len(params) == 0 {
		return s.config.Path
	}
	return s.config.Path + "?" + params.Encode()
}

// initialize creates the schema and verifies its version.
func (s *Store) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError(s.driver, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError(s.driver, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewStorageError(s.driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError(s.driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// Digest returns the hex SHA-256 of the RFC 8785 canonical JSON encoding of
// c. Equal checks from the same source line share a digest.
func Digest(c *check.ContentSecurityCheck) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Store persists checks in one transaction. With dedupe enabled, checks
// whose digest is already stored are skipped and counted in Result.Skipped.
func (s *Store) Store(ctx context.Context, checks []*check.ContentSecurityCheck) (Result, error) {
	ctx, span := s.startSpan(ctx, "csmlog.store.write")
	defer span.End()

	res, err := s.store(ctx, checks)

	span.SetAttributes(
		attribute.Int(tracing.AttrRecords, res.Inserted),
		attribute.Int("csmlog.store.skipped", res.Skipped),
	)
	tracing.SetError(span, err)
	if s.metrics != nil {
		s.metrics.RecordStoreWrite(res.Inserted, res.Skipped, err)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "storing checks failed", "error", err, "records", len(checks))
		return Result{}, err
	}

	s.logger.DebugContext(ctx, "checks stored", "inserted", res.Inserted, "skipped", res.Skipped)
	s.refreshGauge(ctx)
	return res, nil
}

func (s *Store) store(ctx context.Context, checks []*check.ContentSecurityCheck) (Result, error) {
	var res Result
	if len(checks) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, NewStorageError(s.driver, "begin", err)
	}
	defer tx.Rollback()

	query := insertCheck
	if s.config.Dedupe {
		query += dedupeClause
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return res, NewStorageError(s.driver, "prepare", err)
	}
	defer stmt.Close()

	recordedAt := s.now().UnixNano()
	for _, c := range checks {
		if c == nil {
			continue
		}
		digest, err := Digest(c)
		if err != nil {
			return Result{}, NewStorageError(s.driver, "digest", err)
		}

		args, err := rowArgs(uuid.New().String(), digest, recordedAt, c)
		if err != nil {
			return Result{}, NewStorageError(s.driver, "encode", err)
		}
		if s.config.Dedupe {
			args = append(args, digest)
		}

		r, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return Result{}, NewStorageError(s.driver, "store", err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return Result{}, NewStorageError(s.driver, "store", err)
		}
		if n == 0 {
			res.Skipped++
		} else {
			res.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, NewStorageError(s.driver, "commit", err)
	}
	return res, nil
}

// Query returns the records matching f, oldest first.
func (s *Store) Query(ctx context.Context, f *Filter) ([]*Record, error) {
	if f == nil {
		f = &Filter{}
	}
	if err := f.Validate(); err != nil {
		return nil, NewQueryError(f, err)
	}

	ctx, span := s.startSpan(ctx, "csmlog.store.query")
	defer span.End()

	where, args := f.whereClause()
	q := "SELECT " + columns + " FROM checks"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY recorded_at ASC, source ASC, line ASC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
		if f.Offset > 0 {
			q += fmt.Sprintf(" OFFSET %d", f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		err = NewStorageError(s.driver, "query", err)
		tracing.SetError(span, err)
		return nil, err
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			err = NewStorageError(s.driver, "scan", err)
			tracing.SetError(span, err)
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		err = NewStorageError(s.driver, "query", err)
		tracing.SetError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int(tracing.AttrRecords, len(records)))
	return records, nil
}

// Count returns the number of records matching f.
func (s *Store) Count(ctx context.Context, f *Filter) (int64, error) {
	if f == nil {
		f = &Filter{}
	}
	if err := f.Validate(); err != nil {
		return 0, NewQueryError(f, err)
	}

	where, args := f.whereClause()
	q := "SELECT COUNT(*) FROM checks"
	if where != "" {
		q += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, NewStorageError(s.driver, "count", err)
	}
	return count, nil
}

// DeleteBefore removes records stored before cutoff and returns how many
// were deleted.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM checks WHERE recorded_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, NewStorageError(s.driver, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.driver, "delete", err)
	}
	s.refreshGauge(ctx)
	return n, nil
}

// DeleteOldest removes the oldest records until at most keep remain.
func (s *Store) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM checks WHERE id IN (
			SELECT id FROM checks
			ORDER BY recorded_at DESC, source DESC, line DESC
			LIMIT -1 OFFSET ?
		)`, keep)
	if err != nil {
		return 0, NewStorageError(s.driver, "delete_oldest", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.driver, "delete_oldest", err)
	}
	s.refreshGauge(ctx)
	return n, nil
}

// Ping verifies that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(s.driver, "ping", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError(s.driver, "close", err)
	}
	s.logger.Info("SQLite store closed")
	return nil
}

func (s *Store) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s.tracer == nil {
		// A span from an empty context is a no-op.
		return ctx, trace.SpanFromContext(context.Background())
	}
	ctx, span := s.tracer.Start(ctx, name)
	span.SetAttributes(attribute.String(tracing.AttrStoreDriver, "sqlite"))
	return ctx, span
}

func (s *Store) refreshGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	n, err := s.Count(ctx, nil)
	if err != nil {
		s.logger.Warn("counting stored records failed", "error", err)
		return
	}
	s.metrics.SetStoredRecords(n)
}

func rowArgs(id, digest string, recordedAt int64, c *check.ContentSecurityCheck) ([]any, error) {
	redirects, err := jsonList(c.RedirectChain)
	if err != nil {
		return nil, err
	}
	csp, err := jsonList(c.CSP)
	if err != nil {
		return nil, err
	}
	flags, err := json.Marshal(nonNil(c.SecurityFlags))
	if err != nil {
		return nil, err
	}

	return []any{
		id, digest, recordedAt,
		c.Source, c.Line, c.ProcessType.String(),
		nullString(c.ChannelURI), c.HTTPMethod,
		principalValue(c.LoadingPrincipal),
		principalValue(c.TriggeringPrincipal),
		principalValue(c.PrincipalToInherit),
		redirects,
		c.InternalContentPolicyType.String(),
		c.ExternalContentPolicyType.String(),
		c.UpgradeInsecureRequests,
		c.InitialSecurityChecksDone,
		c.AllowDeprecatedSystemRequests,
		csp,
		string(flags),
	}, nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var rec Record
	var c check.ContentSecurityCheck
	var recordedAt int64
	var process, internalType, externalType, flags string
	var channelURI, method, loading, triggering, inherit, redirects, csp sql.NullString

	err := rows.Scan(
		&rec.ID, &rec.Digest, &recordedAt,
		&c.Source, &c.Line, &process,
		&channelURI, &method,
		&loading, &triggering, &inherit,
		&redirects, &internalType, &externalType,
		&c.UpgradeInsecureRequests, &c.InitialSecurityChecksDone, &c.AllowDeprecatedSystemRequests,
		&csp, &flags,
	)
	if err != nil {
		return nil, err
	}

	rec.RecordedAt = time.Unix(0, recordedAt).UTC()
	c.ProcessType = logline.ParseProcessTag(process)
	c.ChannelURI = channelURI.String
	if method.Valid {
		m := method.String
		c.HTTPMethod = &m
	}
	if c.LoadingPrincipal, err = parsePrincipal(loading); err != nil {
		return nil, err
	}
	if c.TriggeringPrincipal, err = parsePrincipal(triggering); err != nil {
		return nil, err
	}
	if c.PrincipalToInherit, err = parsePrincipal(inherit); err != nil {
		return nil, err
	}
	if c.RedirectChain, err = parseList(redirects); err != nil {
		return nil, err
	}
	if c.CSP, err = parseList(csp); err != nil {
		return nil, err
	}
	c.SecurityFlags = []string{}
	if err := json.Unmarshal([]byte(flags), &c.SecurityFlags); err != nil {
		return nil, fmt.Errorf("decoding security_flags: %w", err)
	}
	c.InternalContentPolicyType = policytype.Parse(internalType)
	c.ExternalContentPolicyType = policytype.Parse(externalType)

	rec.Check = &c
	return &rec, nil
}

func principalValue(p principal.Principal) any {
	if p.IsAbsent() {
		return nil
	}
	return p.String()
}

func parsePrincipal(v sql.NullString) (principal.Principal, error) {
	if !v.Valid {
		return principal.Principal{}, nil
	}
	return principal.Parse(v.String)
}

func jsonList(items []string) (any, error) {
	if items == nil {
		return nil, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func parseList(v sql.NullString) ([]string, error) {
	if !v.Valid {
		return nil, nil
	}
	items := []string{}
	if err := json.Unmarshal([]byte(v.String), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

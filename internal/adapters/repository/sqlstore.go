package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/varkiosk/internal/domain/model"
	"github.com/okian/varkiosk/pkg/metrics"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const (
	defaultMaxOpenConns = 4
	defaultQueryTimeout = 5 * time.Second
)

var migrations = map[Dialect][]string{ //nolint:gochecknoglobals // static schema
	DialectSQLite: {
		`CREATE TABLE IF NOT EXISTS score_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			initials TEXT NOT NULL,
			accuracy REAL NOT NULL,
			event_timestamp TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_entries_rank ON score_entries(accuracy DESC, id ASC)`,
	},
	DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS score_entries (
			id BIGSERIAL PRIMARY KEY,
			initials TEXT NOT NULL,
			accuracy DOUBLE PRECISION NOT NULL,
			event_timestamp TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_entries_rank ON score_entries(accuracy DESC, id ASC)`,
	},
}

// SQLStore persists the leaderboard in SQLite or Postgres.
type SQLStore struct {
	db           *sql.DB
	dialect      Dialect
	maxOpenConns int
	queryTimeout time.Duration
}

// NewSQLStore opens dsn with the dialect's driver and applies migrations.
func NewSQLStore(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*SQLStore, error) {
	if _, ok := migrations[dialect]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open %s: %w", dialect, err)
	}
	s, err := NewSQLStoreFromDB(ctx, db, dialect, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStoreFromDB wraps an existing sql.DB and applies migrations.
func NewSQLStoreFromDB(ctx context.Context, db *sql.DB, dialect Dialect, opts ...Option) (*SQLStore, error) {
	if _, ok := migrations[dialect]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
	s := &SQLStore{
		db:           db,
		dialect:      dialect,
		maxOpenConns: defaultMaxOpenConns,
		queryTimeout: defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	// A single connection keeps in-memory databases shared and serializes writers.
	if dialect == DialectSQLite {
		s.maxOpenConns = 1
		db.SetConnMaxLifetime(0)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("repository: ping %s: %w", dialect, err)
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}

	count, err := s.Count(ctx)
	if err == nil {
		metrics.UpdateRepositoryRecordsTotal(count)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	for _, stmt := range migrations[s.dialect] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("repository: migrate: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: migrate commit: %w", err)
	}
	return nil
}

// Add inserts one row.
func (s *SQLStore) Add(ctx context.Context, e model.ScoreEntry) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryAddLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := ValidateEntry(e); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_entry")
		return err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO score_entries (initials, accuracy, event_timestamp) VALUES (?, ?, ?)`),
		e.Initials, e.Accuracy, e.Timestamp,
	)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "insert_failed")
		return fmt.Errorf("repository: insert: %w", err)
	}

	if count, err := s.Count(ctx); err == nil {
		metrics.UpdateRepositoryRecordsTotal(count)
	}
	return nil
}

// TopN returns up to n rows ordered by accuracy desc, id asc.
func (s *SQLStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, initials, accuracy, event_timestamp FROM score_entries ORDER BY accuracy DESC, id ASC LIMIT ?`),
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: query top: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Entry, 0, n)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Seq, &e.Initials, &e.Accuracy, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("repository: scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: rows: %w", err)
	}
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of rows.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM score_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository: count: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

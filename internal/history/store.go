// Package history persists result envelopes and their eventual prediction
// outcomes. It is a result consumer: the engine never writes here
// implicitly, callers record what they want to keep. Recorded outcomes
// feed the historical-accuracy confidence factor for later requests.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	// Register Postgres SQL driver.
	_ "github.com/lib/pq"
	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"
)

type sqlDialect string

const (
	dialectSQLite   sqlDialect = "sqlite"
	dialectPostgres sqlDialect = "postgres"
)

// DefaultAccuracy is assumed for symbols with no recorded outcomes yet.
const DefaultAccuracy = 0.7

// Entry is one persisted analysis.
type Entry struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Provider  string          `json:"provider"`
	Level     string          `json:"level"`
	Overall   float64         `json:"overall"`
	Envelope  json.RawMessage `json:"envelope"`
	CreatedAt time.Time       `json:"created_at"`
	// Correct is nil until an outcome is recorded.
	Correct *bool `json:"correct,omitempty"`
}

// Store persists analyses in SQL backends (SQLite or Postgres).
type Store struct {
	db      *sql.DB
	dialect sqlDialect
}

// NewSQLite creates a SQLite-backed history store. dsn can be a file path
// or SQLite DSN; ":memory:" gives an ephemeral store for tests.
func NewSQLite(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "researchgw-history.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history store: %w", err)
	}
	store := &Store{db: db, dialect: dialectSQLite}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgres creates a Postgres-backed history store.
func NewPostgres(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres history store: %w", err)
	}
	store := &Store{db: db, dialect: dialectPostgres}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping %s history store: %w", s.dialect, err)
	}

	var ddl string
	switch s.dialect {
	case dialectPostgres:
		ddl = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	provider TEXT NOT NULL,
	level TEXT NOT NULL,
	overall DOUBLE PRECISION NOT NULL,
	envelope TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	correct BOOLEAN NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_symbol ON analyses(symbol, created_at);`
	default:
		ddl = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	provider TEXT NOT NULL,
	level TEXT NOT NULL,
	overall REAL NOT NULL,
	envelope TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	correct BOOLEAN NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_symbol ON analyses(symbol, created_at);`
	}

	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize %s history schema: %w", s.dialect, err)
	}
	return nil
}

// Record persists one analysis envelope and returns its id.
func (s *Store) Record(ctx context.Context, symbol, provider, level string, overall float64, envelope any) (string, error) {
	raw, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}

	id := uuid.NewString()
	q := s.bind(`
INSERT INTO analyses(id, symbol, provider, level, overall, envelope, created_at, correct)
VALUES(?, ?, ?, ?, ?, ?, ?, NULL)`)
	if _, err := s.db.ExecContext(ctx, q, id, symbol, provider, level, overall, string(raw), time.Now().UTC()); err != nil {
		return "", fmt.Errorf("record analysis: %w", err)
	}
	return id, nil
}

// RecordOutcome marks an analysis as having been borne out (or not) by
// later price action.
func (s *Store) RecordOutcome(ctx context.Context, id string, correct bool) error {
	q := s.bind(`UPDATE analyses SET correct = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, correct, id)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record outcome: analysis %s not found", id)
	}
	return nil
}

// Recent returns up to n analyses for symbol, newest first.
func (s *Store) Recent(ctx context.Context, symbol string, n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}
	q := s.bind(`
SELECT id, symbol, provider, level, overall, envelope, created_at, correct
FROM analyses WHERE symbol = ? ORDER BY created_at DESC LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("query recent analyses: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			envelope string
			correct  sql.NullBool
		)
		if err := rows.Scan(&e.ID, &e.Symbol, &e.Provider, &e.Level, &e.Overall, &envelope, &e.CreatedAt, &correct); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		e.Envelope = json.RawMessage(envelope)
		if correct.Valid {
			e.Correct = &correct.Bool
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Accuracy returns the fraction of scored analyses for symbol that proved
// correct. Symbols with no scored history get DefaultAccuracy, matching a
// moderate prior.
func (s *Store) Accuracy(ctx context.Context, symbol string) (float64, error) {
	q := s.bind(`
SELECT COUNT(*), COALESCE(SUM(CASE WHEN correct THEN 1 ELSE 0 END), 0)
FROM analyses WHERE symbol = ? AND correct IS NOT NULL`)

	var total, right int
	if err := s.db.QueryRowContext(ctx, q, symbol).Scan(&total, &right); err != nil {
		return 0, fmt.Errorf("query accuracy: %w", err)
	}
	if total == 0 {
		return DefaultAccuracy, nil
	}
	return float64(right) / float64(total), nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// bind converts ?-style placeholders to the dialect's form.
func (s *Store) bind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var (
		b      strings.Builder
		argNum = 1
	)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			fmt.Fprintf(&b, "$%d", argNum)
			argNum++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tracepad/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout keeps stored timestamps fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps SQLite access for session outcomes.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Replay workers share one handle.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			submitted_at TEXT NOT NULL,
			samples INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			metric REAL,
			error TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_submitted_at ON sessions(submitted_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_mode ON sessions(mode);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertOutcome stores the result of one submitted session.
func (s *Store) InsertOutcome(ctx context.Context, out model.SessionOutcome) (int64, error) {
	var metric any
	if out.Metric != nil {
		metric = *out.Metric
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, mode, started_at, submitted_at, samples, duration_ms, metric, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		out.SessionID,
		string(out.Mode),
		out.StartedAt.UTC().Format(timeLayout),
		out.SubmittedAt.UTC().Format(timeLayout),
		out.Samples,
		out.DurationMs,
		metric,
		out.Error,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListOutcomes returns outcomes in submission order. Last keeps only the most recent N.
func (s *Store) ListOutcomes(ctx context.Context, filter model.HistoryFilter) ([]model.SessionOutcome, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, string(filter.Mode))
	}
	if filter.Since != nil {
		clauses = append(clauses, "submitted_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT session_id, mode, started_at, submitted_at, samples, duration_ms, metric, error
		FROM sessions
		WHERE %s
		ORDER BY submitted_at DESC, id DESC`, strings.Join(clauses, " AND "))
	if filter.Last > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var outcomes []model.SessionOutcome
	for rows.Next() {
		var out model.SessionOutcome
		var mode, startedAt, submittedAt string
		var metric sql.NullFloat64
		if err := rows.Scan(&out.SessionID, &mode, &startedAt, &submittedAt, &out.Samples, &out.DurationMs, &metric, &out.Error); err != nil {
			return nil, err
		}
		out.Mode = model.Mode(mode)
		if out.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, err
		}
		if out.SubmittedAt, err = time.Parse(timeLayout, submittedAt); err != nil {
			return nil, err
		}
		if metric.Valid {
			v := metric.Float64
			out.Metric = &v
		}
		outcomes = append(outcomes, out)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Oldest first, like the session charts expect.
	for i, j := 0, len(outcomes)-1; i < j; i, j = i+1, j-1 {
		outcomes[i], outcomes[j] = outcomes[j], outcomes[i]
	}
	return outcomes, nil
}

// CountByMode returns the number of stored outcomes per mode.
func (s *Store) CountByMode(ctx context.Context) (map[model.Mode]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mode, COUNT(*) FROM sessions GROUP BY mode`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[model.Mode]int{}
	for rows.Next() {
		var mode string
		var count int
		if err := rows.Scan(&mode, &count); err != nil {
			return nil, err
		}
		result[model.Mode(mode)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Package sqlite persists review run history.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kestrelci/reviewbot/internal/usecase/review"
)

var _ review.Store = (*Store)(nil)

// Store records review runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore creates a store at the given path. Use ":memory:" for an
// in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates the run history table if it doesn't exist.
func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS review_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		repository TEXT NOT NULL,
		pull_number INTEGER NOT NULL,
		verdict TEXT NOT NULL,
		comments INTEGER NOT NULL,
		model TEXT NOT NULL,
		fell_back INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_review_runs_repo_pr
		ON review_runs(repository, pull_number);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// RecordRun inserts one row per completed run.
func (s *Store) RecordRun(ctx context.Context, run review.RunRecord) error {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_runs (repository, pull_number, verdict, comments, model, fell_back, skipped, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Repository, run.PullNumber, run.Verdict, run.Comments, run.Model,
		boolToInt(run.FellBack), boolToInt(run.Skipped), createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs for a repository, newest first.
func (s *Store) RecentRuns(ctx context.Context, repository string, limit int) ([]review.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT repository, pull_number, verdict, comments, model, fell_back, skipped, created_at
		FROM review_runs
		WHERE repository = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		repository, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []review.RunRecord
	for rows.Next() {
		var run review.RunRecord
		var fellBack, skipped int
		var createdAt int64
		if err := rows.Scan(&run.Repository, &run.PullNumber, &run.Verdict, &run.Comments,
			&run.Model, &fellBack, &skipped, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.FellBack = fellBack != 0
		run.Skipped = skipped != 0
		run.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

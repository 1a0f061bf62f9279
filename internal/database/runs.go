package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/kwcrawl/internal/model"
)

// SaveRun inserts or updates the row of a run.
func (cdb *CrawlDB) SaveRun(ctx context.Context, s *model.RunSummary) error {
	query := `
	INSERT INTO runs (id, mode, keyword, target, started_at, finished_at,
		processed, visited, fetch_failures, matches, persist_failures, interrupted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished_at = excluded.finished_at,
		processed = excluded.processed,
		visited = excluded.visited,
		fetch_failures = excluded.fetch_failures,
		matches = excluded.matches,
		persist_failures = excluded.persist_failures,
		interrupted = excluded.interrupted
	`

	var finished any
	if !s.FinishedAt.IsZero() {
		finished = s.FinishedAt.UTC().Format(storedTimeLayout)
	}
	_, err := cdb.db.ExecContext(ctx, query,
		s.ID,
		s.Mode,
		s.Keyword,
		s.Target,
		s.StartedAt.UTC().Format(storedTimeLayout),
		finished,
		s.Processed,
		s.Visited,
		s.FetchFailures,
		s.Matches,
		s.PersistFailures,
		s.Interrupted,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

const runColumns = `id, mode, keyword, target, started_at, finished_at,
	processed, visited, fetch_failures, matches, persist_failures, interrupted`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.RunSummary, error) {
	var (
		s        model.RunSummary
		started  string
		finished sql.NullString
	)
	err := row.Scan(
		&s.ID,
		&s.Mode,
		&s.Keyword,
		&s.Target,
		&started,
		&finished,
		&s.Processed,
		&s.Visited,
		&s.FetchFailures,
		&s.Matches,
		&s.PersistFailures,
		&s.Interrupted,
	)
	if err != nil {
		return nil, err
	}
	s.StartedAt = parseTimestamp(started)
	if finished.Valid {
		s.FinishedAt = parseTimestamp(finished.String)
	}
	return &s, nil
}

// GetRun returns the run with id, or nil when there is none.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*model.RunSummary, error) {
	row := cdb.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	s, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return s, nil
}

// ListRuns returns the most recent runs first. A non-positive limit
// returns every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]*model.RunSummary, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC"
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.RunSummary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

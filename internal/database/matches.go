package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/kwcrawl/internal/model"
)

// PageMatch is a stored matching page.
type PageMatch struct {
	RunID       string    `json:"run_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PublishDate string    `json:"publish_date,omitempty"`
	Author      string    `json:"author,omitempty"`
	WordCount   int       `json:"word_count"`
	Occurrences int       `json:"occurrences"`
	Contexts    []string  `json:"contexts"`
	Timestamp   time.Time `json:"timestamp"`
}

// ResourceMatch is a stored matching resource or datastore record.
type ResourceMatch struct {
	RunID        string    `json:"run_id"`
	DatasetID    string    `json:"dataset_id"`
	ResourceID   string    `json:"resource_id"`
	ResourceName string    `json:"resource_name"`
	SourceURL    string    `json:"source_url"`
	RecordIndex  int       `json:"record_index"`
	Occurrences  int       `json:"occurrences"`
	Contexts     []string  `json:"contexts"`
	Timestamp    time.Time `json:"timestamp"`
}

// InsertPageMatch stores a page match of a run. Re-inserting the same URL
// for the same run updates the row.
func (cdb *CrawlDB) InsertPageMatch(ctx context.Context, runID string, page *model.PageRecord, match model.KeywordMatch) error {
	contexts, err := json.Marshal(match.Contexts)
	if err != nil {
		return fmt.Errorf("failed to serialize contexts: %w", err)
	}

	query := `
	INSERT INTO page_matches (run_id, url, title, publish_date, author, word_count, occurrences, contexts)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		title = excluded.title,
		publish_date = excluded.publish_date,
		author = excluded.author,
		word_count = excluded.word_count,
		occurrences = excluded.occurrences,
		contexts = excluded.contexts,
		timestamp = CURRENT_TIMESTAMP
	`
	_, err = cdb.db.ExecContext(ctx, query,
		runID,
		page.URL,
		page.Title,
		model.StringValue(page.PublishDate),
		model.StringValue(page.Author),
		page.WordCount,
		match.Occurrences,
		string(contexts),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page match: %w", err)
	}
	return nil
}

// InsertResourceMatch stores a resource match of a run.
func (cdb *CrawlDB) InsertResourceMatch(ctx context.Context, runID string, m model.ResourceMatch) error {
	contexts, err := json.Marshal(m.Match.Contexts)
	if err != nil {
		return fmt.Errorf("failed to serialize contexts: %w", err)
	}

	query := `
	INSERT INTO resource_matches (run_id, match_key, dataset_id, resource_id, resource_name,
		source_url, record_index, occurrences, contexts)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, match_key) DO UPDATE SET
		occurrences = excluded.occurrences,
		contexts = excluded.contexts,
		timestamp = CURRENT_TIMESTAMP
	`
	_, err = cdb.db.ExecContext(ctx, query,
		runID,
		m.Key(),
		m.Resource.DatasetID,
		m.Resource.ResourceID,
		m.Resource.ResourceName,
		m.Resource.SourceURL,
		m.RecordIndex,
		m.Match.Occurrences,
		string(contexts),
	)
	if err != nil {
		return fmt.Errorf("failed to insert resource match: %w", err)
	}
	return nil
}

// PageMatches returns the page matches of a run in insertion order.
func (cdb *CrawlDB) PageMatches(ctx context.Context, runID string) ([]PageMatch, error) {
	return cdb.queryPageMatches(ctx, "WHERE run_id = ? ORDER BY id", runID)
}

// URLHistory returns every stored match of url, most recent first.
func (cdb *CrawlDB) URLHistory(ctx context.Context, url string) ([]PageMatch, error) {
	return cdb.queryPageMatches(ctx, "WHERE url = ? ORDER BY timestamp DESC, id DESC", url)
}

func (cdb *CrawlDB) queryPageMatches(ctx context.Context, where string, args ...any) ([]PageMatch, error) {
	query := `
	SELECT run_id, url, title, publish_date, author, word_count, occurrences, contexts, timestamp
	FROM page_matches ` + where

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query page matches: %w", err)
	}
	defer rows.Close()

	var out []PageMatch
	for rows.Next() {
		var (
			m         PageMatch
			contexts  sql.NullString
			timestamp string
		)
		if err := rows.Scan(&m.RunID, &m.URL, &m.Title, &m.PublishDate, &m.Author,
			&m.WordCount, &m.Occurrences, &contexts, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan page match: %w", err)
		}
		m.Timestamp = parseTimestamp(timestamp)
		if contexts.Valid && contexts.String != "" {
			if err := json.Unmarshal([]byte(contexts.String), &m.Contexts); err != nil {
				m.Contexts = nil
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ResourceMatches returns the resource matches of a run in insertion order.
func (cdb *CrawlDB) ResourceMatches(ctx context.Context, runID string) ([]ResourceMatch, error) {
	query := `
	SELECT run_id, dataset_id, resource_id, resource_name, source_url, record_index, occurrences, contexts, timestamp
	FROM resource_matches WHERE run_id = ? ORDER BY id`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resource matches: %w", err)
	}
	defer rows.Close()

	var out []ResourceMatch
	for rows.Next() {
		var (
			m         ResourceMatch
			contexts  sql.NullString
			timestamp string
		)
		if err := rows.Scan(&m.RunID, &m.DatasetID, &m.ResourceID, &m.ResourceName, &m.SourceURL,
			&m.RecordIndex, &m.Occurrences, &contexts, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan resource match: %w", err)
		}
		m.Timestamp = parseTimestamp(timestamp)
		if contexts.Valid && contexts.String != "" {
			if err := json.Unmarshal([]byte(contexts.String), &m.Contexts); err != nil {
				m.Contexts = nil
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

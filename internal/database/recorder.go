package database

import (
	"context"

	"github.com/nao1215/kwcrawl/internal/model"
)

// Recorder writes the matches of one run. It implements sink.Sink.
type Recorder struct {
	db    *CrawlDB
	runID string
}

// Recorder returns a Recorder for runID.
func (cdb *CrawlDB) Recorder(runID string) *Recorder {
	return &Recorder{db: cdb, runID: runID}
}

// Record stores page when the keyword occurred in it.
func (r *Recorder) Record(ctx context.Context, page *model.PageRecord, match model.KeywordMatch) error {
	if !match.Matched() {
		return nil
	}
	return r.db.InsertPageMatch(ctx, r.runID, page, match)
}

// RecordResource stores m when the keyword occurred in it.
func (r *Recorder) RecordResource(ctx context.Context, m model.ResourceMatch) error {
	if !m.Match.Matched() {
		return nil
	}
	return r.db.InsertResourceMatch(ctx, r.runID, m)
}

// Close is a no-op; the CrawlDB is closed by its owner.
func (r *Recorder) Close() error {
	return nil
}

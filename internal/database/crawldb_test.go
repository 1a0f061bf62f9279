package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/kwcrawl/internal/model"
)

func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "a", "b")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("missing database without create fails", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	older := model.NewRunSummary(model.ModeCrawl, "vuurwerk", "https://site.test")
	older.StartedAt = time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC)
	if err := db.SaveRun(ctx, older); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	newer := model.NewRunSummary(model.ModeDataset, "vuurwerk", "ds-1")
	newer.StartedAt = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if err := db.SaveRun(ctx, newer); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	older.Processed = 7
	older.Matches = 2
	older.Interrupted = true
	older.FinishedAt = older.StartedAt.Add(time.Minute)
	if err := db.SaveRun(ctx, older); err != nil {
		t.Fatalf("SaveRun update failed: %v", err)
	}

	t.Run("get run", func(t *testing.T) {
		t.Parallel()

		got, err := db.GetRun(ctx, older.ID)
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected run")
		}
		if got.Processed != 7 || got.Matches != 2 || !got.Interrupted {
			t.Errorf("unexpected counters: %+v", got)
		}
		if !got.StartedAt.Equal(older.StartedAt) {
			t.Errorf("StartedAt = %v, want %v", got.StartedAt, older.StartedAt)
		}
		if got.Duration() != time.Minute {
			t.Errorf("Duration = %v, want 1m", got.Duration())
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		got, err := db.GetRun(ctx, "nope")
		if err != nil || got != nil {
			t.Errorf("GetRun(nope) = %v, %v", got, err)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 2 || runs[0].ID != newer.ID || runs[1].ID != older.ID {
			t.Errorf("unexpected order: %+v", runs)
		}

		runs, err = db.ListRuns(ctx, 1)
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("limit ignored: %d runs", len(runs))
		}
	})
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run := model.NewRunSummary(model.ModeCrawl, "vuurwerk", "https://site.test")
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	rec := db.Recorder(run.ID)

	page := model.NewPageRecord("https://site.test/a")
	page.Title = "Vuurwerk"
	page.PublishDate = model.OptionalString("2024-01-01")
	page.SetBodyText("vuurwerk vuurwerk")
	match := model.KeywordMatch{Occurrences: 2, Contexts: []string{"vuurwerk vuurwerk"}}

	if err := rec.Record(ctx, page, match); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := rec.Record(ctx, page, match); err != nil {
		t.Fatalf("Record (upsert) failed: %v", err)
	}
	if err := rec.Record(ctx, model.NewPageRecord("https://site.test/none"), model.KeywordMatch{}); err != nil {
		t.Fatalf("Record (no match) failed: %v", err)
	}

	res := model.ResourceMatch{
		Resource:    model.ResourceRecord{ResourceID: "r1", DatasetID: "ds", SourceURL: "https://x/r.csv"},
		RecordIndex: 4,
		Match:       model.KeywordMatch{Occurrences: 1, Contexts: []string{"vuurwerk"}},
	}
	if err := rec.RecordResource(ctx, res); err != nil {
		t.Fatalf("RecordResource failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	pages, err := db.PageMatches(ctx, run.ID)
	if err != nil {
		t.Fatalf("PageMatches failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page match, got %d", len(pages))
	}
	if pages[0].PublishDate != "2024-01-01" || pages[0].Occurrences != 2 || len(pages[0].Contexts) != 1 {
		t.Errorf("unexpected page match: %+v", pages[0])
	}

	history, err := db.URLHistory(ctx, "https://site.test/a")
	if err != nil {
		t.Fatalf("URLHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].RunID != run.ID {
		t.Errorf("unexpected history: %+v", history)
	}

	resources, err := db.ResourceMatches(ctx, run.ID)
	if err != nil {
		t.Fatalf("ResourceMatches failed: %v", err)
	}
	if len(resources) != 1 || resources[0].RecordIndex != 4 || resources[0].ResourceID != "r1" {
		t.Errorf("unexpected resource matches: %+v", resources)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2024-01-02 03:04:05", want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "2024-01-02T03:04:05Z", want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "2024-01-02 03:04:05.500000000", want: time.Date(2024, 1, 2, 3, 4, 5, 500000000, time.UTC)},
		{in: "garbage", want: time.Time{}},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

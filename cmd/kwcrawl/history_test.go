package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/kwcrawl/internal/database"
	"github.com/nao1215/kwcrawl/internal/model"
)

func setupHistory(t *testing.T) (*database.CrawlDB, *model.RunSummary) {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	run := model.NewRunSummary(model.ModeCrawl, "vuurwerk", "https://www.politie.nl/nieuws")
	run.Processed = 5
	run.Matches = 1
	run.FinishedAt = run.StartedAt.Add(time.Minute)
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	page := &model.PageRecord{URL: "https://www.politie.nl/nieuws/vuurwerk", Title: "Illegaal vuurwerk"}
	match := model.KeywordMatch{Keyword: "vuurwerk", Occurrences: 2, Contexts: []string{"illegaal vuurwerk gevonden"}}
	if err := db.Recorder(run.ID).Record(ctx, page, match); err != nil {
		t.Fatal(err)
	}
	return db, run
}

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	for _, name := range []string{"limit", "run", "url", "json", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestRunHistory(t *testing.T) {
	t.Parallel()

	db, run := setupHistory(t)
	ctx := context.Background()

	t.Run("lists runs", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runHistory(ctx, db, historyOptions{limit: 10}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), run.ID) {
			t.Errorf("expected run ID in:\n%s", out.String())
		}
	})

	t.Run("shows one run", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runHistory(ctx, db, historyOptions{runID: run.ID}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := out.String()
		if !strings.Contains(text, "[2] https://www.politie.nl/nieuws/vuurwerk") {
			t.Errorf("expected match line in:\n%s", text)
		}
		if !strings.Contains(text, "Illegaal vuurwerk") {
			t.Error("expected match title")
		}
	})

	t.Run("run as JSON", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runHistory(ctx, db, historyOptions{runID: run.ID, json: true}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got struct {
			Run   model.RunSummary `json:"run"`
			Pages []json.RawMessage `json:"pages"`
		}
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Run.ID != run.ID || len(got.Pages) != 1 {
			t.Errorf("got run %s with %d pages", got.Run.ID, len(got.Pages))
		}
		if !strings.Contains(out.String(), `"duration_seconds"`) || !strings.Contains(out.String(), `"version"`) {
			t.Errorf("expected derived summary fields in:\n%s", out.String())
		}
	})

	t.Run("runs as JSON", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runHistory(ctx, db, historyOptions{limit: 10, json: true}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got []struct {
			ID      string `json:"id"`
			Version string `json:"version"`
		}
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got) != 1 || got[0].ID != run.ID {
			t.Fatalf("runs = %+v, want only %s", got, run.ID)
		}
		if got[0].Version != getVersion() {
			t.Errorf("version = %q, want %q", got[0].Version, getVersion())
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		if err := runHistory(ctx, db, historyOptions{runID: "nope"}, &bytes.Buffer{}); err == nil {
			t.Error("expected error for unknown run")
		}
	})

	t.Run("url history", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		opts := historyOptions{url: "https://www.politie.nl/nieuws/vuurwerk"}
		if err := runHistory(ctx, db, opts, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "illegaal vuurwerk gevonden") {
			t.Errorf("expected context in:\n%s", out.String())
		}
	})

	t.Run("url without matches", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runHistory(ctx, db, historyOptions{url: "https://example.com"}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "No matches found") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
	})
}

func TestRunHistoryCmdFlags(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	cmd.SetArgs([]string{"--run", "a", "--url", "b", "--db-dir", t.TempDir()})
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "cannot be used together") {
		t.Errorf("err = %v, want conflict error", err)
	}
}

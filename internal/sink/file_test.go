package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/kwcrawl/internal/model"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open CSV: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	return rows
}

func testPage(url, title string) *model.PageRecord {
	p := model.NewPageRecord(url)
	p.Title = title
	p.Tags = []string{"vuurwerk", "oud & nieuw"}
	p.SetBodyText("Café verkocht <illegaal> vuurwerk.")
	return p
}

func testMatch() model.KeywordMatch {
	return model.KeywordMatch{
		Keyword:     "vuurwerk",
		Occurrences: 1,
		Contexts:    []string{"Café verkocht <illegaal> vuurwerk."},
		Sentences:   []string{"Café verkocht <illegaal> vuurwerk."},
		NumbersNear: []string{},
		DatesNear:   []string{},
	}
}

func TestFileSinkHeader(t *testing.T) {
	t.Parallel()

	t.Run("header written without rows", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out", "pages.csv")
		s, err := NewFileSink(path, KindPages)
		if err != nil {
			t.Fatalf("NewFileSink failed: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		rows := readCSV(t, path)
		if len(rows) != 1 {
			t.Fatalf("expected header only, got %d rows", len(rows))
		}
		if !reflect.DeepEqual(rows[0], PageColumns) {
			t.Errorf("header = %v, want %v", rows[0], PageColumns)
		}
	})

	t.Run("resource header", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "resources.csv")
		s, err := NewFileSink(path, KindResources)
		if err != nil {
			t.Fatalf("NewFileSink failed: %v", err)
		}
		defer s.Close()

		rows := readCSV(t, path)
		if !reflect.DeepEqual(rows[0], ResourceColumns) {
			t.Errorf("header = %v, want %v", rows[0], ResourceColumns)
		}
	})
}

func TestFileSinkRecord(t *testing.T) {
	t.Parallel()

	t.Run("writes matching page with literal non-ASCII", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "pages.csv")
		s, err := NewFileSink(path, KindPages)
		if err != nil {
			t.Fatalf("NewFileSink failed: %v", err)
		}

		if err := s.Record(context.Background(), testPage("https://site.test/a", "Titel"), testMatch()); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		rows := readCSV(t, path)
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		row := rows[1]
		if row[1] != "https://site.test/a" {
			t.Errorf("url = %q", row[1])
		}
		if row[4] != "vuurwerk;oud & nieuw" {
			t.Errorf("tags = %q", row[4])
		}
		if row[9] != "1" {
			t.Errorf("keyword_occurrences = %q", row[9])
		}
		if row[10] != `["Café verkocht <illegaal> vuurwerk."]` {
			t.Errorf("keyword_contexts = %q", row[10])
		}
		if row[14] != "[]" {
			t.Errorf("categories = %q", row[14])
		}
	})

	t.Run("skips non-matching and duplicate pages", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "pages.csv")
		s, err := NewFileSink(path, KindPages)
		if err != nil {
			t.Fatalf("NewFileSink failed: %v", err)
		}
		ctx := context.Background()

		_ = s.Record(ctx, testPage("https://site.test/none", "x"), model.KeywordMatch{})
		_ = s.Record(ctx, testPage("https://site.test/a", "x"), testMatch())
		_ = s.Record(ctx, testPage("https://site.test/a", "x"), testMatch())
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		if s.Rows() != 1 {
			t.Errorf("Rows() = %d, want 1", s.Rows())
		}
		if rows := readCSV(t, path); len(rows) != 2 {
			t.Errorf("expected header + 1 row, got %d rows", len(rows))
		}
	})

	t.Run("always persist writes zero matches", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "pages.csv")
		s, err := NewFileSink(path, KindPages, WithAlwaysPersist(true))
		if err != nil {
			t.Fatalf("NewFileSink failed: %v", err)
		}
		_ = s.Record(context.Background(), testPage("https://site.test/none", "x"), model.KeywordMatch{})
		_ = s.Close()

		rows := readCSV(t, path)
		if len(rows) != 2 {
			t.Fatalf("expected header + 1 row, got %d rows", len(rows))
		}
		if !strings.HasPrefix(rows[1][7], "Café") {
			t.Errorf("snippet should fall back to body text, got %q", rows[1][7])
		}
	})

	t.Run("writes JSON side-files with stable names", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		jsonDir := filepath.Join(dir, "pages")
		s, err := NewFileSink(filepath.Join(dir, "pages.csv"), KindPages, WithJSONDir(jsonDir))
		if err != nil {
			t.Fatalf("NewFileSink failed: %v", err)
		}
		ctx := context.Background()
		if err := s.Record(ctx, testPage("https://site.test/a", "Illegaal vuurwerk"), testMatch()); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if err := s.Record(ctx, testPage("https://site.test/b", ""), testMatch()); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		_ = s.Close()

		first := filepath.Join(jsonDir, PageFileName(1, "Illegaal vuurwerk", "https://site.test/a"))
		data, err := os.ReadFile(first)
		if err != nil {
			t.Fatalf("side-file missing: %v", err)
		}
		if !strings.Contains(string(data), "<illegaal>") || !strings.Contains(string(data), "Café") {
			t.Errorf("expected literal HTML and non-ASCII characters, got %s", data)
		}

		var payload struct {
			Page  model.PageRecord   `json:"page"`
			Match model.KeywordMatch `json:"match"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if payload.Page.URL != "https://site.test/a" || payload.Match.Occurrences != 1 {
			t.Errorf("unexpected payload: %+v", payload)
		}

		second := filepath.Join(jsonDir, PageFileName(2, "", "https://site.test/b"))
		if _, err := os.Stat(second); err != nil {
			t.Errorf("second side-file missing: %v", err)
		}
		if !strings.HasPrefix(filepath.Base(second), "0002_page_") {
			t.Errorf("unexpected name %s", filepath.Base(second))
		}
	})

	t.Run("kind mismatch", func(t *testing.T) {
		t.Parallel()

		s, err := NewFileSink(filepath.Join(t.TempDir(), "r.csv"), KindResources)
		if err != nil {
			t.Fatalf("NewFileSink failed: %v", err)
		}
		defer s.Close()

		if err := s.Record(context.Background(), testPage("https://site.test", ""), testMatch()); !errors.Is(err, ErrKindMismatch) {
			t.Errorf("expected ErrKindMismatch, got %v", err)
		}
	})

	t.Run("persist error is returned", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		jsonDir := filepath.Join(dir, "pages")
		s, err := NewFileSink(filepath.Join(dir, "pages.csv"), KindPages, WithJSONDir(jsonDir))
		if err != nil {
			t.Fatalf("NewFileSink failed: %v", err)
		}
		defer s.Close()

		if err := os.RemoveAll(jsonDir); err != nil {
			t.Fatalf("failed to remove JSON dir: %v", err)
		}
		if err := s.Record(context.Background(), testPage("https://site.test/a", "x"), testMatch()); err == nil {
			t.Error("expected error when side-file directory is missing")
		}
	})
}

func TestFileSinkRecordResource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jsonDir := filepath.Join(dir, "resources")
	path := filepath.Join(dir, "resources.csv")
	s, err := NewFileSink(path, KindResources, WithJSONDir(jsonDir))
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}

	res := model.ResourceRecord{
		ResourceID:   "r1",
		ResourceName: "Incidenten",
		Format:       "CSV",
		SourceURL:    "https://data.test/r1.csv",
		DatasetID:    "ds",
		DatasetTitle: "Dataset",
		Truncated:    true,
	}
	ctx := context.Background()
	for _, idx := range []int{model.WholePayload, 0, 0} {
		m := model.ResourceMatch{Resource: res, RecordIndex: idx, Text: "vuurwerk", Match: model.KeywordMatch{Occurrences: 1, Contexts: []string{"vuurwerk"}}}
		if err := s.RecordResource(ctx, m); err != nil {
			t.Fatalf("RecordResource failed: %v", err)
		}
	}
	_ = s.Close()

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][4] != "-1" || rows[2][4] != "0" {
		t.Errorf("record_index = %q, %q", rows[1][4], rows[2][4])
	}
	if rows[1][9] != "true" {
		t.Errorf("truncated = %q", rows[1][9])
	}

	for _, name := range []string{
		ResourceFileName("ds", "r1", res.SourceURL, model.WholePayload),
		ResourceFileName("ds", "r1", res.SourceURL, 0),
	} {
		if _, err := os.Stat(filepath.Join(jsonDir, name)); err != nil {
			t.Errorf("side-file %s missing: %v", name, err)
		}
	}
}

func TestMulti(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, err := NewFileSink(filepath.Join(dir, "a.csv"), KindPages)
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	b, err := NewFileSink(filepath.Join(dir, "b.csv"), KindResources)
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}

	m := NewMulti(a, nil, b)
	if len(m) != 2 {
		t.Fatalf("expected nil sinks dropped, got %d", len(m))
	}

	err = m.Record(context.Background(), testPage("https://site.test/a", "x"), testMatch())
	if !errors.Is(err, ErrKindMismatch) {
		t.Errorf("expected joined ErrKindMismatch, got %v", err)
	}
	if a.Rows() != 1 {
		t.Errorf("first sink rows = %d, want 1", a.Rows())
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

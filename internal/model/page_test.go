package model

import (
	"strings"
	"testing"
)

func TestNewPageRecord(t *testing.T) {
	t.Parallel()

	p := NewPageRecord("https://site.test/a")
	if p.URL != "https://site.test/a" {
		t.Errorf("URL = %q", p.URL)
	}
	if p.Tags == nil || p.Links.SameSite == nil || p.Links.OffSite == nil || p.Entities == nil {
		t.Error("expected all collections to be initialized")
	}
	if p.PublishDate != nil || p.Author != nil || p.PrimaryImageURL != nil {
		t.Error("expected optional fields to be nil")
	}
}

func TestPageRecordSetBodyText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "single word", text: "vuurwerk", want: 1},
		{name: "mixed whitespace", text: "  een\ttwee \n drie  ", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewPageRecord("https://site.test")
			p.SetBodyText(tt.text)
			if p.WordCount != tt.want {
				t.Errorf("WordCount = %d, want %d", p.WordCount, tt.want)
			}
			if p.WordCount != len(strings.Fields(p.BodyText)) {
				t.Error("WordCount out of sync with BodyText")
			}
		})
	}
}

func TestPageRecordExcludeLinks(t *testing.T) {
	t.Parallel()

	p := NewPageRecord("https://site.test/a")
	p.Links.SameSite = []string{"https://site.test/a", "https://site.test/b", "https://site.test/c"}
	p.Links.OffSite = []string{"https://other.test/x"}

	visited := map[string]bool{"https://site.test/c": true}
	p.ExcludeLinks(func(u string) bool { return visited[u] })

	if len(p.Links.SameSite) != 1 || p.Links.SameSite[0] != "https://site.test/b" {
		t.Errorf("SameSite = %v, want [https://site.test/b]", p.Links.SameSite)
	}
	if len(p.Links.OffSite) != 1 {
		t.Errorf("OffSite = %v, want unchanged", p.Links.OffSite)
	}
}

func TestPageRecordSnippet(t *testing.T) {
	t.Parallel()

	t.Run("uses first context", func(t *testing.T) {
		t.Parallel()

		p := NewPageRecord("https://site.test")
		p.SetBodyText("body")
		got := p.Snippet(KeywordMatch{Contexts: []string{"first", "second"}})
		if got != "first" {
			t.Errorf("got %q, want %q", got, "first")
		}
	})

	t.Run("falls back to body prefix", func(t *testing.T) {
		t.Parallel()

		p := NewPageRecord("https://site.test")
		p.SetBodyText(strings.Repeat("é", 300))
		got := p.Snippet(KeywordMatch{})
		if n := len([]rune(got)); n != 200 {
			t.Errorf("snippet has %d runes, want 200", n)
		}
	})
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "abc", n: 5, want: "abc"},
		{in: "abcdef", n: 3, want: "abc"},
		{in: "ëëë", n: 2, want: "ëë"},
		{in: "abc", n: 0, want: ""},
	}

	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestOptionalString(t *testing.T) {
	t.Parallel()

	if OptionalString("") != nil {
		t.Error("expected nil for empty string")
	}
	if got := StringValue(OptionalString("x")); got != "x" {
		t.Errorf("got %q, want %q", got, "x")
	}
	if StringValue(nil) != "" {
		t.Error("expected empty string for nil")
	}
}

func TestResourceMatchKey(t *testing.T) {
	t.Parallel()

	a := ResourceMatch{Resource: ResourceRecord{SourceURL: "https://x/r.csv", ResourceID: "r1"}, RecordIndex: WholePayload}
	b := ResourceMatch{Resource: ResourceRecord{SourceURL: "https://x/r.csv", ResourceID: "r1"}, RecordIndex: 3}
	if a.Key() == b.Key() {
		t.Error("expected distinct keys for whole payload and record")
	}
}

func TestRunSummary(t *testing.T) {
	t.Parallel()

	s := NewRunSummary(ModeCrawl, "vuurwerk", "https://site.test")
	if s.ID == "" {
		t.Error("expected run ID")
	}
	if s.StartedAt.IsZero() {
		t.Error("expected start time")
	}
	s.Finish()
	if s.Duration() < 0 {
		t.Error("negative duration")
	}

	s.AddOutput("csv", "out/pages.csv")
	s.AddOutput("json", "")
	if len(s.Outputs) != 1 || s.Outputs["csv"] != "out/pages.csv" {
		t.Errorf("Outputs = %v", s.Outputs)
	}
}

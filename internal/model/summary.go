package model

import (
	"time"

	"github.com/google/uuid"
)

// Run modes.
const (
	// ModeCrawl is a link-following crawl from seed URLs.
	ModeCrawl = "crawl"

	// ModeDataset is a scan of the resources of one structured dataset.
	ModeDataset = "dataset"
)

// RunSummary holds the counters of one crawl or dataset scan.
// A run always ends with a summary, even when it stopped early.
type RunSummary struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Mode is ModeCrawl or ModeDataset.
	Mode string `json:"mode"`

	// Keyword is the keyword searched for.
	Keyword string `json:"keyword"`

	// Target is the first seed URL, the search URL or the dataset identifier.
	Target string `json:"target"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Processed counts pages or resources that were fetched successfully.
	Processed int `json:"processed"`

	// Visited counts URLs marked visited, including failed fetches.
	Visited int `json:"visited"`

	// FetchFailures counts fetches that failed and were skipped.
	FetchFailures int `json:"fetch_failures"`

	// Matches counts pages or resource records that contained the keyword.
	Matches int `json:"matches"`

	// PersistFailures counts results that could not be written.
	PersistFailures int `json:"persist_failures"`

	// Interrupted is true when the run was cancelled before finishing.
	Interrupted bool `json:"interrupted"`

	// Outputs maps an output kind ("csv", "json", "database") to its path.
	Outputs map[string]string `json:"outputs,omitempty"`
}

// NewRunSummary starts a summary for a new run.
func NewRunSummary(mode, keyword, target string) *RunSummary {
	return &RunSummary{
		ID:        uuid.NewString(),
		Mode:      mode,
		Keyword:   keyword,
		Target:    target,
		StartedAt: time.Now(),
	}
}

// Finish records the end time of the run.
func (s *RunSummary) Finish() {
	s.FinishedAt = time.Now()
}

// AddOutput records where the run wrote its results of kind.
// An empty path is ignored.
func (s *RunSummary) AddOutput(kind, path string) {
	if path == "" {
		return
	}
	if s.Outputs == nil {
		s.Outputs = make(map[string]string)
	}
	s.Outputs[kind] = path
}

// Duration returns how long the run took.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

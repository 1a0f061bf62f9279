package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/kwcrawl/internal/model"
)

// Kind selects the CSV layout of a FileSink.
type Kind int

const (
	// KindPages writes crawled pages.
	KindPages Kind = iota
	// KindResources writes structured resource matches.
	KindResources
)

// PageColumns is the CSV header for crawled pages.
var PageColumns = []string{
	"title", "url", "date", "author", "tags", "main_image", "word_count",
	"snippet", "full_text", "keyword_occurrences", "keyword_contexts",
	"keyword_sentences", "numbers_near", "dates_near", "categories",
}

// ResourceColumns is the CSV header for structured resource matches.
var ResourceColumns = []string{
	"dataset", "resource", "format", "resource_url", "record_index",
	"snippet", "occurrences", "contexts", "sentences", "truncated",
}

// FileSink writes matches to a CSV file and optional JSON side-files.
// It is not safe for concurrent use.
type FileSink struct {
	kind          Kind
	path          string
	file          *os.File
	csv           *csv.Writer
	jsonDir       string
	alwaysPersist bool
	logger        *slog.Logger

	seen   map[string]struct{}
	seq    int
	rows   int
	closed bool
}

// FileOption configures a FileSink.
type FileOption func(*FileSink)

// WithJSONDir enables JSON side-files written to dir. Empty disables them.
func WithJSONDir(dir string) FileOption {
	return func(s *FileSink) {
		s.jsonDir = dir
	}
}

// WithAlwaysPersist writes items even when the keyword did not occur.
func WithAlwaysPersist(always bool) FileOption {
	return func(s *FileSink) {
		s.alwaysPersist = always
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FileOption {
	return func(s *FileSink) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFileSink creates the CSV file at path, including missing parent
// directories, and writes its header.
func NewFileSink(path string, kind Kind, opts ...FileOption) (*FileSink, error) {
	s := &FileSink{
		kind:   kind,
		path:   path,
		logger: slog.Default(),
		seen:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if s.jsonDir != "" {
		if err := os.MkdirAll(s.jsonDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create JSON directory: %w", err)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}
	s.file = f
	s.csv = csv.NewWriter(f)

	header := PageColumns
	if kind == KindResources {
		header = ResourceColumns
	}
	if err := s.writeRow(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the CSV file path.
func (s *FileSink) Path() string {
	return s.path
}

// JSONDir returns the side-file directory, or "" when disabled.
func (s *FileSink) JSONDir() string {
	return s.jsonDir
}

// Rows returns the number of data rows written.
func (s *FileSink) Rows() int {
	return s.rows
}

// Record writes a page row and side-file. Pages without occurrences are
// skipped unless always-persist is set. A URL is written at most once.
func (s *FileSink) Record(_ context.Context, page *model.PageRecord, match model.KeywordMatch) error {
	if s.kind != KindPages {
		return ErrKindMismatch
	}
	if !match.Matched() && !s.alwaysPersist {
		return nil
	}
	if _, ok := s.seen[page.URL]; ok {
		s.logger.Debug("duplicate page skipped", "url", page.URL)
		return nil
	}
	s.seen[page.URL] = struct{}{}

	row := []string{
		page.Title,
		page.URL,
		model.StringValue(page.PublishDate),
		model.StringValue(page.Author),
		strings.Join(page.Tags, ";"),
		model.StringValue(page.PrimaryImageURL),
		strconv.Itoa(page.WordCount),
		page.Snippet(match),
		page.BodyText,
		strconv.Itoa(match.Occurrences),
		jsonList(match.Contexts),
		jsonList(match.Sentences),
		jsonList(match.NumbersNear),
		jsonList(match.DatesNear),
		jsonList(match.Categories),
	}
	if err := s.writeRow(row); err != nil {
		return err
	}
	s.rows++
	s.seq++

	if s.jsonDir == "" {
		return nil
	}
	name := PageFileName(s.seq, page.Title, page.URL)
	payload := struct {
		Page  *model.PageRecord  `json:"page"`
		Match model.KeywordMatch `json:"match"`
	}{Page: page, Match: match}
	return s.writeJSON(name, payload)
}

// RecordResource writes a resource row and side-file.
func (s *FileSink) RecordResource(_ context.Context, m model.ResourceMatch) error {
	if s.kind != KindResources {
		return ErrKindMismatch
	}
	if !m.Match.Matched() && !s.alwaysPersist {
		return nil
	}
	key := m.Key()
	if _, ok := s.seen[key]; ok {
		s.logger.Debug("duplicate resource skipped", "resource", m.Resource.ResourceID, "record", m.RecordIndex)
		return nil
	}
	s.seen[key] = struct{}{}

	row := []string{
		m.Resource.DatasetTitle,
		m.Resource.ResourceName,
		m.Resource.Format,
		m.Resource.SourceURL,
		strconv.Itoa(m.RecordIndex),
		m.Snippet(),
		strconv.Itoa(m.Match.Occurrences),
		jsonList(m.Match.Contexts),
		jsonList(m.Match.Sentences),
		strconv.FormatBool(m.Resource.Truncated),
	}
	if err := s.writeRow(row); err != nil {
		return err
	}
	s.rows++
	s.seq++

	if s.jsonDir == "" {
		return nil
	}
	name := ResourceFileName(m.Resource.DatasetID, m.Resource.ResourceID, m.Resource.SourceURL, m.RecordIndex)
	payload := struct {
		Dataset     string               `json:"dataset"`
		Resource    model.ResourceRecord `json:"resource"`
		RecordIndex int                  `json:"record_index"`
		Match       model.KeywordMatch   `json:"match"`
	}{Dataset: m.Resource.DatasetTitle, Resource: m.Resource, RecordIndex: m.RecordIndex, Match: m.Match}
	return s.writeJSON(name, payload)
}

// Close flushes the CSV and closes the file. Closing twice is a no-op.
func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.csv.Flush()
	werr := s.csv.Error()
	cerr := s.file.Close()
	if werr != nil {
		return fmt.Errorf("failed to flush CSV: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("failed to close CSV: %w", cerr)
	}
	return nil
}

func (s *FileSink) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	return nil
}

func (s *FileSink) writeJSON(name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(s.jsonDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// jsonList encodes items as a JSON array with HTML and non-ASCII
// characters kept literal.
func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "[]"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

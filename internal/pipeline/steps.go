package pipeline

import (
	"context"
	"errors"

	"github.com/nao1215/kwcrawl/internal/enrich"
	"github.com/nao1215/kwcrawl/internal/extract"
	"github.com/nao1215/kwcrawl/internal/keyword"
	"github.com/nao1215/kwcrawl/internal/sink"
)

// ErrNoRecord is returned by steps that need a PageRecord when the
// extract step has not run.
var ErrNoRecord = errors.New("page has no record")

// ExtractStep builds the PageRecord from the fetched body.
type ExtractStep struct {
	extractor *extract.Extractor
}

// NewExtractStep returns an ExtractStep.
func NewExtractStep(e *extract.Extractor) *ExtractStep {
	return &ExtractStep{extractor: e}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do extracts page.Response into page.Record. Links reported by page.Seen
// are dropped from the record.
func (s *ExtractStep) Do(_ context.Context, page *Page) error {
	var body []byte
	if page.Response != nil {
		body = []byte(page.Response.Text())
	}
	page.Record = s.extractor.Extract(body, page.URL)
	page.Record.ExcludeLinks(page.Seen)
	return nil
}

// EnrichStep attaches entities to the record.
type EnrichStep struct {
	extractor enrich.EntityExtractor
}

// NewEnrichStep returns an EnrichStep. A nil extractor finds nothing.
func NewEnrichStep(x enrich.EntityExtractor) *EnrichStep {
	if x == nil {
		x = enrich.Nop{}
	}
	return &EnrichStep{extractor: x}
}

// Name returns the step name.
func (s *EnrichStep) Name() string {
	return "enrich"
}

// Do fills page.Record.Entities.
func (s *EnrichStep) Do(_ context.Context, page *Page) error {
	if page.Record == nil {
		return ErrNoRecord
	}
	if entities := s.extractor.Extract(page.Record.BodyText); entities != nil {
		page.Record.Entities = entities
	}
	return nil
}

// AnalyzeStep scores the body text against the keyword.
type AnalyzeStep struct {
	analyzer *keyword.Analyzer
	keyword  string
}

// NewAnalyzeStep returns an AnalyzeStep for kw.
func NewAnalyzeStep(a *keyword.Analyzer, kw string) *AnalyzeStep {
	return &AnalyzeStep{analyzer: a, keyword: kw}
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do sets page.Match.
func (s *AnalyzeStep) Do(_ context.Context, page *Page) error {
	if page.Record == nil {
		return ErrNoRecord
	}
	page.Match = s.analyzer.Analyze(page.Record.BodyText, s.keyword)
	return nil
}

// PersistStep hands the record and its match to a sink.
type PersistStep struct {
	sink sink.Sink
}

// NewPersistStep returns a PersistStep writing to s.
func NewPersistStep(s sink.Sink) *PersistStep {
	return &PersistStep{sink: s}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do records the page. The sink decides whether a zero match is written.
func (s *PersistStep) Do(ctx context.Context, page *Page) error {
	if page.Record == nil {
		return ErrNoRecord
	}
	if err := s.sink.Record(ctx, page.Record, page.Match); err != nil {
		return err
	}
	page.Persisted = true
	return nil
}

// Default returns the extract, enrich, analyze, persist pipeline.
func Default(
	extractor *extract.Extractor,
	enricher enrich.EntityExtractor,
	analyzer *keyword.Analyzer,
	kw string,
	out sink.Sink,
	opts ...Option,
) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewExtractStep(extractor),
		NewEnrichStep(enricher),
		NewAnalyzeStep(analyzer, kw),
		NewPersistStep(out),
	)
	return p
}

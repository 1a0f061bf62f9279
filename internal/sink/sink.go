package sink

import (
	"context"
	"errors"

	"github.com/nao1215/kwcrawl/internal/model"
)

// ErrKindMismatch is returned when a page is recorded to a resource sink
// or the other way around.
var ErrKindMismatch = errors.New("record kind does not match sink")

// Sink persists keyword matches.
type Sink interface {
	// Record persists a page and its match.
	Record(ctx context.Context, page *model.PageRecord, match model.KeywordMatch) error

	// RecordResource persists a structured resource match.
	RecordResource(ctx context.Context, match model.ResourceMatch) error

	// Close flushes and releases the sink.
	Close() error
}

// Multi writes every record to all of its sinks.
type Multi []Sink

// NewMulti returns a Multi over the non-nil sinks.
func NewMulti(sinks ...Sink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Record writes to every sink and joins their errors.
func (m Multi) Record(ctx context.Context, page *model.PageRecord, match model.KeywordMatch) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, page, match); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordResource writes to every sink and joins their errors.
func (m Multi) RecordResource(ctx context.Context, match model.ResourceMatch) error {
	var errs []error
	for _, s := range m {
		if err := s.RecordResource(ctx, match); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

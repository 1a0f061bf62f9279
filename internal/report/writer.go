package report

import (
	"io"
	"maps"
	"slices"

	"github.com/nao1215/kwcrawl/internal/model"
)

// Writer writes a run summary in one format.
type Writer interface {
	// Write outputs the summary and returns the number of bytes written.
	Write(summary *model.RunSummary) (int, error)
}

// MultiWriter writes to multiple Writers.
// This is useful for printing to the terminal and saving a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to every Writer and stops on the first error.
func (m *MultiWriter) Write(summary *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// status returns the one-word state of a run.
func status(s *model.RunSummary) string {
	if s.Interrupted {
		return "Interrupted"
	}
	return "Complete"
}

// unitName names what a run processes.
func unitName(s *model.RunSummary) string {
	if s.Mode == model.ModeDataset {
		return "Resources"
	}
	return "Pages"
}

// outputKinds returns the output kinds of s in a stable order.
func outputKinds(s *model.RunSummary) []string {
	return slices.Sorted(maps.Keys(s.Outputs))
}

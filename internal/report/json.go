package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/kwcrawl/internal/model"
)

// JSONWriter outputs the summary as JSON for tool integration.
//
// Design decision: the summary is embedded rather than copied into a
// separate document type, so every field stored in the history database
// appears in the JSON under the same name. Only derived values, the
// duration in seconds and the kwcrawl version, are added on top.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string

	// version, when set, is stamped on every summary.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonSummary adds derived fields to the summary.
type jsonSummary struct {
	*model.RunSummary
	DurationSeconds float64 `json:"duration_seconds"`
	Version         string  `json:"version,omitempty"`
}

func (w *JSONWriter) wrap(s *model.RunSummary) jsonSummary {
	return jsonSummary{RunSummary: s, DurationSeconds: s.Duration().Seconds(), Version: w.version}
}

// Write outputs the summary followed by a newline.
func (w *JSONWriter) Write(s *model.RunSummary) (int, error) {
	return w.writeJSON(w.wrap(s))
}

// WriteList outputs the summaries as one JSON array followed by a newline.
// An empty list is written as [].
func (w *JSONWriter) WriteList(summaries []*model.RunSummary) (int, error) {
	list := make([]jsonSummary, 0, len(summaries))
	for _, s := range summaries {
		list = append(list, w.wrap(s))
	}
	return w.writeJSON(list)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// VersionedJSONWriter adds the kwcrawl version to the JSON summary.
type VersionedJSONWriter struct {
	*JSONWriter
}

// NewVersionedJSONWriter creates a JSON writer stamping version.
func NewVersionedJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *VersionedJSONWriter {
	w := NewJSONWriter(output, opts...)
	w.version = version
	return &VersionedJSONWriter{JSONWriter: w}
}

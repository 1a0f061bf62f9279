package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/kwcrawl/internal/model"
)

// Row layouts of the summary. Labels are padded so values line up.
const (
	rowFormat     = "%-21s%v\n"
	counterFormat = "%-21s%d\n"
)

// SimpleWriter outputs a plain text summary for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds the run ID and timestamps.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(s *model.RunSummary) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                    KWCRAWL RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	unit := unitName(s)
	fmt.Fprintf(&sb, rowFormat, "Mode:", s.Mode)
	fmt.Fprintf(&sb, rowFormat, "Keyword:", s.Keyword)
	fmt.Fprintf(&sb, rowFormat, "Target:", s.Target)
	if w.verbose {
		fmt.Fprintf(&sb, rowFormat, "Run ID:", s.ID)
		fmt.Fprintf(&sb, rowFormat, "Started:", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&sb, rowFormat, "Duration:", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, rowFormat, "Status:", status(s))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, counterFormat, unit+" processed:", s.Processed)
	fmt.Fprintf(&sb, counterFormat, "Visited:", s.Visited)
	fmt.Fprintf(&sb, counterFormat, "Matches found:", s.Matches)
	fmt.Fprintf(&sb, counterFormat, "Fetch failures:", s.FetchFailures)
	fmt.Fprintf(&sb, counterFormat, "Persist failures:", s.PersistFailures)

	if kinds := outputKinds(s); len(kinds) > 0 {
		sb.WriteString("\nOutputs:\n")
		for _, k := range kinds {
			fmt.Fprintf(&sb, "  %-9s %s\n", k+":", s.Outputs[k])
		}
	}
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/kwcrawl/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// Match is one matching page or resource listed in the Markdown summary.
type Match struct {
	// Location is the page URL or resource source URL.
	Location string

	// Title is the page title or resource name.
	Title string

	Occurrences int

	// Context is the first keyword context, shown in a details block.
	Context string
}

// MarkdownWriter outputs the run summary in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter

	matches []Match
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMatches lists the given matches below the summary.
func WithMatches(matches []Match) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.matches = matches
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeCounters(md, s)
	w.writeOutputs(md, s)
	w.writeMatches(md)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.RunSummary) {
	md.H1("kwcrawl Run Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + s.ID + "`"},
			{"Mode", s.Mode},
			{"Keyword", "`" + s.Keyword + "`"},
			{"Target", s.Target},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration().Round(time.Millisecond).String()},
			{"Status", w.getStatusText(s)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) getStatusText(s *model.RunSummary) string {
	if s.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

// writeCounters writes the counter table, a chart and an alert.
func (w *MarkdownWriter) writeCounters(md *markdown.Markdown, s *model.RunSummary) {
	md.H2("Counters")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Count"},
		Rows: [][]string{
			{unitName(s) + " processed", strconv.Itoa(s.Processed)},
			{"Visited", strconv.Itoa(s.Visited)},
			{"Matches", strconv.Itoa(s.Matches)},
			{"Fetch failures", strconv.Itoa(s.FetchFailures)},
			{"Persist failures", strconv.Itoa(s.PersistFailures)},
		},
	})
	md.PlainText("")

	if s.Visited > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of how visited items ended.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Visited "+unitName(s)),
		piechart.WithShowData(true),
	)

	unmatched := s.Processed - s.Matches
	if s.Mode == model.ModeDataset {
		// dataset matches count records, not resources
		unmatched = 0
	}
	if s.Matches > 0 {
		chart.LabelAndIntValue("Matched", uint64(s.Matches))
	}
	if unmatched > 0 {
		chart.LabelAndIntValue("No match", uint64(unmatched))
	}
	if s.FetchFailures > 0 {
		chart.LabelAndIntValue("Fetch failed", uint64(s.FetchFailures))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing the outcome of the run.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.RunSummary) {
	switch {
	case s.PersistFailures > 0:
		md.Cautionf("%d result(s) could not be written. Check the log for details.", s.PersistFailures)
	case s.Interrupted:
		md.Warningf("The run was interrupted after %d visited item(s). Results are partial.", s.Visited)
	case s.Matches > 0:
		md.Tip("Keyword `" + s.Keyword + "` found in " + strconv.Itoa(s.Matches) + " item(s).")
	default:
		md.Note("Keyword `" + s.Keyword + "` was not found.")
	}
	md.PlainText("")
}

// writeOutputs lists the files the run produced.
func (w *MarkdownWriter) writeOutputs(md *markdown.Markdown, s *model.RunSummary) {
	kinds := outputKinds(s)
	if len(kinds) == 0 {
		return
	}
	md.H2("Outputs")
	md.PlainText("")
	items := make([]string, 0, len(kinds))
	for _, k := range kinds {
		items = append(items, k+": `"+s.Outputs[k]+"`")
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeMatches writes the match table and one details block per context.
func (w *MarkdownWriter) writeMatches(md *markdown.Markdown) {
	if len(w.matches) == 0 {
		return
	}
	md.H2("Matches")
	md.PlainText("")

	rows := make([][]string, len(w.matches))
	for i, m := range w.matches {
		title := m.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			truncateString(title, 50),
			truncateString(m.Location, 70),
			strconv.Itoa(m.Occurrences),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Title", "Location", "Occurrences"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, m := range w.matches {
		if m.Context != "" {
			md.Details(truncateString(m.Location, 70), m.Context)
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Summary generated by [kwcrawl](https://github.com/nao1215/kwcrawl)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/kwcrawl/internal/config"
	"github.com/nao1215/kwcrawl/internal/database"
	"github.com/nao1215/kwcrawl/internal/model"
	"github.com/nao1215/kwcrawl/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs and their matches",
		Long: `History reads the runs recorded in the history database.

Without flags the most recent runs are listed. --run shows the counters
and matches of one run, --url shows every run in which a page matched.

Examples:
  # List the last 20 runs
  kwcrawl history

  # Show the matches of one run
  kwcrawl history --run 2b1c7f0e-3a4d-4c41-9f1e-7d7b5b0f3a11

  # When did this page mention the keyword?
  kwcrawl history --url https://www.politie.nl/nieuws/2025/januari/1/vuurwerk.html`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of runs to list (0 lists all)")
	cmd.Flags().StringP("run", "r", "",
		"Show the summary and matches of this run ID")
	cmd.Flags().StringP("url", "u", "",
		"Show the stored matches of this page URL")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"History database directory")

	return cmd
}

// historyOptions selects what runHistory prints.
type historyOptions struct {
	limit int
	runID string
	url   string
	json  bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var (
		opts historyOptions
		err  error
	)
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if opts.runID, err = cmd.Flags().GetString("run"); err != nil {
		return err
	}
	if opts.url, err = cmd.Flags().GetString("url"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.runID != "" && opts.url != "" {
		return errors.New("--run and --url cannot be used together")
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.Options{})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, opts, cmd.OutOrStdout())
}

// runHistory prints the part of the history selected by opts to out.
func runHistory(ctx context.Context, db *database.CrawlDB, opts historyOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	switch {
	case opts.runID != "":
		return showRun(ctx, db, opts, out)
	case opts.url != "":
		return showURL(ctx, db, opts, out)
	default:
		return listRuns(ctx, db, opts, out)
	}
}

// listRuns lists the most recent runs.
func listRuns(ctx context.Context, db *database.CrawlDB, opts historyOptions, out io.Writer) error {
	runs, err := db.ListRuns(ctx, opts.limit)
	if err != nil {
		return err
	}
	if opts.json {
		_, err := report.NewVersionedJSONWriter(out, getVersion(), report.WithPrettyPrint()).WriteList(runs)
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the database.")
		fmt.Fprintln(out, "\nUse 'kwcrawl crawl <url>' or 'kwcrawl dataset <id>' to start one.")
		return nil
	}

	fmt.Fprintf(out, "Runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-7s  %-12s  %9s  %7s  %s\n",
		"ID", "Started", "Mode", "Keyword", "Processed", "Matches", "Target")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 110))
	for _, r := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %-7s  %-12s  %9d  %7d  %s%s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Mode,
			r.Keyword,
			r.Processed,
			r.Matches,
			r.Target,
			interruptedMark(r),
		)
	}
	fmt.Fprintln(out, "\nUse 'kwcrawl history --run <id>' to see the matches of a run.")
	return nil
}

func interruptedMark(r *model.RunSummary) string {
	if r.Interrupted {
		return " (interrupted)"
	}
	return ""
}

// runDetail is the JSON form of showRun. Run holds the summary as
// rendered by the report JSON writer.
type runDetail struct {
	Run       json.RawMessage          `json:"run"`
	Pages     []database.PageMatch     `json:"pages,omitempty"`
	Resources []database.ResourceMatch `json:"resources,omitempty"`
}

// showRun prints the summary and the matches of one run.
func showRun(ctx context.Context, db *database.CrawlDB, opts historyOptions, out io.Writer) error {
	run, err := db.GetRun(ctx, opts.runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", opts.runID)
	}

	var detail runDetail
	if run.Mode == model.ModeDataset {
		detail.Resources, err = db.ResourceMatches(ctx, run.ID)
	} else {
		detail.Pages, err = db.PageMatches(ctx, run.ID)
	}
	if err != nil {
		return err
	}
	if opts.json {
		var buf bytes.Buffer
		if _, err := report.NewVersionedJSONWriter(&buf, getVersion()).Write(run); err != nil {
			return err
		}
		detail.Run = bytes.TrimSpace(buf.Bytes())
		return writeJSON(out, detail)
	}

	if _, err := report.NewSimpleWriter(out, report.WithVerbose(true)).Write(run); err != nil {
		return err
	}
	if len(detail.Pages)+len(detail.Resources) == 0 {
		fmt.Fprintln(out, "No matches recorded for this run.")
		return nil
	}

	fmt.Fprintln(out, "Matches:")
	for _, p := range detail.Pages {
		fmt.Fprintf(out, "  [%d] %s\n", p.Occurrences, p.URL)
		if p.Title != "" {
			fmt.Fprintf(out, "      %s\n", p.Title)
		}
	}
	for _, r := range detail.Resources {
		fmt.Fprintf(out, "  [%d] %s record %d (%s)\n", r.Occurrences, r.ResourceName, r.RecordIndex, r.SourceURL)
	}
	return nil
}

// showURL prints every stored match of one page.
func showURL(ctx context.Context, db *database.CrawlDB, opts historyOptions, out io.Writer) error {
	matches, err := db.URLHistory(ctx, opts.url)
	if err != nil {
		return err
	}
	if opts.json {
		return writeJSON(out, matches)
	}

	if len(matches) == 0 {
		fmt.Fprintf(out, "No matches found for %s\n", opts.url)
		return nil
	}

	fmt.Fprintf(out, "Match history for %s (%d runs):\n\n", opts.url, len(matches))
	for _, m := range matches {
		fmt.Fprintf(out, "  %s  run %s  %d occurrence(s)\n",
			m.Timestamp.Local().Format("2006-01-02 15:04:05"), m.RunID, m.Occurrences)
		if len(m.Contexts) > 0 {
			fmt.Fprintf(out, "      ...%s...\n", m.Contexts[0])
		}
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/nao1215/kwcrawl/internal/config"
	"github.com/nao1215/kwcrawl/internal/database"
	"github.com/nao1215/kwcrawl/internal/fetch"
	"github.com/nao1215/kwcrawl/internal/keyword"
	"github.com/nao1215/kwcrawl/internal/log"
	"github.com/nao1215/kwcrawl/internal/model"
	"github.com/nao1215/kwcrawl/internal/report"
	"github.com/spf13/cobra"
)

// addRunFlags registers the flags shared by the crawl and dataset commands.
// Flags only override the configuration file when set explicitly.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("keyword", "k", config.DefaultKeyword,
		"Keyword to search for (literal, case-insensitive)")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Pause before every request")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Bool("json", true,
		"Write one JSON file per persisted record")
	cmd.Flags().String("json-dir", config.DefaultJSONSubdir,
		"JSON side-file directory, relative to the CSV file")
	cmd.Flags().StringP("output", "o", "",
		"CSV output path")
	cmd.Flags().Int("context-radius", config.DefaultContextRadius,
		"Characters of context kept on each side of a match (80-120)")
	cmd.Flags().Int64("max-bytes", config.DefaultMaxResourceBytes,
		"Maximum bytes read from one dataset resource")
	cmd.Flags().Bool("always-persist", false,
		"Write every processed item, not only the matching ones")
	cmd.Flags().Bool("db", true,
		"Record the run in the history database")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .kwcrawl in current or home directory)")
	cmd.Flags().String("summary", "",
		"Write a run summary file to this path")
	cmd.Flags().String("summary-format", config.SummaryMarkdown,
		"Format of the summary file: markdown or json")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
}

// buildConfig layers defaults, the configuration file and explicitly set
// flags, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Apply(file)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = getPersistentBool(cmd, "verbose")
	cfg.JSONLog = getPersistentBool(cmd, "json-log")
	return cfg, nil
}

// applyFlags copies every explicitly set flag into cfg.
// Flags a command does not define are never Changed and are skipped.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	return errors.Join(
		changedString(cmd, "keyword", &cfg.Keyword),
		changedInt(cmd, "max-pages", &cfg.MaxPages),
		changedInt(cmd, "depth", &cfg.MaxDepth),
		changedInt(cmd, "max-links", &cfg.MaxLinksPerPage),
		changedDuration(cmd, "delay", &cfg.Delay),
		changedDuration(cmd, "timeout", &cfg.Timeout),
		changedBool(cmd, "json", &cfg.SaveJSON),
		changedString(cmd, "json-dir", &cfg.JSONSubdir),
		changedString(cmd, "output", &cfg.Output),
		changedInt(cmd, "context-radius", &cfg.ContextRadius),
		changedInt64(cmd, "max-bytes", &cfg.MaxResourceBytes),
		changedBool(cmd, "always-persist", &cfg.AlwaysPersist),
		changedBool(cmd, "robots", &cfg.RespectRobots),
		changedBool(cmd, "readability", &cfg.Readability),
		changedBool(cmd, "db", &cfg.SaveToDB),
		changedString(cmd, "summary", &cfg.SummaryPath),
		changedString(cmd, "summary-format", &cfg.SummaryFormat),
		changedString(cmd, "search-url", &cfg.SearchURL),
		changedInt(cmd, "search-pages", &cfg.SearchPages),
		changedString(cmd, "search-param", &cfg.SearchQueryParam),
		changedString(cmd, "page-param", &cfg.SearchPageParam),
		changedString(cmd, "user-agent", &cfg.UserAgent),
		changedStringSlice(cmd, "scope", &cfg.Scope),
		changedString(cmd, "api-base", &cfg.CKANAPIBase),
		changedString(cmd, "site-url", &cfg.CKANSiteURL),
	)
}

func changedString(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func changedStringSlice(cmd *cobra.Command, name string, dst *[]string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func changedInt(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func changedInt64(cmd *cobra.Command, name string, dst *int64) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt64(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func changedBool(cmd *cobra.Command, name string, dst *bool) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func changedDuration(cmd *cobra.Command, name string, dst *time.Duration) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// getPersistentBool retrieves a root flag from the command or its parent.
func getPersistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the redacting logger and makes it the default.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := log.New(os.Stderr, log.Options{Verbose: cfg.Verbose, JSON: cfg.JSONLog})
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// newFetcher builds the HTTP fetcher with the per-host headers of the
// configuration file applied to hosts.
func newFetcher(cfg *config.Config, logger *slog.Logger, hosts ...string) *fetch.Fetcher {
	opts := []fetch.Option{
		fetch.WithDelay(cfg.Delay),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithLogger(logger),
	}
	if cfg.SiteConfigs != nil {
		for host := range cfg.SiteConfigs.Sites {
			hosts = append(hosts, host)
		}
		for _, host := range hosts {
			if headers := cfg.SiteConfigs.GetSiteConfig(host).RequestHeaders(); len(headers) > 0 {
				opts = append(opts, fetch.WithHostHeaders(host, headers))
			}
		}
	}
	return fetch.New(opts...)
}

// newAnalyzer builds the keyword analyzer from the configuration.
func newAnalyzer(cfg *config.Config) *keyword.Analyzer {
	categories := make([]keyword.Category, 0, len(cfg.Categories))
	for _, label := range slices.Sorted(maps.Keys(cfg.Categories)) {
		categories = append(categories, keyword.Category{Label: label, Terms: cfg.Categories[label]})
	}
	return keyword.NewAnalyzer(
		keyword.WithContextRadius(cfg.ContextRadius),
		keyword.WithCategories(categories),
	)
}

// outputPath returns the CSV path, falling back to def.
func outputPath(cfg *config.Config, def string) string {
	if cfg.Output != "" {
		return cfg.Output
	}
	return def
}

// jsonDir returns the side-file directory next to csvPath, or "" when
// side-files are disabled.
func jsonDir(cfg *config.Config, csvPath string) string {
	if !cfg.SaveJSON {
		return ""
	}
	if filepath.IsAbs(cfg.JSONSubdir) {
		return cfg.JSONSubdir
	}
	return filepath.Join(filepath.Dir(csvPath), cfg.JSONSubdir)
}

// history wraps the optional history database of a run.
type history struct {
	db     *database.CrawlDB
	run    *model.RunSummary
	logger *slog.Logger
}

// openHistory opens the database and stores the run row, so matches can
// reference it while the run is in progress. It returns a nil *history
// when the database is disabled.
func openHistory(ctx context.Context, cfg *config.Config, run *model.RunSummary, logger *slog.Logger) (*history, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.SaveRun(ctx, run); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("database opened", "path", db.Path(), "run_id", run.ID)
	return &history{db: db, run: run, logger: logger}, nil
}

// finish stores the final counters of summary under the pre-created run.
func (h *history) finish(summary *model.RunSummary) {
	if h == nil {
		return
	}
	summary.ID = h.run.ID
	summary.StartedAt = h.run.StartedAt
	summary.AddOutput("database", h.db.Path())
	// The run context may already be cancelled.
	if err := h.db.SaveRun(context.Background(), summary); err != nil {
		h.logger.Error("failed to save run", "run_id", summary.ID, "error", err)
	}
}

// matches returns the stored matches of the run for the Markdown summary.
func (h *history) matches(mode string) []report.Match {
	if h == nil {
		return nil
	}
	ctx := context.Background()
	var out []report.Match
	if mode == model.ModeDataset {
		rows, err := h.db.ResourceMatches(ctx, h.run.ID)
		if err != nil {
			h.logger.Warn("failed to read resource matches", "error", err)
			return nil
		}
		for _, r := range rows {
			out = append(out, report.Match{
				Location:    r.SourceURL,
				Title:       r.ResourceName,
				Occurrences: r.Occurrences,
				Context:     firstOf(r.Contexts),
			})
		}
		return out
	}
	rows, err := h.db.PageMatches(ctx, h.run.ID)
	if err != nil {
		h.logger.Warn("failed to read page matches", "error", err)
		return nil
	}
	for _, r := range rows {
		out = append(out, report.Match{
			Location:    r.URL,
			Title:       r.Title,
			Occurrences: r.Occurrences,
			Context:     firstOf(r.Contexts),
		})
	}
	return out
}

func (h *history) close() {
	if h != nil {
		_ = h.db.Close()
	}
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// writeSummary prints the summary to out and, when configured, also
// writes it to the summary file in the configured format.
func writeSummary(out io.Writer, cfg *config.Config, summary *model.RunSummary, matches []report.Match) error {
	terminal := report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	if cfg.SummaryPath == "" {
		_, err := terminal.Write(summary)
		return err
	}
	summary.AddOutput("summary", cfg.SummaryPath)

	if dir := filepath.Dir(cfg.SummaryPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.SummaryPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	var file report.Writer = report.NewMarkdownWriter(f, report.WithMatches(matches))
	if cfg.SummaryFormat == config.SummaryJSON {
		file = report.NewVersionedJSONWriter(f, getVersion(), report.WithPrettyPrint())
	}
	_, err = report.NewMultiWriter(terminal, file).Write(summary)
	return err
}

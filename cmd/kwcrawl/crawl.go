package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/nao1215/kwcrawl/internal/config"
	"github.com/nao1215/kwcrawl/internal/crawler"
	"github.com/nao1215/kwcrawl/internal/enrich"
	"github.com/nao1215/kwcrawl/internal/extract"
	"github.com/nao1215/kwcrawl/internal/model"
	"github.com/nao1215/kwcrawl/internal/pipeline"
	"github.com/nao1215/kwcrawl/internal/sink"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl a site breadth-first and record pages mentioning a keyword",
		Long: `Crawl visits the seed URLs and the same-site pages linked from them in
breadth-first order. Every page is fetched once, its article text is
extracted and scored against the keyword, and matching pages are written
to CSV, JSON side-files and the history database.

Examples:
  # Crawl the police news pages for "vuurwerk"
  kwcrawl crawl https://www.politie.nl/nieuws

  # Other keyword, deeper crawl, custom output
  kwcrawl crawl -k carbidschieten --depth 3 -o out/carbid.csv https://www.politie.nl/nieuws

  # Seed the crawl with the first three pages of a site search
  kwcrawl crawl --search-url https://drimble.nl/zoeken.html --search-pages 3 --depth 0

  # Seeds and per-site settings from a config file
  kwcrawl crawl -c .kwcrawl

Configuration file (.kwcrawl) example:
  seeds:
    - https://www.politie.nl/nieuws
  maxPages: 200
  sites:
    politie.nl:
      ignorePatterns:
        - "*.pdf"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	addRunFlags(cmd)
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of URLs visited, failed ones included")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link depth followed from a seed (0 fetches only seeds)")
	cmd.Flags().Int("max-links", config.DefaultMaxLinksPerPage,
		"Maximum new links one page adds to the frontier")
	cmd.Flags().Bool("robots", false,
		"Skip URLs disallowed by robots.txt")
	cmd.Flags().Bool("readability", false,
		"Use readability to locate the article text")
	cmd.Flags().StringSlice("scope", nil,
		"Hosts treated as the same site (default: seed hosts)")
	cmd.Flags().String("search-url", "",
		"Site search page; results whose link text contains the keyword become seeds")
	cmd.Flags().Int("search-pages", config.DefaultSearchPages,
		"Number of search result pages read")
	cmd.Flags().String("search-param", config.DefaultSearchQueryParam,
		"Query parameter of the search URL carrying the keyword")
	cmd.Flags().String("page-param", config.DefaultSearchPageParam,
		"Query parameter of the search URL carrying the page number")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Seeds = args
	}
	if err := cfg.ValidateCrawl(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), logger)
}

// runCrawl crawls cfg.Seeds, plus the results of cfg.SearchURL when set,
// and prints the run summary to out.
// An interrupted crawl still writes its summary and returns nil.
func runCrawl(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	target := firstOf(cfg.Seeds)
	scopeURLs := cfg.Seeds
	if cfg.SearchURL != "" {
		target = cfg.SearchURL
		scopeURLs = append(slices.Clone(cfg.Seeds), cfg.SearchURL)
	}
	scope := extract.ScopeFromURLs(scopeURLs)
	if len(cfg.Scope) > 0 {
		scope = extract.NewScope(cfg.Scope...)
	}

	enricher, err := enrich.New(cfg.Entities)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	csvPath := outputPath(cfg, config.DefaultPagesCSV)
	files, err := sink.NewFileSink(csvPath, sink.KindPages,
		sink.WithJSONDir(jsonDir(cfg, csvPath)),
		sink.WithAlwaysPersist(cfg.AlwaysPersist),
		sink.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	run := model.NewRunSummary(model.ModeCrawl, cfg.Keyword, target)
	hist, err := openHistory(ctx, cfg, run, logger)
	if err != nil {
		_ = files.Close()
		return err
	}
	defer hist.close()

	sinks := []sink.Sink{files}
	if hist != nil {
		sinks = append(sinks, hist.db.Recorder(run.ID))
	}
	output := sink.NewMulti(sinks...)

	extractor := extract.New(scope,
		extract.WithReadability(cfg.Readability),
		extract.WithLogger(logger),
	)
	p := pipeline.Default(extractor, enricher, newAnalyzer(cfg), cfg.Keyword, output,
		pipeline.WithLogger(logger),
	)

	fetcher := newFetcher(cfg, logger, scope.Hosts()...)
	scheduler := crawler.NewScheduler(fetcher, p,
		crawler.WithKeyword(cfg.Keyword),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxLinksPerPage(cfg.MaxLinksPerPage),
		crawler.WithRobots(cfg.RespectRobots, cfg.UserAgent),
		crawler.WithPatternsFor(sitePatterns(cfg)),
		crawler.WithLogger(logger),
	)

	seeds := cfg.Seeds
	if cfg.SearchURL != "" {
		found, err := crawler.SearchSeeds(ctx, fetcher, scope, crawler.Search{
			URL:        cfg.SearchURL,
			Keyword:    cfg.Keyword,
			Pages:      cfg.SearchPages,
			QueryParam: cfg.SearchQueryParam,
			PageParam:  cfg.SearchPageParam,
		}, logger)
		if err != nil {
			logger.Warn("search interrupted", "error", err)
		}
		seeds = append(slices.Clone(cfg.Seeds), found...)
	}

	logger.Info("starting crawl",
		"seeds", seeds,
		"keyword", cfg.Keyword,
		"max_pages", cfg.MaxPages,
		"max_depth", cfg.MaxDepth,
	)

	summary, crawlErr := scheduler.Crawl(ctx, seeds)
	summary.Target = target
	if err := output.Close(); err != nil {
		logger.Error("failed to close output", "error", err)
	}
	if crawlErr != nil && !errors.Is(crawlErr, context.Canceled) {
		logger.Error("crawl stopped", "error", crawlErr)
	}

	summary.AddOutput("csv", files.Path())
	summary.AddOutput("json", files.JSONDir())
	hist.finish(summary)

	return writeSummary(out, cfg, summary, hist.matches(model.ModeCrawl))
}

// sitePatterns returns the URL patterns of the site a URL belongs to.
func sitePatterns(cfg *config.Config) func(string) crawler.Patterns {
	return func(rawURL string) crawler.Patterns {
		if cfg.SiteConfigs == nil {
			return crawler.Patterns{}
		}
		site := cfg.SiteConfigs.SiteConfigForURL(rawURL)
		return crawler.Patterns{Ignore: site.IgnorePatterns, Follow: site.FollowPatterns}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/nao1215/kwcrawl/internal/ckan"
	"github.com/nao1215/kwcrawl/internal/config"
	"github.com/nao1215/kwcrawl/internal/model"
	"github.com/nao1215/kwcrawl/internal/sink"
	"github.com/spf13/cobra"
)

// NewDatasetCmd creates the dataset command.
func NewDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset [dataset-id|url]",
		Short: "Scan the resources of a CKAN dataset for a keyword",
		Long: `Dataset lists the resources of a CKAN dataset and scores every datastore
record and every resource payload against the keyword.

The resource list comes from package_show, then package_search, then the
dataset web page. Matching records are written to CSV, JSON side-files
and the history database.

Examples:
  # Scan a data.politie.nl dataset by id
  kwcrawl dataset 47004-misdrijven

  # Dataset URLs are accepted too
  kwcrawl dataset https://data.politie.nl/#/Politie/nl/dataset/47004NED

  # Another CKAN portal
  kwcrawl dataset --api-base https://data.overheid.nl/data/api/3/action \
    --site-url https://data.overheid.nl/data my-dataset`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDatasetCmd,
	}

	addRunFlags(cmd)
	cmd.Flags().String("api-base", config.DefaultCKANAPIBase,
		"CKAN action API root")
	cmd.Flags().String("site-url", config.DefaultCKANSiteURL,
		"CKAN web frontend root, used when the API fails")

	return cmd
}

// runDatasetCmd executes the dataset command.
func runDatasetCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.DatasetID = datasetID(args[0])
	}
	if err := cfg.ValidateDataset(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	return runDataset(ctx, cfg, cmd.OutOrStdout(), logger)
}

// datasetID accepts a dataset URL or a bare identifier.
func datasetID(arg string) string {
	if id, ok := ckan.DatasetIDFromURL(arg); ok {
		return id
	}
	return arg
}

// runDataset scans cfg.DatasetID and prints the run summary to out.
func runDataset(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	csvPath := outputPath(cfg, config.DefaultResourcesCSV)
	files, err := sink.NewFileSink(csvPath, sink.KindResources,
		sink.WithJSONDir(jsonDir(cfg, csvPath)),
		sink.WithAlwaysPersist(cfg.AlwaysPersist),
		sink.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	run := model.NewRunSummary(model.ModeDataset, cfg.Keyword, cfg.DatasetID)
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

	if cfg.CKANAPIKey != "" {
		if u, err := url.Parse(cfg.CKANAPIBase); err == nil && u.Hostname() != "" {
			cfg.SiteConfigs = withAuthorization(cfg.SiteConfigs, u.Hostname(), cfg.CKANAPIKey)
		}
	}
	adapter := ckan.New(newFetcher(cfg, logger), output,
		ckan.WithAPIBase(cfg.CKANAPIBase),
		ckan.WithSiteURL(cfg.CKANSiteURL),
		ckan.WithMaxBytes(cfg.MaxResourceBytes),
		ckan.WithAnalyzer(newAnalyzer(cfg)),
		ckan.WithLogger(logger),
	)

	logger.Info("starting dataset scan",
		"dataset", cfg.DatasetID,
		"keyword", cfg.Keyword,
		"api", cfg.CKANAPIBase,
	)

	summary, scanErr := adapter.Scan(ctx, cfg.DatasetID, cfg.Keyword)
	if err := output.Close(); err != nil {
		logger.Error("failed to close output", "error", err)
	}

	summary.AddOutput("csv", files.Path())
	summary.AddOutput("json", files.JSONDir())
	hist.finish(summary)

	if err := writeSummary(out, cfg, summary, hist.matches(model.ModeDataset)); err != nil {
		return err
	}
	if scanErr != nil && !errors.Is(scanErr, context.Canceled) {
		return scanErr
	}
	return nil
}

// withAuthorization returns a copy of f whose entry for host also sends
// the CKAN API key.
func withAuthorization(f *config.File, host, apiKey string) *config.File {
	out := &config.File{Sites: make(map[string]config.SiteConfig)}
	if f != nil {
		*out = *f
		out.Sites = make(map[string]config.SiteConfig, len(f.Sites)+1)
		for k, v := range f.Sites {
			out.Sites[k] = v
		}
	}
	site := out.Sites[host]
	headers := make(map[string]string, len(site.Headers)+1)
	for k, v := range site.Headers {
		headers[k] = v
	}
	headers["Authorization"] = apiKey
	site.Headers = headers
	out.Sites[host] = site
	return out
}

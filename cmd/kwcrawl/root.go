package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for kwcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kwcrawl",
		Short: "Keyword-anchored crawler for news sites and open data",
		Long: `kwcrawl follows same-site links breadth-first from seed URLs, extracts the
article of every page and records each page that mentions a keyword
(default "vuurwerk") to CSV, JSON side-files and a local history database.

The dataset command scans the resources of a CKAN dataset the same way.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON lines")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewDatasetCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

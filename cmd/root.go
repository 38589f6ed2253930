// Package cmd defines the CLI commands for the recipecrawler executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipecrawler",
		Short: "Crawls a recipe site and persists structured recipe records",
		Long: `recipecrawler walks a recipe site's A-Z index, follows every category
through its paginated listings, renders each recipe page in a headless
browser, and persists the extracted records to blob storage and Postgres.
Re-running against the same site only writes recipes not yet stored.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

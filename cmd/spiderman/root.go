package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for spiderman.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spiderman",
		Short: "Rate limited web crawler",
		Long: `spiderman crawls a web site starting at a single URL.

Pages are fetched by a pool of scrapers and handed to a pool of data
processors. Both pools are rate limited priority queues. Every URL is
fingerprinted and scraped once; failed pages are retried with a lower
priority until the retry budget is spent.

Crawled pages can be written as JSON lines and stored in a SQLite
database. A statistics report is printed when the crawl is done.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
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

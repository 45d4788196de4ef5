package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/spiderman/internal/config"
	"github.com/nao1215/spiderman/internal/database"
	"github.com/nao1215/spiderman/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// It shows data stored by previous crawls run with --save-db.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show the results of a previous crawl",
		Long: `History reads the database written by 'spiderman crawl --save-db'.

Given a start URL it prints the report of the most recent crawl of that URL.
With --page it prints the stored page of a URL and its outgoing links.

Examples:
  # Report of the latest crawl of a site
  spiderman history https://example.com/

  # Same report in Markdown
  spiderman history --report markdown https://example.com/

  # Stored page and links of a single URL
  spiderman history --page https://example.com/about`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db", config.NewConfig().DBPath,
		"SQLite database path")
	cmd.Flags().String("report", config.ReportText,
		"Report format: text, json or markdown")
	cmd.Flags().Bool("page", false,
		"Show the stored page of the URL instead of the crawl report")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbPath, err := cmd.Flags().GetString("db")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("report")
	if err != nil {
		return err
	}
	showPage, err := cmd.Flags().GetBool("page")
	if err != nil {
		return err
	}

	// Validate the format before opening the database.
	writer, err := report.NewWriter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	store, err := database.Open(dbPath, opts)
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotExist) {
			return fmt.Errorf("no crawl history found at %s (run 'spiderman crawl --save-db' first)", dbPath)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if showPage {
		return printPage(ctx, store, args[0], cmd.OutOrStdout())
	}
	return printLatestSession(ctx, store, args[0], writer, cmd.OutOrStdout())
}

// printLatestSession writes the report of the latest crawl of startURL.
func printLatestSession(ctx context.Context, store *database.PageStore, startURL string, writer report.Writer, out io.Writer) error {
	session, err := store.LatestSession(ctx, startURL)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no crawl of %s found in the database", startURL)
		}
		return err
	}

	pages, err := store.CountPages(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Crawl #%d, %d pages stored\n\n", session.ID, pages)

	_, err = writer.Write(&report.Summary{
		StartURL:   session.StartURL,
		StartedAt:  session.StartedAt,
		FinishedAt: session.FinishedAt,
		Stats:      session.Stats,
	})
	return err
}

// printPage writes the stored page of url and its links.
func printPage(ctx context.Context, store *database.PageStore, url string, out io.Writer) error {
	page, err := store.GetPage(ctx, url)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("page %s is not stored in the database", url)
		}
		return err
	}

	fmt.Fprintf(out, "URL:          %s\n", page.URL)
	if page.FinalURL != "" && page.FinalURL != page.URL {
		fmt.Fprintf(out, "Final URL:    %s\n", page.FinalURL)
	}
	fmt.Fprintf(out, "Status:       %d\n", page.StatusCode)
	fmt.Fprintf(out, "Content Type: %s\n", page.ContentType)
	fmt.Fprintf(out, "Title:        %s\n", page.Title)
	fmt.Fprintf(out, "Size:         %d bytes\n", page.Size)
	fmt.Fprintf(out, "Fetched At:   %s\n", page.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Links (%d):\n", len(page.Links))
	for _, link := range page.Links {
		fmt.Fprintf(out, "  - %s\n", link)
	}
	return nil
}

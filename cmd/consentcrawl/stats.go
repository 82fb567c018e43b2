package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/database"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <output-dir>",
		Short: "Summarize a crawl database",
		Long: `Stats reads the SQLite database produced by a previous crawl run and
prints record counts broken down by purpose category, by site, and by
failure kind.

Examples:
  # Summarize a previous run
  consentcrawl stats scrape_out_20260831_120000`,
		Args: cobra.ExactArgs(1),
		RunE: runStatsCmd,
	}
	return cmd
}

// runStatsCmd executes the stats command.
func runStatsCmd(cmd *cobra.Command, args []string) error {
	dbDir := args[0]

	// Existing data only; stats must never create an empty database.
	db, err := database.Open(dbDir, database.Options{})
	if err != nil {
		return fmt.Errorf("failed to open database in %s: %w", dbDir, err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	total, err := db.CountRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	fmt.Fprintf(out, "Database: %s\n", db.Path())
	fmt.Fprintf(out, "Total records: %d\n\n", total)

	categories, err := db.CategorySummary(ctx)
	if err != nil {
		return fmt.Errorf("failed to summarize categories: %w", err)
	}
	if len(categories) > 0 {
		fmt.Fprintln(out, "Records by category:")
		for _, c := range categories {
			fmt.Fprintf(out, "  %-16s %d\n", c.Category.String(), c.Count)
		}
		fmt.Fprintln(out)
	}

	sites, err := db.SiteSummary(ctx)
	if err != nil {
		return fmt.Errorf("failed to summarize sites: %w", err)
	}
	if len(sites) > 0 {
		fmt.Fprintf(out, "Records by site (%d sites):\n", len(sites))
		for _, s := range sites {
			fmt.Fprintf(out, "  %-48s %d\n", s.SiteURL, s.Count)
		}
		fmt.Fprintln(out)
	}

	errs, err := db.ErrorSummary(ctx)
	if err != nil {
		return fmt.Errorf("failed to summarize errors: %w", err)
	}
	if len(errs) > 0 {
		fmt.Fprintln(out, "Recorded failures by kind:")
		for _, e := range errs {
			fmt.Fprintf(out, "  %-32s %d\n", e.Kind, e.Count)
		}
	}

	return nil
}

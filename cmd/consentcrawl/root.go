package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for consentcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consentcrawl",
		Short: "Cookie purpose crawler for consent management platforms",
		Long: `consentcrawl collects cookie purpose declarations from websites that run
a supported consent management platform (Cookiebot, OneTrust, Termly).

For each target it loads the page in a headless browser, detects which
platform is present, downloads the platform's cookie declaration, and
stores one normalized record per declared cookie in a SQLite database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewStatsCmd())
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

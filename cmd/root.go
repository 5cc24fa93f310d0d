// Package cmd defines and implements the CLI commands for the scraper
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arbeidsplassen-scraper",
		Short: "A polite job-ad scraper for arbeidsplassen.nav.no",
		Long: `arbeidsplassen-scraper crawls the paginated job listings on
arbeidsplassen.nav.no, extracts structured fields from every ad,
deduplicates against earlier runs, and appends the results to per-day
CSV dataset files.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	cmd.AddCommand(newScrapeCmd())

	return cmd
}

// resolveConfigPath returns the config file to load: the --config flag if
// given, otherwise ./config.yaml when present, otherwise defaults only.
func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/scraper"
)

// newScrapeCmd creates the 'scrape' subcommand. It runs a single scrape of
// the current year's publications and exits non-zero on failure.
func newScrapeCmd() *cobra.Command {
	var (
		force    bool
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the current year's publications once",
		Long: `Fetches the publications listing, enriches each entry from its
detail page, and writes the yearly snapshot. If a snapshot with data
already exists for the current year the run is skipped unless --force
is given.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			opts := scraper.RunOptions{MaxPages: maxPages}
			if cmd.Flags().Changed("force") {
				opts.ForceRescrape = &force
			}

			summary := appInstance.Scraper.Run(cmd.Context(), opts)
			if !summary.Success {
				return fmt.Errorf("scrape failed: %s", summary.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-scrape even when a snapshot with data already exists")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page limit hint (the site serves one page of results)")

	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenrich/internal/audit"
	"github.com/amishk599/jobenrich/internal/config"
	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/schema"
	"github.com/amishk599/jobenrich/internal/store"
)

var (
	browseLimit int
	browseFacet string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored listings interactively (TUI)",
	Long:  "Loads the most recent enriched listings, shows a facet picker, then the split-pane browser.",
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().IntVarP(&browseLimit, "limit", "n", 200, "number of recent listings to load")
	browseCmd.Flags().StringVar(&browseFacet, "facet", "office_type", "enrichment field to group by")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Datastore.URL == "" {
		fmt.Fprintf(os.Stderr, "browse requires %s\n", config.EnvDatastoreURL)
		os.Exit(1)
	}

	// No logging here: output before the alt screen starts corrupts the display.
	st, err := store.Open(context.Background(), cfg.Datastore.URL, cfg.Datastore.Key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open datastore: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	enrichment := schema.Enrichment()
	records, err := audit.RunLoader(cfg.Datastore.Table, func(ctx context.Context) ([]model.Record, error) {
		return st.RecentRecords(ctx, cfg.Datastore.Table, enrichment.Columns(), browseLimit)
	})
	if err != nil {
		fmt.Printf("Error loading listings: %v\n", err)
		return nil
	}
	if len(records) == 0 {
		fmt.Printf("No listings in %s yet.\n", cfg.Datastore.Table)
		return nil
	}

	facets := audit.Facets(enrichment, browseFacet)
	for {
		choice, err := audit.RunFacetPicker("Browse "+cfg.Datastore.Table, facets, records)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if choice < 0 {
			return nil
		}

		wantQuit, err := audit.RunBrowseTUI(enrichment, records, facets[choice])
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
		// else: back to the picker
	}
}

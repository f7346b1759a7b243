package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenrich/internal/schema"
)

var columnsJSON bool

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List the persisted columns",
	Long:  "Prints the column set written for every listing, or with --json the schema sent to the model.",
	RunE:  runColumns,
}

func init() {
	columnsCmd.Flags().BoolVar(&columnsJSON, "json", false, "print the enrichment schema descriptor")
	rootCmd.AddCommand(columnsCmd)
}

func runColumns(cmd *cobra.Command, args []string) error {
	s := schema.Enrichment()

	if columnsJSON {
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to render schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("%-30s %-8s %s\n", "Column", "Kind", "Source")
	fmt.Println(strings.Repeat("─", 50))

	specs := s.ColumnSpecs()
	for i, c := range specs {
		source := "scraped"
		if i >= len(schema.BaseColumns) {
			source = "model"
		}
		fmt.Printf("%-30s %-8s %s\n", c.Name, c.Kind, source)
	}

	fmt.Printf("\nTotal: %d columns (%d scraped, %d model)\n", len(specs), len(schema.BaseColumns), len(s.Properties))
	return nil
}

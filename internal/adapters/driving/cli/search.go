package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

var (
	searchJSON    bool
	searchSuggest bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the movement dataset",
	Long: `Searches the movement dataset through the analysis service.
Without a query, the most tweeted movements are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchSuggest, "suggest", false, "list suggested searches instead")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchSuggest {
		cmd.Println("Suggested searches:")
		for _, q := range domain.SuggestedQueries {
			cmd.Printf("  %s\n", q)
		}
		return nil
	}

	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	lens, err := openLens()
	if err != nil {
		return err
	}
	defer lens.Close()

	outcome := lens.Submit(cmd.Context(), query)
	if outcome.Err != nil {
		return fmt.Errorf("search failed: %w", outcome.Err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, outcome.Results)
	}
	outputSearchTable(cmd, query, outcome.Results)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, results domain.ResultSet) error {
	if results == nil {
		results = domain.ResultSet{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, query string, results domain.ResultSet) {
	if len(results) == 0 {
		cmd.Println("No movements found.")
		return
	}

	if query == "" {
		cmd.Printf("Top %d movements:\n\n", len(results))
	} else {
		cmd.Printf("%d movements for %q:\n\n", len(results), query)
	}
	for i := range results {
		cmd.Printf("  [%d] %s\n", i+1, results[i].Title())
		if line := results[i].Details(); line != "" {
			cmd.Printf("      %s\n", line)
		}
	}
	cmd.Println()
}

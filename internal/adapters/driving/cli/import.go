package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import movements into the dataset",
	Long: `Reads a JSON array of movement records and stores them in the local
dataset. Records with an existing ID are replaced. Use "-" to read stdin.

When an embedding provider is configured, the imported movements are embedded
for semantic search.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	backend, err := openBackend(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer backend.Close()

	n, err := backend.Dataset.Import(cmd.Context(), r)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	total, err := backend.Dataset.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count movements: %w", err)
	}
	cmd.Printf("Imported %d movements (%d in dataset).\n", n, total)
	return nil
}

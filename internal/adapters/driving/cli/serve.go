package cli

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/movement-lens/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis service",
	Long: `Serves the movement dataset and the streaming analysis endpoint over HTTP.

The service answers GET /api/search and POST /api/chat_stream, which is what
'lens ask' and 'lens tui' talk to. Synthesis requires an LLM provider; run
'lens settings llm' to configure one.

Changes to the chat rate limit in the config file apply without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if serveAddr != "" {
		settings.Server.Addr = serveAddr
	}

	backend, err := openBackend(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer backend.Close()

	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}
	server := httpapi.NewServer(backend.Dataset, backend.Synthesis, settings.Server)

	count, err := backend.Dataset.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}
	cmd.Printf("Serving %d movements on %s\n", count, server.Addr())
	if count == 0 {
		cmd.Println("The dataset is empty. Run 'lens import <file.json>' to load movements.")
	}
	if !backend.Synthesis.Available() {
		cmd.Println("No LLM provider configured: analysis requests will be refused.")
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return server.Run(ctx)
	})
	if services.WatchConfig != nil {
		g.Go(func() error {
			return services.WatchConfig(ctx, func() {
				updated, err := services.Settings.Get()
				if err != nil {
					logger.Warn("serve: reload settings: %v", err)
					return
				}
				server.ApplySettings(updated.Server)
			})
		})
	}
	return g.Wait()
}

// Command lens searches online social movements and streams AI analyses of
// the results, either against a running analysis service or by serving one.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/movement-lens/internal/adapters/driven/ai"
	"github.com/custodia-labs/movement-lens/internal/adapters/driven/config/file"
	"github.com/custodia-labs/movement-lens/internal/adapters/driven/lensapi"
	"github.com/custodia-labs/movement-lens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/movement-lens/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/movement-lens/internal/adapters/driving/cli"
	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
	"github.com/custodia-labs/movement-lens/internal/core/services"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// inMemoryDataDir selects the in-process movement store.
const inMemoryDataDir = ":memory:"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetSetup(setup)

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// setup wires the adapters behind the CLI's services.
func setup(configDir string) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	promptDir := ""
	if configDir != "" {
		promptDir = filepath.Join(configDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	return &cli.Services{
		Settings:    settingsService,
		ConfigStore: configStore,
		Actions:     services.NewResultActionService(),
		NewLens:     newLens,
		OpenBackend: func(ctx context.Context) (*cli.Backend, error) {
			return openBackend(ctx, settingsService, prompts)
		},
		WatchConfig: func(ctx context.Context, onChange func()) error {
			return file.NewWatcher(configStore, onChange).Run(ctx)
		},
	}, nil
}

// newLens opens a session against the analysis service at settings.APIURL.
func newLens(settings domain.ClientSettings) (driving.LensService, error) {
	client, err := lensapi.NewClient(lensapi.Config{
		BaseURL:        settings.APIURL,
		RequestTimeout: settings.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	return services.NewLens(client, client, settings), nil
}

// openBackend opens the dataset and the AI services behind serve, import
// and mcp. A configured provider that cannot be reached is skipped with a
// warning rather than failing the command.
func openBackend(
	_ context.Context, settingsService driving.SettingsService, prompts *file.PromptStore,
) (*cli.Backend, error) {
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	movements, closeStore, err := openMovementStore(settings.Server.DataDir)
	if err != nil {
		return nil, err
	}

	aiServices := ai.Init(settings)
	for _, warning := range aiServices.Warnings {
		logger.Warn("%s", warning)
	}

	dataset := services.NewDatasetService(
		movements, aiServices.EmbeddingService, aiServices.LLMService, prompts, settings.Server,
	)
	synthesis := services.NewSynthesisService(aiServices.LLMService, prompts, settings.Server)

	return &cli.Backend{
		Dataset:   dataset,
		Synthesis: synthesis,
		Close: func() error {
			aiServices.Close()
			return closeStore()
		},
	}, nil
}

// openMovementStore opens the SQLite dataset in dataDir. The data directory
// ":memory:" keeps the dataset in process for the life of the command.
func openMovementStore(dataDir string) (driven.MovementStore, func() error, error) {
	if dataDir == inMemoryDataDir {
		logger.Debug("dataset held in memory")
		return memory.NewMovementStore(), func() error { return nil }, nil
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset: %w", err)
	}
	logger.Debug("dataset at %s", store.Path())
	return store.MovementStore(), store.Close, nil
}

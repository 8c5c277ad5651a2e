// Package cli provides the lens command-line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
)

// Services are the ports the commands run against.
type Services struct {
	// Settings reads and writes application settings.
	Settings driving.SettingsService

	// ConfigStore is the raw key/value store behind Settings.
	ConfigStore driven.ConfigStore

	// Actions copies analyses and opens movement references.
	Actions driving.ResultActionService

	// NewLens opens an interactive session against the analysis service.
	NewLens func(settings domain.ClientSettings) (driving.LensService, error)

	// OpenBackend opens the dataset and synthesis services used by serve,
	// import and mcp. The caller must Close the backend.
	OpenBackend func(ctx context.Context) (*Backend, error)

	// WatchConfig blocks until ctx ends, calling onChange after the config
	// file changes on disk. May be nil.
	WatchConfig func(ctx context.Context, onChange func()) error
}

// Backend is the server-side half of the application.
type Backend struct {
	Dataset   driving.DatasetService
	Synthesis driving.SynthesisService
	Close     func() error
}

// Setup builds the services for the given config directory. An empty
// directory means the default under the user's home.
type Setup func(configDir string) (*Services, error)

var (
	services *Services
	setup    Setup
)

// errNotConfigured is returned by commands whose service is missing.
var errNotConfigured = errors.New("service not configured")

var rootCmd = &cobra.Command{
	Use:   "lens",
	Short: "Search social movements and stream AI analyses of the results",
	Long: `Movement Lens searches a dataset of online social movements and asks an
analysis service for a streamed narrative synthesis of what it found.

Run 'lens serve' to start the analysis service over the local dataset, then
'lens tui' or 'lens ask' to explore it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if setup == nil {
			return nil
		}
		s, err := setup(configDir)
		if err != nil {
			return err
		}
		services = s
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.lens)")
}

// SetVersion sets the version string reported by 'lens version'.
func SetVersion(v string) {
	version = v
}

// SetSetup registers the function that builds services before each command.
func SetSetup(fn Setup) {
	setup = fn
}

// SetServices installs services directly, bypassing Setup.
func SetServices(s *Services) {
	services = s
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadSettings returns the current settings, or the defaults when no
// settings service is configured.
func loadSettings() (*domain.AppSettings, error) {
	if services == nil || services.Settings == nil {
		defaults := domain.DefaultAppSettings()
		return &defaults, nil
	}
	return services.Settings.Get()
}

// openLens starts a session with the configured client settings.
func openLens() (driving.LensService, error) {
	if services == nil || services.NewLens == nil {
		return nil, errNotConfigured
	}
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return services.NewLens(settings.Client)
}

// openBackend opens the dataset and synthesis services.
func openBackend(ctx context.Context) (*Backend, error) {
	if services == nil || services.OpenBackend == nil {
		return nil, errNotConfigured
	}
	return services.OpenBackend(ctx)
}

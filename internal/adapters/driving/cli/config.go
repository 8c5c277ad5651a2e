package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write raw config keys",
	Long: `Reads and writes keys in the TOML config file directly.

Keys use dotted names, for example:
  client.api_url            analysis service base URL
  client.settle_delay_ms    delay before an automatic synthesis starts
  server.chat_rate_per_sec  analysis requests allowed per second
  server.data_dir           dataset directory (":memory:" keeps it in process)
  llm.provider              openai, ollama or anthropic`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a key",
	Long:  `Sets a key. Integers, floats and booleans are stored typed; anything else as a string.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check settings and ping the configured providers",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if services == nil || services.ConfigStore == nil {
		return errNotConfigured
	}
	value, ok := services.ConfigStore.Get(args[0])
	if !ok {
		return fmt.Errorf("key %q is not set", args[0])
	}
	cmd.Println(formatValue(args[0], value))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if services == nil || services.ConfigStore == nil {
		return errNotConfigured
	}
	key := strings.TrimSpace(args[0])
	if key == "" || !strings.Contains(key, ".") {
		return fmt.Errorf("invalid key %q: expected section.name", args[0])
	}
	if err := services.ConfigStore.Set(key, parseValue(args[1])); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("%s = %s\n", key, formatValue(key, parseValue(args[1])))
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if services == nil || services.ConfigStore == nil {
		return errNotConfigured
	}
	keys := services.ConfigStore.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		value, _ := services.ConfigStore.Get(key)
		cmd.Printf("%s = %s\n", key, formatValue(key, value))
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if services == nil || services.ConfigStore == nil {
		return errNotConfigured
	}
	cmd.Println(services.ConfigStore.Path())
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Settings == nil {
		return errNotConfigured
	}

	var errs []error
	check := func(name string, fn func() error) {
		cmd.Printf("%-10s ", name+":")
		if err := fn(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			errs = append(errs, err)
			return
		}
		cmd.Println("OK")
	}

	check("settings", services.Settings.Validate)

	settings, err := services.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if settings.LLM.IsConfigured() {
		check("llm", services.Settings.ValidateLLMConfig)
	} else {
		cmd.Printf("%-10s not configured\n", "llm:")
	}
	if settings.Embedding.IsConfigured() {
		check("embedding", services.Settings.ValidateEmbeddingConfig)
	} else {
		cmd.Printf("%-10s not configured\n", "embedding:")
	}

	return errors.Join(errs...)
}

// parseValue types a command-line value for storage.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// formatValue renders a stored value, masking API keys.
func formatValue(key string, value any) string {
	s := fmt.Sprint(value)
	if strings.HasSuffix(key, "api_key") {
		return maskAPIKey(s)
	}
	return s
}

package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

// ConfigWriter persists one setting to the config file at path.
type ConfigWriter func(path, key, value string) error

var (
	checkProviders bool
	configWriter   ConfigWriter
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Prints every setting after merging the config file, environment and
defaults. API keys and connection strings are masked.

With --check, pings every configured LLM provider instead.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Write one setting to the config file",
	Long: `Validates VALUE against the setting's type and the configuration rules,
then stores it in the config file. Unknown keys are rejected.`,
	Example:     "  arah config set retrieval.canary_pct 25",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runConfigSet,
}

func init() {
	configCmd.Flags().BoolVar(&checkProviders, "check", false, "ping the configured LLM providers")
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// SetConfigWriter installs the function `arah config set` uses.
func SetConfigWriter(w ConfigWriter) {
	configWriter = w
}

func runConfig(cmd *cobra.Command, _ []string) error {
	if checkProviders {
		return runProviderCheck(cmd)
	}
	width := 0
	for _, e := range configEntries {
		width = max(width, len(e.Key))
	}
	for _, e := range configEntries {
		value := e.Value
		if strings.TrimSpace(value) == "" {
			value = "(unset)"
		}
		cmd.Printf("%-*s = %s\n", width, e.Key, value)
	}
	return nil
}

func runProviderCheck(cmd *cobra.Command) error {
	if providerCheck == nil {
		return errors.New("provider check not available")
	}
	results, err := providerCheck(cmd.Context())
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		cmd.Printf("%-12s %s\n", r.Provider, status)
	}
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configWriter == nil {
		return errors.New("config writer not configured")
	}
	if err := configWriter(configPath, args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("%s = %s\n", args[0], args[1])
	return nil
}

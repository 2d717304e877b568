package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/runcrew/ingest/internal/config"
)

// configCmd groups configuration helpers.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

// configInitCmd writes a default configuration file.
var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a default configuration file",
	Long: `Write the default configuration as YAML, ready to edit. Without an
argument the file is written to ./ingest.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := "ingest.yaml"
		if len(args) == 1 {
			filename = args[0]
		}
		if _, err := os.Stat(filename); err == nil {
			return fmt.Errorf("refusing to overwrite existing file: %s", filename)
		}

		defaults := config.DefaultConfig()
		data, err := yaml.Marshal(defaults)
		if err != nil {
			return fmt.Errorf("marshal default config: %w", err)
		}
		if err := os.WriteFile(filename, data, 0o644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", filename)
		return nil
	},
}

// configPathsCmd prints the configuration search paths.
var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print configuration search paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range config.GetConfigSearchPaths() {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathsCmd)
}

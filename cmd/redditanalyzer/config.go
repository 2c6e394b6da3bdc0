package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"redditanalyzer/pkg/config"
	"redditanalyzer/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage redditanalyzer configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file with every option at its default value.

The file is created as '.redditanalyzer.yaml' in the current directory unless
a different path is given with --config. Secrets are left empty; prefer
environment variables or 'redditanalyzer credentials set' for them.`,
	Args: cobra.NoArgs,
	Run:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source.

Secrets are masked.`,
	Args: cobra.NoArgs,
	Run:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = ".redditanalyzer.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", path)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		ui.PrintError("Failed to write configuration", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Configuration written to " + path)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig(map[string]interface{}{})

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
}

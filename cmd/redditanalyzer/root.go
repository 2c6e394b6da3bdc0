package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"redditanalyzer/pkg/logger"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "redditanalyzer",
	Short: "Collect a Reddit user's public history and turn it into an AI report",
	Long: `redditanalyzer collects every post and comment of a Reddit user, uploads the
collected document to Gemini and stores the generated psychological profile as
a Markdown report.

Run it as an HTTP service with 'redditanalyzer serve', or analyze a single
user from the terminal with 'redditanalyzer analyze <username>'.

Credentials are read from flags, environment variables, a config file or the
credential store ('redditanalyzer credentials set').`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.redditanalyzer.yaml or ~/.config/redditanalyzer/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`redditanalyzer {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

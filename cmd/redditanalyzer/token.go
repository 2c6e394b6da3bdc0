package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"redditanalyzer/pkg/server"
	"redditanalyzer/pkg/ui"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a session token for the HTTP API",
	Long: `Mint a session token signed with server.session_secret (SECRET_KEY).

Send it as 'Authorization: Bearer <token>' or in the 'session' cookie.`,
	Example: `  redditanalyzer token alice --ttl 2h
  curl -H "Authorization: Bearer $(redditanalyzer token alice)" localhost:8080/api/tasks/ID/status`,
	Args: cobra.ExactArgs(1),
	Run:  runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) {
	cfg := loadConfig(map[string]interface{}{})

	sessions, err := server.NewSessions(cfg.Server.SessionSecret)
	if err != nil {
		ui.PrintError("Session secret is not configured", "set SECRET_KEY or server.session_secret")
		os.Exit(1)
	}

	token, err := sessions.Issue(args[0], tokenTTL)
	if err != nil {
		ui.PrintError("Failed to sign token", err.Error())
		os.Exit(1)
	}
	fmt.Println(token)
}

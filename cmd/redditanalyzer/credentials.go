package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"redditanalyzer/pkg/auth"
	"redditanalyzer/pkg/ui"
)

var credentialsCmd = &cobra.Command{
	Use:     "credentials",
	Aliases: []string{"creds"},
	Short:   "Manage Reddit and Gemini API credentials",
	Long: `Manage stored API credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your credentials or config files!`,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set [profile]",
	Short: "Store API credentials",
	Long: `Store a Reddit app id/secret and a Gemini API key under a profile name.

Secrets are read without echo. The profile defaults to "default", which is
used by serve and analyze unless --profile is given.`,
	Example: `  # Interactive setup of the default profile
  redditanalyzer credentials set

  # Store a second profile
  redditanalyzer credentials set work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runCredentialsSet,
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show [profile]",
	Short: "Show a stored profile with secrets masked",
	Args:  cobra.MaximumNArgs(1),
	Run:   runCredentialsShow,
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Args:  cobra.NoArgs,
	Run:   runCredentialsList,
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete <profile>",
	Short: "Remove a stored profile",
	Args:  cobra.ExactArgs(1),
	Run:   runCredentialsDelete,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)
	credentialsCmd.AddCommand(credentialsListCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
}

func newCredentialManager() *auth.Manager {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	return manager
}

func profileArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultProfile
}

func runCredentialsSet(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()
	name := profileArg(args)
	reader := bufio.NewReader(os.Stdin)

	auth.PrintSetupGuide(os.Stdout)

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("\nProfile '%s' already exists. Replace it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Println()
	profile := &auth.Profile{Name: name}

	profile.RedditClientID = ask(reader, "Reddit client id: ")
	fmt.Print("Reddit client secret: ")
	profile.RedditClientSecret = readSecret(reader)
	profile.RedditUserAgent = ask(reader, "Reddit user agent (Enter for default): ")
	fmt.Print("Gemini API key: ")
	profile.GeminiAPIKey = readSecret(reader)

	if err := manager.Store(profile); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Credentials stored as profile '%s'", name))
}

func runCredentialsShow(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()

	profile, err := manager.Retrieve(profileArg(args))
	if err != nil {
		ui.PrintError("Profile not found", err.Error())
		os.Exit(1)
	}
	printProfile(auth.SanitizeProfile(profile))
}

func runCredentialsList(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()

	profiles, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list profiles", err.Error())
		os.Exit(1)
	}
	if len(profiles) == 0 {
		ui.PrintWarning("No stored profiles")
		fmt.Println("\nRun 'redditanalyzer credentials set' to add one.")
		return
	}

	ui.PrintHighlight(fmt.Sprintf("%d stored profile(s)", len(profiles)))
	for _, p := range profiles {
		fmt.Println()
		printProfile(auth.SanitizeProfile(p))
	}
}

func runCredentialsDelete(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()
	name := profileArg(args)

	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to delete profile", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Profile '%s' removed", name))
}

func printProfile(p *auth.Profile) {
	ui.PrintInfo("Profile", p.Name)
	ui.PrintInfo("  Reddit client id", p.RedditClientID)
	ui.PrintInfo("  Reddit client secret", p.RedditClientSecret)
	if p.RedditUserAgent != "" {
		ui.PrintInfo("  Reddit user agent", p.RedditUserAgent)
	}
	ui.PrintInfo("  Gemini API key", p.GeminiAPIKey)
	if !p.LastModified.IsZero() {
		ui.PrintInfo("  Last modified", p.LastModified.Format("2006-01-02 15:04"))
	}
}

func ask(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		ui.PrintError("Failed to read input", err.Error())
		os.Exit(1)
	}
	return strings.TrimSpace(input)
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) string {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		ui.PrintError("Failed to read input", err.Error())
		os.Exit(1)
	}
	return strings.TrimSpace(input)
}

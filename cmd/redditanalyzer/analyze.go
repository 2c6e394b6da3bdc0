package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"redditanalyzer/pkg/reddit"
	"redditanalyzer/pkg/storage"
	"redditanalyzer/pkg/tasks"
	"redditanalyzer/pkg/ui"
	"redditanalyzer/pkg/ui/tui"
)

const pollInterval = 500 * time.Millisecond

var (
	outputFile     string
	analyzeModel   string
	analyzeProfile string
	analyzeScratch string
	useTUI         bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <username>",
	Short: "Analyze one Reddit user from the terminal",
	Long: `Collect the posts and comments of a Reddit user, have Gemini write the
report and save it locally.

The same pipeline as the HTTP service runs in-process; progress is printed as
it changes, or shown in an interactive monitor with --tui.`,
	Example: `  # Write the report to spez_report.md
  redditanalyzer analyze spez

  # Choose the output file and watch in the terminal UI
  redditanalyzer analyze spez -o reports/spez.md --tui`,
	Args: cobra.ExactArgs(1),
	Run:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "report destination (default: <username>_report.md)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Gemini model name")
	analyzeCmd.Flags().StringVar(&analyzeScratch, "scratch-dir", "", "directory for intermediate files")
	analyzeCmd.Flags().StringVarP(&analyzeProfile, "profile", "p", "", "stored credential profile")
	analyzeCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	username := reddit.NormalizeUsername(args[0])
	if username == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	flags := map[string]interface{}{
		"model":       analyzeModel,
		"scratch-dir": analyzeScratch,
	}
	// log lines would tear the alternate screen
	if useTUI && logLevel == "" {
		flags["log-level"] = "error"
	}
	cfg := loadConfig(flags)
	resolveCredentials(cfg, analyzeProfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		ui.PrintError("Failed to start", err.Error())
		os.Exit(1)
	}

	if !useTUI {
		ui.PrintBanner()
		ui.PrintInfo("Target user", username)
	}

	id, err := a.pipeline.Submit(username)
	if err != nil {
		ui.PrintError("Failed to start analysis", err.Error())
		a.close(time.Second)
		os.Exit(1)
	}

	var snap tasks.Snapshot
	if useTUI {
		snap, err = watchTUI(a.store, id)
	} else {
		snap, err = watchLines(ctx, a.store, id)
	}
	if err != nil {
		ui.PrintWarning("Stopped watching", err.Error())
		// the pool cancels the task once the wait expires
		a.close(time.Second)
		os.Exit(130)
	}

	if snap.Status == tasks.Failed {
		ui.PrintError("Analysis failed", snap.Progress)
		a.close(cfg.Server.ShutdownTimeout)
		os.Exit(1)
	}

	dest := outputFile
	if dest == "" {
		dest = storage.SanitizeUsername(username) + "_report.md"
	}
	if err := saveReport(a, id, dest); err != nil {
		ui.PrintError("Failed to save report", err.Error())
		a.close(cfg.Server.ShutdownTimeout)
		os.Exit(1)
	}

	a.close(cfg.Server.ShutdownTimeout)
	ui.PrintSuccess("Report saved to " + dest)
}

// watchLines prints each change of the task until it finishes
func watchLines(ctx context.Context, store *tasks.Store, id string) (tasks.Snapshot, error) {
	printer := ui.NewProgressPrinter(os.Stdout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		snap, err := store.Lookup(id)
		if err != nil {
			return tasks.Snapshot{}, err
		}
		printer.Observe(snap)
		if snap.Status.Terminal() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

// watchTUI shows the monitor until the task finishes or the user quits
func watchTUI(store *tasks.Store, id string) (tasks.Snapshot, error) {
	finished, err := tui.New(store, pollInterval, id).Run()
	if err != nil {
		return tasks.Snapshot{}, fmt.Errorf("terminal UI: %w", err)
	}
	if !finished {
		return tasks.Snapshot{}, errors.New("interrupted")
	}
	return store.Lookup(id)
}

// saveReport copies the finished report to dest and drops the task, the same
// way a download through the HTTP API does
func saveReport(a *app, id, dest string) error {
	task, ok := a.store.Get(id)
	if !ok {
		return tasks.ErrNotFound
	}
	snap, err := task.BeginDelivery()
	if err != nil {
		return err
	}

	src, err := a.files.Open(snap.ReportPath)
	if err != nil {
		task.ReleaseDelivery()
		return fmt.Errorf("open report: %w", err)
	}
	defer src.Close()

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			task.ReleaseDelivery()
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	out, err := os.Create(dest)
	if err != nil {
		task.ReleaseDelivery()
		return fmt.Errorf("create output file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		task.ReleaseDelivery()
		return fmt.Errorf("copy report: %w", err)
	}
	if err := out.Close(); err != nil {
		task.ReleaseDelivery()
		return fmt.Errorf("close output file: %w", err)
	}

	if err := a.files.Remove(snap.ReportPath); err != nil {
		a.log.WithError(err).Warn("Failed to remove delivered report")
	}
	a.store.Remove(id)
	a.log.WithField("path", dest).Info("Report saved")
	return nil
}

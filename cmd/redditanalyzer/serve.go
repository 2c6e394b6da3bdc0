package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"redditanalyzer/pkg/ratelimit"
	"redditanalyzer/pkg/server"
	"redditanalyzer/pkg/ui"
)

var (
	serveHost          string
	servePort          int
	serveScratchDir    string
	serveModel         string
	serveMaxConcurrent int
	serveProfile       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API.

Routes:
  GET  /health                    liveness, no session required
  POST /api/tasks                 submit a username for analysis
  GET  /api/tasks/:id/status      poll a task
  GET  /api/tasks/:id/download    download a finished report (once)

Every /api route needs a session token signed with server.session_secret
(SECRET_KEY). Mint one with 'redditanalyzer token <subject>'.`,
	Example: `  # Listen on all interfaces
  redditanalyzer serve --host 0.0.0.0 --port 8080

  # Run at most two analyses at a time
  redditanalyzer serve --max-concurrent 2`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen address")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port")
	serveCmd.Flags().StringVar(&serveScratchDir, "scratch-dir", "", "directory for intermediate files")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "Gemini model name")
	serveCmd.Flags().IntVar(&serveMaxConcurrent, "max-concurrent", 0, "maximum running analyses (0 for no limit)")
	serveCmd.Flags().StringVarP(&serveProfile, "profile", "p", "", "stored credential profile")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig(map[string]interface{}{
		"host":           serveHost,
		"port":           servePort,
		"scratch-dir":    serveScratchDir,
		"model":          serveModel,
		"max-concurrent": serveMaxConcurrent,
	})
	resolveCredentials(cfg, serveProfile)

	sessions, err := server.NewSessions(cfg.Server.SessionSecret)
	if err != nil {
		ui.PrintError("Session secret is not configured", "set SECRET_KEY or server.session_secret")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		ui.PrintError("Failed to start", err.Error())
		os.Exit(1)
	}

	srv := server.New(cfg.Server, server.Options{
		Store:       a.store,
		Pipeline:    a.pipeline,
		Files:       a.files,
		Sessions:    sessions,
		SubmitLimit: ratelimit.NewTokenBucket(cfg.RateLimit.BurstSize, time.Minute),
	}, a.log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ui.PrintInfo("Listening on", cfg.Server.Address())

	select {
	case err := <-errCh:
		if err != nil {
			a.log.WithError(err).Error("HTTP server failed")
			ui.PrintError("HTTP server failed", err.Error())
			a.close(cfg.Server.ShutdownTimeout)
			os.Exit(1)
		}
	case <-ctx.Done():
		a.log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("HTTP shutdown incomplete")
	}

	a.close(cfg.Server.ShutdownTimeout)
	ui.PrintSuccess("Server stopped")
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"redditanalyzer/internal/worker"
	"redditanalyzer/pkg/analysis"
	"redditanalyzer/pkg/auth"
	"redditanalyzer/pkg/collector"
	"redditanalyzer/pkg/config"
	"redditanalyzer/pkg/logger"
	"redditanalyzer/pkg/pipeline"
	"redditanalyzer/pkg/ratelimit"
	"redditanalyzer/pkg/reddit"
	"redditanalyzer/pkg/report"
	"redditanalyzer/pkg/retry"
	"redditanalyzer/pkg/storage"
	"redditanalyzer/pkg/tasks"
	"redditanalyzer/pkg/ui"
)

// app is the wired pipeline shared by serve and analyze
type app struct {
	cfg      *config.Config
	log      logger.Logger
	files    *storage.Manager
	store    *tasks.Store
	pipeline *pipeline.Orchestrator
}

// loadConfig loads the configuration or exits with a readable message
func loadConfig(flags map[string]interface{}) *config.Config {
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	return cfg
}

// resolveCredentials fills missing API credentials from the credential store
func resolveCredentials(cfg *config.Config, profile string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if err := manager.Resolve(cfg, profile); err != nil {
		ui.PrintError("Missing API credentials", err.Error())
		fmt.Println("\nTo store credentials securely, run:")
		fmt.Println("  redditanalyzer credentials set")
		fmt.Println("\nOr set environment variables:")
		fmt.Println("  export REDDIT_CLIENT_ID=...")
		fmt.Println("  export REDDIT_CLIENT_SECRET=...")
		fmt.Println("  export GEMINI_API_KEY=...")
		os.Exit(1)
	}
}

// newApp builds every pipeline component from cfg
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	log := logger.GetLogger()

	files, err := storage.NewManager(cfg.Storage.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("prepare scratch directory: %w", err)
	}
	log.WithField("path", files.GetScratchDir()).Debug("Scratch directory ready")

	prompt := ""
	if cfg.Gemini.PromptFile != "" {
		data, err := os.ReadFile(cfg.Gemini.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("read prompt file: %w", err)
		}
		prompt = string(data)
	}

	throttle := ratelimit.NewThrottle(ratelimit.NewSlidingWindow(cfg.RateLimit.RequestsPerMinute, time.Minute))
	client := reddit.NewClient(&cfg.Reddit, throttle, log)
	coll := collector.New(client, retry.RemoteConfig(cfg.Retry.MaxAttempts, cfg.Retry.BackoffMultiplier, log), log)

	gemini, err := analysis.NewGemini(ctx, &cfg.Gemini, log)
	if err != nil {
		return nil, fmt.Errorf("connect to gemini: %w", err)
	}
	gen := report.New(gemini, files, report.Options{
		PollInterval: cfg.Gemini.PollInterval,
		MaxPolls:     cfg.Gemini.MaxPolls,
		Prompt:       prompt,
	}, log)

	store := tasks.NewStore(log)
	pool := worker.NewPool(cfg.Workers.MaxConcurrent, log)

	return &app{
		cfg:      cfg,
		log:      log,
		files:    files,
		store:    store,
		pipeline: pipeline.New(store, coll, gen, pool, log),
	}, nil
}

// close waits for running tasks up to timeout and removes scratch files
func (a *app) close(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if abandoned, err := a.pipeline.Shutdown(ctx); err != nil {
		a.log.WithError(err).WithField("abandoned", abandoned).Warn("Tasks still running at shutdown")
	}
	if n := a.files.TrackedCount(); n > 0 {
		a.log.WithField("count", n).Debug("Removing scratch files")
	}
	if err := a.files.Cleanup(); err != nil {
		a.log.WithError(err).Warn("Failed to clean up scratch files")
	}
}

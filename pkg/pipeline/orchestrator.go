package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"redditanalyzer/internal/worker"
	"redditanalyzer/pkg/collector"
	"redditanalyzer/pkg/logger"
	"redditanalyzer/pkg/report"
	"redditanalyzer/pkg/tasks"
)

// ErrEmptyUsername is returned by Submit for a blank username
var ErrEmptyUsername = errors.New("username is required")

// Progress messages
const (
	MsgStarted    = "Task started."
	MsgScraping   = "Scraping Reddit data..."
	MsgResolution = "Failed to fetch user data."
	MsgScrape     = "Failed to scrape Reddit data."
	MsgAnalysing  = "Processing data through Gemini API..."
	MsgDone       = "Report generated successfully."
	MsgUnexpected = "An unexpected error occurred."
	MsgShutdown   = "Server shut down before the task started."
)

// Collector gathers the document for a user
type Collector interface {
	Collect(ctx context.Context, username string, progress collector.Progress) (string, error)
}

// Generator turns a document into a report file
type Generator interface {
	Generate(ctx context.Context, username, document string, progress report.Progress) (string, error)
}

// Orchestrator runs one collection and report generation per submitted username
type Orchestrator struct {
	store     *tasks.Store
	collector Collector
	generator Generator
	pool      *worker.Pool
	logger    logger.Logger
}

// New creates an orchestrator
func New(store *tasks.Store, c Collector, g Generator, pool *worker.Pool, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Orchestrator{
		store:     store,
		collector: c,
		generator: g,
		pool:      pool,
		logger:    log.WithField("component", "pipeline"),
	}
}

// Submit creates a task for username and starts it in the background
func (o *Orchestrator) Submit(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrEmptyUsername
	}

	task := o.store.Create(username)
	if err := task.Start(MsgStarted); err != nil {
		return "", err
	}

	log := o.logger.WithFields(map[string]interface{}{
		"task_id":  task.ID(),
		"username": username,
	})

	err := o.pool.Submit(worker.Job{
		ID:  task.ID(),
		Run: func(ctx context.Context) { o.run(ctx, task, username, log) },
		OnPanic: func(recovered interface{}) {
			log.ErrorWithFields("task crashed", map[string]interface{}{
				"panic": fmt.Sprint(recovered),
			})
			o.fail(task, MsgUnexpected, log)
		},
		OnDrop: func() {
			log.Warn("task dropped at shutdown")
			o.fail(task, MsgShutdown, log)
		},
	})
	if err != nil {
		o.fail(task, MsgUnexpected, log)
		return "", fmt.Errorf("schedule task: %w", err)
	}

	log.Info("task submitted")
	return task.ID(), nil
}

func (o *Orchestrator) run(ctx context.Context, task *tasks.Task, username string, log logger.Logger) {
	if err := task.SetProgress(MsgScraping); err != nil {
		log.WithError(err).Warn("task refused progress update")
		return
	}

	document, err := o.collector.Collect(ctx, username, task)
	if err != nil {
		if errors.Is(err, collector.ErrResolution) {
			log.WithError(err).Warn("user could not be resolved")
			o.fail(task, MsgResolution, log)
			return
		}
		log.WithError(err).Error("collection failed")
		o.fail(task, MsgScrape, log)
		return
	}

	if err := task.SetProgress(MsgAnalysing); err != nil {
		log.WithError(err).Warn("task refused progress update")
		return
	}
	reportPath, err := o.generator.Generate(ctx, username, document, task)
	if err != nil {
		log.WithError(err).Error("report generation failed")
		o.fail(task, report.FailureMessage(err), log)
		return
	}

	if _, err := os.Stat(reportPath); err != nil {
		log.WithError(err).ErrorWithFields("report file missing", map[string]interface{}{
			"path": reportPath,
		})
		o.fail(task, report.MsgGenericFailure, log)
		return
	}

	if err := task.Complete(reportPath, MsgDone); err != nil {
		log.WithError(err).Error("could not complete task")
		o.fail(task, MsgUnexpected, log)
		return
	}
	log.InfoWithFields("task completed", map[string]interface{}{
		"report": reportPath,
	})
}

// fail marks the task failed unless it already finished
func (o *Orchestrator) fail(task *tasks.Task, msg string, log logger.Logger) {
	if err := task.Fail(msg); err != nil {
		log.WithError(err).Debug("task already finished")
	}
}

// Shutdown stops accepting work and waits for running tasks. It returns the
// number of tasks abandoned when ctx expires first.
func (o *Orchestrator) Shutdown(ctx context.Context) (int, error) {
	return o.pool.Shutdown(ctx)
}

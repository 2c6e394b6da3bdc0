package report

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"redditanalyzer/pkg/analysis"
	"redditanalyzer/pkg/logger"
	"redditanalyzer/pkg/retry"
	"redditanalyzer/pkg/storage"
)

//go:embed prompt.md
var DefaultPrompt string

const (
	// DocumentMIMEType is the MIME type the collected document is uploaded with
	DocumentMIMEType = "text/markdown"

	acknowledgement = "Yes, I will do it."
	trigger         = "Yes Do IT!!!!"

	cleanupTimeout = 30 * time.Second
)

var (
	ErrUpload         = errors.New("upload to analysis service failed")
	ErrArtifactFailed = errors.New("analysis service could not process the document")
	ErrConversation   = errors.New("analysis conversation failed")
)

// Failure messages shown to pollers
const (
	MsgUploadFailed     = "Failed to upload file to Gemini API."
	MsgProcessingFailed = "Failed during Gemini processing."
	MsgGenericFailure   = "Failed to process data with Gemini API."
)

// Progress receives report generation progress
type Progress interface {
	SetProgress(msg string) error
}

// Options tunes a Generator
type Options struct {
	PollInterval time.Duration
	MaxPolls     int
	// Prompt replaces DefaultPrompt when set
	Prompt string
	// Sleep waits between polls; defaults to retry.Wait
	Sleep func(ctx context.Context, d time.Duration) error
}

// Generator runs the upload, wait and converse protocol against the analysis
// service and stores the reply as a report file.
type Generator struct {
	service analysis.Service
	storage *storage.Manager
	prompt  string
	poll    retry.PollConfig
	logger  logger.Logger
}

// New creates a report generator
func New(service analysis.Service, store *storage.Manager, opts Options, log logger.Logger) *Generator {
	if log == nil {
		log = logger.GetLogger()
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	return &Generator{
		service: service,
		storage: store,
		prompt:  prompt,
		poll: retry.PollConfig{
			Interval: opts.PollInterval,
			MaxPolls: opts.MaxPolls,
			Sleep:    opts.Sleep,
		},
		logger: log.WithField("component", "report"),
	}
}

// Generate analyses document and returns the path of the written report
func (g *Generator) Generate(ctx context.Context, username, document string, progress Progress) (string, error) {
	log := g.logger.WithField("username", username)

	g.report(progress.SetProgress("Initializing Gemini model..."))
	token := storage.NewToken()
	inputPath, err := g.storage.WriteData(username, token, document)
	if err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	defer func() {
		if err := g.storage.Remove(inputPath); err != nil {
			log.WithError(err).Warn("failed to remove temporary document")
		}
	}()

	g.report(progress.SetProgress("Uploading file to Gemini API..."))
	artifact, err := g.service.Upload(ctx, inputPath, DocumentMIMEType)
	if err != nil {
		g.report(progress.SetProgress(MsgUploadFailed))
		log.WithError(err).Error("upload failed")
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}
	defer g.deleteArtifact(ctx, artifact, log)

	g.report(progress.SetProgress("Waiting for Gemini to process the file..."))
	if err := g.awaitActive(ctx, artifact); err != nil {
		g.report(progress.SetProgress(MsgProcessingFailed))
		log.WithError(err).Error("artifact never became ready")
		return "", err
	}

	g.report(progress.SetProgress("Generating analysis report..."))
	history := []analysis.Turn{
		{Role: analysis.RoleUser, Text: g.prompt, Attachments: []*analysis.Artifact{artifact}},
		{Role: analysis.RoleModel, Text: acknowledgement},
	}
	reply, err := g.service.Converse(ctx, history, trigger)
	if err != nil {
		g.report(progress.SetProgress(MsgProcessingFailed))
		log.WithError(err).Error("conversation failed")
		return "", fmt.Errorf("%w: %w", ErrConversation, err)
	}

	reportPath, err := g.storage.WriteReport(username, token, reply)
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	log.InfoWithFields("report written", map[string]interface{}{
		"path":  reportPath,
		"bytes": len(reply),
	})
	return reportPath, nil
}

// awaitActive polls the artifact until it is active, failed, or the budget runs out
func (g *Generator) awaitActive(ctx context.Context, artifact *analysis.Artifact) error {
	return retry.Poll(ctx, g.poll, func(ctx context.Context) (bool, error) {
		state, err := g.service.State(ctx, artifact)
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrArtifactFailed, err)
		}
		switch state {
		case analysis.StateActive:
			return true, nil
		case analysis.StateProcessing:
			return false, nil
		default:
			return false, fmt.Errorf("%w: artifact %s is %s", ErrArtifactFailed, artifact.Name, state)
		}
	})
}

// deleteArtifact removes the remote copy, outliving cancellation of ctx
func (g *Generator) deleteArtifact(ctx context.Context, artifact *analysis.Artifact, log logger.Logger) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := g.service.Delete(cleanupCtx, artifact); err != nil {
		log.WithError(err).WarnWithFields("failed to delete remote artifact", map[string]interface{}{
			"artifact": artifact.Name,
		})
	}
}

func (g *Generator) report(err error) {
	if err != nil {
		g.logger.WithError(err).Debug("progress update rejected")
	}
}

// FailureMessage returns the progress text a task should fail with for err
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrUpload):
		return MsgUploadFailed
	case errors.Is(err, ErrArtifactFailed), errors.Is(err, retry.ErrPollTimeout), errors.Is(err, ErrConversation):
		return MsgProcessingFailed
	default:
		return MsgGenericFailure
	}
}

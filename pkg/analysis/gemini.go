package analysis

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"redditanalyzer/pkg/config"
	"redditanalyzer/pkg/logger"
)

// Gemini implements Service on the Gemini API
type Gemini struct {
	client     *genai.Client
	model      string
	generation *genai.GenerateContentConfig
	logger     logger.Logger
}

// NewGemini creates a Gemini-backed analysis service
func NewGemini(ctx context.Context, cfg *config.GeminiConfig, log logger.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{
		client:     client,
		model:      cfg.Model,
		generation: GenerationConfig(cfg),
		logger:     log.WithField("component", "gemini"),
	}, nil
}

// GenerationConfig maps the configured sampling settings onto a request config
func GenerationConfig(cfg *config.GeminiConfig) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(cfg.Temperature),
		TopP:             genai.Ptr(cfg.TopP),
		TopK:             genai.Ptr(cfg.TopK),
		MaxOutputTokens:  cfg.MaxOutputTokens,
		ResponseMIMEType: "text/plain",
	}
}

// Upload sends the file at path to the Files API
func (g *Gemini) Upload(ctx context.Context, path, mimeType string) (*Artifact, error) {
	file, err := g.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}

	g.logger.InfoWithFields("uploaded file", map[string]interface{}{
		"name": file.Name,
		"uri":  file.URI,
	})
	return &Artifact{Name: file.Name, URI: file.URI, MIMEType: file.MIMEType}, nil
}

// State fetches the artifact's current processing state
func (g *Gemini) State(ctx context.Context, artifact *Artifact) (ArtifactState, error) {
	file, err := g.client.Files.Get(ctx, artifact.Name, nil)
	if err != nil {
		return StateProcessing, fmt.Errorf("get file %s: %w", artifact.Name, err)
	}
	return stateOf(file.State), nil
}

// Converse opens a chat seeded with history and sends message
func (g *Gemini) Converse(ctx context.Context, history []Turn, message string) (string, error) {
	chat, err := g.client.Chats.Create(ctx, g.model, g.generation, toContents(history))
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("model returned an empty response")
	}
	return text, nil
}

// Delete removes the artifact from the Files API
func (g *Gemini) Delete(ctx context.Context, artifact *Artifact) error {
	if _, err := g.client.Files.Delete(ctx, artifact.Name, nil); err != nil {
		return fmt.Errorf("delete file %s: %w", artifact.Name, err)
	}
	return nil
}

func stateOf(state genai.FileState) ArtifactState {
	switch state {
	case genai.FileStateActive:
		return StateActive
	case genai.FileStateFailed:
		return StateFailed
	default:
		return StateProcessing
	}
}

func toContents(history []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		parts := make([]*genai.Part, 0, len(turn.Attachments)+1)
		for _, artifact := range turn.Attachments {
			parts = append(parts, genai.NewPartFromURI(artifact.URI, artifact.MIMEType))
		}
		if turn.Text != "" {
			parts = append(parts, genai.NewPartFromText(turn.Text))
		}

		var role genai.Role = genai.RoleUser
		if turn.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}

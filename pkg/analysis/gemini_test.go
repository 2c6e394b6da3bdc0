package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"redditanalyzer/pkg/config"
	"redditanalyzer/pkg/logger"
)

func TestStateOf(t *testing.T) {
	assert.Equal(t, StateActive, stateOf(genai.FileStateActive))
	assert.Equal(t, StateFailed, stateOf(genai.FileStateFailed))
	assert.Equal(t, StateProcessing, stateOf(genai.FileStateProcessing))
	assert.Equal(t, StateProcessing, stateOf(genai.FileStateUnspecified))
}

func TestToContents(t *testing.T) {
	artifact := &Artifact{Name: "files/abc", URI: "https://example/files/abc", MIMEType: "text/markdown"}
	contents := toContents([]Turn{
		{Role: RoleUser, Text: "analyze this", Attachments: []*Artifact{artifact}},
		{Role: RoleModel, Text: "Yes, I will do it."},
	})

	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	require.NotNil(t, contents[0].Parts[0].FileData)
	assert.Equal(t, artifact.URI, contents[0].Parts[0].FileData.FileURI)
	assert.Equal(t, "analyze this", contents[0].Parts[1].Text)

	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 1)
	assert.Equal(t, "Yes, I will do it.", contents[1].Parts[0].Text)
}

func TestGenerationConfig(t *testing.T) {
	cfg := config.DefaultConfig().Gemini
	gen := GenerationConfig(&cfg)

	require.NotNil(t, gen.Temperature)
	assert.Equal(t, float32(1), *gen.Temperature)
	assert.Equal(t, float32(0.95), *gen.TopP)
	assert.Equal(t, float32(64), *gen.TopK)
	assert.Equal(t, int32(8192), gen.MaxOutputTokens)
	assert.Equal(t, "text/plain", gen.ResponseMIMEType)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), &config.GeminiConfig{}, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestArtifactStateString(t *testing.T) {
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "processing", StateProcessing.String())
}

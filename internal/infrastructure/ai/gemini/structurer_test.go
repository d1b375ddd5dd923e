package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tablewise/server/internal/infrastructure/config"
)

func TestResponseText_ShouldJoinTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"title":`),
				genai.Blob{MIMEType: "image/png"},
				genai.Text(`"Soup"}`),
			}},
		}},
	}

	assert.Equal(t, `{"title":"Soup"}`, responseText(resp))
}

func TestResponseText_ShouldHandleEmptyAnswers(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))
}

func TestNewStructurer_ShouldRequireKey(t *testing.T) {
	_, err := NewStructurer(context.Background(), config.AIConfig{}, zaptest.NewLogger(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini_key")
}

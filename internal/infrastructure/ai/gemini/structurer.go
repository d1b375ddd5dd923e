// Package gemini provides a recipe structurer backed by Google Gemini
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/tablewise/server/internal/infrastructure/ai/structured"
	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/internal/ports/outbound"
	"github.com/tablewise/server/pkg/errors"
)

const (
	// DefaultModel is used when ai.gemini_model is unset
	DefaultModel = "gemini-1.5-flash"

	serviceName = "gemini"
)

// Structurer implements outbound.RecipeStructurer with the Gemini API
type Structurer struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	logger *zap.Logger
}

// NewStructurer creates a Gemini client configured for JSON recipe answers
func NewStructurer(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Structurer, error) {
	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("gemini structurer requires ai.gemini_key")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	name := cfg.GeminiModel
	if name == "" {
		name = DefaultModel
	}
	model := client.GenerativeModel(name)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(structured.SystemPrompt())}}
	model.ResponseMIMEType = "application/json"
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}

	logger.Info("Gemini structurer initialized", zap.String("model", name))
	return &Structurer{client: client, model: model, name: name, logger: logger.Named("gemini")}, nil
}

var _ outbound.RecipeStructurer = (*Structurer)(nil)

// Structure sends the text to Gemini and decodes its JSON answer
func (s *Structurer) Structure(ctx context.Context, text string) (*outbound.StructuredRecipe, error) {
	resp, err := s.model.GenerateContent(ctx, genai.Text(strings.TrimSpace(text)))
	if err != nil {
		return nil, errors.NewExternalServiceError(serviceName, "", fmt.Errorf("failed to generate content: %w", err))
	}

	if resp.UsageMetadata != nil {
		s.logger.Info("Gemini call successful",
			zap.String("model", s.name),
			zap.Int32("total_tokens", resp.UsageMetadata.TotalTokenCount),
		)
	}
	return structured.Decode(serviceName, responseText(resp))
}

// Close closes the underlying Gemini client
func (s *Structurer) Close() error {
	return s.client.Close()
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

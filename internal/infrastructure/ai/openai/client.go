// Package openai provides the OpenAI speech-to-text and recipe structuring adapters
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/pkg/errors"
)

const (
	// DefaultBaseURL is the public OpenAI REST endpoint
	DefaultBaseURL = "https://api.openai.com/v1"

	serviceName = "openai"
)

// Client talks to the OpenAI REST API
type Client struct {
	apiKey             string
	baseURL            string
	transcriptionModel string
	structuringModel   string
	maxTokens          int
	client             *http.Client
	logger             *zap.Logger
}

// NewClient creates a new OpenAI client from the AI configuration
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.OpenAIBaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		apiKey:             cfg.OpenAIKey,
		baseURL:            baseURL,
		transcriptionModel: cfg.TranscriptionModel,
		structuringModel:   cfg.StructuringModel,
		maxTokens:          cfg.MaxTokens,
		client:             &http.Client{Timeout: timeout},
		logger:             logger.Named("openai"),
	}
	if c.apiKey == "" {
		c.logger.Warn("OpenAI API key not configured; transcription and parsing will fail")
	} else {
		c.logger.Info("OpenAI client initialized", zap.String("base_url", baseURL))
	}
	return c
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Ping checks that the API answers with the configured key
func (c *Client) Ping(ctx context.Context) error {
	if !c.Configured() {
		return errNotConfigured()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	_, err = c.do(req)
	return err
}

// apiError is the error envelope OpenAI returns on non-2xx responses
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// do sends an authenticated request and returns the body of a 2xx response.
// Failures carry the upstream message when one is available.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope apiError
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			return nil, errors.NewExternalServiceError(serviceName, envelope.Error.Message,
				fmt.Errorf("status %d", resp.StatusCode))
		}
		return nil, errors.NewExternalServiceError(serviceName, "",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	return body, nil
}

func errNotConfigured() error {
	return errors.NewAppError(errors.CodeServiceUnavailable, "OpenAI API key is not configured", "")
}

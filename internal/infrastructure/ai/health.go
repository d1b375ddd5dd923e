// Package ai provides health check integration for AI services
package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tablewise/server/internal/infrastructure/ai/openai"
	"github.com/tablewise/server/pkg/healthcheck"
)

// HealthChecker reports whether the importer's AI provider is usable.
// Recipes and planning keep working without it, so failures only degrade.
type HealthChecker struct {
	openai     *openai.Client
	structurer string
	logger     *zap.Logger
}

// NewHealthChecker creates a new AI health checker
func NewHealthChecker(client *openai.Client, structurer string, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		openai:     client,
		structurer: structurer,
		logger:     logger.Named("ai-health"),
	}
}

var _ healthcheck.Checker = (*HealthChecker)(nil)

// Check pings the OpenAI API
func (h *HealthChecker) Check(ctx context.Context) healthcheck.Check {
	start := time.Now()
	check := healthcheck.Check{
		Name:        "ai",
		LastChecked: start,
		Metadata: map[string]interface{}{
			"transcriber": "openai",
			"structurer":  h.structurer,
		},
	}

	if !h.openai.Configured() {
		check.Status = healthcheck.StatusDegraded
		check.Message = "OpenAI API key not configured"
		check.Duration = time.Since(start)
		return check
	}

	err := h.openai.Ping(ctx)
	check.Duration = time.Since(start)
	if err != nil {
		h.logger.Warn("OpenAI health check failed", zap.Error(err))
		check.Status = healthcheck.StatusDegraded
		check.Message = err.Error()
		return check
	}

	check.Status = healthcheck.StatusHealthy
	return check
}

package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/tablewise/server/internal/infrastructure/ai/openai"
	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/pkg/healthcheck"
)

func TestHealthChecker_ShouldDegradeWithoutKey(t *testing.T) {
	logger := zaptest.NewLogger(t)
	checker := NewHealthChecker(openai.NewClient(config.AIConfig{}, logger), config.StructurerOpenAI, logger)

	check := checker.Check(context.Background())

	assert.Equal(t, healthcheck.StatusDegraded, check.Status)
	assert.Contains(t, check.Message, "not configured")
}

func TestHealthChecker_ShouldReflectPing(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   healthcheck.Status
	}{
		{"reachable", http.StatusOK, healthcheck.StatusHealthy},
		{"rejected key", http.StatusUnauthorized, healthcheck.StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/models", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"data":[]}`))
			}))
			defer srv.Close()

			logger := zaptest.NewLogger(t)
			client := openai.NewClient(config.AIConfig{OpenAIKey: "sk-test", OpenAIBaseURL: srv.URL}, logger)

			check := NewHealthChecker(client, config.StructurerGemini, logger).Check(context.Background())

			assert.Equal(t, tt.want, check.Status)
		})
	}
}

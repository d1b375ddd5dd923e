package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubChecker struct {
	status Status
	calls  atomic.Int32
	delay  time.Duration
}

func (s *stubChecker) Check(ctx context.Context) Check {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return Check{Status: s.status, LastChecked: time.Now()}
}

func TestHealthCheck_Check_NoCheckers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Empty(t, response.Checks)
}

func TestHealthCheck_Check_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]Status
		want     Status
	}{
		{"all healthy", map[string]Status{"a": StatusHealthy, "b": StatusHealthy}, StatusHealthy},
		{"one degraded", map[string]Status{"a": StatusHealthy, "b": StatusDegraded}, StatusDegraded},
		{"one unhealthy", map[string]Status{"a": StatusDegraded, "b": StatusUnhealthy, "c": StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			for name, status := range tt.statuses {
				hc.Register(name, &stubChecker{status: status})
			}

			response := hc.Check(context.Background())

			assert.Equal(t, tt.want, response.Status)
			assert.Len(t, response.Checks, len(tt.statuses))
			assert.Equal(t, "a", response.Checks[0].Name)
		})
	}
}

func TestHealthCheck_Check_ShouldRunConcurrently(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	delay := 50 * time.Millisecond
	for _, name := range []string{"one", "two", "three"} {
		hc.Register(name, &stubChecker{status: StatusHealthy, delay: delay})
	}

	start := time.Now()
	hc.Check(context.Background())

	assert.Less(t, time.Since(start), 2*delay+100*time.Millisecond)
}

func TestHealthCheck_Check_ShouldCacheResponses(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	checker := &stubChecker{status: StatusHealthy}
	hc.Register("db", checker)

	hc.Check(context.Background())
	hc.Check(context.Background())

	assert.Equal(t, int32(1), checker.calls.Load())

	hc.SetCacheTTL(0)
	hc.Check(context.Background())
	assert.Equal(t, int32(2), checker.calls.Load())
}

func TestHandlers_ShouldMapStatusCodes(t *testing.T) {
	// Arrange
	hc := New("1.0.0", zap.NewNop())
	hc.Register("ai", NewCustomChecker("ai", func(context.Context) (Status, string, interface{}) {
		return StatusDegraded, "key missing", nil
	}))

	// Act
	health := httptest.NewRecorder()
	hc.Handler()(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	ready := httptest.NewRecorder()
	hc.ReadinessHandler()(ready, httptest.NewRequest(http.MethodGet, "/ready", nil))
	live := httptest.NewRecorder()
	hc.LivenessHandler()(live, httptest.NewRequest(http.MethodGet, "/live", nil))

	// Assert
	assert.Equal(t, http.StatusOK, health.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(health.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Contains(t, body, "total_duration_ms")

	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
	assert.Equal(t, http.StatusOK, live.Code)
}

func TestDatabaseChecker_ShouldReportHealthyPool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	check := NewDatabaseChecker(sqlDB).Check(context.Background())

	assert.Equal(t, StatusHealthy, check.Status)
	assert.NotNil(t, check.Metadata)
}

func TestDatabaseChecker_ShouldReportClosedDatabase(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	check := NewDatabaseChecker(sqlDB).Check(context.Background())

	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.NotEmpty(t, check.Message)
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/internal/infrastructure/http/validation"
	"github.com/tablewise/server/internal/infrastructure/monitoring"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDeviceID_ShouldDefaultAndPropagate(t *testing.T) {
	var seen []string
	h := DeviceID(validation.New())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, GetDeviceID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceIDHeader, " tablet-1 ")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{DefaultDeviceID, "tablet-1"}, seen)
}

func TestDeviceID_ShouldRejectMalformedIDs(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceIDHeader, "../etc")
	rec := httptest.NewRecorder()

	DeviceID(validation.New())(ok).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid X-Device-ID header", decodeError(t, rec)["error"])
}

func TestJSONOnly(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"get passes", http.MethodGet, "", "", http.StatusOK},
		{"bodyless post passes", http.MethodPost, "", "", http.StatusOK},
		{"json body passes", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"form body rejected", http.MethodPatch, "a=b", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			JSONOnly()(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestCORS_ShouldAnswerPreflightForAllowedOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/recipes/1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()

	CORS([]string{"http://localhost:5173"})(ok).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), DeviceIDHeader)
}

func TestCORS_ShouldIgnoreUnknownOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()

	CORS([]string{"https://tablewise.app"})(ok).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurity_ShouldSetHeaders(t *testing.T) {
	rec := httptest.NewRecorder()

	Security()(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestRateLimiter_ShouldLimitPerClient(t *testing.T) {
	// Arrange
	l := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstSize: 2}, zaptest.NewLogger(t))
	frozen := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return frozen }
	h := l.Handler(ok)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// Act
	codes := []int{send("10.0.0.1:1000"), send("10.0.0.1:1001"), send("10.0.0.1:1002"), send("10.0.0.2:1000")}

	// Assert
	assert.Equal(t, []int{200, 200, 429, 200}, codes)
}

func TestRateLimiter_CleanupShouldDropIdleClients(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstSize: 1, CleanupInterval: time.Minute}, zap.NewNop())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.Allow("a")

	now = now.Add(30 * time.Second)
	l.Allow("b")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, l.Cleanup())
	assert.Len(t, l.clients, 1)
}

func TestLogger_ShouldSkipProbePaths(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logger(zap.New(core), "/health")(ok)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/recipes", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "/api/recipes", entry.ContextMap()["path"])
	assert.EqualValues(t, 200, entry.ContextMap()["status_code"])
}

func TestMetrics_ShouldLabelByRoutePattern(t *testing.T) {
	m := monitoring.NewMetrics()
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/recipes/{id}", ok)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/recipes/abc", nil))

	count, err := testutil.GatherAndCount(m.Registry(), "tablewise_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `route="/api/recipes/{id}"`)
}

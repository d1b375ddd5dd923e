package container

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/tablewise/server/internal/infrastructure/http/apiserver"
	"github.com/tablewise/server/internal/ports/inbound"
)

const testConfig = `
app:
  environment: test
  log_level: error
database:
  driver: sqlite
  path: ":memory:"
monitoring:
  enable_tracing: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestModule_ShouldValidateGraph(t *testing.T) {
	err := fx.ValidateApp(New(writeConfig(t, testConfig)), fx.NopLogger)

	assert.NoError(t, err)
}

func TestModule_ShouldBuildServerAndServices(t *testing.T) {
	// Arrange
	var (
		server  *apiserver.Server
		planner inbound.PlannerService
		meta    inbound.UserMetaService
	)

	// Act
	app := fx.New(
		New(writeConfig(t, testConfig)),
		fx.NopLogger,
		fx.Populate(&server, &planner, &meta),
	)

	// Assert
	require.NoError(t, app.Err())
	require.NotNil(t, server)
	assert.Same(t, planner, meta)

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestModule_ShouldRejectRedisStateWithoutRedis(t *testing.T) {
	app := fx.New(
		New(writeConfig(t, testConfig+"state:\n  backend: redis\n")),
		fx.NopLogger,
	)

	assert.Error(t, app.Err())
}

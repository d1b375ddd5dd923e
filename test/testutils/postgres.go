//go:build integration

package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/internal/infrastructure/persistence/migrations"
	"github.com/tablewise/server/internal/infrastructure/persistence/postgres"
)

// TestDatabase is a migrated PostgreSQL instance running in a container
type TestDatabase struct {
	Container testcontainers.Container
	DB        *gorm.DB
	Config    config.DatabaseConfig
}

// SetupTestDatabase starts postgres:15-alpine, applies the migrations and
// terminates the container at test cleanup
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	cfg := config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		Database: "tablewise_test",
		Username: "test_user",
		Password: "test_password",
		SSLMode:  "disable",
		LogLevel: "silent",
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       cfg.Database,
				"POSTGRES_USER":     cfg.Username,
				"POSTGRES_PASSWORD": cfg.Password,
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("5432/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	cfg.Host = host
	cfg.Port = port.Int()

	db, err := postgres.Open(ctx, cfg, log)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	migrator, err := migrations.New(sqlDB, cfg.Database, log)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())

	return &TestDatabase{Container: container, DB: db, Config: cfg}
}

// Truncate empties every table between tests
func (td *TestDatabase) Truncate(t *testing.T) {
	t.Helper()
	require.NoError(t, td.DB.Exec("TRUNCATE recipes, state_entries").Error)
}

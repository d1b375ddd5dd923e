// Package testutils provides common testing utilities and infrastructure setup
package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/internal/infrastructure/persistence/sqlite"
)

// SQLiteConfig returns a quiet in-memory database configuration
func SQLiteConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		Path:     sqlite.MemoryPath,
		LogLevel: "silent",
	}
}

// SetupSQLite opens a migrated in-memory database closed at test cleanup
func SetupSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := sqlite.Open(SQLiteConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

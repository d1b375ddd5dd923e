// Package sqlite provides SQLite database setup and configuration
package sqlite

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tablewise/server/internal/infrastructure/config"
	gormstore "github.com/tablewise/server/internal/infrastructure/persistence/gorm"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Open creates the SQLite database at cfg.Path and brings its schema up to
// date. An empty path opens an in-memory database.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	path := cfg.Path
	if path == "" {
		path = MemoryPath
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger: gormstore.NewLogger(log, cfg.LogLevel, cfg.SlowQueryThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// SQLite serialises writers; one connection also keeps :memory: shared
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(gormstore.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("SQLite database ready", zap.String("path", path))
	return db, nil
}

func dsn(path string) string {
	if path == MemoryPath {
		return path
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL"
}

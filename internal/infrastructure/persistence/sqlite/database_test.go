package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tablewise/server/internal/infrastructure/config"
	gormstore "github.com/tablewise/server/internal/infrastructure/persistence/gorm"
)

func TestOpen_ShouldCreateSchemaOnDisk(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "tablewise.db")

	// Act
	db, err := Open(config.DatabaseConfig{Path: path}, zaptest.NewLogger(t))

	// Assert
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&gormstore.RecipeModel{}))
	assert.True(t, db.Migrator().HasTable(&gormstore.StateEntryModel{}))

	store := gormstore.NewStateStore(db)
	require.NoError(t, store.Put(context.Background(), "device/default/plan", []byte("{}")))
	got, err := store.Get(context.Background(), "device/default/plan")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))
}

func TestOpen_ShouldDefaultToMemory(t *testing.T) {
	db, err := Open(config.DatabaseConfig{}, zaptest.NewLogger(t))

	require.NoError(t, err)
	all, err := gormstore.NewRecipeRepository(db).FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

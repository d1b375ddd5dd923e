//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tablewise/server/internal/domain/recipe"
	gormstore "github.com/tablewise/server/internal/infrastructure/persistence/gorm"
	"github.com/tablewise/server/test/testutils"
)

type PostgresStoreTestSuite struct {
	suite.Suite
	db    *testutils.TestDatabase
	repo  *gormstore.RecipeRepository
	state *gormstore.StateStore
	ctx   context.Context
}

func (s *PostgresStoreTestSuite) SetupSuite() {
	s.db = testutils.SetupTestDatabase(s.T())
	s.repo = gormstore.NewRecipeRepository(s.db.DB)
	s.state = gormstore.NewStateStore(s.db.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreTestSuite) SetupTest() {
	s.db.Truncate(s.T())
}

func (s *PostgresStoreTestSuite) TestRecipe_ShouldRoundTripThroughMigratedSchema() {
	// Arrange
	minutes := 20
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	snap := testutils.NewRecipeBuilder().
		WithID("pg-1").
		WithTitle("Shakshuka").
		WithIngredients("4 eggs", "1 can tomatoes").
		WithSteps("Simmer sauce.", "Poach eggs.").
		WithCookTime(minutes).
		WithTags("Vegetarian").
		CreatedAt(created).
		Snapshot()

	// Act
	s.Require().NoError(s.repo.Create(s.ctx, recipe.FromSnapshot(snap)))
	found, err := s.repo.FindByID(s.ctx, "pg-1")

	// Assert
	s.Require().NoError(err)
	s.Equal(snap.Title, found.Title())
	s.Equal(snap.Ingredients, found.Ingredients())
	s.Equal(&minutes, found.CookTime())
	s.True(found.CreatedAt().Equal(created))
}

func (s *PostgresStoreTestSuite) TestDelete_ShouldReportMissingRecipe() {
	err := s.repo.Delete(s.ctx, "missing")

	s.ErrorIs(err, recipe.ErrRecipeNotFound)
}

func (s *PostgresStoreTestSuite) TestStateStore_ShouldListKeysByPrefix() {
	// Arrange
	s.Require().NoError(s.state.Put(s.ctx, "device:a:planner", []byte(`{"a":1}`)))
	s.Require().NoError(s.state.Put(s.ctx, "device:a:meta:r1", []byte(`{}`)))
	s.Require().NoError(s.state.Put(s.ctx, "device:b:planner", []byte(`{}`)))

	// Act
	keys, err := s.state.Keys(s.ctx, "device:a:")

	// Assert
	s.Require().NoError(err)
	s.ElementsMatch([]string{"device:a:planner", "device:a:meta:r1"}, keys)
}

func TestPostgresStoreTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreTestSuite))
}
